package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipwright/clipwright/internal/filtergraph"
	"github.com/clipwright/clipwright/internal/history"
	"github.com/clipwright/clipwright/internal/pipeline"
	"github.com/clipwright/clipwright/internal/scratch"
)

// fakeStore makes downloads succeed with dummy bytes or fail, and never
// uploads. The handler tests exercise request handling and error mapping,
// not transcoding; transcoder-dependent paths live in the pipeline tests.
type fakeStore struct {
	failDownload bool
}

func (s *fakeStore) Download(_ context.Context, url, dstPath string) error {
	if s.failDownload {
		return fmt.Errorf("unreachable: %s", url)
	}
	return os.WriteFile(dstPath, []byte("dummy media"), 0600)
}

func (s *fakeStore) Upload(_ context.Context, _, folder string, _ bool) (string, error) {
	return "https://store.test/" + folder + "/result", nil
}

// fakeHistory records entries in memory.
type fakeHistory struct {
	entries   []*history.Entry
	recordErr error
}

func (f *fakeHistory) Record(_ context.Context, e *history.Entry) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) Get(_ context.Context, id string) (*history.Entry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, history.ErrEntryNotFound
}

func (f *fakeHistory) List(_ context.Context, limit int) ([]*history.Entry, error) {
	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func newTestHandlers(t *testing.T, store *fakeStore, hist history.Repository) *Handlers {
	t.Helper()
	space, err := scratch.NewSpace(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	compiler := filtergraph.NewCompiler(logger)
	pipe := pipeline.New(store, space, compiler, pipeline.NewRunner("", ""), logger,
		pipeline.WithTimeouts(pipeline.Timeouts{
			Download: 5 * time.Second,
			Exec:     5 * time.Second,
			Upload:   5 * time.Second,
		}))
	return NewHandlers(pipe, hist, logger)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	h := newTestHandlers(t, &fakeStore{}, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateEditValidation(t *testing.T) {
	h := newTestHandlers(t, &fakeStore{}, nil)

	t.Run("invalid JSON", func(t *testing.T) {
		rec := postJSON(t, h.CreateEdit, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
	})

	t.Run("missing source URL", func(t *testing.T) {
		rec := postJSON(t, h.CreateEdit, `{"operation":"trim"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	})

	t.Run("malformed source URL", func(t *testing.T) {
		rec := postJSON(t, h.CreateEdit, `{"source_url":"not-a-url","operation":"trim"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	})

	t.Run("missing operation", func(t *testing.T) {
		rec := postJSON(t, h.CreateEdit, `{"source_url":"https://cdn.test/in.mp4"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	})
}

func TestCreateEditDownloadFailure(t *testing.T) {
	h := newTestHandlers(t, &fakeStore{failDownload: true}, nil)

	rec := postJSON(t, h.CreateEdit,
		`{"source_url":"https://cdn.test/in.mp4","operation":"trim","params":{"start":0,"end":1}}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "DOWNLOAD_FAILED", decodeError(t, rec).Code)
}

func TestCreateEditCompileFailure(t *testing.T) {
	hist := &fakeHistory{}
	h := newTestHandlers(t, &fakeStore{}, hist)

	// Inverted trim window fails in the compile stage, after download.
	rec := postJSON(t, h.CreateEdit,
		`{"source_url":"https://cdn.test/in.mp4","operation":"trim","params":{"start":5,"end":1}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "COMPILE_FAILED", decodeError(t, rec).Code)

	require.Len(t, hist.entries, 1, "failures are recorded too")
	assert.Equal(t, "failed", hist.entries[0].Status)
	assert.NotEmpty(t, hist.entries[0].Error)
}

func TestCreateEditHistoryFailureIsAdvisory(t *testing.T) {
	hist := &fakeHistory{recordErr: errors.New("disk full")}
	h := newTestHandlers(t, &fakeStore{failDownload: true}, hist)

	rec := postJSON(t, h.CreateEdit,
		`{"source_url":"https://cdn.test/in.mp4","operation":"trim","params":{"start":0,"end":1}}`)

	// The response reflects the pipeline outcome, not the history failure.
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "DOWNLOAD_FAILED", decodeError(t, rec).Code)
}

func TestCreateMergeValidation(t *testing.T) {
	h := newTestHandlers(t, &fakeStore{}, nil)

	t.Run("invalid JSON", func(t *testing.T) {
		rec := postJSON(t, h.CreateMerge, "oops")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
	})

	t.Run("single clip rejected", func(t *testing.T) {
		rec := postJSON(t, h.CreateMerge, `{"clip_urls":["https://cdn.test/a.mp4"]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	})

	t.Run("malformed clip URL rejected", func(t *testing.T) {
		rec := postJSON(t, h.CreateMerge, `{"clip_urls":["https://cdn.test/a.mp4","nope"]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	})
}

func TestCreateMergeDownloadFailure(t *testing.T) {
	h := newTestHandlers(t, &fakeStore{failDownload: true}, nil)

	rec := postJSON(t, h.CreateMerge,
		`{"clip_urls":["https://cdn.test/a.mp4","https://cdn.test/b.mp4"]}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "DOWNLOAD_FAILED", decodeError(t, rec).Code)
}

func TestListEdits(t *testing.T) {
	t.Run("nil history returns empty list", func(t *testing.T) {
		h := newTestHandlers(t, &fakeStore{}, nil)

		rec := httptest.NewRecorder()
		h.ListEdits(rec, httptest.NewRequest(http.MethodGet, "/edits", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("entries round trip", func(t *testing.T) {
		hist := &fakeHistory{entries: []*history.Entry{
			{
				ID:        "abc",
				Operation: "trim",
				SourceURL: "https://cdn.test/in.mp4",
				ResultURL: "https://store.test/videos/out.mp4",
				Status:    "completed",
				Elapsed:   1200 * time.Millisecond,
				CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			},
		}}
		h := newTestHandlers(t, &fakeStore{}, hist)

		rec := httptest.NewRecorder()
		h.ListEdits(rec, httptest.NewRequest(http.MethodGet, "/edits", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var out []HistoryEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out, 1)
		assert.Equal(t, "abc", out[0].ID)
		assert.Equal(t, int64(1200), out[0].ElapsedMs)
		assert.Equal(t, "2026-03-01T12:00:00Z", out[0].CreatedAt)
	})
}

func TestMapPipelineError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient inputs", pipeline.ErrInsufficientInputs, http.StatusBadRequest, "INSUFFICIENT_INPUTS"},
		{"compile", &pipeline.CompileError{Operation: "trim", Err: errors.New("bad")}, http.StatusBadRequest, "COMPILE_FAILED"},
		{"download", &pipeline.DownloadError{URL: "u", Err: errors.New("bad")}, http.StatusBadGateway, "DOWNLOAD_FAILED"},
		{"execution", &pipeline.ExecutionError{Err: errors.New("bad")}, http.StatusInternalServerError, "EXECUTION_FAILED"},
		{"verification", &pipeline.VerificationError{Path: "p", Err: errors.New("bad")}, http.StatusInternalServerError, "VERIFICATION_FAILED"},
		{"upload", &pipeline.UploadError{Err: errors.New("bad")}, http.StatusBadGateway, "UPLOAD_FAILED"},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := mapPipelineError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestRouterWiring(t *testing.T) {
	h := newTestHandlers(t, &fakeStore{}, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(h, logger)

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

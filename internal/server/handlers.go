package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clipwright/clipwright/internal/history"
	"github.com/clipwright/clipwright/internal/instruction"
	"github.com/clipwright/clipwright/internal/pipeline"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	pipe      *pipeline.Pipeline
	hist      history.Repository // nil disables history
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance. hist may be nil when
// history recording is disabled.
func NewHandlers(pipe *pipeline.Pipeline, hist history.Repository, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		pipe:      pipe,
		hist:      hist,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateEdit handles POST /edits requests.
func (h *Handlers) CreateEdit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	instr := instruction.New(req.Operation, req.Params)

	start := time.Now()
	result, err := h.pipe.Process(r.Context(), req.SourceURL, instr, req.IsImage)
	h.record(r.Context(), req.Operation, req.SourceURL, result, time.Since(start), err)
	if err != nil {
		h.logger.Error("transformation failed",
			slog.String("operation", req.Operation),
			slog.String("error", err.Error()),
		)
		status, code := mapPipelineError(err)
		writeError(w, status, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, EditResponse{ResultURL: result.URL, Warning: result.Warning})
}

// CreateMerge handles POST /merges requests.
func (h *Handlers) CreateMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	sourceURL := ""
	if len(req.ClipURLs) > 0 {
		sourceURL = req.ClipURLs[0]
	}

	start := time.Now()
	result, err := h.pipe.Merge(r.Context(), req.ClipURLs, func(pct float64) {
		h.logger.Debug("merge progress", slog.Float64("pct", pct))
	})
	h.record(r.Context(), "merge", sourceURL, result, time.Since(start), err)
	if err != nil {
		h.logger.Error("merge failed",
			slog.Int("clips", len(req.ClipURLs)),
			slog.String("error", err.Error()),
		)
		status, code := mapPipelineError(err)
		writeError(w, status, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, EditResponse{ResultURL: result.URL})
}

// ListEdits handles GET /edits requests.
func (h *Handlers) ListEdits(w http.ResponseWriter, r *http.Request) {
	if h.hist == nil {
		writeJSON(w, http.StatusOK, []HistoryEntry{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.hist.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list history",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list history", "HISTORY_ERROR")
		return
	}

	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
			ID:        e.ID,
			Operation: e.Operation,
			SourceURL: e.SourceURL,
			ResultURL: e.ResultURL,
			Status:    e.Status,
			Warning:   e.Warning,
			Error:     e.Error,
			ElapsedMs: e.Elapsed.Milliseconds(),
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// record writes a history entry. Advisory only: failures are logged, never
// surfaced.
func (h *Handlers) record(ctx context.Context, operation, sourceURL string, result pipeline.Result, elapsed time.Duration, pipeErr error) {
	if h.hist == nil {
		return
	}

	entry := &history.Entry{
		Operation: operation,
		SourceURL: sourceURL,
		ResultURL: result.URL,
		Status:    "completed",
		Warning:   result.Warning,
		Elapsed:   elapsed,
	}
	if pipeErr != nil {
		entry.Status = "failed"
		entry.Error = pipeErr.Error()
	}

	if err := h.hist.Record(ctx, entry); err != nil {
		h.logger.Warn("failed to record history entry",
			slog.String("error", err.Error()),
		)
	}
}

// mapPipelineError maps the pipeline error taxonomy to HTTP status and
// error codes the caller can branch on.
func mapPipelineError(err error) (int, string) {
	var (
		downloadErr *pipeline.DownloadError
		compileErr  *pipeline.CompileError
		execErr     *pipeline.ExecutionError
		verifyErr   *pipeline.VerificationError
		uploadErr   *pipeline.UploadError
	)
	switch {
	case errors.Is(err, pipeline.ErrInsufficientInputs):
		return http.StatusBadRequest, "INSUFFICIENT_INPUTS"
	case errors.As(err, &compileErr):
		return http.StatusBadRequest, "COMPILE_FAILED"
	case errors.As(err, &downloadErr):
		return http.StatusBadGateway, "DOWNLOAD_FAILED"
	case errors.As(err, &execErr):
		return http.StatusInternalServerError, "EXECUTION_FAILED"
	case errors.As(err, &verifyErr):
		return http.StatusInternalServerError, "VERIFICATION_FAILED"
	case errors.As(err, &uploadErr):
		return http.StatusBadGateway, "UPLOAD_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

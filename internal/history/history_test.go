package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRecordAndGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	e := &Entry{
		Operation: "trim",
		SourceURL: "https://cdn.test/in.mp4",
		ResultURL: "https://cdn.test/out.mp4",
		Status:    "completed",
		Elapsed:   1500 * time.Millisecond,
	}
	if err := repo.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if e.ID == "" {
		t.Fatal("Record() should assign an ID")
	}
	if e.CreatedAt.IsZero() {
		t.Fatal("Record() should assign a timestamp")
	}

	got, err := repo.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Operation != "trim" || got.ResultURL != e.ResultURL || got.Status != "completed" {
		t.Errorf("Get() = %+v", got)
	}
	if got.Elapsed != 1500*time.Millisecond {
		t.Errorf("Elapsed = %v, want 1.5s", got.Elapsed)
	}
}

func TestRecordFailedEdit(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	e := &Entry{
		Operation: "colorGrade",
		SourceURL: "https://cdn.test/in.mp4",
		Status:    "failed",
		Error:     "unknown preset \"nope\"",
	}
	if err := repo.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := repo.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Error == "" || got.ResultURL != "" {
		t.Errorf("failed entry round-trip = %+v", got)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.Get(context.Background(), "no-such-id")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Get() error = %v, want ErrEntryNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := &Entry{
			Operation: "trim",
			SourceURL: "https://cdn.test/in.mp4",
			Status:    "completed",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() len = %d, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
			t.Errorf("entries not sorted newest first: %v before %v",
				entries[i-1].CreatedAt, entries[i].CreatedAt)
		}
	}
}

func TestListLimit(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, &Entry{
			Operation: "rotate",
			SourceURL: "https://cdn.test/in.mp4",
			Status:    "completed",
		}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("List(2) len = %d", len(entries))
	}
}

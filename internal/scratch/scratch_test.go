package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSpaceCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "scratch")
	s, err := NewSpace(dir)
	if err != nil {
		t.Fatalf("NewSpace() error = %v", err)
	}
	if s.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", s.Dir(), dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("scratch directory was not created: %v", err)
	}
}

func TestNewSpaceUnwritable(t *testing.T) {
	// A regular file in the directory position makes MkdirAll fail.
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSpace(filepath.Join(blocker, "scratch")); err == nil {
		t.Error("NewSpace() on a path under a regular file should fail")
	}
}

func TestNewFileUniqueness(t *testing.T) {
	s, err := NewSpace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p := s.NewFile(".mp4")
		if seen[p] {
			t.Fatalf("NewFile returned duplicate path %q", p)
		}
		seen[p] = true
	}
}

func TestNewFileExtension(t *testing.T) {
	s, err := NewSpace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ext  string
		want string
	}{
		{".mp4", ".mp4"},
		{"mp4", ".mp4"}, // missing dot is added
		{"", ""},
	}
	for _, tt := range tests {
		p := s.NewFile(tt.ext)
		if got := filepath.Ext(p); got != tt.want {
			t.Errorf("NewFile(%q) ext = %q, want %q", tt.ext, got, tt.want)
		}
		if !strings.HasPrefix(p, s.Dir()) {
			t.Errorf("NewFile(%q) = %q, not under scratch dir", tt.ext, p)
		}
	}
}

func TestTrackerCleanup(t *testing.T) {
	s, err := NewSpace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tr := s.NewTracker(nil)

	created := tr.NewFile(".mp4")
	if err := os.WriteFile(created, []byte("data"), 0600); err != nil {
		t.Fatal(err)
	}
	neverWritten := tr.NewFile(".ass")

	if got := len(tr.Paths()); got != 2 {
		t.Fatalf("Paths() len = %d, want 2", got)
	}

	tr.Cleanup()

	if _, err := os.Stat(created); !os.IsNotExist(err) {
		t.Errorf("cleanup left %q behind", created)
	}
	if _, err := os.Stat(neverWritten); !os.IsNotExist(err) {
		t.Errorf("unexpected file at never-written path %q", neverWritten)
	}

	// Idempotent: a second cleanup with everything gone must not panic or
	// re-remove.
	tr.Cleanup()
	if got := len(tr.Paths()); got != 0 {
		t.Errorf("Paths() after cleanup = %d, want 0", got)
	}
}

func TestTrackerConcurrentNewFile(t *testing.T) {
	s, err := NewSpace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tr := s.NewTracker(nil)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 25; j++ {
				tr.NewFile(".tmp")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if got := len(tr.Paths()); got != 200 {
		t.Errorf("Paths() len = %d, want 200", got)
	}
	tr.Cleanup()
}

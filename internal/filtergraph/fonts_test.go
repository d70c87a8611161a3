package filtergraph

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFontCandidatesPerPlatform(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows", "plan9"} {
		if len(fontCandidates(goos)) == 0 {
			t.Errorf("fontCandidates(%q) is empty", goos)
		}
	}
}

func TestPathFontResolver(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.ttf")
	if err := os.WriteFile(present, []byte("font"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("first existing candidate wins", func(t *testing.T) {
		r := &PathFontResolver{Candidates: []string{
			filepath.Join(dir, "missing.ttf"),
			present,
		}}
		got, ok := r.Resolve()
		if !ok || got != present {
			t.Errorf("Resolve() = %q, %v", got, ok)
		}
	})

	t.Run("directories are not fonts", func(t *testing.T) {
		r := &PathFontResolver{Candidates: []string{dir}}
		if _, ok := r.Resolve(); ok {
			t.Error("Resolve() matched a directory")
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		r := &PathFontResolver{}
		if _, ok := r.Resolve(); ok {
			t.Error("Resolve() with no candidates should report not found")
		}
	})
}

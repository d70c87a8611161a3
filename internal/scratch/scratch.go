// Package scratch manages the temporary artifacts created during a single
// transformation call. Every generated filename carries a uniqueness token
// so concurrent calls sharing the scratch directory can never collide, and
// a per-call Tracker guarantees cleanup on success and failure alike.
package scratch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnwritable is returned when the scratch directory cannot be written.
// The engine fails fast on this rather than attempting partial work.
var ErrUnwritable = errors.New("scratch directory is not writable")

// Space is the process-wide scratch directory. It is created lazily at
// construction and probe-verified writable before first use.
type Space struct {
	dir string
}

// NewSpace creates the scratch directory if needed and verifies it is
// writable. An empty dir defaults under os.TempDir().
func NewSpace(dir string) (*Space, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "clipwright")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}

	probe := filepath.Join(dir, ".probe_"+uuid.NewString())
	if err := os.WriteFile(probe, nil, 0600); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnwritable, dir, err)
	}
	_ = os.Remove(probe)

	return &Space{dir: dir}, nil
}

// Dir returns the scratch directory path.
func (s *Space) Dir() string {
	return s.dir
}

// NewFile allocates a unique scratch path with the given extension (with
// or without the leading dot). Any stale file at the path is removed,
// since the transcoder may refuse to overwrite silently.
func (s *Space) NewFile(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
	path := filepath.Join(s.dir, name)
	_ = os.Remove(path)
	return path
}

// Tracker records the scratch files created during one call. It is owned
// exclusively by that call; Cleanup is idempotent and tolerates files that
// were never created or are already gone.
type Tracker struct {
	space  *Space
	logger *slog.Logger

	mu    sync.Mutex
	paths []string
}

// NewTracker creates a Tracker for a single call.
func (s *Space) NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{space: s, logger: logger}
}

// NewFile allocates a unique scratch path and records it for cleanup.
func (t *Tracker) NewFile(ext string) string {
	path := t.space.NewFile(ext)
	t.mu.Lock()
	t.paths = append(t.paths, path)
	t.mu.Unlock()
	return path
}

// Paths returns a copy of the recorded paths.
func (t *Tracker) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.paths))
	copy(out, t.paths)
	return out
}

// Cleanup removes every recorded file. It never fails the call: removal
// errors other than "already gone" are logged and swallowed, since cleanup
// runs on error paths where the original failure must propagate.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	paths := t.paths
	t.paths = nil
	t.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			t.logger.Warn("failed to remove scratch file",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}
}

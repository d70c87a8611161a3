package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes the external transcoder. One subprocess per call; the
// context bounds execution and kills the process on timeout.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
}

// NewRunner creates a Runner. Empty paths default to the binaries found
// via PATH.
func NewRunner(ffmpegPath, ffprobePath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Runner{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Run executes ffmpeg with the given arguments, capturing stderr for
// diagnosis. Context cancellation is reported distinctly from transcoder
// failures.
func (r *Runner) Run(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transcoder cancelled: %w", ctx.Err())
		}
		return &TranscoderError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// RunWithProgress executes ffmpeg with machine-readable progress on stdout
// and reports completion as a fraction of totalSec through onProgress.
// Progress is advisory; parse failures never fail the run.
func (r *Runner) RunWithProgress(ctx context.Context, args []string, totalSec float64, onProgress func(pct float64)) error {
	if onProgress == nil || totalSec <= 0 {
		return r.Run(ctx, args)
	}

	full := append([]string{"-progress", "pipe:1", "-nostats"}, args...)
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffmpegPath, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attach progress pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start transcoder: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if sec, ok := parseProgressLine(scanner.Text()); ok {
			pct := sec / totalSec * 100
			if pct > 100 {
				pct = 100
			}
			onProgress(pct)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transcoder cancelled: %w", ctx.Err())
		}
		return &TranscoderError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	onProgress(100)
	return nil
}

// parseProgressLine extracts the elapsed output time in seconds from one
// key=value line of ffmpeg -progress output.
func parseProgressLine(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if v, ok := strings.CutPrefix(line, "out_time_ms="); ok {
		// out_time_ms is in microseconds despite the name.
		us, err := strconv.ParseInt(v, 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		return float64(us) / 1e6, true
	}
	return 0, false
}

// Probe returns the duration in seconds of a media file using ffprobe.
func (r *Runner) Probe(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("probe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("probe %s: %w, stderr: %s", path, err, stderr.String())
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse probed duration: %w", err)
	}
	return duration, nil
}

// TranscoderError carries the failed invocation and its stderr output.
type TranscoderError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *TranscoderError) Error() string {
	return fmt.Sprintf("transcoder error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *TranscoderError) Unwrap() error {
	return e.Err
}

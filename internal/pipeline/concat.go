package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ProgressFunc receives advisory completion percentages during a merge.
type ProgressFunc func(pct float64)

// Merge concatenates the clips at clipURLs, in input order, into a single
// re-encoded output and uploads it. It requires at least two inputs. The
// concat demuxer joins the local copies via a manifest file rather than a
// filter graph, preserving per-clip timestamps; the final re-encode
// guarantees one consistent codec and container across heterogeneous
// inputs.
func (p *Pipeline) Merge(ctx context.Context, clipURLs []string, onProgress ProgressFunc) (Result, error) {
	if len(clipURLs) < 2 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInsufficientInputs, len(clipURLs))
	}

	tracker := p.space.NewTracker(p.logger)
	defer tracker.Cleanup()

	start := time.Now()

	// Download every clip to its own scratch path, preserving order.
	clipPaths := make([]string, 0, len(clipURLs))
	for _, clipURL := range clipURLs {
		clipPath := tracker.NewFile(sourceExt(clipURL, false))
		if err := p.download(ctx, clipURL, clipPath); err != nil {
			return Result{}, &DownloadError{URL: clipURL, Err: err}
		}
		clipPaths = append(clipPaths, clipPath)
	}

	// Total expected duration feeds the advisory progress percentage. A
	// probe failure only disables progress, never the merge.
	totalSec := p.totalDuration(ctx, clipPaths)

	manifestPath := tracker.NewFile(".txt")
	if err := writeConcatManifest(manifestPath, clipPaths); err != nil {
		return Result{}, &CompileError{Operation: "merge", Err: err}
	}

	outputPath := tracker.NewFile(".mp4")
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-b:a", "128k",
		outputPath,
	}

	execCtx, cancel := context.WithTimeout(ctx, p.timeouts.Exec)
	defer cancel()
	if err := p.runner.RunWithProgress(execCtx, args, totalSec, onProgress); err != nil {
		return Result{}, &ExecutionError{Err: err}
	}

	if err := verifyOutput(outputPath); err != nil {
		return Result{}, &VerificationError{Path: outputPath, Err: err}
	}

	resultURL, err := p.upload(ctx, outputPath, false)
	if err != nil {
		return Result{}, &UploadError{Err: err}
	}

	p.logger.Info("merge complete",
		slog.Int("clips", len(clipURLs)),
		slog.String("result_url", resultURL),
		slog.Duration("elapsed", time.Since(start)),
	)
	return Result{URL: resultURL}, nil
}

// totalDuration probes every clip and sums the durations. Returns 0 when
// any probe fails, which disables progress reporting.
func (p *Pipeline) totalDuration(ctx context.Context, clipPaths []string) float64 {
	var total float64
	for _, clipPath := range clipPaths {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeouts.Exec)
		duration, err := p.runner.Probe(probeCtx, clipPath)
		cancel()
		if err != nil {
			p.logger.Warn("probe failed, progress reporting disabled",
				slog.String("path", clipPath),
				slog.String("error", err.Error()),
			)
			return 0
		}
		total += duration
	}
	return total
}

// writeConcatManifest writes the concat demuxer file list: one absolute,
// quote-escaped path per line, in order.
func writeConcatManifest(manifestPath string, clipPaths []string) error {
	var b strings.Builder
	for _, clipPath := range clipPaths {
		absPath, err := filepath.Abs(clipPath)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", clipPath, err)
		}
		escaped := strings.ReplaceAll(absPath, "'", "'\\''")
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(manifestPath, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

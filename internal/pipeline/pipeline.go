package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/clipwright/clipwright/internal/artifact"
	"github.com/clipwright/clipwright/internal/filtergraph"
	"github.com/clipwright/clipwright/internal/instruction"
	"github.com/clipwright/clipwright/internal/scratch"
	"github.com/clipwright/clipwright/internal/subtitle"
)

// Result is the outcome of a successful transformation.
type Result struct {
	// URL is the public URL of the uploaded result.
	URL string
	// Warning is set when the instruction degraded to a pass-through copy
	// because the operation was not recognized. It is not an error.
	Warning string
}

// Timeouts bounds each blocking step independently.
type Timeouts struct {
	Download time.Duration
	Exec     time.Duration
	Upload   time.Duration
}

// DefaultTimeouts returns conservative step bounds.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Download: 2 * time.Minute,
		Exec:     10 * time.Minute,
		Upload:   2 * time.Minute,
	}
}

// Pipeline ties the artifact store, filter graph compiler, subtitle
// generator and transcoder runner together. Each Process or Merge call is
// a self-contained unit of work; no mutable state is shared across calls,
// so a single Pipeline is safe for concurrent use.
type Pipeline struct {
	store    artifact.Store
	space    *scratch.Space
	compiler *filtergraph.Compiler
	runner   *Runner
	logger   *slog.Logger
	timeouts Timeouts
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTimeouts overrides the per-step timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(p *Pipeline) { p.timeouts = t }
}

// New creates a Pipeline.
func New(store artifact.Store, space *scratch.Space, compiler *filtergraph.Compiler, runner *Runner, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		store:    store,
		space:    space,
		compiler: compiler,
		runner:   runner,
		logger:   logger,
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one transformation: download → compile → execute → verify →
// upload. Scratch artifacts created along the way are removed on every
// exit path. Errors propagate as the typed taxonomy in this package; the
// pipeline never substitutes its own fallback output.
func (p *Pipeline) Process(ctx context.Context, mediaURL string, instr instruction.Instruction, isImage bool) (Result, error) {
	tracker := p.space.NewTracker(p.logger)
	defer tracker.Cleanup()

	start := time.Now()
	log := p.logger.With(
		slog.String("operation", instr.Name),
		slog.Bool("is_image", isImage),
	)

	// Downloading. Failure here is fatal: there is nothing to process.
	inputPath := tracker.NewFile(sourceExt(mediaURL, isImage))
	if err := p.download(ctx, mediaURL, inputPath); err != nil {
		return Result{}, &DownloadError{URL: mediaURL, Err: err}
	}

	// Compiling, including any auxiliary artifacts the instruction needs.
	req, err := p.buildCompileRequest(ctx, tracker, instr, isImage, inputPath)
	if err != nil {
		return Result{}, err
	}

	cmd, err := p.compiler.Compile(req)
	if err != nil {
		return Result{}, &CompileError{Operation: instr.Name, Err: err}
	}

	var warning string
	if cmd.PassThrough && instr.Kind == instruction.KindUnknown {
		warning = fmt.Sprintf("unknown operation %q: source copied without edits", instr.Name)
		log.Warn("unknown operation, passing source through unedited",
			slog.String("operation", instr.Name),
		)
	}

	// Executing.
	outputPath := tracker.NewFile(outputExt(inputPath, isImage))
	execCtx, cancel := context.WithTimeout(ctx, p.timeouts.Exec)
	defer cancel()
	if err := p.runner.Run(execCtx, cmd.Args(inputPath, outputPath)); err != nil {
		return Result{}, &ExecutionError{Err: err}
	}

	// Verifying: a subprocess "success" without a real output file is a
	// failure.
	if err := verifyOutput(outputPath); err != nil {
		return Result{}, &VerificationError{Path: outputPath, Err: err}
	}

	// Uploading.
	resultURL, err := p.upload(ctx, outputPath, isImage)
	if err != nil {
		return Result{}, &UploadError{Err: err}
	}

	log.Info("transformation complete",
		slog.String("result_url", resultURL),
		slog.Duration("elapsed", time.Since(start)),
	)
	return Result{URL: resultURL, Warning: warning}, nil
}

// buildCompileRequest prepares the auxiliary artifacts an instruction
// needs before compilation: a generated subtitle track, a downloaded music
// or logo asset, or the probed source duration.
func (p *Pipeline) buildCompileRequest(ctx context.Context, tracker *scratch.Tracker, instr instruction.Instruction, isImage bool, inputPath string) (filtergraph.Request, error) {
	req := filtergraph.Request{Instr: instr, IsImage: isImage}

	if filtergraph.NeedsSubtitleTrack(instr.Kind) {
		params, err := instr.Subtitles()
		if err != nil {
			return req, &CompileError{Operation: instr.Name, Err: err}
		}
		subPath := tracker.NewFile(".ass")
		if err := subtitle.Generate(params.Captions, params.Style, subPath); err != nil {
			return req, &CompileError{Operation: instr.Name, Err: err}
		}
		req.SubtitlePath = subPath
	}

	if filtergraph.NeedsAudioAsset(instr.Kind) {
		params, err := instr.Music()
		if err != nil {
			return req, &CompileError{Operation: instr.Name, Err: err}
		}
		audioPath := tracker.NewFile(sourceExt(params.AudioURL, false))
		if err := p.download(ctx, params.AudioURL, audioPath); err != nil {
			return req, &DownloadError{URL: params.AudioURL, Err: err}
		}
		req.AudioAssetPath = audioPath
	}

	if instr.Kind == instruction.KindApplyBrandKit {
		params, err := instr.BrandKit()
		if err != nil {
			return req, &CompileError{Operation: instr.Name, Err: err}
		}
		if params.LogoURL != "" {
			logoPath := tracker.NewFile(sourceExt(params.LogoURL, true))
			if err := p.download(ctx, params.LogoURL, logoPath); err != nil {
				return req, &DownloadError{URL: params.LogoURL, Err: err}
			}
			req.LogoAssetPath = logoPath
		}
	}

	if filtergraph.NeedsDuration(instr.Kind) && !isImage {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeouts.Exec)
		defer cancel()
		duration, err := p.runner.Probe(probeCtx, inputPath)
		if err != nil {
			return req, &ExecutionError{Err: err}
		}
		req.DurationSec = duration
	}

	return req, nil
}

// download fetches a blob within the download timeout.
func (p *Pipeline) download(ctx context.Context, url, dstPath string) error {
	dlCtx, cancel := context.WithTimeout(ctx, p.timeouts.Download)
	defer cancel()
	return p.store.Download(dlCtx, url, dstPath)
}

// upload persists a result within the upload timeout.
func (p *Pipeline) upload(ctx context.Context, localPath string, isImage bool) (string, error) {
	upCtx, cancel := context.WithTimeout(ctx, p.timeouts.Upload)
	defer cancel()

	folder := "videos"
	if isImage {
		folder = "images"
	}
	return p.store.Upload(upCtx, localPath, folder, isImage)
}

// verifyOutput confirms the output artifact exists and is non-empty.
func verifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyOutput, err)
	}
	if info.Size() == 0 {
		return ErrEmptyOutput
	}
	return nil
}

// sourceExt derives a scratch extension from a media URL so the transcoder
// can infer the container, defaulting by resource kind.
func sourceExt(mediaURL string, isImage bool) string {
	if u, err := url.Parse(mediaURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	if isImage {
		return ".png"
	}
	return ".mp4"
}

// outputExt picks the output container: images keep their input container,
// videos normalize to mp4.
func outputExt(inputPath string, isImage bool) string {
	if isImage {
		if ext := path.Ext(inputPath); ext != "" {
			return ext
		}
		return ".png"
	}
	return ".mp4"
}

package filtergraph

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/clipwright/clipwright/internal/instruction"
)

// Static errors for compilation.
var (
	// ErrUnknownPreset is returned when a preset name has no table entry.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrMergeNotCompilable is returned for merge instructions, which are
	// handled by the concatenation pipeline rather than a filter graph.
	ErrMergeNotCompilable = errors.New("merge is handled by the concatenation pipeline")
	// ErrDurationRequired is returned when an operation needs the clip
	// duration (fade-out) but none was provided.
	ErrDurationRequired = errors.New("operation requires source duration")
)

// Command is a compiled transcoder invocation: everything except the
// concrete input and output paths, which the pipeline supplies at
// execution time.
type Command struct {
	// PassThrough marks a no-op instruction: the source is copied, not
	// edited. Compiled for unknown operations and elided trivial filters.
	PassThrough bool

	// InputArgs precede the main -i input (seek options for trim).
	InputArgs []string
	// ExtraInputs are additional local files added as -i inputs, in order
	// (background music, brand logo).
	ExtraInputs []string

	// Video and Audio are simple per-stream chains, used when the graph has
	// a single linear path. Graph is a -filter_complex expression used for
	// multi-stream topologies; it is mutually exclusive with the chains.
	Video Chain
	Audio Chain
	Graph string
	// MapArgs select output streams when Graph is set.
	MapArgs []string

	// OutputArgs precede the output path (codec and container settings).
	OutputArgs []string
}

// Args assembles the complete ffmpeg argument list for the given input and
// output paths.
func (c *Command) Args(inputPath, outputPath string) []string {
	if c.PassThrough {
		return []string{"-y", "-i", inputPath, "-c", "copy", outputPath}
	}

	args := []string{"-y"}
	args = append(args, c.InputArgs...)
	args = append(args, "-i", inputPath)
	for _, extra := range c.ExtraInputs {
		args = append(args, "-i", extra)
	}

	if c.Graph != "" {
		args = append(args, "-filter_complex", c.Graph)
		args = append(args, c.MapArgs...)
	} else {
		if len(c.Video) > 0 {
			args = append(args, "-vf", c.Video.String())
		}
		if len(c.Audio) > 0 {
			args = append(args, "-af", c.Audio.String())
		}
	}

	args = append(args, c.OutputArgs...)
	args = append(args, outputPath)
	return args
}

// Request carries one instruction plus the auxiliary artifacts the pipeline
// prepared for it. Auxiliary paths are absolute local paths.
type Request struct {
	Instr   instruction.Instruction
	IsImage bool

	// SubtitlePath is the generated ASS file for caption burn-in.
	SubtitlePath string
	// AudioAssetPath is the downloaded background music file.
	AudioAssetPath string
	// LogoAssetPath is the downloaded brand logo image.
	LogoAssetPath string
	// DurationSec is the probed source duration, needed for fade-out.
	DurationSec float64
}

// NeedsSubtitleTrack reports whether the operation requires a generated
// subtitle file before compilation.
func NeedsSubtitleTrack(k instruction.Kind) bool {
	return k == instruction.KindAddCaptions || k == instruction.KindCustomSubtitle
}

// NeedsAudioAsset reports whether the operation requires a downloaded
// audio asset.
func NeedsAudioAsset(k instruction.Kind) bool {
	return k == instruction.KindAddMusic
}

// NeedsDuration reports whether the operation requires the probed source
// duration to compile.
func NeedsDuration(k instruction.Kind) bool {
	return k == instruction.KindAddTransition
}

// Compiler turns instructions into Commands. It is stateless apart from
// the injected preset table and font resolver, so a single instance is
// safe for concurrent use.
type Compiler struct {
	presets *PresetTable
	fonts   FontResolver
	logger  *slog.Logger
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithFontResolver overrides the platform font resolver.
func WithFontResolver(r FontResolver) CompilerOption {
	return func(c *Compiler) { c.fonts = r }
}

// WithPresetTable overrides the preset table.
func WithPresetTable(t *PresetTable) CompilerOption {
	return func(c *Compiler) { c.presets = t }
}

// NewCompiler creates a Compiler with platform defaults.
func NewCompiler(logger *slog.Logger, opts ...CompilerOption) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Compiler{
		presets: NewPresetTable(),
		fonts:   DefaultFontResolver(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile maps an instruction to a Command. Unknown operations compile to
// a pass-through copy; structurally invalid parameters are errors.
func (c *Compiler) Compile(req Request) (*Command, error) {
	switch req.Instr.Kind {
	case instruction.KindTrim:
		return c.compileTrim(req)
	case instruction.KindColorGrade, instruction.KindFilter:
		return c.compileColorGrade(req)
	case instruction.KindApplyEffect:
		return c.compileEffect(req)
	case instruction.KindAddText, instruction.KindCustomText:
		return c.compileText(req)
	case instruction.KindAddTransition:
		return c.compileTransition(req)
	case instruction.KindAddMusic:
		return c.compileMusic(req)
	case instruction.KindApplyBrandKit:
		return c.compileBrandKit(req)
	case instruction.KindRemoveClip:
		return c.compileRemoveClip(req)
	case instruction.KindAddCaptions, instruction.KindCustomSubtitle:
		return c.compileSubtitles(req)
	case instruction.KindAdjustSpeed:
		return c.compileSpeed(req)
	case instruction.KindRotate:
		return c.compileRotate(req)
	case instruction.KindCrop:
		return c.compileCrop(req)
	case instruction.KindRemoveObject:
		return c.compileRemoveObject(req)
	case instruction.KindMerge:
		return nil, ErrMergeNotCompilable
	default:
		return &Command{PassThrough: true}, nil
	}
}

// videoOutputArgs returns the default encoding settings for the media
// kind. Video normalizes to H.264/AAC in an MP4 container; images emit a
// single frame.
func videoOutputArgs(isImage, audioFiltered bool) []string {
	if isImage {
		return []string{"-frames:v", "1"}
	}
	args := []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	}
	if audioFiltered {
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	} else {
		args = append(args, "-c:a", "copy")
	}
	return args
}

func (c *Compiler) compileTrim(req Request) (*Command, error) {
	p, err := req.Instr.Trim()
	if err != nil {
		return nil, err
	}
	return &Command{
		InputArgs:  []string{"-ss", formatSeconds(p.Start), "-to", formatSeconds(p.End)},
		OutputArgs: videoOutputArgs(req.IsImage, false),
	}, nil
}

func (c *Compiler) compileColorGrade(req Request) (*Command, error) {
	p, err := req.Instr.ColorGrade()
	if err != nil {
		return nil, err
	}
	grade, ok := c.presets.Grade(p.Preset)
	if !ok {
		return nil, fmt.Errorf("%w: color grade %q", ErrUnknownPreset, p.Preset)
	}
	return &Command{
		Video:      gradeChain(grade),
		OutputArgs: videoOutputArgs(req.IsImage, false),
	}, nil
}

// gradeChain renders a ColorGrade's parameters as filter stages.
func gradeChain(g ColorGrade) Chain {
	eq := NewFilter("eq").
		RawArg("contrast", formatNum(g.Contrast)).
		RawArg("brightness", formatNum(g.Brightness)).
		RawArg("saturation", formatNum(g.Saturation)).
		RawArg("gamma", formatNum(g.Gamma))
	chain := Chain{eq}

	if g.Temperature > 0 {
		chain = append(chain, NewFilter("colortemperature").
			RawArg("temperature", fmt.Sprintf("%.0f", g.Temperature)))
	}
	if g.Grain > 0 {
		chain = append(chain, NewFilter("noise").
			RawArg("alls", fmt.Sprintf("%.0f", g.Grain)).
			RawArg("allf", "t+u"))
	}
	if g.Vignette {
		chain = append(chain, NewFilter("vignette"))
	}
	return chain
}

func (c *Compiler) compileEffect(req Request) (*Command, error) {
	p, err := req.Instr.Effect()
	if err != nil {
		return nil, err
	}
	effect, ok := c.presets.Effect(p.Preset)
	if !ok {
		return nil, fmt.Errorf("%w: effect %q", ErrUnknownPreset, p.Preset)
	}

	amount := effect.Amount * p.Intensity
	cmd := &Command{OutputArgs: videoOutputArgs(req.IsImage, false)}

	switch effect.Kind {
	case EffectBlur:
		cmd.Video = Chain{NewFilter("boxblur").RawArg("", fmt.Sprintf("%.0f", amount))}
	case EffectSharpen:
		cmd.Video = Chain{NewFilter("unsharp").RawArg("", fmt.Sprintf("5:5:%.2f:5:5:0", amount))}
	case EffectGrain:
		cmd.Video = Chain{NewFilter("noise").
			RawArg("alls", fmt.Sprintf("%.0f", amount)).
			RawArg("allf", "t+u")}
	case EffectVignette:
		cmd.Video = Chain{NewFilter("vignette").RawArg("a", formatNum(amount))}
	case EffectSepia:
		cmd.Video = Chain{NewFilter("colorchannelmixer").
			RawArg("", ".393:.769:.189:0:.349:.686:.168:0:.272:.534:.131")}
	case EffectGrayscale:
		cmd.Video = Chain{NewFilter("hue").RawArg("s", "0")}
	case EffectGlow:
		// Screen-blend a blurred copy over the original.
		cmd.Graph = fmt.Sprintf(
			"[0:v]split=2[base][soft];[soft]gblur=sigma=%.1f[blurred];[base][blurred]blend=all_mode=screen:all_opacity=0.4[vout]",
			amount)
		cmd.MapArgs = mapArgs(req.IsImage, false)
	default:
		return nil, fmt.Errorf("%w: effect kind %q", ErrUnknownPreset, effect.Kind)
	}
	return cmd, nil
}

// textStyle is the preset styling vocabulary for text overlays.
type textStyle struct {
	Size     int
	Color    string
	Position string
	Box      bool
}

// textStyles maps text preset names to their default styling.
var textStyles = map[string]textStyle{
	"title":    {Size: 64, Color: "white", Position: "center", Box: false},
	"subtitle": {Size: 36, Color: "white", Position: "bottom", Box: true},
	"caption":  {Size: 24, Color: "white", Position: "bottom", Box: true},
	"lowerThird": {
		Size: 32, Color: "white", Position: "bottom-left", Box: true,
	},
}

func (c *Compiler) compileText(req Request) (*Command, error) {
	p, err := req.Instr.Text()
	if err != nil {
		return nil, err
	}

	// Preset styling and explicit styling are the same builder: start from
	// the preset (or caption defaults) and let explicit parameters win.
	style, ok := textStyles[p.Preset]
	if !ok {
		style = textStyles["caption"]
	}
	if p.Size != 0 {
		style.Size = p.Size
	}
	if p.Color != "" {
		style.Color = p.Color
	}
	if p.Position != "" {
		style.Position = p.Position
	}
	if p.BackgroundColor != "" {
		style.Box = true
	}

	draw := NewFilter("drawtext")
	if fontPath, found := c.fonts.Resolve(); found {
		draw.Arg("fontfile", fontPath)
	} else {
		c.logger.Debug("no font candidate found, relying on transcoder default")
	}
	draw.Arg("text", p.Text)
	draw.RawArg("fontsize", fmt.Sprintf("%d", instruction.ClampFontSize(style.Size)))
	draw.Arg("fontcolor", style.Color)

	x, y := textPosition(style.Position)
	draw.RawArg("x", x).RawArg("y", y)

	if style.Box {
		bg := p.BackgroundColor
		if bg == "" {
			bg = "black"
		}
		draw.RawArg("box", "1").
			Arg("boxcolor", bg+"@0.7").
			RawArg("boxborderw", "12")
	}
	if p.Shadow {
		draw.Arg("shadowcolor", "black@0.6").
			RawArg("shadowx", "2").
			RawArg("shadowy", "2")
	}
	if p.End > p.Start && p.End > 0 {
		draw.RawArg("enable", fmt.Sprintf("'between(t,%s,%s)'",
			formatSeconds(p.Start), formatSeconds(p.End)))
	}

	return &Command{
		Video:      Chain{draw},
		OutputArgs: videoOutputArgs(req.IsImage, false),
	}, nil
}

func (c *Compiler) compileTransition(req Request) (*Command, error) {
	p, err := req.Instr.Transition()
	if err != nil {
		return nil, err
	}
	tr, ok := c.presets.Transition(p.Preset)
	if !ok {
		return nil, fmt.Errorf("%w: transition %q", ErrUnknownPreset, p.Preset)
	}
	if tr.Out && req.DurationSec <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDurationRequired, p.Preset)
	}

	var video, audio Chain
	if tr.In {
		video = append(video, NewFilter("fade").
			RawArg("t", "in").RawArg("st", "0").RawArg("d", formatSeconds(p.Duration)))
		audio = append(audio, NewFilter("afade").
			RawArg("t", "in").RawArg("st", "0").RawArg("d", formatSeconds(p.Duration)))
	}
	if tr.Out {
		start := req.DurationSec - p.Duration
		if start < 0 {
			start = 0
		}
		video = append(video, NewFilter("fade").
			RawArg("t", "out").RawArg("st", formatSeconds(start)).RawArg("d", formatSeconds(p.Duration)))
		audio = append(audio, NewFilter("afade").
			RawArg("t", "out").RawArg("st", formatSeconds(start)).RawArg("d", formatSeconds(p.Duration)))
	}

	cmd := &Command{Video: video}
	if !req.IsImage {
		cmd.Audio = audio
	}
	cmd.OutputArgs = videoOutputArgs(req.IsImage, len(cmd.Audio) > 0)
	return cmd, nil
}

func (c *Compiler) compileMusic(req Request) (*Command, error) {
	p, err := req.Instr.Music()
	if err != nil {
		return nil, err
	}
	if req.AudioAssetPath == "" {
		return nil, fmt.Errorf("%w: addMusic requires a downloaded audio asset", instruction.ErrInvalidParams)
	}

	// Loop the music under the original audio, cut at the video's length.
	graph := fmt.Sprintf(
		"[1:a]aloop=loop=-1:size=2e9,volume=%s[bg];[0:a][bg]amix=inputs=2:duration=first:dropout_transition=2[aout]",
		formatNum(p.Volume))

	return &Command{
		ExtraInputs: []string{req.AudioAssetPath},
		Graph:       graph,
		MapArgs:     []string{"-map", "0:v", "-map", "[aout]"},
		OutputArgs:  videoOutputArgs(false, true),
	}, nil
}

// overlayCorner maps a corner position name to overlay offset expressions
// with a margin.
func overlayCorner(position string) (x, y string) {
	switch position {
	case "top-left":
		return "20", "20"
	case "top-right":
		return "W-w-20", "20"
	case "bottom-left":
		return "20", "H-h-20"
	default: // bottom-right
		return "W-w-20", "H-h-20"
	}
}

func (c *Compiler) compileBrandKit(req Request) (*Command, error) {
	p, err := req.Instr.BrandKit()
	if err != nil {
		return nil, err
	}

	if p.LogoURL != "" {
		if req.LogoAssetPath == "" {
			return nil, fmt.Errorf("%w: applyBrandKit requires a downloaded logo asset", instruction.ErrInvalidParams)
		}
		x, y := overlayCorner(p.Position)
		graph := fmt.Sprintf(
			"[1:v]scale=iw*0.15:-1[logo];[0:v][logo]overlay=%s:%s[vout]", x, y)
		return &Command{
			ExtraInputs: []string{req.LogoAssetPath},
			Graph:       graph,
			MapArgs:     mapArgs(req.IsImage, false),
			OutputArgs:  videoOutputArgs(req.IsImage, false),
		}, nil
	}

	// No logo: render the brand name as a corner watermark.
	draw := NewFilter("drawtext")
	if fontPath, found := c.fonts.Resolve(); found {
		draw.Arg("fontfile", fontPath)
	}
	x, y := textPosition(p.Position)
	draw.Arg("text", p.BrandName).
		RawArg("fontsize", "28").
		Arg("fontcolor", p.Color+"@0.85").
		RawArg("x", x).
		RawArg("y", y)

	return &Command{
		Video:      Chain{draw},
		OutputArgs: videoOutputArgs(req.IsImage, false),
	}, nil
}

func (c *Compiler) compileRemoveClip(req Request) (*Command, error) {
	p, err := req.Instr.RemoveClip()
	if err != nil {
		return nil, err
	}

	keep := fmt.Sprintf("'not(between(t,%s,%s))'", formatSeconds(p.Start), formatSeconds(p.End))
	graph := fmt.Sprintf(
		"[0:v]select=%s,setpts=N/FRAME_RATE/TB[vout];[0:a]aselect=%s,asetpts=N/SR/TB[aout]",
		keep, keep)

	return &Command{
		Graph:      graph,
		MapArgs:    []string{"-map", "[vout]", "-map", "[aout]"},
		OutputArgs: videoOutputArgs(false, true),
	}, nil
}

func (c *Compiler) compileSubtitles(req Request) (*Command, error) {
	if _, err := req.Instr.Subtitles(); err != nil {
		return nil, err
	}
	if req.SubtitlePath == "" {
		return nil, fmt.Errorf("%w: subtitle burn-in requires a generated track", instruction.ErrInvalidParams)
	}

	sub := NewFilter("subtitles").RawArg("filename", "'"+escapePath(req.SubtitlePath)+"'")
	return &Command{
		Video:      Chain{sub},
		OutputArgs: videoOutputArgs(req.IsImage, false),
	}, nil
}

func (c *Compiler) compileSpeed(req Request) (*Command, error) {
	p, err := req.Instr.Speed()
	if err != nil {
		return nil, err
	}
	// A factor of 1.0 is a no-op: elide the trivial filter entirely.
	if p.Factor == 1.0 {
		return &Command{PassThrough: true}, nil
	}

	video := Chain{NewFilter("setpts").RawArg("", fmt.Sprintf("PTS/%.4f", p.Factor))}
	audio := atempoChain(p.Factor)

	cmd := &Command{Video: video}
	if !req.IsImage {
		cmd.Audio = audio
	}
	cmd.OutputArgs = videoOutputArgs(req.IsImage, len(cmd.Audio) > 0)
	return cmd, nil
}

// atempoChain builds a chain of atempo filters for a tempo change. atempo
// only supports 0.5-2.0 per stage, so larger factors are chained.
func atempoChain(factor float64) Chain {
	var chain Chain
	remaining := factor
	for remaining > 2.0 {
		chain = append(chain, NewFilter("atempo").RawArg("", "2.0"))
		remaining /= 2.0
	}
	for remaining < 0.5 {
		chain = append(chain, NewFilter("atempo").RawArg("", "0.5"))
		remaining /= 0.5
	}
	if remaining != 1.0 {
		chain = append(chain, NewFilter("atempo").RawArg("", fmt.Sprintf("%.4f", remaining)))
	}
	return chain
}

func (c *Compiler) compileRotate(req Request) (*Command, error) {
	p, err := req.Instr.Rotate()
	if err != nil {
		return nil, err
	}
	if p.Degrees == 0 {
		return &Command{PassThrough: true}, nil
	}

	var video Chain
	switch p.Degrees {
	// Right-angle rotations compose transpose stages: lossless in the
	// sense of no resampling or corner fill.
	case 90:
		video = Chain{NewFilter("transpose").RawArg("", "1")}
	case 180:
		video = Chain{
			NewFilter("transpose").RawArg("", "1"),
			NewFilter("transpose").RawArg("", "1"),
		}
	case 270:
		video = Chain{NewFilter("transpose").RawArg("", "2")}
	default:
		rot := NewFilter("rotate").
			RawArg("", fmt.Sprintf("%.4f*PI/180", p.Degrees)).
			RawArg("ow", "hypot(iw\\,ih)").
			RawArg("oh", "ow").
			Arg("c", p.FillColor)
		video = Chain{rot}
	}

	return &Command{
		Video:      video,
		OutputArgs: videoOutputArgs(req.IsImage, false),
	}, nil
}

func (c *Compiler) compileCrop(req Request) (*Command, error) {
	p, err := req.Instr.Crop()
	if err != nil {
		return nil, err
	}

	crop := NewFilter("crop").
		RawArg("w", fmt.Sprintf("iw*%s", formatNum(p.Width))).
		RawArg("h", fmt.Sprintf("ih*%s", formatNum(p.Height))).
		RawArg("x", fmt.Sprintf("iw*%s", formatNum(p.X))).
		RawArg("y", fmt.Sprintf("ih*%s", formatNum(p.Y)))

	// h264 requires even dimensions after cropping.
	even := NewFilter("scale").
		RawArg("w", "trunc(iw/2)*2").
		RawArg("h", "trunc(ih/2)*2")

	return &Command{
		Video:      Chain{crop, even},
		OutputArgs: videoOutputArgs(req.IsImage, false),
	}, nil
}

func (c *Compiler) compileRemoveObject(req Request) (*Command, error) {
	p, err := req.Instr.RemoveObject()
	if err != nil {
		return nil, err
	}

	region := ResolveRegion(p.Region)
	if region.Name != p.Region {
		c.logger.Warn("unsupported region, falling back to center",
			slog.String("region", p.Region),
		)
	}

	var transform string
	if p.Mode == "blackout" {
		transform = "lutrgb=r=0:g=0:b=0"
	} else {
		transform = "boxblur=20"
	}

	// Three stages: isolate the region, transform it, recomposite at the
	// identical offset.
	x, y := region.OverlayXY()
	graph := fmt.Sprintf(
		"[0:v]split=2[base][iso];[iso]%s[rg];[rg]%s[proc];[base][proc]overlay=%s:%s[vout]",
		region.CropFilter().String(), transform, x, y)

	return &Command{
		Graph:      graph,
		MapArgs:    mapArgs(req.IsImage, false),
		OutputArgs: videoOutputArgs(req.IsImage, false),
	}, nil
}

// mapArgs selects the complex-graph video output plus the original audio
// stream when the input is a video.
func mapArgs(isImage, audioFromGraph bool) []string {
	args := []string{"-map", "[vout]"}
	if audioFromGraph {
		return append(args, "-map", "[aout]")
	}
	if !isImage {
		args = append(args, "-map", "0:a?")
	}
	return args
}

// formatSeconds renders a time value with millisecond precision.
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// formatNum renders a float compactly, trimming trailing zeros.
func formatNum(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%g", v)
}

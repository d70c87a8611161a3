package instruction

import (
	"math"
	"strconv"
)

// Clamping bounds applied at the boundary. Numeric parameters from the
// instruction source are trusted in name only; every value is clamped or
// sanity-checked before the compiler sees it.
const (
	MinFontSize = 12
	MaxFontSize = 120

	MinSpeedFactor = 0.25
	MaxSpeedFactor = 4.0
)

// TrimParams selects a [Start, End) window of the source, in seconds.
type TrimParams struct {
	Start float64
	End   float64
}

// ColorGradeParams names a color grade preset.
type ColorGradeParams struct {
	Preset string
}

// EffectParams names a visual effect preset with an optional intensity
// multiplier (1.0 when absent).
type EffectParams struct {
	Preset    string
	Intensity float64
}

// TextParams describes a text overlay. Zero values mean "use the preset
// default"; explicit values always win over preset styling.
type TextParams struct {
	Text            string
	Preset          string
	Size            int
	Color           string
	Position        string
	BackgroundColor string
	Shadow          bool
	Start           float64
	End             float64
}

// TransitionParams names a transition preset with an optional duration.
type TransitionParams struct {
	Preset   string
	Duration float64
}

// MusicParams references an audio track to mix under the original audio.
type MusicParams struct {
	AudioURL string
	Volume   float64
}

// BrandKitParams applies brand styling: a logo overlay when LogoURL is
// given, otherwise a brand name text overlay.
type BrandKitParams struct {
	LogoURL   string
	BrandName string
	Color     string
	Position  string
}

// SpeedParams scales the playback rate.
type SpeedParams struct {
	Factor float64
}

// RotateParams rotates by Degrees. Exact multiples of 90 are lossless.
type RotateParams struct {
	Degrees   float64
	FillColor string
}

// CropParams is a normalized fractional rectangle: all fields in [0, 1],
// relative to the frame dimensions.
type CropParams struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RemoveObjectParams blurs or blacks out a named region.
type RemoveObjectParams struct {
	Region string
	Mode   string // "blur" (default) or "blackout"
}

// Caption is a single timed caption record from the transcription service.
type Caption struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SubtitleStyle fully determines the generated subtitle track's styling.
type SubtitleStyle struct {
	Color           string `json:"color"`
	Size            int    `json:"size"`
	Position        string `json:"position"` // top, bottom, center
	Emphasis        string `json:"emphasisStyle"`
	BackgroundColor string `json:"backgroundColor"`
}

// CaptionsParams carries the caption list plus style for subtitle burn-in.
type CaptionsParams struct {
	Captions []Caption
	Style    SubtitleStyle
}

// ClampFontSize bounds a requested font size to [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

// ClampSpeedFactor bounds a speed factor to [MinSpeedFactor, MaxSpeedFactor].
func ClampSpeedFactor(f float64) float64 {
	if f < MinSpeedFactor {
		return MinSpeedFactor
	}
	if f > MaxSpeedFactor {
		return MaxSpeedFactor
	}
	return f
}

// NormalizeFraction accepts a dimension either as a fraction (0-1] or a
// percentage (1-100] and normalizes it to a fraction. Values outside both
// ranges clamp to the nearest bound.
func NormalizeFraction(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Trim decodes trim parameters. Requires 0 <= start < end.
func (in Instruction) Trim() (TrimParams, error) {
	p := TrimParams{
		Start: floatParam(in.Params, "start", 0),
		End:   floatParam(in.Params, "end", 0),
	}
	if p.Start < 0 || p.End <= p.Start {
		return TrimParams{}, invalidf("trim window [%f, %f) is empty or negative", p.Start, p.End)
	}
	return p, nil
}

// ColorGrade decodes color grade parameters.
func (in Instruction) ColorGrade() (ColorGradeParams, error) {
	p := ColorGradeParams{Preset: stringParam(in.Params, "preset", "")}
	if p.Preset == "" {
		p.Preset = stringParam(in.Params, "filter", "")
	}
	if p.Preset == "" {
		return ColorGradeParams{}, invalidf("colorGrade requires a preset name")
	}
	return p, nil
}

// Effect decodes visual effect parameters.
func (in Instruction) Effect() (EffectParams, error) {
	p := EffectParams{
		Preset:    stringParam(in.Params, "preset", ""),
		Intensity: floatParam(in.Params, "intensity", 1.0),
	}
	if p.Preset == "" {
		p.Preset = stringParam(in.Params, "effect", "")
	}
	if p.Preset == "" {
		return EffectParams{}, invalidf("applyEffect requires a preset name")
	}
	if p.Intensity <= 0 || math.IsNaN(p.Intensity) {
		p.Intensity = 1.0
	}
	return p, nil
}

// Text decodes text overlay parameters. Size is clamped, not rejected.
func (in Instruction) Text() (TextParams, error) {
	p := TextParams{
		Text:            stringParam(in.Params, "text", ""),
		Preset:          stringParam(in.Params, "preset", ""),
		Size:            intParam(in.Params, "size", 0),
		Color:           stringParam(in.Params, "color", ""),
		Position:        stringParam(in.Params, "position", ""),
		BackgroundColor: stringParam(in.Params, "backgroundColor", ""),
		Shadow:          boolParam(in.Params, "shadow", false),
		Start:           floatParam(in.Params, "start", 0),
		End:             floatParam(in.Params, "end", 0),
	}
	if p.Text == "" {
		return TextParams{}, invalidf("text overlay requires non-empty text")
	}
	if p.Size != 0 {
		p.Size = ClampFontSize(p.Size)
	}
	return p, nil
}

// Transition decodes transition parameters.
func (in Instruction) Transition() (TransitionParams, error) {
	p := TransitionParams{
		Preset:   stringParam(in.Params, "preset", "fadeIn"),
		Duration: floatParam(in.Params, "duration", 1.0),
	}
	if p.Duration <= 0 {
		p.Duration = 1.0
	}
	return p, nil
}

// Music decodes background music parameters.
func (in Instruction) Music() (MusicParams, error) {
	p := MusicParams{
		AudioURL: stringParam(in.Params, "audioUrl", ""),
		Volume:   floatParam(in.Params, "volume", 0.3),
	}
	if p.AudioURL == "" {
		return MusicParams{}, invalidf("addMusic requires audioUrl")
	}
	if p.Volume <= 0 || p.Volume > 1 {
		p.Volume = 0.3
	}
	return p, nil
}

// BrandKit decodes brand kit parameters.
func (in Instruction) BrandKit() (BrandKitParams, error) {
	p := BrandKitParams{
		LogoURL:   stringParam(in.Params, "logoUrl", ""),
		BrandName: stringParam(in.Params, "brandName", ""),
		Color:     stringParam(in.Params, "color", "white"),
		Position:  stringParam(in.Params, "position", "bottom-right"),
	}
	if p.LogoURL == "" && p.BrandName == "" {
		return BrandKitParams{}, invalidf("applyBrandKit requires logoUrl or brandName")
	}
	return p, nil
}

// RemoveClip decodes clip removal parameters. Same invariants as Trim.
func (in Instruction) RemoveClip() (TrimParams, error) {
	p := TrimParams{
		Start: floatParam(in.Params, "start", 0),
		End:   floatParam(in.Params, "end", 0),
	}
	if p.Start < 0 || p.End <= p.Start {
		return TrimParams{}, invalidf("removeClip window [%f, %f) is empty or negative", p.Start, p.End)
	}
	return p, nil
}

// Speed decodes speed adjustment parameters, clamping the factor.
func (in Instruction) Speed() (SpeedParams, error) {
	f := floatParam(in.Params, "factor", 1.0)
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return SpeedParams{}, invalidf("speed factor %f is not positive and finite", f)
	}
	return SpeedParams{Factor: ClampSpeedFactor(f)}, nil
}

// Rotate decodes rotation parameters, normalizing degrees to [0, 360).
func (in Instruction) Rotate() (RotateParams, error) {
	deg := math.Mod(floatParam(in.Params, "degrees", 0), 360)
	if deg < 0 {
		deg += 360
	}
	return RotateParams{
		Degrees:   deg,
		FillColor: stringParam(in.Params, "fillColor", "black"),
	}, nil
}

// Crop decodes crop parameters, accepting fractions or percentages and
// normalizing both to fractions.
func (in Instruction) Crop() (CropParams, error) {
	p := CropParams{
		X:      NormalizeFraction(floatParam(in.Params, "x", 0)),
		Y:      NormalizeFraction(floatParam(in.Params, "y", 0)),
		Width:  NormalizeFraction(floatParam(in.Params, "width", 0)),
		Height: NormalizeFraction(floatParam(in.Params, "height", 0)),
	}
	if p.Width <= 0 || p.Height <= 0 {
		return CropParams{}, invalidf("crop requires positive width and height")
	}
	if p.X+p.Width > 1 || p.Y+p.Height > 1 {
		return CropParams{}, invalidf("crop rectangle exceeds frame bounds")
	}
	return p, nil
}

// RemoveObject decodes region removal parameters. The region name is passed
// through as-is; unknown regions fall back to center in the resolver.
func (in Instruction) RemoveObject() (RemoveObjectParams, error) {
	p := RemoveObjectParams{
		Region: stringParam(in.Params, "region", "center"),
		Mode:   stringParam(in.Params, "mode", "blur"),
	}
	if p.Mode != "blur" && p.Mode != "blackout" {
		p.Mode = "blur"
	}
	return p, nil
}

// Subtitles decodes the caption list plus style for subtitle burn-in.
// Each record must satisfy start < end; the list must be non-empty.
func (in Instruction) Subtitles() (CaptionsParams, error) {
	raw, ok := in.Params["captions"].([]any)
	if !ok || len(raw) == 0 {
		return CaptionsParams{}, invalidf("subtitle burn-in requires a non-empty captions list")
	}

	captions := make([]Caption, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return CaptionsParams{}, invalidf("captions[%d] is not an object", i)
		}
		c := Caption{
			Text:  stringParam(m, "text", ""),
			Start: floatParam(m, "start", 0),
			End:   floatParam(m, "end", 0),
		}
		if c.Start < 0 || c.End <= c.Start {
			return CaptionsParams{}, invalidf("captions[%d] window [%f, %f) is empty or negative", i, c.Start, c.End)
		}
		captions = append(captions, c)
	}

	style := SubtitleStyle{
		Color:           stringParam(in.Params, "color", "white"),
		Size:            ClampFontSize(intParam(in.Params, "size", 24)),
		Position:        stringParam(in.Params, "position", "bottom"),
		Emphasis:        stringParam(in.Params, "emphasisStyle", ""),
		BackgroundColor: stringParam(in.Params, "backgroundColor", ""),
	}

	return CaptionsParams{Captions: captions, Style: style}, nil
}

// floatParam extracts a float64 from a params map with a default value.
func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

// intParam extracts an int from a params map with a default value.
func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case float32:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// stringParam extracts a string from a params map with a default value.
func stringParam(params map[string]any, key string, def string) string {
	v, ok := params[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

// boolParam extracts a bool from a params map with a default value.
func boolParam(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

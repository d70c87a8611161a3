// Package subtitle generates styled subtitle tracks for burn-in. It emits
// Advanced SubStation Alpha (ASS), chosen over plain timed text because
// color, size, alignment and background box are expressed once in a style
// header instead of repeated per caption line.
package subtitle

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/clipwright/clipwright/internal/instruction"
)

// ErrNoCaptions is returned when asked to generate a track with zero
// caption records. Callers must skip burn-in rather than write an empty
// file the transcoder would reject.
var ErrNoCaptions = errors.New("no caption records to render")

// ASS alignment codes (numpad layout). This table must match the position
// vocabulary used by the orchestration layer exactly.
var alignments = map[string]int{
	"bottom": 2, // bottom-center
	"top":    8, // top-center
	"center": 5,
}

// namedColors maps the color names the instruction source emits to RGB.
// Unknown names and malformed hex fall back to white.
var namedColors = map[string]uint32{
	"white":  0xFFFFFF,
	"black":  0x000000,
	"red":    0xFF0000,
	"green":  0x00FF00,
	"blue":   0x0000FF,
	"yellow": 0xFFFF00,
	"cyan":   0x00FFFF,
	"purple": 0x800080,
	"orange": 0xFFA500,
	"pink":   0xFFC0CB,
	"gray":   0x808080,
}

// Generate writes an ASS subtitle track for the given captions and style to
// path. Captions render in document order; overlapping records are allowed.
func Generate(captions []instruction.Caption, style instruction.SubtitleStyle, path string) error {
	if len(captions) == 0 {
		return ErrNoCaptions
	}

	var b strings.Builder
	writeHeader(&b, style)

	for _, c := range captions {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatTime(c.Start), formatTime(c.End), sanitizeText(c.Text))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("write subtitle track: %w", err)
	}
	return nil
}

// writeHeader emits the script info and the single Default style resolved
// from the style parameters.
func writeHeader(b *strings.Builder, style instruction.SubtitleStyle) {
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("PlayResX: 1920\n")
	b.WriteString("PlayResY: 1080\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, Italic, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")

	size := instruction.ClampFontSize(style.Size)

	align, ok := alignments[style.Position]
	if !ok {
		align = alignments["bottom"]
	}

	bold := 0
	italic := 0
	switch style.Emphasis {
	case "bold":
		bold = -1
	case "italic":
		italic = -1
	case "boldItalic":
		bold, italic = -1, -1
	}

	// BorderStyle 3 draws an opaque box behind the text; absence of a
	// background color keeps the plain outline style.
	borderStyle := 1
	outline := 2
	backColor := assColor(0x000000, 0x80)
	if style.BackgroundColor != "" {
		borderStyle = 3
		outline = 0
		backColor = assColor(parseColor(style.BackgroundColor), 0x40)
	}

	fmt.Fprintf(b,
		"Style: Default,Arial,%d,%s,%s,%s,%d,%d,%d,%d,0,%d,40,40,40\n",
		size,
		assColor(parseColor(style.Color), 0x00),
		assColor(0x000000, 0x00),
		backColor,
		bold, italic, borderStyle, outline, align,
	)

	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
}

// parseColor resolves a named or #RRGGBB hex color to RGB.
func parseColor(s string) uint32 {
	name := strings.ToLower(strings.TrimSpace(s))
	if rgb, ok := namedColors[name]; ok {
		return rgb
	}
	hex := strings.TrimPrefix(name, "#")
	if len(hex) == 6 {
		var rgb uint32
		if _, err := fmt.Sscanf(hex, "%06x", &rgb); err == nil {
			return rgb
		}
	}
	return namedColors["white"]
}

// assColor renders RGB plus alpha in ASS &HAABBGGRR order. Alpha 0x00 is
// opaque in ASS.
func assColor(rgb uint32, alpha uint8) string {
	r := (rgb >> 16) & 0xFF
	g := (rgb >> 8) & 0xFF
	b := rgb & 0xFF
	return fmt.Sprintf("&H%02X%02X%02X%02X", alpha, b, g, r)
}

// markdownStripper removes the emphasis markers transcription output
// sometimes carries.
var markdownStripper = strings.NewReplacer(
	"**", "",
	"__", "",
	"*", "",
	"_", "",
)

// sanitizeText strips markdown emphasis, converts line breaks to ASS soft
// breaks, and neutralizes the override-tag braces.
func sanitizeText(s string) string {
	s = markdownStripper.Replace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", `\N`)
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

// formatTime renders seconds as H:MM:SS.cc, the ASS timestamp format with
// hundredths-of-a-second precision.
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	h := centis / 360000
	m := (centis / 6000) % 60
	s := (centis / 100) % 60
	cs := centis % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

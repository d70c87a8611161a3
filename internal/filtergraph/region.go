package filtergraph

import "fmt"

// Region is a symbolic rectangular subsection of the frame, stored as
// rational fractions of the frame dimensions. The same fractions drive both
// the crop rectangle (isolating the region) and the overlay offset (placing
// the processed region back), which keeps the two geometrically consistent:
// the overlay offset equals the crop offset, so region ∪ remainder always
// reconstructs the full frame.
type Region struct {
	Name string
	// Numerator/denominator pairs, as fractions of frame width/height.
	XNum, XDen int
	YNum, YDen int
	WNum, WDen int
	HNum, HDen int
}

// Named regions. "left third", "top third" and friends.
var regions = map[string]Region{
	"left":   {Name: "left", XNum: 0, XDen: 1, YNum: 0, YDen: 1, WNum: 1, WDen: 3, HNum: 1, HDen: 1},
	"right":  {Name: "right", XNum: 2, XDen: 3, YNum: 0, YDen: 1, WNum: 1, WDen: 3, HNum: 1, HDen: 1},
	"top":    {Name: "top", XNum: 0, XDen: 1, YNum: 0, YDen: 1, WNum: 1, WDen: 1, HNum: 1, HDen: 3},
	"bottom": {Name: "bottom", XNum: 0, XDen: 1, YNum: 2, YDen: 3, WNum: 1, WDen: 1, HNum: 1, HDen: 3},
	"center": {Name: "center", XNum: 1, XDen: 3, YNum: 1, YDen: 3, WNum: 1, WDen: 3, HNum: 1, HDen: 3},
}

// ResolveRegion maps a symbolic region name to its geometry. Unknown names
// fall back to center rather than failing.
func ResolveRegion(name string) Region {
	if r, ok := regions[name]; ok {
		return r
	}
	return regions["center"]
}

// CropFilter returns the crop stage isolating this region. Coordinates are
// expressions over the input dimensions so the graph is resolution
// independent.
func (r Region) CropFilter() *Filter {
	return NewFilter("crop").
		RawArg("w", fracExpr("iw", r.WNum, r.WDen)).
		RawArg("h", fracExpr("ih", r.HNum, r.HDen)).
		RawArg("x", fracExpr("iw", r.XNum, r.XDen)).
		RawArg("y", fracExpr("ih", r.YNum, r.YDen))
}

// OverlayXY returns the offset expressions placing the region back onto the
// full frame. W and H refer to the main (bottom) input inside overlay.
func (r Region) OverlayXY() (x, y string) {
	return fracExpr("W", r.XNum, r.XDen), fracExpr("H", r.YNum, r.YDen)
}

// Rect evaluates the region against concrete frame dimensions, using the
// same integer truncation ffmpeg applies to expression results.
func (r Region) Rect(frameW, frameH int) (x, y, w, h int) {
	return frameW * r.XNum / r.XDen,
		frameH * r.YNum / r.YDen,
		frameW * r.WNum / r.WDen,
		frameH * r.HNum / r.HDen
}

// fracExpr renders dim*num/den, collapsing the trivial cases.
func fracExpr(dim string, num, den int) string {
	switch {
	case num == 0:
		return "0"
	case num == den:
		return dim
	case num == 1:
		return fmt.Sprintf("%s/%d", dim, den)
	default:
		return fmt.Sprintf("%s*%d/%d", dim, num, den)
	}
}

// textPosition maps a named position to drawtext x/y expressions with a
// small margin. Unknown positions default to bottom-center, matching the
// subtitle generator's vocabulary.
func textPosition(position string) (x, y string) {
	const margin = "20"
	switch position {
	case "top-left":
		return margin, margin
	case "top", "top-center":
		return "(w-text_w)/2", margin
	case "top-right":
		return "w-text_w-" + margin, margin
	case "center":
		return "(w-text_w)/2", "(h-text_h)/2"
	case "bottom-left":
		return margin, "h-text_h-" + margin
	case "bottom-right":
		return "w-text_w-" + margin, "h-text_h-" + margin
	default: // "bottom", "bottom-center"
		return "(w-text_w)/2", "h-text_h-" + margin
	}
}

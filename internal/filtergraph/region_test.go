package filtergraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRegion_UnknownFallsBackToCenter(t *testing.T) {
	r := ResolveRegion("upper-middle-ish")
	assert.Equal(t, "center", r.Name)
}

// TestRegionGeometry checks the crop/overlay consistency property: placing
// the cropped rectangle back at the overlay offset must land it exactly
// where it was cut from, inside the frame bounds.
func TestRegionGeometry(t *testing.T) {
	frames := [][2]int{
		{1920, 1080},
		{1280, 720},
		{641, 359}, // odd dimensions exercise truncation
	}

	for name := range regions {
		for _, frame := range frames {
			r := ResolveRegion(name)
			x, y, w, h := r.Rect(frame[0], frame[1])

			require.GreaterOrEqual(t, x, 0, "%s x", name)
			require.GreaterOrEqual(t, y, 0, "%s y", name)
			require.Greater(t, w, 0, "%s width", name)
			require.Greater(t, h, 0, "%s height", name)
			assert.LessOrEqual(t, x+w, frame[0], "%s exceeds frame width at %v", name, frame)
			assert.LessOrEqual(t, y+h, frame[1], "%s exceeds frame height at %v", name, frame)
		}
	}
}

func TestRegionRect(t *testing.T) {
	tests := []struct {
		region     string
		x, y, w, h int
	}{
		{"left", 0, 0, 640, 1080},
		{"right", 1280, 0, 640, 1080},
		{"top", 0, 0, 1920, 360},
		{"bottom", 0, 720, 1920, 360},
		{"center", 640, 360, 640, 360},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			x, y, w, h := ResolveRegion(tt.region).Rect(1920, 1080)
			assert.Equal(t, [4]int{tt.x, tt.y, tt.w, tt.h}, [4]int{x, y, w, h})
		})
	}
}

func TestRegionCropFilter(t *testing.T) {
	f := ResolveRegion("right").CropFilter()
	assert.Equal(t, "crop=w=iw/3:h=ih:x=iw*2/3:y=0", f.String())
}

func TestRegionOverlayMatchesCrop(t *testing.T) {
	// The overlay offset expressions must mirror the crop offsets, with W/H
	// in place of iw/ih.
	x, y := ResolveRegion("bottom").OverlayXY()
	assert.Equal(t, "0", x)
	assert.Equal(t, "H*2/3", y)
}

func TestTextPosition(t *testing.T) {
	x, y := textPosition("bottom")
	assert.Equal(t, "(w-text_w)/2", x)
	assert.Equal(t, "h-text_h-20", y)

	x, y = textPosition("somewhere-else")
	assert.Equal(t, "(w-text_w)/2", x, "unknown position defaults to bottom-center")
	assert.Equal(t, "h-text_h-20", y)
}

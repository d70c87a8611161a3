package filtergraph

import (
	"os"
	"runtime"
)

// FontResolver locates a usable font file for drawtext. Implementations
// return ok=false when no candidate exists, in which case the compiler
// omits the fontfile directive and ffmpeg falls back to its default font.
type FontResolver interface {
	Resolve() (path string, ok bool)
}

// PathFontResolver checks an ordered list of candidate paths and returns
// the first that exists.
type PathFontResolver struct {
	Candidates []string
}

// fontCandidates lists well-known font locations per platform, in
// preference order.
func fontCandidates(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/System/Library/Fonts/Helvetica.ttc",
			"/System/Library/Fonts/Supplemental/Arial.ttf",
			"/Library/Fonts/Arial.ttf",
		}
	case "windows":
		return []string{
			`C:\Windows\Fonts\arialbd.ttf`,
			`C:\Windows\Fonts\arial.ttf`,
			`C:\Windows\Fonts\segoeui.ttf`,
		}
	default: // linux and friends
		return []string{
			"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/TTF/DejaVuSans.ttf",
		}
	}
}

// DefaultFontResolver returns a resolver with the candidate list for the
// current platform.
func DefaultFontResolver() *PathFontResolver {
	return &PathFontResolver{Candidates: fontCandidates(runtime.GOOS)}
}

// Resolve returns the first existing candidate path.
func (r *PathFontResolver) Resolve() (string, bool) {
	for _, p := range r.Candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

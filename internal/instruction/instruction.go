// Package instruction defines the structured edit instructions consumed by
// the transformation engine. An instruction arrives as an operation name
// plus a loosely-typed parameter map; this package reifies it into a closed
// operation enumeration with typed, validated parameter structs so that the
// filter graph compiler never touches raw maps.
package instruction

import (
	"errors"
	"fmt"
)

// Kind identifies an edit operation. The enumeration is closed: names that
// do not match any known operation parse to KindUnknown, which the pipeline
// treats as a pass-through copy rather than a failure.
type Kind string

const (
	KindTrim           Kind = "trim"
	KindColorGrade     Kind = "colorGrade"
	KindApplyEffect    Kind = "applyEffect"
	KindAddText        Kind = "addText"
	KindAddTransition  Kind = "addTransition"
	KindAddMusic       Kind = "addMusic"
	KindApplyBrandKit  Kind = "applyBrandKit"
	KindRemoveClip     Kind = "removeClip"
	KindFilter         Kind = "filter"
	KindAddCaptions    Kind = "addCaptions"
	KindCustomText     Kind = "customText"
	KindCustomSubtitle Kind = "customSubtitle"
	KindAdjustSpeed    Kind = "adjustSpeed"
	KindRotate         Kind = "rotate"
	KindCrop           Kind = "crop"
	KindRemoveObject   Kind = "removeObject"
	KindMerge          Kind = "merge"
	KindUnknown        Kind = "unknown"
)

// knownKinds is the set of operations the compiler implements.
var knownKinds = map[Kind]struct{}{
	KindTrim: {}, KindColorGrade: {}, KindApplyEffect: {}, KindAddText: {},
	KindAddTransition: {}, KindAddMusic: {}, KindApplyBrandKit: {},
	KindRemoveClip: {}, KindFilter: {}, KindAddCaptions: {},
	KindCustomText: {}, KindCustomSubtitle: {}, KindAdjustSpeed: {},
	KindRotate: {}, KindCrop: {}, KindRemoveObject: {}, KindMerge: {},
}

// ParseKind maps an operation name to its Kind. Unrecognized names map to
// KindUnknown; they are never an error at this boundary.
func ParseKind(name string) Kind {
	k := Kind(name)
	if _, ok := knownKinds[k]; ok {
		return k
	}
	return KindUnknown
}

// Instruction is a single structured edit request.
type Instruction struct {
	// Kind is the parsed operation.
	Kind Kind
	// Name is the operation name as received, preserved for warnings when
	// Kind is KindUnknown.
	Name string
	// Params is the raw parameter map. Use the typed accessors to decode.
	Params map[string]any
}

// New builds an Instruction from a raw operation name and parameter map.
func New(name string, params map[string]any) Instruction {
	if params == nil {
		params = map[string]any{}
	}
	return Instruction{Kind: ParseKind(name), Name: name, Params: params}
}

// ErrInvalidParams is the base error for structurally invalid parameters.
// Callers should treat it as non-retryable for the same instruction.
var ErrInvalidParams = errors.New("invalid instruction parameters")

// invalidf wraps ErrInvalidParams with detail.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}

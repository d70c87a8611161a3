// Package filtergraph compiles edit instructions into ffmpeg filter graphs
// and argument lists. It owns the filter-expression grammar: escaping rules,
// symbolic region coordinates, and the preset tables that define what each
// named look means.
package filtergraph

import "strings"

// filterValueEscaper escapes the characters meaningful to the ffmpeg
// filter-expression grammar inside an argument value: backslash first, then
// quote, colon, brackets, comma and semicolon. Written once here so every
// emitting function shares the same rules.
var filterValueEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
	`[`, `\[`,
	`]`, `\]`,
	`,`, `\,`,
	`;`, `\;`,
)

// escapeValue escapes a literal value for use inside a filter argument.
func escapeValue(s string) string {
	return filterValueEscaper.Replace(s)
}

// escapePath escapes a filesystem path for use as a filter argument, such
// as the subtitles= filter's filename. Same grammar as escapeValue.
func escapePath(p string) string {
	return filterValueEscaper.Replace(p)
}

// Filter builds a single named filter stage. Arguments are emitted in the
// order they were added. Values added with Arg are escaped; values added
// with RawArg are emitted verbatim for coordinate expressions like
// "(w-text_w)/2" that must stay unescaped.
type Filter struct {
	name  string
	parts []string
}

// NewFilter creates a filter stage with the given name.
func NewFilter(name string) *Filter {
	return &Filter{name: name}
}

// Arg appends key=value with the value escaped. An empty key appends the
// escaped value positionally.
func (f *Filter) Arg(key, value string) *Filter {
	return f.RawArg(key, escapeValue(value))
}

// RawArg appends key=value without escaping the value.
func (f *Filter) RawArg(key, value string) *Filter {
	if key == "" {
		f.parts = append(f.parts, value)
	} else {
		f.parts = append(f.parts, key+"="+value)
	}
	return f
}

// String renders the filter as name=arg1:arg2:...
func (f *Filter) String() string {
	if len(f.parts) == 0 {
		return f.name
	}
	return f.name + "=" + strings.Join(f.parts, ":")
}

// Chain is an ordered sequence of filter stages applied to one stream.
type Chain []*Filter

// String renders the chain in ffmpeg -vf/-af syntax.
func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, f := range c {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

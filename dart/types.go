// Package dart synthesizes companion implementation text for morph
// declarations: properties, constructors, copy/patch/change-type
// operations, and serialization hooks.
package dart

// EmitterConfig controls the textual shape of generated output.
type EmitterConfig struct {
	// IndentStyle is "space" or "tab".
	IndentStyle string

	// IndentSize is the number of indent characters per level.
	IndentSize int

	// LineEnding is "lf" or "crlf".
	LineEnding string

	// Header is emitted as the first line of every generated unit.
	// Empty uses the default generated-code marker.
	Header string

	// TrailingNewline appends a final newline to the output.
	TrailingNewline bool
}

// applyDefaults returns a copy of cfg with defaults filled in.
func applyDefaults(cfg EmitterConfig) EmitterConfig {
	out := cfg
	if out.IndentStyle == "" {
		out.IndentStyle = "space"
	}
	if out.IndentSize == 0 {
		out.IndentSize = 2
	}
	if out.LineEnding == "" {
		out.LineEnding = "lf"
	}
	if out.Header == "" {
		out.Header = "// GENERATED CODE - DO NOT MODIFY BY HAND"
	}
	return out
}

// indentUnit returns one level of indentation.
func (c EmitterConfig) indentUnit() string {
	if c.IndentStyle == "tab" {
		return "\t"
	}
	unit := ""
	for i := 0; i < c.IndentSize; i++ {
		unit += " "
	}
	return unit
}

// newline returns the configured line terminator.
func (c EmitterConfig) newline() string {
	if c.LineEnding == "crlf" {
		return "\r\n"
	}
	return "\n"
}

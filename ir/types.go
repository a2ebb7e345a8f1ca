// Package ir defines the intermediate representation for morph declarations.
// These types are the parsed, immutable form of declaration source text that
// the resolver and emitters consume.
package ir

// Source represents a location within a declaration's raw source text.
type Source struct {
	// SourceID identifies the originating source unit (usually a file path).
	SourceID string

	// Offset is the byte offset into the raw declaration text.
	Offset int

	// Line is the 1-based line number, when known.
	Line int
}

// IsZero returns true if the source location is empty.
func (s Source) IsZero() bool {
	return s.SourceID == "" && s.Offset == 0 && s.Line == 0
}

// Warning represents a non-fatal issue encountered during resolution or
// generation. Warnings never abort a declaration's output.
type Warning struct {
	// Code is a machine-readable warning identifier.
	Code string

	// Message is a human-readable description.
	Message string

	// Declaration is the type that triggered the warning, if applicable.
	Declaration string

	// Source is the location that triggered the warning, if applicable.
	Source *Source
}

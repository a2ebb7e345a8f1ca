package ir

// BodyKind identifies the form of an alternate-constructor body.
type BodyKind int

const (
	// BodyExpression is the arrow form: factory $X.name(...) => expr;
	BodyExpression BodyKind = iota

	// BodyBlock is the block form: factory $X.name(...) { ... }
	BodyBlock
)

// String returns the string representation of the body kind.
func (k BodyKind) String() string {
	switch k {
	case BodyExpression:
		return "Expression"
	case BodyBlock:
		return "Block"
	default:
		return "Unknown"
	}
}

// Constructor describes an alternate constructor attached to a declaration.
// Immutable once extracted.
type Constructor struct {
	// Name is the constructor's name after the dot ("stray" in
	// "factory $Pet.stray").
	Name string

	// Params is the parameter list in declared order.
	Params []Param

	// Body is the raw body text: the expression for arrow form (without
	// the terminator), or the text between the outer braces for block form.
	Body string

	// Kind identifies arrow vs block form.
	Kind BodyKind

	// BodyStart and BodyEnd are byte offsets of Body within the
	// declaration's raw source text.
	BodyStart int
	BodyEnd   int

	// Failed marks a constructor whose body extraction failed. The emitter
	// synthesizes an empty fallback body for it.
	Failed bool
}

// Param is one constructor parameter.
type Param struct {
	// Name is the parameter identifier.
	Name string

	// Type is the declared parameter type text. May be empty for untyped
	// positional parameters.
	Type string

	// Named is true for parameters inside a {…} group.
	Named bool

	// Required is true for positional parameters and for named parameters
	// marked with the required keyword.
	Required bool

	// Default is the default value literal text, empty if none.
	Default string
}

package ir

// TypeDeclaration is the parsed form of one annotated morph declaration.
// It is created by the parser and immutable thereafter; the schema registry
// owns every registered declaration.
type TypeDeclaration struct {
	// Name is the bare type name with the sigil stripped ("Pet", not "$Pet").
	Name string

	// SourceID identifies where the declaration came from.
	SourceID string

	// Sealed is true for "$$Name" declarations, whose implementers must be
	// known at generation time.
	Sealed bool

	// TypeParameters contains the declaration's generic parameters in order.
	TypeParameters []GenericParam

	// Fields contains the declaration's own fields in declared order.
	Fields []FieldDescriptor

	// Implements contains the interface references, each with the concrete
	// or generic arguments supplied at the implementation edge.
	Implements []InterfaceRef

	// Constructors contains the alternate-constructor descriptors.
	Constructors []Constructor

	// Annotation holds the merged annotation parameters for this declaration.
	Annotation AnnotationParams

	// Enum marks enum declarations ("enum Color { red, green }").
	// Enum declarations have EnumMembers and no fields or constructors.
	Enum bool

	// EnumMembers lists the member names of an enum declaration.
	EnumMembers []string

	// Source is the declaration's location.
	Source Source
}

// GenericParam is a declared generic parameter with an optional bound.
type GenericParam struct {
	Name  string
	Bound string // empty when unbounded
}

// InterfaceRef is a reference to an implemented interface, with the type
// arguments supplied at this implementation edge. Args are positional and
// matched against the referenced declaration's TypeParameters.
type InterfaceRef struct {
	Name   string
	Args   []string
	Source Source
}

// SubtypeEdge is a declared, non-implementing relationship between two
// sibling types, enabling bidirectional change-type generation without the
// target implementing the source's interface.
type SubtypeEdge struct {
	From string
	To   string
}

// AnnotationParams holds the per-declaration generation switches, whether
// parsed from an inline @morph(...) annotation or supplied by the caller.
type AnnotationParams struct {
	// GenerateJSON enables fromJson/toJson hook emission.
	GenerateJSON bool

	// ExplicitToJSON forces nested values to be serialized via their own
	// toJson instead of being passed through.
	ExplicitToJSON bool

	// HidePublicConstructor suppresses the public generative constructor.
	// A JSON-compatible factory is emitted in its place when GenerateJSON
	// is set.
	HidePublicConstructor bool

	// NonSealed allows concrete operation bodies on an otherwise sealed
	// declaration when the operation's interface is the declaration itself.
	NonSealed bool

	// ExplicitSubtypes lists sibling types (bare names) that get
	// bidirectional changeTo operations.
	ExplicitSubtypes []string
}

// Merge combines inline annotation parameters with caller-supplied ones.
// Boolean switches are OR'd and subtype lists are unioned, so a caller can
// enable behavior the source does not declare but cannot disable it.
func (p AnnotationParams) Merge(override *AnnotationParams) AnnotationParams {
	if override == nil {
		return p
	}
	out := p
	out.GenerateJSON = p.GenerateJSON || override.GenerateJSON
	out.ExplicitToJSON = p.ExplicitToJSON || override.ExplicitToJSON
	out.HidePublicConstructor = p.HidePublicConstructor || override.HidePublicConstructor
	out.NonSealed = p.NonSealed || override.NonSealed

	seen := make(map[string]bool, len(p.ExplicitSubtypes))
	merged := make([]string, 0, len(p.ExplicitSubtypes)+len(override.ExplicitSubtypes))
	for _, s := range p.ExplicitSubtypes {
		if !seen[s] {
			seen[s] = true
			merged = append(merged, s)
		}
	}
	for _, s := range override.ExplicitSubtypes {
		if !seen[s] {
			seen[s] = true
			merged = append(merged, s)
		}
	}
	out.ExplicitSubtypes = merged
	return out
}

// ParamNames returns the declaration's generic parameter names in order.
func (d *TypeDeclaration) ParamNames() []string {
	names := make([]string, len(d.TypeParameters))
	for i, p := range d.TypeParameters {
		names[i] = p.Name
	}
	return names
}

// FindField returns the declaration's own field with the given name,
// or nil if not declared here.
func (d *TypeDeclaration) FindField(name string) *FieldDescriptor {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}

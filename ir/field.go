package ir

// FieldDescriptor represents a single declared field.
type FieldDescriptor struct {
	// Name is the field identifier.
	Name string

	// Type is the declared type text without the nullable marker,
	// e.g. "String", "T1", "List<int>".
	Type string

	// Nullable is true when the declared type carried a "?" suffix.
	Nullable bool

	// Enum is true when the field's type names a registered enum
	// declaration. Set during resolution, never by the parser.
	Enum bool

	// JSON holds serialization metadata from a @jsonKey annotation.
	// Nil when the field has none.
	JSON *JSONMeta

	// Source is the field's location.
	Source Source
}

// JSONMeta carries per-field serialization metadata.
type JSONMeta struct {
	// Key is the external property name. Empty means use the field name.
	Key string

	// Ignore excludes the field from serialization entirely.
	Ignore bool

	// DefaultValue is the literal text used when the external document
	// omits the key. Empty means no default.
	DefaultValue string

	// IncludeFromJSON controls whether the field is read from external
	// documents. Defaults to true.
	IncludeFromJSON bool

	// IncludeToJSON controls whether the field is written to external
	// documents. Defaults to true.
	IncludeToJSON bool
}

// ExternalKey returns the serialized property name for the field.
func (f *FieldDescriptor) ExternalKey() string {
	if f.JSON != nil && f.JSON.Key != "" {
		return f.JSON.Key
	}
	return f.Name
}

// TypeText returns the declared type text including the nullable marker.
func (f *FieldDescriptor) TypeText() string {
	if f.Nullable {
		return f.Type + "?"
	}
	return f.Type
}

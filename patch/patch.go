// Package patch implements the patch algebra used by generated update
// operations: sparse maps from field keys to literal values, deferred-value
// functions, or nested patches. Absent keys mean "leave unchanged"; present
// keys always win, evaluated lazily at apply time.
package patch

// EntryKind identifies the variant held by an Entry.
type EntryKind int

const (
	// Literal is an immediate replacement value.
	Literal EntryKind = iota

	// Deferred is a zero-argument function producing the replacement value
	// at apply time.
	Deferred

	// Nested is a patch applied to the field's current sub-entity value.
	Nested
)

// String returns the string representation of the entry kind.
func (k EntryKind) String() string {
	switch k {
	case Literal:
		return "Literal"
	case Deferred:
		return "Deferred"
	case Nested:
		return "Nested"
	default:
		return "Unknown"
	}
}

// Entry is a tagged union over the three patch value forms. The tag is
// explicit rather than inferred from dynamic type inspection, so apply
// behavior is table-driven and the composition laws are checkable.
type Entry struct {
	kind    EntryKind
	literal any
	fn      func() any
	nested  Map
}

// Kind returns the entry's variant tag.
func (e Entry) Kind() EntryKind { return e.kind }

// Lit creates a literal entry.
func Lit(v any) Entry { return Entry{kind: Literal, literal: v} }

// Fn creates a deferred entry. The function is invoked once per Apply.
func Fn(fn func() any) Entry { return Entry{kind: Deferred, fn: fn} }

// Sub creates a nested entry.
func Sub(m Map) Entry { return Entry{kind: Nested, nested: m} }

// Map is a sparse, immutable patch: field key to entry. The zero value is
// usable and equivalent to Empty().
type Map struct {
	entries map[string]Entry
}

// Empty returns a patch with no entries. Applying it is the identity.
func Empty() Map { return Map{} }

// With returns a copy of m with key set to the literal value v.
func (m Map) With(key string, v any) Map {
	return m.set(key, Lit(v))
}

// WithFn returns a copy of m with key set to a deferred value.
func (m Map) WithFn(key string, fn func() any) Map {
	return m.set(key, Fn(fn))
}

// WithNested returns a copy of m with key set to a nested patch.
func (m Map) WithNested(key string, nested Map) Map {
	return m.set(key, Sub(nested))
}

func (m Map) set(key string, e Entry) Map {
	out := make(map[string]Entry, len(m.entries)+1)
	for k, v := range m.entries {
		out[k] = v
	}
	out[key] = e
	return Map{entries: out}
}

// Len returns the number of entries.
func (m Map) Len() int { return len(m.entries) }

// Get returns the entry for key and whether it is present.
func (m Map) Get(key string) (Entry, bool) {
	e, ok := m.entries[key]
	return e, ok
}

// Keys returns the present keys in unspecified order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Compose merges two patches: keys in b override matching keys in a,
// non-overlapping keys from both survive. Compose is commutative only when
// the key sets are disjoint.
func Compose(a, b Map) Map {
	if len(b.entries) == 0 {
		return a
	}
	if len(a.entries) == 0 {
		return b
	}
	out := make(map[string]Entry, len(a.entries)+len(b.entries))
	for k, v := range a.entries {
		out[k] = v
	}
	for k, v := range b.entries {
		out[k] = v
	}
	return Map{entries: out}
}

// Patchable is implemented by sub-entity values that support nested
// patching. Generated types satisfy it through their field snapshots.
type Patchable interface {
	// PatchFields returns a snapshot of the value's fields by key.
	PatchFields() map[string]any

	// WithPatchFields returns a new value with the given field snapshot.
	// It must not mutate the receiver.
	WithPatchFields(fields map[string]any) any
}

// Apply produces an updated copy of original. For each field of original:
// if the patch holds the field's key, the new value is the deferred
// function's result, the nested patch applied to the field's current value
// (when that value supports patching), or the literal; otherwise the
// original value is retained. Apply never mutates original or the patch.
func Apply(original map[string]any, p Map) map[string]any {
	out := make(map[string]any, len(original))
	for key, cur := range original {
		entry, ok := p.entries[key]
		if !ok {
			out[key] = cur
			continue
		}
		out[key] = applyEntry(cur, entry)
	}
	return out
}

func applyEntry(cur any, e Entry) any {
	switch e.kind {
	case Deferred:
		return e.fn()
	case Nested:
		switch v := cur.(type) {
		case Patchable:
			return v.WithPatchFields(Apply(v.PatchFields(), e.nested))
		case map[string]any:
			return Apply(v, e.nested)
		default:
			// The current value does not support patching; the nested
			// patch cannot descend, so the value is kept as-is.
			return cur
		}
	default:
		return e.literal
	}
}

// Package resolve computes the full, deduplicated field set of a declared
// type across its interface graph, with generic parameter substitution
// applied at each implementation edge. Results are cached for the duration
// of one generation run.
package resolve

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/morphlang/morphgen/ir"
	"github.com/morphlang/morphgen/schema"
)

// UnresolvedGenericError is returned when the type arguments at an
// implementation edge cannot be matched positionally to the target's
// generic parameters.
type UnresolvedGenericError struct {
	Declaration string
	Interface   string
	Want        int
	Got         int
}

func (e *UnresolvedGenericError) Error() string {
	return fmt.Sprintf("declaration %q implements %q with %d type argument(s), expected %d",
		e.Declaration, e.Interface, e.Got, e.Want)
}

// UnknownTypeError is returned when an interface reference names an
// unregistered type.
type UnknownTypeError struct {
	Declaration string
	Target      string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("declaration %q references unregistered type %q", e.Declaration, e.Target)
}

// SealedScopeError is returned when a declaration implements a sealed base
// declared in a different source unit.
type SealedScopeError struct {
	Declaration string
	Base        string
	BaseSource  string
}

func (e *SealedScopeError) Error() string {
	return fmt.Sprintf("declaration %q implements sealed type %q outside its defining scope (%s)",
		e.Declaration, e.Base, e.BaseSource)
}

// ResolvedField is one entry of a resolved field set: the field descriptor
// with generic substitution applied, plus the type that contributed it.
type ResolvedField struct {
	ir.FieldDescriptor

	// DeclaredBy names the declaration whose field definition won.
	DeclaredBy string
}

// FieldSet is the complete, deduplicated field list for one declaration.
// Invariant: exactly one entry per field name.
type FieldSet struct {
	Declaration string
	Fields      []ResolvedField
	Warnings    []ir.Warning
}

// Find returns the entry with the given field name, or nil.
func (fs *FieldSet) Find(name string) *ResolvedField {
	for i := range fs.Fields {
		if fs.Fields[i].Name == name {
			return &fs.Fields[i]
		}
	}
	return nil
}

// Names returns the field names in resolved order.
func (fs *FieldSet) Names() []string {
	names := make([]string, len(fs.Fields))
	for i, f := range fs.Fields {
		names[i] = f.Name
	}
	return names
}

// Resolver computes and caches field sets against a frozen registry.
// Safe for concurrent use during the generation phase.
type Resolver struct {
	reg *schema.Registry

	mu    sync.Mutex
	cache map[string]*FieldSet
}

// NewResolver creates a resolver over the given registry. The registry must
// be frozen before Resolve is called.
func NewResolver(reg *schema.Registry) *Resolver {
	return &Resolver{
		reg:   reg,
		cache: make(map[string]*FieldSet),
	}
}

// Resolve computes the field set for the named declaration.
func (r *Resolver) Resolve(name string) (*FieldSet, error) {
	r.mu.Lock()
	if fs, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return fs, nil
	}
	r.mu.Unlock()

	decl := r.reg.Lookup(name)
	if decl == nil {
		return nil, &UnknownTypeError{Declaration: name, Target: name}
	}

	fs, err := r.resolve(decl)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[name] = fs
	r.mu.Unlock()
	return fs, nil
}

func (r *Resolver) resolve(decl *ir.TypeDeclaration) (*FieldSet, error) {
	fs := &FieldSet{Declaration: decl.Name}
	enums := r.reg.EnumNames()

	// Own fields first, in declared order, unsubstituted: the declaration's
	// own generic parameter names stay visible in its own field types.
	for _, f := range decl.Fields {
		rf := ResolvedField{FieldDescriptor: f, DeclaredBy: decl.Name}
		rf.Enum = enums[bareTypeName(rf.Type)]
		fs.Fields = append(fs.Fields, rf)
	}

	// Collect ancestor fields by traversal over the interface graph.
	// Visited set makes cyclic graphs terminate; the first visit of an
	// interface name wins.
	visited := map[string]bool{decl.Name: true}
	var ancestors []ResolvedField

	var walk func(from *ir.TypeDeclaration, subst map[string]string, direct bool) error
	walk = func(from *ir.TypeDeclaration, subst map[string]string, direct bool) error {
		for _, ref := range from.Implements {
			target := r.reg.Lookup(ref.Name)
			if target == nil {
				return &UnknownTypeError{Declaration: decl.Name, Target: ref.Name}
			}
			if direct && target.Sealed && target.SourceID != decl.SourceID {
				return &SealedScopeError{
					Declaration: decl.Name,
					Base:        target.Name,
					BaseSource:  target.SourceID,
				}
			}
			if visited[target.Name] {
				continue
			}
			visited[target.Name] = true

			if len(ref.Args) != len(target.TypeParameters) {
				return &UnresolvedGenericError{
					Declaration: decl.Name,
					Interface:   target.Name,
					Want:        len(target.TypeParameters),
					Got:         len(ref.Args),
				}
			}

			// The edge's arguments are written in the implementer's
			// namespace; substitute inherited bindings into them before
			// mapping positionally onto the target's parameters.
			next := make(map[string]string, len(target.TypeParameters))
			for i, param := range target.TypeParameters {
				next[param.Name] = SubstituteTypeText(ref.Args[i], subst)
			}

			for _, f := range target.Fields {
				rf := ResolvedField{FieldDescriptor: f, DeclaredBy: target.Name}
				rf.Type = SubstituteTypeText(rf.Type, next)
				rf.Enum = enums[bareTypeName(rf.Type)]
				ancestors = append(ancestors, rf)
			}

			if err := walk(target, next, false); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(decl, nil, true); err != nil {
		return nil, err
	}

	// Deterministic collision resolution: stable sort the ancestor entries
	// by declaring-type name, then deduplicate first-wins with the
	// declaration's own fields taking precedence.
	sort.SliceStable(ancestors, func(i, j int) bool {
		return ancestors[i].DeclaredBy < ancestors[j].DeclaredBy
	})

	seen := make(map[string]int, len(fs.Fields))
	for i, f := range fs.Fields {
		seen[f.Name] = i
	}
	for _, rf := range ancestors {
		kept, dup := seen[rf.Name]
		if !dup {
			seen[rf.Name] = len(fs.Fields)
			fs.Fields = append(fs.Fields, rf)
			continue
		}
		winner := fs.Fields[kept]
		if winner.DeclaredBy != decl.Name && winner.TypeText() != rf.TypeText() {
			// Two ancestors disagree on the field's resolved type. The
			// precedence winner stands, but the disagreement is surfaced
			// rather than silently resolved.
			fs.Warnings = append(fs.Warnings, ir.Warning{
				Code:        "ambiguous_field",
				Declaration: decl.Name,
				Message: fmt.Sprintf("field %q resolved as %s from %s, but %s declares it as %s",
					rf.Name, winner.TypeText(), winner.DeclaredBy, rf.DeclaredBy, rf.TypeText()),
			})
		}
	}

	return fs, nil
}

// SubstituteTypeText replaces generic parameter names inside a type text
// with their bound argument texts. Replacement is identifier-boundary
// aware: "T1" rewrites inside "List<T1>" but not inside "T12".
func SubstituteTypeText(text string, subst map[string]string) string {
	if len(subst) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		c := text[i]
		if !isIdentStart(c) {
			b.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(text) && isIdentPart(text[j]) {
			j++
		}
		ident := text[i:j]
		if replacement, ok := subst[ident]; ok {
			b.WriteString(replacement)
		} else {
			b.WriteString(ident)
		}
		i = j
	}
	return b.String()
}

// bareTypeName returns the leading type name of a type text, without
// generic arguments or the nullable marker.
func bareTypeName(text string) string {
	for i := 0; i < len(text); i++ {
		if !isIdentPart(text[i]) {
			return text[:i]
		}
	}
	return text
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

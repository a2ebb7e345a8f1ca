// Package schema holds the registry of morph type declarations for one
// generation run. The registry is write-only during the collection phase and
// read-only afterward; Freeze marks the barrier between the two.
package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/morphlang/morphgen/ir"
)

// DuplicateDeclarationError is returned when a type name is registered twice.
type DuplicateDeclarationError struct {
	Name     string
	First    string // SourceID of the earlier registration
	Second   string // SourceID of the rejected registration
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("duplicate declaration %q: already registered from %s, rejected from %s",
		e.Name, e.First, e.Second)
}

// ReferenceError is returned by Validate when a declaration references an
// unregistered type.
type ReferenceError struct {
	Declaration string
	Target      string
	Via         string // "implements" or "explicitSubTypes"
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("declaration %q %s unknown type %q", e.Declaration, e.Via, e.Target)
}

// Registry holds all declarations known to one generation run.
// Register is safe for concurrent use; Freeze must be called before any
// lookup-side consumer runs, because declarations reference each other
// regardless of source-file boundaries.
type Registry struct {
	mu     sync.RWMutex
	decls  map[string]*ir.TypeDeclaration
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decls: make(map[string]*ir.TypeDeclaration),
	}
}

// Register adds a declaration keyed by its name.
// It fails with *DuplicateDeclarationError if the name is already taken.
// Calling Register after Freeze is a programming error, not an input
// error, and panics.
func (r *Registry) Register(decl *ir.TypeDeclaration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		panic("morphgen/schema: Register called after Freeze")
	}

	if existing, ok := r.decls[decl.Name]; ok {
		return &DuplicateDeclarationError{
			Name:   decl.Name,
			First:  existing.SourceID,
			Second: decl.SourceID,
		}
	}

	r.decls[decl.Name] = decl
	return nil
}

// Freeze ends the collection phase. After Freeze the registry is read-only
// and all lookup methods may be used concurrently without locking concerns
// on the caller's side.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether the collection phase has ended.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup returns the declaration with the given name, or nil.
func (r *Registry) Lookup(name string) *ir.TypeDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.decls[name]
}

// Len returns the number of registered declarations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decls)
}

// KnownTypeNames returns the set of all registered type names.
func (r *Registry) KnownTypeNames() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[string]bool, len(r.decls))
	for name := range r.decls {
		names[name] = true
	}
	return names
}

// Names returns all registered type names sorted, for deterministic
// iteration.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.decls))
	for name := range r.decls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnumNames returns the names of all registered enum declarations.
// The resolver consults this table to mark enum-ness on resolved fields.
func (r *Registry) EnumNames() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[string]bool)
	for name, d := range r.decls {
		if d.Enum {
			names[name] = true
		}
	}
	return names
}

// PatchableNames returns the names of all declarations that receive
// generated patch support. The operation synthesizer consults this table
// instead of inspecting values at apply time.
func (r *Registry) PatchableNames() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[string]bool)
	for name, d := range r.decls {
		if !d.Enum {
			names[name] = true
		}
	}
	return names
}

// SubtypeEdges returns the explicit subtype edges declared by decl, one
// per listed sibling. Change-type generation is bidirectional, so callers
// generating for a sibling see the reverse edge via EdgesInto.
func (r *Registry) SubtypeEdges(decl *ir.TypeDeclaration) []ir.SubtypeEdge {
	edges := make([]ir.SubtypeEdge, 0, len(decl.Annotation.ExplicitSubtypes))
	for _, to := range decl.Annotation.ExplicitSubtypes {
		edges = append(edges, ir.SubtypeEdge{From: decl.Name, To: to})
	}
	return edges
}

// EdgesInto returns the explicit subtype edges pointing at name from other
// declarations' explicitSubTypes lists, sorted by origin for determinism.
func (r *Registry) EdgesInto(name string) []ir.SubtypeEdge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var edges []ir.SubtypeEdge
	for _, from := range r.sortedNamesLocked() {
		d := r.decls[from]
		for _, to := range d.Annotation.ExplicitSubtypes {
			if to == name && from != name {
				edges = append(edges, ir.SubtypeEdge{From: from, To: name})
			}
		}
	}
	return edges
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.decls))
	for name := range r.decls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every implements reference and explicit subtype edge
// names a registered type. It returns all reference errors found, not just
// the first, so the caller can report per-declaration failures.
func (r *Registry) Validate() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, name := range r.sortedNamesLocked() {
		d := r.decls[name]
		for _, ref := range d.Implements {
			if _, ok := r.decls[ref.Name]; !ok {
				errs = append(errs, &ReferenceError{
					Declaration: d.Name,
					Target:      ref.Name,
					Via:         "implements",
				})
			}
		}
		for _, sub := range d.Annotation.ExplicitSubtypes {
			if _, ok := r.decls[sub]; !ok {
				errs = append(errs, &ReferenceError{
					Declaration: d.Name,
					Target:      sub,
					Via:         "explicitSubTypes",
				})
			}
		}
	}
	return errs
}

package schema

import (
	"errors"
	"sync"
	"testing"

	"github.com/morphlang/morphgen/ir"
)

func decl(name, sourceID string) *ir.TypeDeclaration {
	return &ir.TypeDeclaration{Name: name, SourceID: sourceID}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(decl("Pet", "pet.morph")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got := r.Lookup("Pet"); got == nil || got.Name != "Pet" {
		t.Errorf("Lookup(Pet) = %v", got)
	}
	if got := r.Lookup("Dog"); got != nil {
		t.Errorf("Lookup(Dog) = %v, want nil", got)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(decl("Pet", "a.morph")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := r.Register(decl("Pet", "b.morph"))
	var dup *DuplicateDeclarationError
	if !errors.As(err, &dup) {
		t.Fatalf("error = %v (%T), want *DuplicateDeclarationError", err, err)
	}
	if dup.First != "a.morph" || dup.Second != "b.morph" {
		t.Errorf("dup = %+v", dup)
	}
}

func TestRegisterAfterFreezePanics(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	if !r.Frozen() {
		t.Fatal("Frozen() = false after Freeze")
	}

	defer func() {
		if recover() == nil {
			t.Error("Register after Freeze must panic")
		}
	}()
	_ = r.Register(decl("Pet", "pet.morph"))
}

func TestConcurrentRegister(t *testing.T) {
	r := NewRegistry()
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			if err := r.Register(decl(n, n+".morph")); err != nil {
				t.Errorf("Register(%s) error = %v", n, err)
			}
		}(name)
	}
	wg.Wait()

	if r.Len() != len(names) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(names))
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"Zebra", "Ant", "Mole"} {
		if err := r.Register(decl(n, "zoo.morph")); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	got := r.Names()
	want := []string{"Ant", "Mole", "Zebra"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names() = %v, want %v", got, want)
			break
		}
	}
}

func TestEnumAndPatchableNames(t *testing.T) {
	r := NewRegistry()
	colorDecl := decl("Color", "color.morph")
	colorDecl.Enum = true
	if err := r.Register(colorDecl); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(decl("Pet", "pet.morph")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	enums := r.EnumNames()
	if !enums["Color"] || enums["Pet"] {
		t.Errorf("EnumNames() = %v", enums)
	}
	patchable := r.PatchableNames()
	if patchable["Color"] || !patchable["Pet"] {
		t.Errorf("PatchableNames() = %v", patchable)
	}
	known := r.KnownTypeNames()
	if !known["Color"] || !known["Pet"] {
		t.Errorf("KnownTypeNames() = %v", known)
	}
}

func TestSubtypeEdges(t *testing.T) {
	r := NewRegistry()
	shape := decl("Shape", "shapes.morph")
	shape.Annotation.ExplicitSubtypes = []string{"Circle", "Square"}
	for _, d := range []*ir.TypeDeclaration{shape, decl("Circle", "shapes.morph"), decl("Square", "shapes.morph")} {
		if err := r.Register(d); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	out := r.SubtypeEdges(shape)
	if len(out) != 2 || out[0].To != "Circle" || out[1].To != "Square" {
		t.Errorf("SubtypeEdges() = %v", out)
	}

	into := r.EdgesInto("Circle")
	if len(into) != 1 || into[0].From != "Shape" {
		t.Errorf("EdgesInto(Circle) = %v", into)
	}
	if len(r.EdgesInto("Shape")) != 0 {
		t.Errorf("EdgesInto(Shape) = %v, want none", r.EdgesInto("Shape"))
	}
}

func TestValidate(t *testing.T) {
	r := NewRegistry()

	pet := decl("Pet", "pet.morph")
	pet.Implements = []ir.InterfaceRef{{Name: "Animal"}}
	pet.Annotation.ExplicitSubtypes = []string{"Ghost"}
	if err := r.Register(pet); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	errs := r.Validate()
	if len(errs) != 2 {
		t.Fatalf("Validate() = %v, want 2 errors", errs)
	}
	var ref *ReferenceError
	if !errors.As(errs[0], &ref) {
		t.Fatalf("errs[0] = %T, want *ReferenceError", errs[0])
	}
	if ref.Target != "Animal" || ref.Via != "implements" {
		t.Errorf("errs[0] = %+v", ref)
	}

	// Registering the targets clears the errors.
	if err := r.Register(decl("Animal", "animal.morph")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(decl("Ghost", "ghost.morph")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if errs := r.Validate(); len(errs) != 0 {
		t.Errorf("Validate() after registering targets = %v, want none", errs)
	}
}

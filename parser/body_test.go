package parser

import (
	"errors"
	"testing"

	"github.com/morphlang/morphgen/ir"
)

func TestExtractBodyArrow(t *testing.T) {
	src := `factory $Pet.stray(String name) => $Pet._(name: name, age: 0);`
	body, kind, _, _, err := ExtractBody(src, "pet.morph", 0)
	if err != nil {
		t.Fatalf("ExtractBody() error = %v", err)
	}
	if kind != ir.BodyExpression {
		t.Errorf("kind = %v, want Expression", kind)
	}
	if body != " $Pet._(name: name, age: 0)" {
		t.Errorf("body = %q", body)
	}
}

func TestExtractBodyArrowSemicolonInsideParens(t *testing.T) {
	// The ; terminator counts only at zero delimiter depth.
	src := `factory $Pet.odd() => f(() { g(); });`
	body, kind, _, _, err := ExtractBody(src, "pet.morph", 0)
	if err != nil {
		t.Fatalf("ExtractBody() error = %v", err)
	}
	if kind != ir.BodyExpression {
		t.Errorf("kind = %v, want Expression", kind)
	}
	if body != " f(() { g(); })" {
		t.Errorf("body = %q", body)
	}
}

func TestExtractBodyArrowTerminatedByClassBrace(t *testing.T) {
	// A final member without a trailing semicolon still extracts: the class
	// close brace at depth zero ends the arrow body.
	src := `factory $Pet.stray() => $Pet._()}`
	body, kind, _, end, err := ExtractBody(src, "pet.morph", 0)
	if err != nil {
		t.Fatalf("ExtractBody() error = %v", err)
	}
	if kind != ir.BodyExpression {
		t.Errorf("kind = %v, want Expression", kind)
	}
	if body != " $Pet._()" {
		t.Errorf("body = %q", body)
	}
	if src[end] != '}' {
		t.Errorf("end = %d, want offset of the closing brace", end)
	}
}

func TestExtractBodyBlock(t *testing.T) {
	src := `factory $Pet.named(String name) {
  final adjusted = name.trim();
  return $Pet._(name: adjusted);
}`
	body, kind, _, _, err := ExtractBody(src, "pet.morph", 0)
	if err != nil {
		t.Fatalf("ExtractBody() error = %v", err)
	}
	if kind != ir.BodyBlock {
		t.Errorf("kind = %v, want Block", kind)
	}
	want := "\n  final adjusted = name.trim();\n  return $Pet._(name: adjusted);\n"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}

func TestExtractBodyBlockNestedBraces(t *testing.T) {
	src := `factory $Pet.mapped(Map<String, int> m) { if (m.isEmpty) { return $Pet._(); } return $Pet._(age: m.length); }`
	body, kind, _, _, err := ExtractBody(src, "pet.morph", 0)
	if err != nil {
		t.Fatalf("ExtractBody() error = %v", err)
	}
	if kind != ir.BodyBlock {
		t.Errorf("kind = %v, want Block", kind)
	}
	want := ` if (m.isEmpty) { return $Pet._(); } return $Pet._(age: m.length); `
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}

func TestExtractBodyStringLiteralsOpaque(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		kind ir.BodyKind
	}{
		{
			name: "brace inside string does not close block",
			src:  `factory $Pet.s() { return $Pet._(name: "a } b"); }`,
			want: ` return $Pet._(name: "a } b"); `,
			kind: ir.BodyBlock,
		},
		{
			name: "semicolon inside string does not end arrow",
			src:  `factory $Pet.s() => $Pet._(name: 'a ; b');`,
			want: ` $Pet._(name: 'a ; b')`,
			kind: ir.BodyExpression,
		},
		{
			name: "escaped quote does not close string",
			src:  `factory $Pet.s() => $Pet._(name: 'it\'s; fine');`,
			want: ` $Pet._(name: 'it\'s; fine')`,
			kind: ir.BodyExpression,
		},
		{
			name: "escaped backslash closes string normally",
			src:  `factory $Pet.s() => $Pet._(name: 'a\\');`,
			want: ` $Pet._(name: 'a\\')`,
			kind: ir.BodyExpression,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, kind, _, _, err := ExtractBody(tt.src, "pet.morph", 0)
			if err != nil {
				t.Fatalf("ExtractBody() error = %v", err)
			}
			if kind != tt.kind {
				t.Errorf("kind = %v, want %v", kind, tt.kind)
			}
			if body != tt.want {
				t.Errorf("body = %q, want %q", body, tt.want)
			}
		})
	}
}

func TestExtractBodyUnterminated(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ir.BodyKind
	}{
		{name: "open block", src: `factory $Pet.b() { return $Pet._(`, kind: ir.BodyBlock},
		{name: "arrow without terminator", src: `factory $Pet.a() => $Pet._()`, kind: ir.BodyExpression},
		{name: "open string in arrow", src: `factory $Pet.s() => $Pet._(name: 'oops);`, kind: ir.BodyExpression},
		{name: "no body at all", src: `factory $Pet.n()`, kind: ir.BodyExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, _, err := ExtractBody(tt.src, "pet.morph", 0)
			if err == nil {
				t.Fatal("ExtractBody() expected error")
			}
			var unterminated *UnterminatedBodyError
			if !errors.As(err, &unterminated) {
				t.Fatalf("error = %T, want *UnterminatedBodyError", err)
			}
			if unterminated.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", unterminated.Kind, tt.kind)
			}
			if unterminated.SourceID != "pet.morph" {
				t.Errorf("SourceID = %q, want pet.morph", unterminated.SourceID)
			}
		})
	}
}

package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, text := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	return root
}

func TestFind(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pets/pet.morph":      "class $Pet {}",
		"pets/owner.morph":    "class $Owner {}",
		"shapes/shape.morph":  "class $$Shape {}",
		"README.md":           "not a source unit",
		".hidden/skip.morph":  "skipped",
		"pets/.draft.morph":   "skipped",
		"notes/todo.morph.md": "not a source unit",
	})

	units, err := Find(root)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	want := []string{"pets/owner.morph", "pets/pet.morph", "shapes/shape.morph"}
	if len(units) != len(want) {
		t.Fatalf("Find() returned %d units, want %d", len(units), len(want))
	}
	for i, id := range want {
		if units[i].SourceID != id {
			t.Errorf("units[%d].SourceID = %q, want %q", i, units[i].SourceID, id)
		}
	}
	if units[1].Text != "class $Pet {}" {
		t.Errorf("units[1].Text = %q, want source text", units[1].Text)
	}
}

func TestFindSingleFile(t *testing.T) {
	root := writeTree(t, map[string]string{"pet.morph": "class $Pet {}"})

	units, err := Find(filepath.Join(root, "pet.morph"))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("Find() returned %d units, want 1", len(units))
	}
	if units[0].SourceID != "pet.morph" {
		t.Errorf("SourceID = %q, want %q", units[0].SourceID, "pet.morph")
	}
}

func TestFindMissingRoot(t *testing.T) {
	if _, err := Find(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Find() on missing root should return error")
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("pets/pet.morph"); got != "pets/pet.morph.dart" {
		t.Errorf("OutputPath() = %q, want %q", got, "pets/pet.morph.dart")
	}
}

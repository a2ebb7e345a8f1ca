// Package discover finds morph source units on disk.
//
// A source unit is any file with the .morph extension. No directives or
// manifests needed, the extension is the marker.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Unit is one discovered source unit. SourceID is the slash-separated
// path relative to the scanned root; it is stable across platforms and
// is what diagnostics refer to.
type Unit struct {
	SourceID string
	Path     string
	Text     string
}

// Find walks root and returns every .morph source unit in sorted
// SourceID order, so registration order is deterministic. Hidden
// directories and hidden files are skipped.
func Find(root string) ([]Unit, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	if !info.IsDir() {
		unit, err := load(root, filepath.Base(root))
		if err != nil {
			return nil, err
		}
		return []Unit{unit}, nil
	}

	var units []Unit
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".morph") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		unit, err := load(path, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		units = append(units, unit)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].SourceID < units[j].SourceID })
	return units, nil
}

func load(path, sourceID string) (Unit, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return Unit{}, fmt.Errorf("discover: %w", err)
	}
	return Unit{SourceID: sourceID, Path: path, Text: string(text)}, nil
}

// OutputPath maps a source unit to its generated companion path:
// pets/pet.morph becomes pets/pet.morph.dart.
func OutputPath(sourceID string) string {
	return sourceID + ".dart"
}

// Package cliconfig loads the optional morphgen.toml project file. Flags
// always win over file values; the file only supplies defaults.
package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// DefaultPath is where Load looks when no explicit path is given.
const DefaultPath = "morphgen.toml"

var validate = validator.New()

// File is the morphgen.toml schema.
type File struct {
	// Src is the source tree to scan for .morph files.
	Src string `toml:"src"`

	// Out is the output directory for generated companions.
	Out string `toml:"out"`

	Emitter EmitterSection `toml:"emitter"`
	Dev     DevSection     `toml:"dev"`
}

// EmitterSection controls output text shape.
type EmitterSection struct {
	IndentStyle string `toml:"indent_style" validate:"omitempty,oneof=space tab"`
	IndentSize  int    `toml:"indent_size" validate:"gte=0,lte=8"`
	LineEnding  string `toml:"line_ending" validate:"omitempty,oneof=lf crlf"`
	Header      string `toml:"header"`
}

// DevSection configures the dev server.
type DevSection struct {
	Port int `toml:"port" validate:"gte=0,lte=65535"`
}

// Load reads and validates a config file. A missing file at the default
// path is not an error; a missing file at an explicit path is.
func Load(path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &f, nil
}

// Exists reports whether the default config file is present in the
// working directory.
func Exists() bool {
	_, err := os.Stat(DefaultPath)
	return err == nil
}

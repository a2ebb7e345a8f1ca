package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "morphgen.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
src = "./morph"
out = "./lib/generated"

[emitter]
indent_style = "tab"
indent_size = 1
line_ending = "lf"
header = "// custom header"

[dev]
port = 8123
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./morph", cfg.Src)
	assert.Equal(t, "./lib/generated", cfg.Out)
	assert.Equal(t, "tab", cfg.Emitter.IndentStyle)
	assert.Equal(t, 1, cfg.Emitter.IndentSize)
	assert.Equal(t, "// custom header", cfg.Emitter.Header)
	assert.Equal(t, 8123, cfg.Dev.Port)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadMissingDefaultPath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, &File{}, cfg)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "bad indent style", text: "[emitter]\nindent_style = \"dots\"\n"},
		{name: "bad line ending", text: "[emitter]\nline_ending = \"cr\"\n"},
		{name: "indent too large", text: "[emitter]\nindent_size = 99\n"},
		{name: "port out of range", text: "[dev]\nport = 99999\n"},
		{name: "not toml", text: "{json: true}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.text))
			assert.Error(t, err)
		})
	}
}

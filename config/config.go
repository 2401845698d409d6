package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// File mirrors the CLI flags in YAML form.
type File struct {
	// Input is the HTML document to rewrite (empty
	// means stdin).
	Input string `yaml:"input"`

	// Output is the destination path (empty means
	// stdout).
	Output string `yaml:"output"`

	// BaseURL remaps remote-looking references onto
	// the input's directory.
	BaseURL string `yaml:"base_url"`

	// NoRemote refuses network fetches.
	NoRemote bool `yaml:"no_remote"`

	// Verify checks existing integrity values instead
	// of overwriting.
	Verify bool `yaml:"verify"`

	// Manifest is an optional path receiving one line
	// per processed resource.
	Manifest string `yaml:"manifest"`

	// ManifestFormat is the fasttemplate line layout
	// for the manifest.
	ManifestFormat string `yaml:"manifest_format"`
}

// Load reads and decodes a YAML config file.
func Load(path string) (*File, error) {
	const errCtx = "loading config"

	content, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var cf File
	if err := yaml.Unmarshal(content, &cf); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &cf, nil
}

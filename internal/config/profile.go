package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the CLI's declarative configuration file: where to find
// grammar sources and which one to use by default.
type Profile struct {
	GrammarDir     string `yaml:"grammarDir"`
	DefaultGrammar string `yaml:"defaultGrammar"`
}

// LoadProfile reads and parses a YAML profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if p.DefaultGrammar == "" {
		p.DefaultGrammar = "instruction"
	}
	return &p, nil
}

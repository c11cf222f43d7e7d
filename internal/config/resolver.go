package config

import (
	"os"
	"path/filepath"
)

// Resolver resolves the configuration file path to load.
type Resolver interface {
	Resolve() (string, error)
}

type defaultResolver struct{}

// NewDefaultResolver returns the resolver used outside of tests: it honors
// $DEZAP_CONFIG first, then falls back to the XDG-style default path under
// the user's home directory.
func NewDefaultResolver() Resolver {
	return &defaultResolver{}
}

func (defaultResolver) Resolve() (string, error) {
	if path := os.Getenv("DEZAP_CONFIG"); path != "" {
		return ExpandHome(path), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "dezap", "config.json"), nil
}

// ExpandHome replaces a leading "~" with the user's home directory, matching
// original_source's shellexpand::tilde usage for path fields.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if len(path) > 1 && (path[1] == '/' || path[1] == os.PathSeparator) {
		return filepath.Join(home, path[2:])
	}
	return path
}

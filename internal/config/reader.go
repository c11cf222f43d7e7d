package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Reader reads and parses the configuration file at a resolved path.
type Reader interface {
	Read(path string) (*Config, error)
}

type defaultReader struct{}

func NewDefaultReader() Reader {
	return &defaultReader{}
}

func (defaultReader) Read(path string) (*Config, error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file does not exist: %s", path)
		}
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configuration file (%s) is unreadable: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("configuration file (%s) is invalid: %w", path, err)
	}

	return &cfg, nil
}

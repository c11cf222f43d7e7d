package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Manager loads the configuration, creating a default file on first run.
type Manager interface {
	Configuration() (*Config, error)
}

type manager struct {
	resolver Resolver
	reader   Reader
	writer   Writer
}

func NewManager(resolver Resolver, reader Reader, writer Writer) Manager {
	return &manager{resolver: resolver, reader: reader, writer: writer}
}

// NewDefaultManager wires the manager used outside of tests.
func NewDefaultManager() Manager {
	return NewManager(NewDefaultResolver(), NewDefaultReader(), NewDefaultWriter())
}

func (m *manager) Configuration() (*Config, error) {
	path, err := m.resolver.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configuration path: %w", err)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			defaults := Default()
			if writeErr := m.writer.Write(path, defaults); writeErr != nil {
				return nil, fmt.Errorf("could not write default configuration: %w", writeErr)
			}
		} else {
			return nil, statErr
		}
	}

	cfg, err := m.reader.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize expands tilde paths and ensures target directories exist,
// mirroring original_source/src/config.rs's PathsConfig::normalize.
func Normalize(cfg *Config) error {
	cfg.Paths.DownloadDir = ExpandHome(cfg.Paths.DownloadDir)
	cfg.Paths.HistoryDir = ExpandHome(cfg.Paths.HistoryDir)
	cfg.Paths.PeersFile = ExpandHome(cfg.Paths.PeersFile)
	if cfg.Paths.ChatLog != nil {
		expanded := ExpandHome(*cfg.Paths.ChatLog)
		cfg.Paths.ChatLog = &expanded
	}

	if err := os.MkdirAll(cfg.Paths.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory %s: %w", cfg.Paths.DownloadDir, err)
	}
	if err := os.MkdirAll(cfg.Paths.HistoryDir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory %s: %w", cfg.Paths.HistoryDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.PeersFile), 0o755); err != nil {
		return fmt.Errorf("failed to create peers file directory: %w", err)
	}
	if cfg.Paths.ChatLog != nil {
		if err := os.MkdirAll(filepath.Dir(*cfg.Paths.ChatLog), 0o755); err != nil {
			return fmt.Errorf("failed to create chat log directory: %w", err)
		}
	}
	return nil
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type mockResolver struct {
	path string
	err  error
}

func (m *mockResolver) Resolve() (string, error) { return m.path, m.err }

type mockReader struct {
	cfg *Config
	err error
}

func (m *mockReader) Read(string) (*Config, error) { return m.cfg, m.err }

type mockWriter struct {
	calls int
	err   error
}

func (m *mockWriter) Write(string, Config) error {
	m.calls++
	return m.err
}

func TestManager_Configuration_ResolverError(t *testing.T) {
	m := NewManager(&mockResolver{err: errors.New("resolve boom")}, &mockReader{}, &mockWriter{})
	_, err := m.Configuration()
	if err == nil || !strings.Contains(err.Error(), "resolve boom") {
		t.Fatalf("expected resolve error, got %v", err)
	}
}

func TestManager_Configuration_WritesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	defaults := Default()
	writer := &mockWriter{}
	m := NewManager(&mockResolver{path: path}, &mockReader{cfg: &defaults}, writer)

	cfg, err := m.Configuration()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer.calls != 1 {
		t.Errorf("expected writer to be called once, got %d", writer.calls)
	}
	if cfg.Identity.Username != defaults.Identity.Username {
		t.Errorf("unexpected username: %q", cfg.Identity.Username)
	}
}

func TestManager_Configuration_WriteDefaultError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writer := &mockWriter{err: errors.New("write boom")}
	m := NewManager(&mockResolver{path: path}, &mockReader{}, writer)

	_, err := m.Configuration()
	if err == nil || !strings.Contains(err.Error(), "write boom") {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestManager_Configuration_ReaderError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := (defaultWriter{}).Write(path, Default()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	m := NewManager(&mockResolver{path: path}, &mockReader{err: errors.New("read boom")}, &mockWriter{})
	_, err := m.Configuration()
	if err == nil || !strings.Contains(err.Error(), "read boom") {
		t.Fatalf("expected reader error, got %v", err)
	}
}

func TestNormalize_ExpandsTildeAndCreatesDirs(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg := Default()
	cfg.Paths.DownloadDir = "~/downloads"
	cfg.Paths.HistoryDir = "~/history"
	cfg.Paths.PeersFile = "~/peers/peers.json"
	chatLog := "~/logs/chat.log"
	cfg.Paths.ChatLog = &chatLog

	if err := Normalize(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, dir := range []string{cfg.Paths.DownloadDir, cfg.Paths.HistoryDir, filepath.Dir(cfg.Paths.PeersFile), filepath.Dir(*cfg.Paths.ChatLog)} {
		info, statErr := os.Stat(dir)
		if statErr != nil {
			t.Fatalf("expected %s to exist: %v", dir, statErr)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", dir)
		}
	}
}

func TestNormalize_ChatLogOptional(t *testing.T) {
	cfg := Default()
	cfg.Paths.DownloadDir = filepath.Join(t.TempDir(), "dl")
	cfg.Paths.HistoryDir = filepath.Join(t.TempDir(), "hist")
	cfg.Paths.PeersFile = filepath.Join(t.TempDir(), "peers.json")
	cfg.Paths.ChatLog = nil

	if err := Normalize(&cfg); err != nil {
		t.Fatalf("unexpected error with nil chat log: %v", err)
	}
}

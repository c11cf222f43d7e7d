package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultResolver_Resolve_HonorsEnvOverride(t *testing.T) {
	t.Setenv("DEZAP_CONFIG", "/tmp/custom-dezap-config.json")
	path, err := (defaultResolver{}).Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/tmp/custom-dezap-config.json" {
		t.Errorf("got %q, want override path", path)
	}
}

func TestDefaultResolver_Resolve_FallsBackToHomeConfig(t *testing.T) {
	t.Setenv("DEZAP_CONFIG", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	path, err := (defaultResolver{}).Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(home, ".config", "dezap", "config.json")
	if path != want {
		t.Errorf("got %q, want %q", path, want)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	cases := map[string]string{
		"~":                home,
		"~/foo/bar":        filepath.Join(home, "foo", "bar"),
		"/absolute/path":   "/absolute/path",
		"":                 "",
		"relative/path":    "relative/path",
		"~nouser/path":     "~nouser/path",
	}
	for in, want := range cases {
		if got := ExpandHome(in); got != want {
			t.Errorf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}

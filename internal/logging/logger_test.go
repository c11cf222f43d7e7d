package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func withCapturedLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	origOutput := log.Writer()
	origFlags := log.Flags()
	origPrefix := log.Prefix()
	t.Cleanup(func() {
		log.SetOutput(origOutput)
		log.SetFlags(origFlags)
		log.SetPrefix(origPrefix)
	})

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	log.SetPrefix("")
	return &buf
}

func TestNewStdLogger_ReturnsLogger(t *testing.T) {
	l := NewStdLogger(LevelInfo)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestStdLogger_Printf_AlwaysWrites(t *testing.T) {
	buf := withCapturedLog(t)
	NewStdLogger(LevelError).Printf("hello %s", "world")
	if !strings.Contains(buf.String(), "hello world") {
		t.Fatalf("expected output to contain message, got %q", buf.String())
	}
}

func TestStdLogger_Debugf_SuppressedAboveDebug(t *testing.T) {
	buf := withCapturedLog(t)
	l := &StdLogger{level: LevelInfo}
	l.Debugf("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestStdLogger_Debugf_EmittedAtDebugLevel(t *testing.T) {
	buf := withCapturedLog(t)
	l := &StdLogger{level: LevelDebug}
	l.Debugf("visible %d", 1)
	if !strings.Contains(buf.String(), "visible 1") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

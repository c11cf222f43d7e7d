package cliapp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dezap/internal/config"
	"dezap/internal/logging"
	"dezap/internal/service"
	"dezap/internal/uicontract"
)

func testConfig(t *testing.T, username string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Identity.Username = username
	cfg.Paths.DownloadDir = filepath.Join(dir, "downloads")
	cfg.Paths.HistoryDir = filepath.Join(dir, "history")
	cfg.Paths.PeersFile = filepath.Join(dir, "peers.json")
	cfg.Discovery.Enabled = false
	cfg.TLS.InsecureLocal = true
	cfg.TLS.ServerName = "dezap.local"
	return cfg
}

func TestRunListener_StopsOnSignal(t *testing.T) {
	log := logging.NewStdLogger(logging.LevelError)
	svc, err := service.New(testConfig(t, "alice"), log)
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- RunListener(ctx, cancel, svc, "127.0.0.1:0", nil, sigCh, log)
	}()

	time.Sleep(100 * time.Millisecond)
	sigCh <- os.Interrupt

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunListener() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for listener to stop")
	}
}

func startListener(t *testing.T, log logging.Logger) (*service.Service, string) {
	t.Helper()
	svc, err := service.New(testConfig(t, "alice"), log)
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.Run(ctx)

	svc.Commands() <- uicontract.ListenCommand{Addr: "127.0.0.1:0"}
	select {
	case ev := <-svc.Events():
		if _, ok := ev.(uicontract.ListeningEvent); !ok {
			t.Fatalf("expected ListeningEvent, got %#v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for listener to start")
	}

	addr, ok := svc.ListenAddr()
	if !ok {
		t.Fatal("expected a bound listen address")
	}
	return svc, addr
}

func TestRunSendText_RoundTrip(t *testing.T) {
	log := logging.NewStdLogger(logging.LevelError)

	_, listenAddr := startListener(t, log)

	senderSvc, err := service.New(testConfig(t, "bob"), log)
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	senderCtx, senderCancel := context.WithCancel(context.Background())
	go senderSvc.Run(senderCtx)

	if err := RunSendText(senderCtx, senderCancel, senderSvc, listenAddr, nil, "hi", log); err != nil {
		t.Fatalf("RunSendText() error = %v", err)
	}
}

func TestRunSendFile_RoundTrip(t *testing.T) {
	log := logging.NewStdLogger(logging.LevelError)

	listenerSvc, listenAddr := startListener(t, log)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "note.txt")
	if err := os.WriteFile(srcPath, []byte("hello from the sender"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	downloadPath := filepath.Join(t.TempDir(), "note.txt")
	go func() {
		for ev := range listenerSvc.Events() {
			if offer, ok := ev.(uicontract.FileOfferEvent); ok {
				listenerSvc.Commands() <- uicontract.AcceptFileCommand{ID: offer.ID, Path: downloadPath}
			}
		}
	}()

	senderSvc, err := service.New(testConfig(t, "bob"), log)
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	senderCtx, senderCancel := context.WithCancel(context.Background())
	go senderSvc.Run(senderCtx)

	if err := RunSendFile(senderCtx, senderCancel, senderSvc, listenAddr, nil, srcPath, log); err != nil {
		t.Fatalf("RunSendFile() error = %v", err)
	}
}

package transfer

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"dezap/internal/wire"
)

func writeTempFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("generate random data: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestPrepare_RejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "big.bin", 1024)

	_, err := Prepare(path, 100)
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
}

func TestPrepare_RejectsNonRegularFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Prepare(dir, 1<<20)
	if err == nil {
		t.Fatal("expected error for directory source")
	}
}

func TestPrepare_CompressesAndSetsName(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "report.pdf", 4096)

	p, err := Prepare(path, 1<<20)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer os.Remove(p.CompressedPath)

	if p.Offer.Name != "report.pdf" {
		t.Errorf("Name = %q, want report.pdf", p.Offer.Name)
	}
	if p.Offer.OriginalSize != 4096 {
		t.Errorf("OriginalSize = %d, want 4096", p.Offer.OriginalSize)
	}
	if _, err := os.Stat(p.CompressedPath); err != nil {
		t.Fatalf("expected compressed temp file to exist: %v", err)
	}
}

func TestTransmitAndReceive_RoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	original := writeTempFile(t, srcDir, "photo.bin", 5*64*1024+37)
	originalData, err := os.ReadFile(original)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}

	prepared, err := Prepare(original, 10<<20)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	target := filepath.Join(dstDir, "photo.bin")
	transfer, err := PrepareAccept(IncomingOffer{
		ID:             prepared.Offer.ID,
		Name:           prepared.Offer.Name,
		OriginalSize:   prepared.Offer.OriginalSize,
		CompressedSize: prepared.Offer.CompressedSize,
	}, target)
	if err != nil {
		t.Fatalf("PrepareAccept: %v", err)
	}

	pr, pw := io.Pipe()

	var lastSent uint64
	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		defer pw.Close()
		if err := Transmit(pw, prepared, 16*1024, func(transferred, total uint64) {
			lastSent = transferred
		}); err != nil {
			t.Errorf("Transmit: %v", err)
		}
	}()

	meta, err := wire.ReadFrame(pr)
	if err != nil {
		t.Fatalf("ReadFrame(meta): %v", err)
	}
	if meta == nil || meta.Tag != wire.TagFileMeta {
		t.Fatalf("expected leading FileMeta frame, got %+v", meta)
	}

	var lastReceived uint64
	if err := Receive(pr, *meta.FileMeta, transfer, 10<<20, func(transferred uint64) {
		lastReceived = transferred
	}); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	// Transmit reports its last progress and removes its temp file only
	// after the final chunk has been consumed, so wait for it to return.
	<-sendDone

	if lastSent != meta.FileMeta.CompressedSize {
		t.Errorf("sender reported %d transferred, want %d", lastSent, meta.FileMeta.CompressedSize)
	}
	if lastReceived != meta.FileMeta.CompressedSize {
		t.Errorf("receiver reported %d transferred, want %d", lastReceived, meta.FileMeta.CompressedSize)
	}

	gotData, err := os.ReadFile(transfer.TargetPath)
	if err != nil {
		t.Fatalf("read received file: %v", err)
	}
	if !bytes.Equal(gotData, originalData) {
		t.Fatal("received file does not match original byte-for-byte")
	}
	if _, err := os.Stat(prepared.CompressedPath); !os.IsNotExist(err) {
		t.Error("expected compressed temp file to be removed after transmit")
	}
	if _, err := os.Stat(transfer.TempPath); !os.IsNotExist(err) {
		t.Error("expected receive temp file to be removed after decompression")
	}
}

func TestPrepareAccept_CreatesDirectoryDestination(t *testing.T) {
	dstDir := filepath.Join(t.TempDir(), "downloads") + string(filepath.Separator)

	transfer, err := PrepareAccept(IncomingOffer{ID: 1, Name: "a.txt"}, dstDir)
	if err != nil {
		t.Fatalf("PrepareAccept: %v", err)
	}
	if filepath.Dir(transfer.TargetPath) != filepath.Clean(dstDir) {
		t.Errorf("TargetPath = %q, want file under %q", transfer.TargetPath, dstDir)
	}
	if _, err := os.Stat(filepath.Clean(dstDir)); err != nil {
		t.Fatalf("expected destination directory to be created: %v", err)
	}
}

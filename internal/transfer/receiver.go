package transfer

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dezap/internal/wire"
)

// IncomingOffer is a not-yet-accepted FileOffer surfaced to the UI.
type IncomingOffer struct {
	ID             uint64
	Name           string
	OriginalSize   uint64
	CompressedSize uint64
	Peer           string
}

// IncomingTransfer tracks an accepted offer until its FileMeta/FileChunk
// stream arrives.
type IncomingTransfer struct {
	TargetPath   string
	TempPath     string
	OriginalName string
}

// PrepareAccept derives a temp file beside the destination and
// materializes it empty, ready to receive chunk bytes. If target looks
// like a directory, the file keeps the offered name inside target and
// target itself is created; otherwise target is the file path and its
// parent directory is created.
func PrepareAccept(offer IncomingOffer, target string) (*IncomingTransfer, error) {
	destDir := target
	destFile := offer.Name
	if !looksLikeDirectory(target) {
		destDir = filepath.Dir(target)
		destFile = filepath.Base(target)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination directory %s: %w", destDir, err)
	}

	targetPath := filepath.Join(destDir, destFile)
	tempPath := targetPath + fmt.Sprintf(".part-%d", time.Now().UnixNano())

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("create temp file %s: %w", tempPath, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file %s: %w", tempPath, err)
	}

	return &IncomingTransfer{
		TargetPath:   targetPath,
		TempPath:     tempPath,
		OriginalName: offer.Name,
	}, nil
}

func looksLikeDirectory(path string) bool {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Receive reads FileChunk frames off stream until last=true or the
// declared compressed size is reached, writing bytes sequentially into
// transfer's temp file, then gunzips the temp into the target path.
func Receive(stream io.Reader, meta wire.FileMeta, transfer *IncomingTransfer, maxFileBytes uint64, progress func(transferred uint64)) error {
	if meta.OriginalSize > maxFileBytes {
		return fmt.Errorf("incoming file %s exceeds the maximum file size (%d bytes)", meta.Name, maxFileBytes)
	}

	f, err := os.OpenFile(transfer.TempPath, os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file %s: %w", transfer.TempPath, err)
	}

	var transferred uint64
	for {
		msg, err := wire.ReadFrame(stream)
		if err != nil {
			f.Close()
			return fmt.Errorf("read file chunk: %w", err)
		}
		if msg == nil {
			break
		}
		if msg.Tag != wire.TagFileChunk || msg.FileChunk.ID != meta.ID {
			continue
		}
		chunk := msg.FileChunk

		if _, err := f.Write(chunk.Bytes); err != nil {
			f.Close()
			return fmt.Errorf("write chunk to temp file: %w", err)
		}
		transferred += uint64(len(chunk.Bytes))
		if progress != nil {
			progress(transferred)
		}

		if chunk.Last || transferred >= meta.CompressedSize {
			break
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("flush temp file %s: %w", transfer.TempPath, err)
	}

	if err := gunzipToTarget(transfer.TempPath, transfer.TargetPath); err != nil {
		return fmt.Errorf("decompress %s: %w", transfer.TempPath, err)
	}
	os.Remove(transfer.TempPath)
	return nil
}

func gunzipToTarget(tempPath, targetPath string) error {
	src, err := os.Open(tempPath)
	if err != nil {
		return err
	}
	defer src.Close()

	zr, err := gzip.NewReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}

	dst, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, zr); err != nil {
		return err
	}
	return nil
}

// FormatID renders a transfer id for log lines and error messages.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

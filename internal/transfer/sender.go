// Package transfer implements the gzip-based file-transfer pipeline:
// prepare/offer on the sending side, accept/receive on the receiving side.
package transfer

import (
	"compress/gzip"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"dezap/internal/wire"
)

const defaultChunkSize = 64 * 1024

// Prepared is a gzip-compressed outgoing transfer, kept alive between
// SendFile and the peer's accept/reject response.
type Prepared struct {
	Offer          wire.FileOffer
	OriginalPath   string
	CompressedPath string
}

// Prepare stats path, rejects non-regular or oversized sources, and
// gzip-compresses it into a sibling temp file.
func Prepare(path string, maxFileBytes uint64) (*Prepared, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if uint64(info.Size()) > maxFileBytes {
		return nil, fmt.Errorf("%s exceeds the maximum file size (%d bytes)", path, maxFileBytes)
	}

	name := filepath.Base(path)
	if !utf8.ValidString(name) {
		name = "file.bin"
	}

	compressedPath, compressedSize, err := gzipToTemp(path)
	if err != nil {
		return nil, fmt.Errorf("compress %s: %w", path, err)
	}

	id, err := randomID()
	if err != nil {
		return nil, err
	}

	return &Prepared{
		Offer: wire.FileOffer{
			ID:             id,
			Name:           name,
			OriginalSize:   uint64(info.Size()),
			CompressedSize: compressedSize,
		},
		OriginalPath:   path,
		CompressedPath: compressedPath,
	}, nil
}

func gzipToTemp(path string) (tempPath string, compressedSize uint64, err error) {
	src, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "dezap-send-*.gz")
	if err != nil {
		return "", 0, err
	}
	defer tmp.Close()

	zw := gzip.NewWriter(tmp)
	if _, err := io.Copy(zw, src); err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := zw.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}

	info, err := tmp.Stat()
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	return tmp.Name(), uint64(info.Size()), nil
}

func randomID() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return 0, fmt.Errorf("generate transfer id: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// Transmit streams p's compressed file over stream as one FileMeta frame
// followed by FileChunk frames of at most chunkSize bytes, invoking
// progress after every chunk. The compressed temp file is removed when
// transmission finishes, successfully or not.
func Transmit(stream io.Writer, p *Prepared, chunkSize uint32, progress func(transferred, total uint64)) error {
	defer os.Remove(p.CompressedPath)

	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}

	if err := wire.WriteFrame(stream, wire.NewFileMeta(wire.FileMeta{
		ID:             p.Offer.ID,
		Name:           p.Offer.Name,
		OriginalSize:   p.Offer.OriginalSize,
		CompressedSize: p.Offer.CompressedSize,
	})); err != nil {
		return fmt.Errorf("write file meta: %w", err)
	}

	f, err := os.Open(p.CompressedPath)
	if err != nil {
		return fmt.Errorf("open compressed file %s: %w", p.CompressedPath, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	var transferred uint64
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			last := transferred+uint64(n) >= p.Offer.CompressedSize
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			if err := wire.WriteFrame(stream, wire.NewFileChunk(wire.FileChunk{
				ID:     p.Offer.ID,
				Offset: transferred,
				Bytes:  chunk,
				Last:   last,
			})); err != nil {
				return fmt.Errorf("write file chunk: %w", err)
			}

			transferred += uint64(n)
			if progress != nil {
				progress(transferred, p.Offer.CompressedSize)
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read compressed file: %w", readErr)
		}
	}
}

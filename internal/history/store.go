// Package history persists a per-peer, append-only, encrypted and
// compressed chat log on disk.
package history

import (
	"bytes"
	"compress/gzip"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

const keyFileName = "history.key"

// Entry is one recorded chat line, kept or sent locally.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Outgoing  bool      `json:"outgoing"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
}

// Store appends encrypted, compressed Entry records to per-peer files
// under dir, sharing one symmetric key across all peers.
type Store struct {
	dir string
	key []byte
	mu  sync.Mutex
}

// NewStore opens (or initializes) the history store rooted at dir. If
// history.key exists and holds at least 32 bytes, its first 32 bytes
// become the store key; otherwise a fresh key is generated and persisted.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history directory %s: %w", dir, err)
	}

	keyPath := filepath.Join(dir, keyFileName)
	key, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}

	return &Store{dir: dir, key: key}, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil && len(raw) >= chacha20poly1305.KeySize {
		return raw[:chacha20poly1305.KeySize], nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate history key: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("persist history key: %w", err)
	}
	return key, nil
}

// peerFileName turns an address like "10.0.0.2:5000" into the record file
// name "10.0.0.2_5000.hist".
func peerFileName(peerAddr string) string {
	return strings.ReplaceAll(peerAddr, ":", "_") + ".hist"
}

// Record serializes, gzip-compresses, encrypts and appends entry to the
// per-peer log file. Calls are serialized by an internal mutex so appends
// from multiple goroutines never interleave.
func (s *Store) Record(peerAddr string, entry Entry) error {
	marshalled, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(marshalled); err != nil {
		return fmt.Errorf("compress history entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize history entry compression: %w", err)
	}

	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return fmt.Errorf("build history cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate history nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, gz.Bytes(), nil)

	record := make([]byte, 0, len(nonce)+4+len(ciphertext))
	record = append(record, nonce...)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(ciphertext)))
	record = append(record, lenBuf...)
	record = append(record, ciphertext...)

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, peerFileName(peerAddr))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open history file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(record); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

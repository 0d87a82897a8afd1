// Package storage persists engine state as JSON documents: one document
// per logical store (the thought-graph snapshot, the verification-record
// collection), under a global or per-session key.
//
// Two backends implement the same DocumentStore interface:
//   - FileStore: one JSON file per document, written to a temporary file
//     and atomically renamed so a reader never observes a half-written
//     snapshot, and a failed save never corrupts the previous one.
//   - BadgerStore: documents as values in a Badger key-value database, for
//     deployments that want a single durable data directory with
//     transactional writes.
//
// Load failures are recoverable by design: callers fall back to empty
// in-memory state and log, per the engine's degraded-capability rules.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Errors returned by stores.
var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidKey  = errors.New("invalid document key")
	ErrStoreClosed = errors.New("store closed")
)

// Well-known document keys.
const (
	KeyGraph         = "thought-graph"
	KeyVerifications = "verifications"
)

// DocumentStore persists named JSON documents.
type DocumentStore interface {
	// Save replaces the document atomically.
	Save(key string, data []byte) error

	// Load returns the document, or ErrNotFound.
	Load(key string) ([]byte, error)

	// Delete removes the document. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists all stored document keys.
	Keys() ([]string, error)

	Close() error
}

// validKey rejects path separators and empty keys so a document key can
// never escape the data directory.
func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// FileStore keeps one JSON file per document under a data directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Save writes to a temporary file in the same directory and renames it
// over the target. Rename is atomic on POSIX filesystems, so a crashed or
// failed save leaves the previous snapshot intact.
func (s *FileStore) Save(key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads the document file.
func (s *FileStore) Load(key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

// Delete removes the document file if present.
func (s *FileStore) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Keys lists every stored document.
func (s *FileStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data dir: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// BadgerStore persists documents in a Badger database.
type BadgerStore struct {
	db     *badger.DB
	closed bool
}

// NewBadgerStore opens (or creates) a Badger database at dataDir.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dataDir)
	opts.Logger = nil // engine logging stays on our side

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreInMemory opens an ephemeral in-memory Badger database.
// Useful for tests that want the Badger code path without disk.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func docKey(key string) []byte { return []byte("doc:" + key) }

// Save writes the document in one transaction.
func (s *BadgerStore) Save(key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(docKey(key), data)
	})
}

// Load reads the document.
func (s *BadgerStore) Load(key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(key))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes the document. Missing keys are not an error.
func (s *BadgerStore) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(docKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Keys lists every stored document key.
func (s *BadgerStore) Keys() ([]string, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	keys := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("doc:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

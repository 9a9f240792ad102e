// Package store persists the meet-day set in a scoped key-value store.
//
// The adapter reads and writes a single key holding a JSON array of
// canonical dates. Reads never fail from the caller's point of view: a
// missing, unreadable or malformed value is an empty set.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"meetdays/internal/config"
)

// KV is a scoped string store. Writes to a single key are atomic.
type KV interface {
	// Get returns the value under key; ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Open builds the KV selected by cfg. The returned closer releases
// driver resources and is never nil.
func Open(cfg config.StoreConfig) (KV, io.Closer, error) {
	switch cfg.Driver {
	case "", "file":
		dir, err := config.ExpandPath(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("store path: %w", err)
		}
		return NewFileKV(dir), nopCloser{}, nil
	case "badger":
		dir, err := config.ExpandPath(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("store path: %w", err)
		}
		kv, err := OpenBadger(BadgerConfig{Path: filepath.Join(dir, "badger"), SyncWrites: true})
		if err != nil {
			return nil, nil, err
		}
		return kv, kv, nil
	case "memory":
		return NewMemoryKV(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FileKV stores each key in its own file under a directory.
type FileKV struct {
	dir string
}

// NewFileKV returns a FileKV rooted at dir. The directory is created on
// first write.
func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: dir}
}

var keyRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func (f *FileKV) path(key string) (string, error) {
	if !keyRE.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return filepath.Join(f.dir, key), nil
}

func (f *FileKV) Get(key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (f *FileKV) Set(key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(p, []byte(value), 0o600)
}

// MemoryKV is a process-local KV.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

package backing

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"meetdays/internal/model"
)

// Memory is an in-process Store. Revisions are a per-file counter, and a
// write with a stale revision fails the way a hosted store would.
type Memory struct {
	mu    sync.Mutex
	files map[string]memFile
	puts  []PutRequest
}

type memFile struct {
	content []byte
	rev     int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]memFile)}
}

func (m *Memory) Get(_ context.Context, path, ref string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[objectName(path, ref)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return Record{Content: append([]byte(nil), f.content...), Revision: strconv.Itoa(f.rev)}, nil
}

func (m *Memory) Put(_ context.Context, path string, req PutRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := objectName(path, req.Ref)
	f, exists := m.files[key]
	switch {
	case exists && req.Revision != strconv.Itoa(f.rev):
		return model.Upstream(http.StatusConflict, "write failed: %d stale revision", http.StatusConflict)
	case !exists && req.Revision != "":
		return model.Upstream(http.StatusConflict, "write failed: %d file is gone", http.StatusConflict)
	}

	m.files[key] = memFile{content: append([]byte(nil), req.Content...), rev: f.rev + 1}
	m.puts = append(m.puts, req)
	return nil
}

// Seed stores content directly, bypassing revision checks.
func (m *Memory) Seed(path, ref string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := objectName(path, ref)
	f := m.files[key]
	m.files[key] = memFile{content: append([]byte(nil), content...), rev: f.rev + 1}
}

// Puts returns every accepted write, oldest first.
func (m *Memory) Puts() []PutRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PutRequest(nil), m.puts...)
}

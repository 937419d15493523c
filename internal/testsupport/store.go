package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"montage/internal/services"
)

// MemoryStore is an in-memory storage.Client for tests. Failures can be
// injected per key to exercise retry paths.
type MemoryStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putFails map[string]int
	getFails map[string]int
}

// NewMemoryStore builds an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string][]byte),
		putFails: make(map[string]int),
		getFails: make(map[string]int),
	}
}

// FailPuts makes the next n uploads of key fail.
func (m *MemoryStore) FailPuts(key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putFails[key] = n
}

// FailGets makes the next n downloads of key fail.
func (m *MemoryStore) FailGets(key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getFails[key] = n
}

// Seed stores an object directly.
func (m *MemoryStore) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

// Object returns a stored object and whether it exists.
func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// Keys returns all stored object keys.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}

func (m *MemoryStore) PutFile(_ context.Context, key, localPath, _ string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return m.put(key, data)
}

func (m *MemoryStore) PutBytes(_ context.Context, key string, data []byte, _ string) error {
	return m.put(key, data)
}

func (m *MemoryStore) Download(_ context.Context, key, localPath string) error {
	m.mu.Lock()
	if n := m.getFails[key]; n > 0 {
		m.getFails[key] = n - 1
		m.mu.Unlock()
		return fmt.Errorf("injected download failure for %s", key)
	}
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return services.Wrap(services.ErrNotFound, "storage", "download", fmt.Sprintf("object %s not found", key), nil)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (m *MemoryStore) put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.putFails[key]; n > 0 {
		m.putFails[key] = n - 1
		return fmt.Errorf("injected upload failure for %s", key)
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

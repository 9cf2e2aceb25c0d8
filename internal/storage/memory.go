package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/models"
)

// MemoryStore keeps objects in memory. It records every call so tests can
// assert on how the orchestrator used it.
type MemoryStore struct {
	mu          sync.Mutex
	baseURL     string
	objects     map[string][]byte
	uploadCalls int
	deleteCalls map[string]int

	// UploadErr and DeleteErr, when set, are returned instead of storing or
	// removing. OnUpload runs after a successful upload.
	UploadErr error
	DeleteErr error
	OnUpload  func(key string)
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://media"
	}
	return &MemoryStore{
		baseURL:     baseURL,
		objects:     make(map[string][]byte),
		deleteCalls: make(map[string]int),
	}
}

func (m *MemoryStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (models.MediaRef, error) {
	if err := ctx.Err(); err != nil {
		return models.MediaRef{}, err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("read upload: %w", err)
	}
	m.mu.Lock()
	m.uploadCalls++
	if m.UploadErr != nil {
		err := m.UploadErr
		m.mu.Unlock()
		return models.MediaRef{}, err
	}
	m.objects[key] = data
	hook := m.OnUpload
	m.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	return models.MediaRef{ImageURL: m.baseURL + "/" + key, PublicID: key}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls[handle]++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.objects, handle)
	return nil
}

func (m *MemoryStore) PresignURL(_ context.Context, handle string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[handle]; !ok {
		return "", ErrObjectNotFound
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, handle, int(ttl.Seconds())), nil
}

func (m *MemoryStore) Has(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[handle]
	return ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *MemoryStore) UploadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploadCalls
}

// DeleteCalls reports how many times Delete was called for handle.
func (m *MemoryStore) DeleteCalls(handle string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCalls[handle]
}

func (m *MemoryStore) TotalDeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.deleteCalls {
		n += c
	}
	return n
}

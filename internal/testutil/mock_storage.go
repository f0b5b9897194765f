// mock_storage.go - In-memory asset store for tests
package testutil

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/storage"
)

// MockStorage implements storage.Store in memory. It accepts any bytes.
type MockStorage struct {
	assets map[string]*models.AssetInfo
	data   map[string][]byte
	mu     sync.RWMutex
}

// NewMockStorage creates an empty mock store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		assets: make(map[string]*models.AssetInfo),
		data:   make(map[string][]byte),
	}
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.AssetInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return m.SaveBytes(name, data)
}

func (m *MockStorage) SaveBytes(name string, data []byte) (*models.AssetInfo, error) {
	return m.AddAsset(generateTestID(), name, data), nil
}

func (m *MockStorage) Get(id string) (*models.AssetInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return info, nil
}

func (m *MockStorage) List(limit int) ([]*models.AssetInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*models.AssetInfo
	for _, info := range m.assets {
		list = append(list, info)
		if limit > 0 && len(list) >= limit {
			break
		}
	}
	return list, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[id]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	delete(m.assets, id)
	delete(m.data, id)
	return nil
}

func (m *MockStorage) ReadDataURL(id string) (string, error) {
	info, err := m.Get(id)
	if err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return "data:" + info.ContentType + ";base64," + base64.StdEncoding.EncodeToString(m.data[id]), nil
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// AddAsset stores data under a fixed id.
func (m *MockStorage) AddAsset(id, name string, data []byte) *models.AssetInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := &models.AssetInfo{
		ID:          id,
		Name:        name,
		ContentType: http.DetectContentType(data),
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
	}
	m.assets[id] = info
	m.data[id] = data
	return info
}

// Count returns the number of stored assets.
func (m *MockStorage) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.assets)
}

var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}

// Package storage keeps uploaded images (floor plans, reference photos, material
// textures) on the local filesystem.
package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/home-designer/backend/internal/models"
)

var (
	ErrNotFound         = errors.New("asset not found")
	ErrTooLarge         = errors.New("asset exceeds size limit")
	ErrUnsupportedImage = errors.New("asset is not a supported image")
	ErrInvalidEncoding  = errors.New("asset is not valid base64")
)

// Store defines the interface for asset storage.
type Store interface {
	Save(name string, r io.Reader) (*models.AssetInfo, error)
	SaveBytes(name string, data []byte) (*models.AssetInfo, error)
	Get(id string) (*models.AssetInfo, error)
	List(limit int) ([]*models.AssetInfo, error)
	Delete(id string) error
	ReadDataURL(id string) (string, error)
}

// LocalStore implements Store using the local filesystem. Metadata lives in
// memory only; assets do not survive a restart.
type LocalStore struct {
	mu       sync.RWMutex
	dir      string
	maxBytes int64
	assets   map[string]*models.AssetInfo
}

// NewLocalStore creates the asset directory if needed. maxBytes <= 0 means no limit.
func NewLocalStore(dir string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating assets directory: %w", err)
	}

	return &LocalStore{
		dir:      dir,
		maxBytes: maxBytes,
		assets:   make(map[string]*models.AssetInfo),
	}, nil
}

// Save reads r fully and stores it.
func (s *LocalStore) Save(name string, r io.Reader) (*models.AssetInfo, error) {
	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading asset: %w", err)
	}
	return s.SaveBytes(name, data)
}

// SaveBytes stores data after checking the size limit and that it sniffs as an image.
func (s *LocalStore) SaveBytes(name string, data []byte) (*models.AssetInfo, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), s.maxBytes)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedImage, contentType)
	}

	id := uuid.New().String()
	path := filepath.Join(s.dir, id)
	if err := os.WriteFile(path, data, 0644); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing asset: %w", err)
	}

	info := &models.AssetInfo{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[id] = info

	return info, nil
}

// SaveBase64 decodes a base64 image, with or without a data URL prefix, and stores it.
func (s *LocalStore) SaveBase64(name, encoded string) (*models.AssetInfo, error) {
	data, err := DecodeBase64Image(encoded)
	if err != nil {
		return nil, err
	}
	return s.SaveBytes(name, data)
}

// Get retrieves asset metadata by ID.
func (s *LocalStore) Get(id string) (*models.AssetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return info, nil
}

// List returns the most recent assets, newest first.
func (s *LocalStore) List(limit int) ([]*models.AssetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.AssetInfo, 0, len(s.assets))
	for _, info := range s.assets {
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes an asset and its file.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path := filepath.Join(s.dir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting asset: %w", err)
	}

	delete(s.assets, id)
	return nil
}

// Open returns the asset contents.
func (s *LocalStore) Open(id string) (io.ReadCloser, *models.AssetInfo, error) {
	info, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, id))
	if err != nil {
		return nil, nil, fmt.Errorf("opening asset: %w", err)
	}
	return f, info, nil
}

// ReadDataURL returns the asset as a data URL, the form the model endpoint accepts.
func (s *LocalStore) ReadDataURL(id string) (string, error) {
	rc, info, err := s.Open(id)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	buf.WriteString("data:" + info.ContentType + ";base64,")
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, rc); err != nil {
		return "", fmt.Errorf("encoding asset: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding asset: %w", err)
	}
	return buf.String(), nil
}

// DecodeBase64Image accepts raw base64 or a data URL.
func DecodeBase64Image(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma == -1 || !strings.Contains(encoded[:comma], ";base64") {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidEncoding)
		}
		encoded = encoded[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return data, nil
}

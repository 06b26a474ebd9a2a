package memory

import (
	"context"
	"sync"

	"github.com/mirislabs/renderd/pkg/domain"
)

// Store implements ports.FrameStore in memory.
// Safe for concurrent use. Also keeps a per-camera index so the latest frame
// for a camera can be looked up without scanning.
type Store struct {
	mu       sync.RWMutex
	data     map[string]*domain.FrameArtifact
	byCamera map[string]string
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data:     make(map[string]*domain.FrameArtifact),
		byCamera: make(map[string]string),
	}
}

// Save persists the artifact in memory.
func (s *Store) Save(ctx context.Context, key string, artifact *domain.FrameArtifact) error {
	// Shallow copy; byte slices are treated as immutable once encoded.
	copied := *artifact

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &copied
	if copied.CameraName != "" {
		s.byCamera[copied.CameraName] = key
	}
	return nil
}

// Load retrieves the artifact from memory.
func (s *Store) Load(ctx context.Context, key string) (*domain.FrameArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, ok := s.data[key]
	if !ok {
		return nil, domain.ErrFrameNotFound
	}
	ret := *artifact
	return &ret, nil
}

// LoadByCamera retrieves the most recently saved artifact for a camera.
func (s *Store) LoadByCamera(ctx context.Context, cameraName string) (*domain.FrameArtifact, error) {
	s.mu.RLock()
	key, ok := s.byCamera[cameraName]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrFrameNotFound
	}
	return s.Load(ctx, key)
}

// Delete removes the artifact.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if artifact, ok := s.data[key]; ok {
		if s.byCamera[artifact.CameraName] == key {
			delete(s.byCamera, artifact.CameraName)
		}
	}
	delete(s.data, key)
	return nil
}

// List returns the stored keys.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys, nil
}

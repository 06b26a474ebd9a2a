package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/mirislabs/renderd/pkg/domain"
)

// Store implements ports.FrameStore using Redis, so rendered artifacts can be
// shared between gateway replicas fronting the same host.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for cached frames.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for frames.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "renderd:frame:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(frameKey string) string {
	return s.prefix + frameKey
}

func (s *Store) cameraKey(cameraName string) string {
	return s.prefix + "camera:" + cameraName
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the artifact and updates the per-camera pointer.
func (s *Store) Save(ctx context.Context, key string, artifact *domain.FrameArtifact) error {
	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal frame artifact: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(key), data, s.ttl)
	if artifact.CameraName != "" {
		pipe.Set(ctx, s.cameraKey(artifact.CameraName), key, s.ttl)
	}

	// Index entry scored by expiry so List can prune lazily. TTL 0 keeps the
	// entry effectively forever.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: key,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save frame to redis: %w", err)
	}
	return nil
}

// Load retrieves the artifact for a key.
func (s *Store) Load(ctx context.Context, key string) (*domain.FrameArtifact, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrFrameNotFound
		}
		return nil, fmt.Errorf("failed to get frame from redis: %w", err)
	}

	var artifact domain.FrameArtifact
	if err := json.Unmarshal([]byte(val), &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame artifact: %w", err)
	}
	return &artifact, nil
}

// LoadByCamera retrieves the most recently saved artifact for a camera.
func (s *Store) LoadByCamera(ctx context.Context, cameraName string) (*domain.FrameArtifact, error) {
	key, err := s.client.Get(ctx, s.cameraKey(cameraName)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrFrameNotFound
		}
		return nil, fmt.Errorf("failed to resolve camera frame: %w", err)
	}
	return s.Load(ctx, key)
}

// Delete removes the artifact and its index entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(key))
	pipe.ZRem(ctx, s.indexKey(), key)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns the cached frame keys, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired frames: %w", err)
	}

	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	return keys, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

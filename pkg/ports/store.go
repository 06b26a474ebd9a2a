package ports

import (
	"context"

	"github.com/mirislabs/renderd/pkg/domain"
)

// FrameStore persists encoded frame artifacts. It doubles as the render
// cache: the service keys artifacts by a digest of the stage path and the
// normalized render request.
type FrameStore interface {
	// Save persists the artifact under the given key.
	Save(ctx context.Context, key string, artifact *domain.FrameArtifact) error

	// Load retrieves the artifact for a key.
	// Returns domain.ErrFrameNotFound if it does not exist.
	Load(ctx context.Context, key string) (*domain.FrameArtifact, error)

	// LoadByCamera retrieves the most recently saved artifact for a camera.
	// Returns domain.ErrFrameNotFound if the camera has no frame.
	LoadByCamera(ctx context.Context, cameraName string) (*domain.FrameArtifact, error)

	// Delete removes the artifact for a key.
	Delete(ctx context.Context, key string) error

	// List returns the keys currently held.
	List(ctx context.Context) ([]string, error)
}

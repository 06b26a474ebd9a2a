package ports

import (
	"context"

	"github.com/mirislabs/renderd/pkg/domain"
)

// Renderer is the backend that owns the stage and produces frames. The
// production implementation delegates to the host runtime; the preview
// implementation synthesizes frames locally for development and tests.
type Renderer interface {
	// OpenStage loads the given USD identifier as the active stage and
	// reports stage metadata. Opening a new stage replaces the previous one.
	OpenStage(ctx context.Context, path string) (domain.StageMeta, error)

	// Render produces a frame for the request against the given stage.
	// Returns domain.ErrRendererUnavailable when the backend is unreachable.
	Render(ctx context.Context, stage domain.StageRef, req domain.RenderRequest) (*domain.Frame, error)

	// Close releases backend resources.
	Close() error
}

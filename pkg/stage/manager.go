// Package stage owns the "currently opened stage" state. The host runtime
// keeps exactly one active stage per process; the manager enforces the same
// invariant in front of whichever renderer backend is configured.
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mirislabs/renderd/internal/logging"
	"github.com/mirislabs/renderd/pkg/domain"
	"github.com/mirislabs/renderd/pkg/ports"
)

// historyLimit bounds the recently-opened list.
const historyLimit = 16

// Manager serializes stage opens and tracks the active stage reference.
type Manager struct {
	renderer ports.Renderer
	logger   *slog.Logger

	mu      sync.RWMutex
	current *domain.StageRef
	meta    domain.StageMeta
	history []string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager in front of the given renderer backend.
func NewManager(renderer ports.Renderer, opts ...Option) *Manager {
	m := &Manager{
		renderer: renderer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidatePath checks a stage identifier without touching the renderer.
// Local paths must exist on disk; remote identifiers (anything with a URI
// scheme) are only checked for a USD extension.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("usd_file_location is required")
	}

	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, e := range domain.StageExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedStageFormat, ext)
	}

	if strings.Contains(path, "://") {
		// Remote identifier; existence is the host's problem.
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStageNotFound, path)
	}
	return nil
}

// Open validates the identifier, asks the renderer to load it, and replaces
// the active stage on success. Opening over an already-open stage is allowed;
// the previous stage is simply dropped.
func (m *Manager) Open(ctx context.Context, path string) (domain.StageRef, error) {
	if err := ValidatePath(path); err != nil {
		return domain.StageRef{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	meta, err := m.renderer.OpenStage(ctx, path)
	if err != nil {
		return domain.StageRef{}, fmt.Errorf("open stage %s: %w", path, err)
	}
	meta.Normalize()

	ref := domain.StageRef{
		Path:     path,
		UpAxis:   meta.UpAxis,
		OpenedAt: time.Now().UTC(),
	}
	m.current = &ref
	m.meta = meta

	m.history = append(m.history, path)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}

	m.logger.Info("stage opened", "path", path, "up_axis", meta.UpAxis)
	return ref, nil
}

// Current returns the active stage, or domain.ErrNoStageOpen.
func (m *Manager) Current() (domain.StageRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return domain.StageRef{}, domain.ErrNoStageOpen
	}
	return *m.current, nil
}

// Meta returns the metadata reported for the active stage, or
// domain.ErrNoStageOpen.
func (m *Manager) Meta() (domain.StageMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return domain.StageMeta{}, domain.ErrNoStageOpen
	}
	return m.meta, nil
}

// History returns the recently opened stage paths, oldest first.
func (m *Manager) History() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

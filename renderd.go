package renderd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mirislabs/renderd/internal/logging"
	"github.com/mirislabs/renderd/pkg/adapters/memory"
	"github.com/mirislabs/renderd/pkg/camera"
	"github.com/mirislabs/renderd/pkg/domain"
	"github.com/mirislabs/renderd/pkg/ports"
	"github.com/mirislabs/renderd/pkg/stage"
	"github.com/mirislabs/renderd/pkg/writer"
)

// Version is the gateway version reported by /info and the CLI.
var Version = "0.3.1"

// Service is the high-level entry point tying the stage manager, renderer
// backend, writer, and frame cache together.
type Service struct {
	renderer ports.Renderer
	stages   *stage.Manager
	store    ports.FrameStore
	writer   *writer.Writer
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	outputDir string
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithFrameStore injects a frame store, replacing the in-memory default.
func WithFrameStore(store ports.FrameStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithOutputDir sets the directory frame artifacts are written under.
// An empty directory keeps artifacts in memory only.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		s.outputDir = dir
	}
}

// New creates a Service in front of the given renderer backend.
func New(renderer ports.Renderer, opts ...Option) *Service {
	s := &Service{
		renderer:  renderer,
		logger:    logging.NewNop(),
		outputDir: ".",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}
	s.writer = writer.New(s.outputDir)
	s.stages = stage.NewManager(renderer, stage.WithLogger(s.logger))
	return s
}

// OpenStage opens the given USD identifier as the active stage.
func (s *Service) OpenStage(ctx context.Context, path string) (domain.StageRef, error) {
	ref, err := s.stages.Open(ctx, path)

	if s.hooks.OnStageOpen != nil {
		s.hooks.OnStageOpen(ctx, &domain.StageEvent{
			EventBase: domain.EventBase{Timestamp: time.Now().UTC(), Type: domain.EventStageOpen},
			Path:      path,
			UpAxis:    ref.UpAxis,
			IsError:   err != nil,
		})
	}
	return ref, err
}

// Stage returns the active stage, or domain.ErrNoStageOpen.
func (s *Service) Stage() (domain.StageRef, error) {
	return s.stages.Current()
}

// StageHistory returns the recently opened stage paths, oldest first.
func (s *Service) StageHistory() []string {
	return s.stages.History()
}

// Render produces the frame artifact for the request. The boolean reports
// whether the artifact came from the cache.
func (s *Service) Render(ctx context.Context, req domain.RenderRequest) (*domain.FrameArtifact, bool, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	stageRef, err := s.stages.Current()
	if err != nil {
		return nil, false, err
	}
	meta, err := s.stages.Meta()
	if err != nil {
		return nil, false, err
	}

	s.fireRenderStart(ctx, stageRef, req)

	key := CacheKey(stageRef.Path, req)
	if artifact, err := s.store.Load(ctx, key); err == nil {
		s.logger.Debug("render served from cache", "camera", req.CameraName, "key", key)
		s.fireRenderDone(ctx, stageRef, req, 0, true, nil)
		return artifact, true, nil
	} else if !errors.Is(err, domain.ErrFrameNotFound) {
		s.logger.Warn("frame cache lookup failed", "error", err)
	}

	frame, err := s.renderer.Render(ctx, stageRef, req)
	if err != nil {
		s.fireRenderDone(ctx, stageRef, req, 0, false, err)
		return nil, false, fmt.Errorf("render %s: %w", req.CameraName, err)
	}
	frame.Info = camera.InfoForRequest(req, meta)

	artifact, err := s.writer.Write(frame, key)
	if err != nil {
		s.fireRenderDone(ctx, stageRef, req, frame.Elapsed, false, err)
		return nil, false, err
	}

	if err := s.store.Save(ctx, key, artifact); err != nil {
		// The render succeeded; a cache failure should not fail the request.
		s.logger.Warn("frame cache save failed", "error", err, "key", key)
	}

	s.fireRenderDone(ctx, stageRef, req, frame.Elapsed, false, nil)
	return artifact, false, nil
}

// Version reports the gateway version.
func (s *Service) Version() string {
	return Version
}

// Frame returns the most recent artifact rendered for a camera.
func (s *Service) Frame(ctx context.Context, cameraName string) (*domain.FrameArtifact, error) {
	return s.store.LoadByCamera(ctx, cameraName)
}

// Close releases the renderer backend.
func (s *Service) Close() error {
	return s.renderer.Close()
}

func (s *Service) fireRenderStart(ctx context.Context, stageRef domain.StageRef, req domain.RenderRequest) {
	if s.hooks.OnRenderStart == nil {
		return
	}
	s.hooks.OnRenderStart(ctx, &domain.RenderEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now().UTC(), Type: domain.EventRenderStart},
		CameraName: req.CameraName,
		StagePath:  stageRef.Path,
		Resolution: req.ImageResolution,
	})
}

func (s *Service) fireRenderDone(ctx context.Context, stageRef domain.StageRef, req domain.RenderRequest, elapsed time.Duration, cacheHit bool, err error) {
	if s.hooks.OnRenderDone == nil {
		return
	}
	s.hooks.OnRenderDone(ctx, &domain.RenderEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now().UTC(), Type: domain.EventRenderDone},
		CameraName: req.CameraName,
		StagePath:  stageRef.Path,
		Resolution: req.ImageResolution,
		CacheHit:   cacheHit,
		Elapsed:    elapsed,
		IsError:    err != nil,
	})
}

// CacheKey derives the content address for a render: a digest over the stage
// path and the normalized request, so identical requests against the same
// stage share one artifact.
func CacheKey(stagePath string, req domain.RenderRequest) string {
	payload, _ := json.Marshal(struct {
		Stage   string               `json:"stage"`
		Request domain.RenderRequest `json:"request"`
	}{stagePath, req})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}

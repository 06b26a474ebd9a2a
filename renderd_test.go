package renderd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirislabs/renderd/pkg/adapters/memory"
	"github.com/mirislabs/renderd/pkg/adapters/preview"
	"github.com/mirislabs/renderd/pkg/domain"
	"github.com/mirislabs/renderd/pkg/ports"
)

func testStage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.usd")
	require.NoError(t, os.WriteFile(path, []byte("#usda 1.0\n"), 0o644))
	return path
}

func TestOpenStageAndRender(t *testing.T) {
	outDir := t.TempDir()
	svc := New(preview.New(), WithOutputDir(outDir))
	defer svc.Close()
	ctx := context.Background()

	stagePath := testStage(t)
	ref, err := svc.OpenStage(ctx, stagePath)
	require.NoError(t, err)
	assert.Equal(t, stagePath, ref.Path)

	current, err := svc.Stage()
	require.NoError(t, err)
	assert.Equal(t, stagePath, current.Path)
	assert.Equal(t, []string{stagePath}, svc.StageHistory())

	req := domain.RenderRequest{
		CameraPosition:  [3]float64{0, 5, 20},
		ImageResolution: [2]int{32, 32},
	}
	artifact, cacheHit, err := svc.Render(ctx, req)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, "camera_0", artifact.CameraName)
	assert.Equal(t, [2]int{32, 32}, artifact.Resolution)
	assert.NotEmpty(t, artifact.RGBPNG)
	assert.NotEmpty(t, artifact.DepthTIFF)
	assert.Equal(t, 15.0, artifact.Info.FocalLength)
	assert.Equal(t, 20.0, artifact.Info.VerticalAperture, "square output keeps the aperture")

	// Artifacts land next to the configured output dir, host-writer style.
	assert.Equal(t, filepath.Join(outDir, "_output_camera_0"), artifact.OutputDir)
	_, err = os.Stat(filepath.Join(artifact.OutputDir, "rgb.png"))
	assert.NoError(t, err)
}

func TestRenderRequiresAnOpenStage(t *testing.T) {
	svc := New(preview.New(), WithOutputDir(""))
	defer svc.Close()

	_, _, err := svc.Render(context.Background(), domain.RenderRequest{})
	assert.ErrorIs(t, err, domain.ErrNoStageOpen)
}

func TestRenderValidatesRequest(t *testing.T) {
	svc := New(preview.New(), WithOutputDir(""))
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.OpenStage(ctx, testStage(t))
	require.NoError(t, err)

	_, _, err = svc.Render(ctx, domain.RenderRequest{ImageResolution: [2]int{0, 64}})
	assert.Error(t, err)

	_, _, err = svc.Render(ctx, domain.RenderRequest{CameraFocalLength: -1})
	assert.Error(t, err)
}

func TestRenderCaching(t *testing.T) {
	svc := New(preview.New(), WithOutputDir(""))
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.OpenStage(ctx, testStage(t))
	require.NoError(t, err)

	req := domain.RenderRequest{ImageResolution: [2]int{16, 16}}

	first, cacheHit, err := svc.Render(ctx, req)
	require.NoError(t, err)
	assert.False(t, cacheHit)

	second, cacheHit, err := svc.Render(ctx, req)
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, first.Key, second.Key)

	// A different pose is a different frame.
	moved := req
	moved.CameraPosition = [3]float64{1, 0, 0}
	third, cacheHit, err := svc.Render(ctx, moved)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.NotEqual(t, first.Key, third.Key)

	// Reopening a different stage invalidates nothing but keys diverge.
	_, err = svc.OpenStage(ctx, testStage(t))
	require.NoError(t, err)
	fourth, cacheHit, err := svc.Render(ctx, req)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.NotEqual(t, first.Key, fourth.Key)
}

func TestFrameLookupByCamera(t *testing.T) {
	svc := New(preview.New(), WithOutputDir(""))
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.OpenStage(ctx, testStage(t))
	require.NoError(t, err)

	_, _, err = svc.Render(ctx, domain.RenderRequest{CameraName: "camera_1", ImageResolution: [2]int{16, 16}})
	require.NoError(t, err)

	artifact, err := svc.Frame(ctx, "camera_1")
	require.NoError(t, err)
	assert.Equal(t, "camera_1", artifact.CameraName)

	_, err = svc.Frame(ctx, "camera_9")
	assert.ErrorIs(t, err, domain.ErrFrameNotFound)
}

// wrappingStore decorates a FrameStore and wraps every miss, the way a
// remote store adapter annotates its errors.
type wrappingStore struct {
	ports.FrameStore
}

func (s *wrappingStore) Load(ctx context.Context, key string) (*domain.FrameArtifact, error) {
	artifact, err := s.FrameStore.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", key, err)
	}
	return artifact, nil
}

func TestRenderTreatsWrappedMissAsMiss(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	svc := New(preview.New(),
		WithOutputDir(""),
		WithFrameStore(&wrappingStore{memory.NewStore()}),
		WithLogger(logger),
	)
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.OpenStage(ctx, testStage(t))
	require.NoError(t, err)

	req := domain.RenderRequest{ImageResolution: [2]int{16, 16}}
	_, cacheHit, err := svc.Render(ctx, req)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.NotContains(t, logBuf.String(), "frame cache lookup failed",
		"an annotated miss is still a miss, not a store failure")

	_, cacheHit, err = svc.Render(ctx, req)
	require.NoError(t, err)
	assert.True(t, cacheHit)
}

func TestLifecycleHooksFire(t *testing.T) {
	var stageOpens, renderStarts, renderDones, cacheHits int32

	hooks := domain.LifecycleHooks{
		OnStageOpen: func(ctx context.Context, e *domain.StageEvent) {
			atomic.AddInt32(&stageOpens, 1)
		},
		OnRenderStart: func(ctx context.Context, e *domain.RenderEvent) {
			atomic.AddInt32(&renderStarts, 1)
		},
		OnRenderDone: func(ctx context.Context, e *domain.RenderEvent) {
			atomic.AddInt32(&renderDones, 1)
			if e.CacheHit {
				atomic.AddInt32(&cacheHits, 1)
			}
		},
	}

	svc := New(preview.New(), WithOutputDir(""), WithLifecycleHooks(hooks))
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.OpenStage(ctx, testStage(t))
	require.NoError(t, err)

	req := domain.RenderRequest{ImageResolution: [2]int{8, 8}}
	_, _, err = svc.Render(ctx, req)
	require.NoError(t, err)
	_, _, err = svc.Render(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&stageOpens))
	assert.Equal(t, int32(2), atomic.LoadInt32(&renderStarts))
	assert.Equal(t, int32(2), atomic.LoadInt32(&renderDones))
	assert.Equal(t, int32(1), atomic.LoadInt32(&cacheHits))
}

func TestCacheKey(t *testing.T) {
	req := domain.RenderRequest{CameraName: "camera_0", ImageResolution: [2]int{64, 64}}

	a := CacheKey("/tmp/scene.usd", req)
	b := CacheKey("/tmp/scene.usd", req)
	assert.Equal(t, a, b, "same inputs, same key")
	assert.Len(t, a, 32)

	c := CacheKey("/tmp/other.usd", req)
	assert.NotEqual(t, a, c, "stage path is part of the key")

	req.CameraFocalLength = 35
	d := CacheKey("/tmp/scene.usd", req)
	assert.NotEqual(t, a, d, "camera parameters are part of the key")
}

package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirislabs/renderd/pkg/domain"
)

// fakeRenderer implements ports.Renderer with canned responses.
type fakeRenderer struct {
	meta    domain.StageMeta
	openErr error
	opens   []string
}

func (f *fakeRenderer) OpenStage(ctx context.Context, path string) (domain.StageMeta, error) {
	f.opens = append(f.opens, path)
	return f.meta, f.openErr
}

func (f *fakeRenderer) Render(ctx context.Context, stage domain.StageRef, req domain.RenderRequest) (*domain.Frame, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRenderer) Close() error { return nil }

func writeStageFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#usda 1.0\n"), 0o644))
	return path
}

func TestValidatePath(t *testing.T) {
	existing := writeStageFile(t, "scene.usda")

	tests := []struct {
		name    string
		path    string
		wantErr error // nil means valid; errAny means any error
	}{
		{"existing usda file", existing, nil},
		{"empty path", "", errAny},
		{"wrong extension", existing + ".obj", domain.ErrUnsupportedStageFormat},
		{"missing file", "/nope/missing.usd", domain.ErrStageNotFound},
		{"remote identifier skips stat", "omniverse://server/scenes/a.usd", nil},
		{"remote with bad extension", "omniverse://server/scenes/a.fbx", domain.ErrUnsupportedStageFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			switch tt.wantErr {
			case nil:
				assert.NoError(t, err)
			case errAny:
				assert.Error(t, err)
			default:
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

var errAny = errors.New("any error")

func TestOpenReplacesCurrentStage(t *testing.T) {
	renderer := &fakeRenderer{meta: domain.StageMeta{UpAxis: domain.UpAxisZ, NearClip: 1, FarClip: 1000}}
	m := NewManager(renderer)
	ctx := context.Background()

	_, err := m.Current()
	assert.ErrorIs(t, err, domain.ErrNoStageOpen)
	_, err = m.Meta()
	assert.ErrorIs(t, err, domain.ErrNoStageOpen)

	first := writeStageFile(t, "first.usd")
	ref, err := m.Open(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, ref.Path)
	assert.Equal(t, domain.UpAxisZ, ref.UpAxis)
	assert.False(t, ref.OpenedAt.IsZero())

	second := writeStageFile(t, "second.usd")
	_, err = m.Open(ctx, second)
	require.NoError(t, err)

	current, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, second, current.Path)

	meta, err := m.Meta()
	require.NoError(t, err)
	assert.Equal(t, 1.0, meta.NearClip)

	assert.Equal(t, []string{first, second}, m.History())
}

func TestOpenRendererFailureKeepsState(t *testing.T) {
	renderer := &fakeRenderer{meta: domain.StageMeta{UpAxis: domain.UpAxisY}}
	m := NewManager(renderer)
	ctx := context.Background()

	good := writeStageFile(t, "good.usd")
	_, err := m.Open(ctx, good)
	require.NoError(t, err)

	renderer.openErr = errors.New("host exploded")
	bad := writeStageFile(t, "bad.usd")
	_, err = m.Open(ctx, bad)
	require.Error(t, err)

	// The previous stage stays active.
	current, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, good, current.Path)
}

func TestOpenInvalidPathNeverReachesRenderer(t *testing.T) {
	renderer := &fakeRenderer{}
	m := NewManager(renderer)

	_, err := m.Open(context.Background(), "/missing/scene.usd")
	assert.ErrorIs(t, err, domain.ErrStageNotFound)
	assert.Empty(t, renderer.opens)
}

func TestHistoryIsBounded(t *testing.T) {
	renderer := &fakeRenderer{meta: domain.StageMeta{UpAxis: domain.UpAxisY}}
	m := NewManager(renderer)
	ctx := context.Background()

	dir := t.TempDir()
	for i := 0; i < historyLimit+5; i++ {
		path := filepath.Join(dir, fmt.Sprintf("scene-%02d.usd", i))
		require.NoError(t, os.WriteFile(path, []byte("#usda 1.0\n"), 0o644))
		_, err := m.Open(ctx, path)
		require.NoError(t, err)
	}

	history := m.History()
	assert.Len(t, history, historyLimit)
	assert.Contains(t, history[len(history)-1], "scene-20.usd")
}

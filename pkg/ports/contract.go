package ports

import (
	"context"
	"testing"
	"time"

	"github.com/mirislabs/renderd/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFrameStoreContract runs a suite of tests to verify that a FrameStore
// implementation adheres to the defined interface contract.
func RunFrameStoreContract(t *testing.T, store FrameStore) {
	ctx := context.Background()
	key := "contract-test-frame-" + time.Now().Format("20060102150405")

	artifact := &domain.FrameArtifact{
		Key:        key,
		CameraName: "camera_0",
		StagePath:  "/tmp/scene.usd",
		Resolution: [2]int{64, 64},
		RGBPNG:     []byte{0x89, 'P', 'N', 'G'},
		ElapsedMS:  12,
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, key, artifact)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, artifact.CameraName, loaded.CameraName)
		assert.Equal(t, artifact.StagePath, loaded.StagePath)
		assert.Equal(t, artifact.RGBPNG, loaded.RGBPNG)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrFrameNotFound)
	})

	t.Run("Load By Camera", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, artifact))

		loaded, err := store.LoadByCamera(ctx, artifact.CameraName)
		require.NoError(t, err)
		assert.Equal(t, key, loaded.Key)

		_, err = store.LoadByCamera(ctx, "no-such-camera")
		assert.ErrorIs(t, err, domain.ErrFrameNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, artifact))

		err := store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrFrameNotFound, "Load after Delete should return ErrFrameNotFound")
	})

	t.Run("List", func(t *testing.T) {
		k1 := key + "-1"
		k2 := key + "-2"
		_ = store.Save(ctx, k1, artifact)
		_ = store.Save(ctx, k2, artifact)

		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}

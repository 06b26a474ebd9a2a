package writer

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirislabs/renderd/pkg/domain"
)

func testFrame(w, h int) *domain.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	depth := make([]float32, w*h)
	for i := range depth {
		img.Pix[i*4] = uint8(i)
		img.Pix[i*4+3] = 255
		depth[i] = float32(1 + i)
	}
	return &domain.Frame{
		CameraName: "camera_0",
		StagePath:  "/tmp/scene.usd",
		RGBA:       img,
		Depth:      depth,
		Info:       domain.CameraInfo{NearClip: 1, FarClip: 100},
		RenderedAt: time.Now().UTC(),
		Elapsed:    42 * time.Millisecond,
	}
}

func TestWriteProducesAllOutputs(t *testing.T) {
	w := New("")
	artifact, err := w.Write(testFrame(8, 4), "key-1")
	require.NoError(t, err)

	assert.Equal(t, "key-1", artifact.Key)
	assert.Equal(t, "camera_0", artifact.CameraName)
	assert.Equal(t, [2]int{8, 4}, artifact.Resolution)
	assert.Equal(t, int64(42), artifact.ElapsedMS)
	assert.Empty(t, artifact.OutputDir, "no base dir means nothing on disk")

	decoded, err := png.Decode(bytes.NewReader(artifact.RGBPNG))
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())

	require.NotNil(t, artifact.DepthTIFF)
	require.NotNil(t, artifact.DepthPNG)
}

func TestWriteFlushesToDisk(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	artifact, err := w.Write(testFrame(4, 4), "key-2")
	require.NoError(t, err)

	expected := filepath.Join(dir, "_output_camera_0")
	assert.Equal(t, expected, artifact.OutputDir)

	for _, name := range []string{"rgb.png", "depth.tiff", "depth_color.png"} {
		_, err := os.Stat(filepath.Join(expected, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}
}

func TestWriteRespectsOutputToggles(t *testing.T) {
	w := New("", WithDepth(false), WithColorizedDepth(false))

	artifact, err := w.Write(testFrame(4, 4), "key-3")
	require.NoError(t, err)

	assert.NotNil(t, artifact.RGBPNG)
	assert.Nil(t, artifact.DepthTIFF)
	assert.Nil(t, artifact.DepthPNG)
}

func TestWriteRejectsMismatchedDepthBuffer(t *testing.T) {
	// A host can emit rgb and depth at different resolutions; that is an
	// error, not a crash.
	frame := testFrame(4, 4)
	frame.Depth = make([]float32, 8*8)

	_, err := New("").Write(frame, "key-bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "64 samples")
}

func TestEncodeDepthTIFFRejectsWrongLength(t *testing.T) {
	_, err := EncodeDepthTIFF(make([]float32, 10), 4, 4, 0.1, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 16")
}

func TestWriteWithoutDepthBuffer(t *testing.T) {
	frame := testFrame(4, 4)
	frame.Depth = nil

	artifact, err := New("").Write(frame, "key-4")
	require.NoError(t, err)
	assert.NotNil(t, artifact.RGBPNG)
	assert.Nil(t, artifact.DepthTIFF)
}

func TestDepthTIFFRoundTrip(t *testing.T) {
	const near, far = 0.1, 1000.0
	depth := []float32{0.1, 1, 10, 250, 999, 1000}

	data, err := EncodeDepthTIFF(depth, 3, 2, near, far)
	require.NoError(t, err)

	decoded, err := DecodeDepthTIFF(data, near, far)
	require.NoError(t, err)
	require.Len(t, decoded, len(depth))

	// 16-bit quantization over the clip range loses ~0.015 units.
	for i := range depth {
		assert.InDelta(t, depth[i], decoded[i], 0.02, "sample %d", i)
	}
}

func TestDepthTIFFClampsOutOfRange(t *testing.T) {
	data, err := EncodeDepthTIFF([]float32{-5, 2000}, 2, 1, 0.1, 1000)
	require.NoError(t, err)

	decoded, err := DecodeDepthTIFF(data, 0.1, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, decoded[0], 0.02)
	assert.InDelta(t, 1000, decoded[1], 0.02)
}

func TestRampColorEndpoints(t *testing.T) {
	r, _, b := rampColor(0)
	assert.Equal(t, uint8(0), r, "near end is blue")
	assert.Equal(t, uint8(255), b)

	r, _, b = rampColor(1)
	assert.Equal(t, uint8(255), r, "far end is red")
	assert.Equal(t, uint8(0), b)
}

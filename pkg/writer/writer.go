// Package writer encodes rendered frames into their on-disk artifacts: an
// RGB PNG, the distance-to-image-plane AOV as a 16-bit TIFF, and optionally
// a colorized depth PNG for quick inspection.
package writer

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"github.com/mirislabs/renderd/pkg/domain"
)

// Writer turns frames into FrameArtifacts and persists them under
// <baseDir>/_output_<camera>/.
type Writer struct {
	baseDir    string
	rgb        bool
	depth      bool
	colorDepth bool
}

// Option configures the Writer.
type Option func(*Writer)

// WithRGB toggles the color output.
func WithRGB(enabled bool) Option {
	return func(w *Writer) { w.rgb = enabled }
}

// WithDepth toggles the distance-to-image-plane output.
func WithDepth(enabled bool) Option {
	return func(w *Writer) { w.depth = enabled }
}

// WithColorizedDepth toggles the colorized depth preview.
func WithColorizedDepth(enabled bool) Option {
	return func(w *Writer) { w.colorDepth = enabled }
}

// New creates a Writer. All outputs are enabled by default. An empty baseDir
// keeps artifacts in memory only.
func New(baseDir string, opts ...Option) *Writer {
	w := &Writer{
		baseDir:    baseDir,
		rgb:        true,
		depth:      true,
		colorDepth: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes the frame and, when a base directory is configured, writes
// the artifact files to disk.
func (w *Writer) Write(frame *domain.Frame, key string) (*domain.FrameArtifact, error) {
	bounds := frame.RGBA.Bounds()
	if frame.Depth != nil && len(frame.Depth) != bounds.Dx()*bounds.Dy() {
		return nil, fmt.Errorf("depth buffer has %d samples, want %d for %dx%d",
			len(frame.Depth), bounds.Dx()*bounds.Dy(), bounds.Dx(), bounds.Dy())
	}
	artifact := &domain.FrameArtifact{
		Key:        key,
		CameraName: frame.CameraName,
		StagePath:  frame.StagePath,
		Resolution: [2]int{bounds.Dx(), bounds.Dy()},
		Info:       frame.Info,
		RenderedAt: frame.RenderedAt,
		ElapsedMS:  frame.Elapsed.Milliseconds(),
	}

	if w.rgb {
		var buf bytes.Buffer
		if err := png.Encode(&buf, frame.RGBA); err != nil {
			return nil, fmt.Errorf("encode rgb png: %w", err)
		}
		artifact.RGBPNG = buf.Bytes()
	}

	if w.depth && frame.Depth != nil {
		data, err := EncodeDepthTIFF(frame.Depth, bounds.Dx(), bounds.Dy(), frame.Info.NearClip, frame.Info.FarClip)
		if err != nil {
			return nil, fmt.Errorf("encode depth tiff: %w", err)
		}
		artifact.DepthTIFF = data
	}

	if w.colorDepth && frame.Depth != nil {
		data, err := encodeColorizedDepth(frame.Depth, bounds.Dx(), bounds.Dy(), frame.Info.NearClip, frame.Info.FarClip)
		if err != nil {
			return nil, fmt.Errorf("encode colorized depth: %w", err)
		}
		artifact.DepthPNG = data
	}

	if w.baseDir != "" {
		dir := filepath.Join(w.baseDir, "_output_"+frame.CameraName)
		if err := w.flush(dir, artifact); err != nil {
			return nil, err
		}
		artifact.OutputDir = dir
	}

	return artifact, nil
}

func (w *Writer) flush(dir string, artifact *domain.FrameArtifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := map[string][]byte{
		"rgb.png":         artifact.RGBPNG,
		"depth.tiff":      artifact.DepthTIFF,
		"depth_color.png": artifact.DepthPNG,
	}
	for name, data := range files {
		if data == nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// normalize maps a depth sample into [0,1] over the clipping range.
func normalize(d float32, near, far float64) float64 {
	t := (float64(d) - near) / (far - near)
	return math.Min(1, math.Max(0, t))
}

// EncodeDepthTIFF packs a depth buffer into a deflate-compressed 16-bit
// grayscale TIFF, normalized over the clipping range.
func EncodeDepthTIFF(depth []float32, width, height int, near, far float64) ([]byte, error) {
	if len(depth) != width*height {
		return nil, fmt.Errorf("depth buffer has %d samples, want %d for %dx%d", len(depth), width*height, width, height)
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for i, d := range depth {
		v := uint16(normalize(d, near, far) * math.MaxUint16)
		img.Pix[i*2] = uint8(v >> 8)
		img.Pix[i*2+1] = uint8(v)
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeDepthTIFF is the inverse of EncodeDepthTIFF, recovering depth values
// over the given clipping range.
func DecodeDepthTIFF(data []byte, near, far float64) ([]float32, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, fmt.Errorf("unexpected depth image type %T", img)
	}
	bounds := gray.Bounds()
	depth := make([]float32, bounds.Dx()*bounds.Dy())
	for i := range depth {
		v := uint16(gray.Pix[i*2])<<8 | uint16(gray.Pix[i*2+1])
		t := float64(v) / math.MaxUint16
		depth[i] = float32(near + t*(far-near))
	}
	return depth, nil
}

func encodeColorizedDepth(depth []float32, width, height int, near, far float64) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, d := range depth {
		r, g, b := rampColor(normalize(d, near, far))
		img.Pix[i*4] = r
		img.Pix[i*4+1] = g
		img.Pix[i*4+2] = b
		img.Pix[i*4+3] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rampColor maps t in [0,1] onto a blue-to-red gradient (near is blue).
func rampColor(t float64) (uint8, uint8, uint8) {
	switch {
	case t < 0.25:
		return 0, uint8(4 * t * 255), 255
	case t < 0.5:
		return 0, 255, uint8((1 - 4*(t-0.25)) * 255)
	case t < 0.75:
		return uint8(4 * (t - 0.5) * 255), 255, 0
	default:
		return 255, uint8((1 - 4*(t-0.75)) * 255), 0
	}
}

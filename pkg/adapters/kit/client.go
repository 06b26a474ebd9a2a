// Package kit implements the renderer port against a running Omniverse Kit
// host process. The host loads the render-service extension and exposes its
// control endpoints on a local port; this client forwards open_stage and
// render calls and decodes the frame files the host writer produces.
package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mirislabs/renderd/internal/logging"
	"github.com/mirislabs/renderd/pkg/domain"
	"github.com/mirislabs/renderd/pkg/writer"
)

// DefaultBaseURL is where a locally launched host exposes its control API.
const DefaultBaseURL = "http://127.0.0.1:8111"

// Client talks to the host runtime over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger

	// outputDir is where the host writes frames when its response does not
	// name a directory itself.
	outputDir string

	mu   sync.Mutex
	meta domain.StageMeta
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(k *Client) { k.httpc = c }
}

// WithTimeout sets the per-request timeout. Renders can take a while on a
// cold stage, so the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(k *Client) { k.httpc.Timeout = d }
}

// WithOutputDir sets the directory the host writes frames into.
func WithOutputDir(dir string) Option {
	return func(k *Client) { k.outputDir = dir }
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Client) { k.logger = logger }
}

// New creates a Client for the host at baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	k := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 120 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// openStageResponse is what the host extension reports after an open.
type openStageResponse struct {
	UpAxis   string  `json:"up_axis"`
	NearClip float64 `json:"near_clip"`
	FarClip  float64 `json:"far_clip"`
}

// renderResponse names the directory the host writer flushed the frame to.
type renderResponse struct {
	OutputDir string `json:"output_dir"`
}

// OpenStage forwards the open to the host and keeps its stage metadata for
// later depth decoding. Hosts that only answer with a confirmation message
// fall back to USD defaults.
func (k *Client) OpenStage(ctx context.Context, path string) (domain.StageMeta, error) {
	body, err := k.post(ctx, "/open_stage", map[string]string{"usd_file_location": path})
	if err != nil {
		return domain.StageMeta{}, err
	}

	var resp openStageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		k.logger.Debug("host open_stage response is not structured, using defaults", "error", err)
	}
	meta := domain.StageMeta{UpAxis: resp.UpAxis, NearClip: resp.NearClip, FarClip: resp.FarClip}
	meta.Normalize()

	k.mu.Lock()
	k.meta = meta
	k.mu.Unlock()
	return meta, nil
}

// Render forwards the request, then loads the rgb and depth files the host
// writer produced.
func (k *Client) Render(ctx context.Context, stage domain.StageRef, req domain.RenderRequest) (*domain.Frame, error) {
	start := time.Now()

	body, err := k.post(ctx, "/render", req)
	if err != nil {
		return nil, err
	}

	var resp renderResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.OutputDir == "" {
		// Original hosts answer with a plain message and write relative to
		// their working directory.
		resp.OutputDir = filepath.Join(k.outputDir, "_output_"+req.CameraName)
	}

	frame, err := k.loadFrame(resp.OutputDir, req)
	if err != nil {
		return nil, err
	}
	frame.StagePath = stage.Path
	frame.RenderedAt = start.UTC()
	frame.Elapsed = time.Since(start)
	return frame, nil
}

func (k *Client) loadFrame(dir string, req domain.RenderRequest) (*domain.Frame, error) {
	rgbPath := filepath.Join(dir, "rgb.png")
	data, err := os.ReadFile(rgbPath)
	if err != nil {
		return nil, fmt.Errorf("read host frame %s: %w", rgbPath, err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode host frame: %w", err)
	}
	rgba, ok := decoded.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(decoded.Bounds())
		draw.Draw(rgba, rgba.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	}

	frame := &domain.Frame{
		CameraName: req.CameraName,
		RGBA:       rgba,
	}

	k.mu.Lock()
	meta := k.meta
	k.mu.Unlock()
	meta.Normalize()

	// Depth is optional; older host writers only emit rgb.
	if depthData, err := os.ReadFile(filepath.Join(dir, "depth.tiff")); err == nil {
		depth, err := writer.DecodeDepthTIFF(depthData, meta.NearClip, meta.FarClip)
		if err != nil {
			return nil, fmt.Errorf("decode host depth: %w", err)
		}
		if want := rgba.Bounds().Dx() * rgba.Bounds().Dy(); len(depth) != want {
			return nil, fmt.Errorf("host depth has %d samples, want %d to match rgb", len(depth), want)
		}
		frame.Depth = depth
	}

	return frame, nil
}

// Ping reports whether the host control endpoint is reachable. Any HTTP
// response counts; only transport failures are errors.
func (k *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := k.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRendererUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (k *Client) Close() error {
	k.httpc.CloseIdleConnections()
	return nil
}

func (k *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRendererUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read host response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: host returned %d: %s", domain.ErrRendererUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("host rejected %s: %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

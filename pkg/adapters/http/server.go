// Package http exposes the render gateway over a JSON API: the two host
// operations (open_stage, render), frame retrieval, and the usual service
// plumbing (health, info, metrics, OpenAPI explorer).
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	"github.com/mirislabs/renderd/pkg/domain"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Gateway defines the interface for the render service core.
type Gateway interface {
	OpenStage(ctx context.Context, path string) (domain.StageRef, error)
	Stage() (domain.StageRef, error)
	Render(ctx context.Context, req domain.RenderRequest) (*domain.FrameArtifact, bool, error)
	Frame(ctx context.Context, cameraName string) (*domain.FrameArtifact, error)
	Version() string
}

// Server registers the routes against a Gateway.
type Server struct {
	gateway Gateway
	logger  *slog.Logger
	metrics http.Handler
}

// HandlerOption configures NewHandler.
type HandlerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) HandlerOption {
	return func(s *Server) { s.metrics = h }
}

// NewHandler creates the HTTP handler for the gateway.
func NewHandler(gateway Gateway, opts ...HandlerOption) http.Handler {
	server := &Server{
		gateway: gateway,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()

	r.Post("/open_stage", server.OpenStage)
	r.Post("/render", server.Render)
	r.Get("/stage", server.GetStage)
	r.Get("/frames/{camera}/rgb", server.frameHandler(func(a *domain.FrameArtifact) ([]byte, string) {
		return a.RGBPNG, "image/png"
	}))
	r.Get("/frames/{camera}/depth", server.frameHandler(func(a *domain.FrameArtifact) ([]byte, string) {
		return a.DepthTIFF, "image/tiff"
	}))
	r.Get("/frames/{camera}/depth_color", server.frameHandler(func(a *domain.FrameArtifact) ([]byte, string) {
		return a.DepthPNG, "image/png"
	}))
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	// API explorer
	r.Get("/openapi.yaml", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Get("/docs", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	if server.metrics != nil {
		r.Handle("/metrics", server.metrics)
	}

	return enableCORS(r)
}

var (
	swaggerOnce sync.Once
	swaggerDoc  *openapi3.T
	swaggerErr  error
)

// Swagger parses and validates the embedded OpenAPI document.
func Swagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openapiSpec)
		if err != nil {
			swaggerErr = fmt.Errorf("load openapi spec: %w", err)
			return
		}
		if err := doc.Validate(loader.Context); err != nil {
			swaggerErr = fmt.Errorf("invalid openapi spec: %w", err)
			return
		}
		swaggerDoc = doc
	})
	return swaggerDoc, swaggerErr
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>renderd API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// OpenStageRequest is the wire form of an open_stage call.
type OpenStageRequest struct {
	UsdFileLocation string `json:"usd_file_location"`
}

// OpenStageResponse confirms the stage that was opened.
type OpenStageResponse struct {
	Status string          `json:"status"`
	Stage  domain.StageRef `json:"stage"`
}

// RenderResponse is the JSON metadata answer to a render call.
type RenderResponse struct {
	CameraName string            `json:"camera_name"`
	CacheHit   bool              `json:"cache_hit"`
	OutputDir  string            `json:"output_dir,omitempty"`
	Resolution [2]int            `json:"resolution"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	CameraInfo domain.CameraInfo `json:"camera_info"`
	Frames     map[string]string `json:"frames"`
}

// OpenStage handles the POST /open_stage request.
func (s *Server) OpenStage(w http.ResponseWriter, r *http.Request) {
	var body OpenStageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("open_stage: invalid request body", "error", err)
		return
	}
	if strings.TrimSpace(body.UsdFileLocation) == "" {
		http.Error(w, "usd_file_location is required", http.StatusBadRequest)
		return
	}

	ref, err := s.gateway.OpenStage(r.Context(), body.UsdFileLocation)
	if err != nil {
		status := statusFor(err, http.StatusBadGateway)
		http.Error(w, fmt.Sprintf("Open stage error: %v", err), status)
		s.logger.Error("open_stage failed", "error", err, "path", body.UsdFileLocation)
		return
	}

	s.writeJSON(w, OpenStageResponse{Status: "ok", Stage: ref})
}

// Render handles the POST /render request. An empty body renders with the
// default camera.
func (s *Server) Render(w http.ResponseWriter, r *http.Request) {
	var req domain.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("render: invalid request body", "error", err)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid render request: %v", err), http.StatusBadRequest)
		return
	}

	artifact, cacheHit, err := s.gateway.Render(r.Context(), req)
	if err != nil {
		status := statusFor(err, http.StatusBadGateway)
		http.Error(w, fmt.Sprintf("Render error: %v", err), status)
		s.logger.Error("render failed", "error", err, "camera", req.CameraName)
		return
	}

	// Image negotiation: callers that only want pixels skip the metadata.
	if strings.Contains(r.Header.Get("Accept"), "image/png") {
		w.Header().Set("Content-Type", "image/png")
		w.Write(artifact.RGBPNG)
		return
	}

	s.writeJSON(w, RenderResponse{
		CameraName: artifact.CameraName,
		CacheHit:   cacheHit,
		OutputDir:  artifact.OutputDir,
		Resolution: artifact.Resolution,
		ElapsedMS:  artifact.ElapsedMS,
		CameraInfo: artifact.Info,
		Frames: map[string]string{
			"rgb":         "/frames/" + artifact.CameraName + "/rgb",
			"depth":       "/frames/" + artifact.CameraName + "/depth",
			"depth_color": "/frames/" + artifact.CameraName + "/depth_color",
		},
	})
}

// GetStage handles the GET /stage request.
func (s *Server) GetStage(w http.ResponseWriter, r *http.Request) {
	ref, err := s.gateway.Stage()
	if err != nil {
		// Unlike /render, asking for a stage that is not there is a 404.
		status := statusFor(err, http.StatusInternalServerError)
		if errors.Is(err, domain.ErrNoStageOpen) {
			status = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("Stage error: %v", err), status)
		return
	}
	s.writeJSON(w, ref)
}

func (s *Server) frameHandler(pick func(*domain.FrameArtifact) ([]byte, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameraName := chi.URLParam(r, "camera")
		artifact, err := s.gateway.Frame(r.Context(), cameraName)
		if err != nil {
			http.Error(w, fmt.Sprintf("Frame error: %v", err), statusFor(err, http.StatusInternalServerError))
			return
		}
		data, contentType := pick(artifact)
		if data == nil {
			http.Error(w, "Frame output not available", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := Swagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	s.writeJSON(w, map[string]string{
		"app":         "renderd",
		"version":     strings.TrimSpace(s.gateway.Version()),
		"api_version": apiVersion,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// statusFor maps domain sentinels to HTTP statuses. Unrecognized errors get
// the fallback: 502 for operations that crossed into the renderer, 500
// otherwise.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, domain.ErrNoStageOpen):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedStageFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFrameNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRendererUnavailable):
		return http.StatusServiceUnavailable
	default:
		return fallback
	}
}

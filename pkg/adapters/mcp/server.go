// Package mcp exposes the render gateway to agent clients over the Model
// Context Protocol: open_stage and render as tools, the active stage as a
// resource.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mirislabs/renderd/pkg/domain"
)

// Gateway defines the interface required by the MCP server.
type Gateway interface {
	OpenStage(ctx context.Context, path string) (domain.StageRef, error)
	Stage() (domain.StageRef, error)
	Render(ctx context.Context, req domain.RenderRequest) (*domain.FrameArtifact, bool, error)
	Version() string
}

// OpenStageResult is the structured output of the open_stage tool.
type OpenStageResult struct {
	Stage domain.StageRef `json:"stage" jsonschema_description:"The stage that is now active"`
}

// RenderResult is the structured output of the render tool.
type RenderResult struct {
	CameraName string            `json:"camera_name"`
	CacheHit   bool              `json:"cache_hit"`
	OutputDir  string            `json:"output_dir,omitempty" jsonschema_description:"Directory holding rgb.png, depth.tiff and depth_color.png"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	CameraInfo domain.CameraInfo `json:"camera_info"`
}

// Server wraps the gateway and exposes it as an MCP Server.
type Server struct {
	gateway   Gateway
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(gateway Gateway) *Server {
	s := &Server{
		gateway:   gateway,
		mcpServer: server.NewMCPServer("renderd-mcp", strings.TrimSpace(gateway.Version())),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	openStageTool := mcp.NewTool("open_stage",
		mcp.WithDescription("Open a USD file as the active stage in the renderer."),
		mcp.WithString("usd_file_location", mcp.Required(), mcp.Description("Location of the USD file to open")),
		mcp.WithOutputSchema[OpenStageResult](),
	)
	s.mcpServer.AddTool(openStageTool, mcp.NewStructuredToolHandler(s.handleOpenStage))

	renderTool := mcp.NewTool("render",
		mcp.WithDescription("Render the currently opened stage from a camera position. Omitted parameters use the host defaults."),
		mcp.WithString("camera_name", mcp.Description("Name of the camera (default camera_0)")),
		mcp.WithString("camera_position", mcp.Description("JSON array [x, y, z]")),
		mcp.WithString("camera_rotation", mcp.Description("JSON array [x, y, z] of Euler angles in degrees")),
		mcp.WithNumber("camera_focal_length", mcp.Description("Focal length (default 15)")),
		mcp.WithNumber("camera_horizontal_aperture", mcp.Description("Horizontal aperture (default 20)")),
		mcp.WithString("image_resolution", mcp.Description("JSON array [width, height] (default [1024, 1024])")),
		mcp.WithOutputSchema[RenderResult](),
	)
	s.mcpServer.AddTool(renderTool, mcp.NewStructuredToolHandler(s.handleRender))
}

func (s *Server) handleOpenStage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (OpenStageResult, error) {
	path, _ := args["usd_file_location"].(string)
	ref, err := s.gateway.OpenStage(ctx, path)
	if err != nil {
		return OpenStageResult{}, fmt.Errorf("open stage failed: %w", err)
	}
	return OpenStageResult{Stage: ref}, nil
}

func (s *Server) handleRender(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RenderResult, error) {
	var req domain.RenderRequest

	req.CameraName, _ = args["camera_name"].(string)
	if v, ok := args["camera_focal_length"].(float64); ok {
		req.CameraFocalLength = v
	}
	if v, ok := args["camera_horizontal_aperture"].(float64); ok {
		req.CameraHorizontalAperture = v
	}
	if str, ok := args["camera_position"].(string); ok && str != "" {
		if err := json.Unmarshal([]byte(str), &req.CameraPosition); err != nil {
			return RenderResult{}, fmt.Errorf("invalid camera_position: %w", err)
		}
	}
	if str, ok := args["camera_rotation"].(string); ok && str != "" {
		if err := json.Unmarshal([]byte(str), &req.CameraRotation); err != nil {
			return RenderResult{}, fmt.Errorf("invalid camera_rotation: %w", err)
		}
	}
	if str, ok := args["image_resolution"].(string); ok && str != "" {
		if err := json.Unmarshal([]byte(str), &req.ImageResolution); err != nil {
			return RenderResult{}, fmt.Errorf("invalid image_resolution: %w", err)
		}
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return RenderResult{}, fmt.Errorf("invalid render request: %w", err)
	}

	artifact, cacheHit, err := s.gateway.Render(ctx, req)
	if err != nil {
		return RenderResult{}, fmt.Errorf("render failed: %w", err)
	}

	return RenderResult{
		CameraName: artifact.CameraName,
		CacheHit:   cacheHit,
		OutputDir:  artifact.OutputDir,
		ElapsedMS:  artifact.ElapsedMS,
		CameraInfo: artifact.Info,
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("renderd://stage", "Active Stage",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ref, err := s.gateway.Stage()
		if err != nil {
			return nil, fmt.Errorf("failed to read stage: %w", err)
		}
		jsonBytes, _ := json.Marshal(ref)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "renderd://stage",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

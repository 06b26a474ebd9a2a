package domain

import (
	"image"
	"time"
)

// CameraInfo captures the intrinsics and extrinsics of the camera a frame was
// rendered from. Matrices are flat 16-element arrays in row-major order,
// following the row-vector convention (point * matrix).
type CameraInfo struct {
	// Intrinsics
	FocalLength        float64 `json:"focal_length"`
	HorizontalAperture float64 `json:"horizontal_aperture"`
	VerticalAperture   float64 `json:"vertical_aperture"`
	NearClip           float64 `json:"near_clip"`
	FarClip            float64 `json:"far_clip"`

	// Extrinsics
	WorldToCamera    [16]float64 `json:"world_to_camera"`
	WorldToNDC       [16]float64 `json:"world_to_ndc"`
	ProjectionMatrix [16]float64 `json:"projection_matrix"`
}

// Frame is the decoded output of a single render: the RGB image plus the
// distance-to-image-plane AOV, one float per pixel in row-major order.
type Frame struct {
	CameraName string
	StagePath  string
	RGBA       *image.RGBA
	Depth      []float32
	Info       CameraInfo
	RenderedAt time.Time
	Elapsed    time.Duration
}

// FrameArtifact is the encoded, persistable form of a Frame as produced by
// the writer: PNG for color, 16-bit TIFF for depth, PNG for colorized depth.
type FrameArtifact struct {
	Key        string     `json:"key"`
	CameraName string     `json:"camera_name"`
	StagePath  string     `json:"stage_path"`
	Resolution [2]int     `json:"resolution"`
	RGBPNG     []byte     `json:"rgb_png,omitempty"`
	DepthTIFF  []byte     `json:"depth_tiff,omitempty"`
	DepthPNG   []byte     `json:"depth_png,omitempty"`
	Info       CameraInfo `json:"camera_info"`
	OutputDir  string     `json:"output_dir,omitempty"`
	RenderedAt time.Time  `json:"rendered_at"`
	ElapsedMS  int64      `json:"elapsed_ms"`
}

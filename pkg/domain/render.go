package domain

import "fmt"

// RenderRequest carries the camera pose and output parameters for a single
// render. Field names mirror the wire format of the host extension.
type RenderRequest struct {
	CameraName               string     `json:"camera_name,omitempty"`
	CameraPosition           [3]float64 `json:"camera_position"`
	CameraRotation           [3]float64 `json:"camera_rotation"`
	CameraFocalLength        float64    `json:"camera_focal_length,omitempty"`
	CameraHorizontalAperture float64    `json:"camera_horizontal_aperture,omitempty"`
	ImageResolution          [2]int     `json:"image_resolution,omitempty"`
}

// Normalize applies the documented defaults to unset fields.
func (r *RenderRequest) Normalize() {
	if r.CameraName == "" {
		r.CameraName = DefaultCameraName
	}
	if r.CameraFocalLength == 0 {
		r.CameraFocalLength = DefaultFocalLength
	}
	if r.CameraHorizontalAperture == 0 {
		r.CameraHorizontalAperture = DefaultHorizontalAperture
	}
	if r.ImageResolution[0] == 0 && r.ImageResolution[1] == 0 {
		r.ImageResolution = [2]int{DefaultResolution, DefaultResolution}
	}
}

// Validate checks the request after normalization. It returns the first
// problem found; the HTTP layer maps any error to a 400.
func (r *RenderRequest) Validate() error {
	if r.CameraFocalLength <= 0 {
		return fmt.Errorf("camera_focal_length must be positive, got %v", r.CameraFocalLength)
	}
	if r.CameraHorizontalAperture <= 0 {
		return fmt.Errorf("camera_horizontal_aperture must be positive, got %v", r.CameraHorizontalAperture)
	}
	w, h := r.ImageResolution[0], r.ImageResolution[1]
	if w <= 0 || h <= 0 {
		return fmt.Errorf("image_resolution must be positive, got %dx%d", w, h)
	}
	if w > MaxResolution || h > MaxResolution {
		return fmt.Errorf("image_resolution exceeds %d, got %dx%d", MaxResolution, w, h)
	}
	return nil
}

// AspectRatio returns width over height.
func (r *RenderRequest) AspectRatio() float64 {
	return float64(r.ImageResolution[0]) / float64(r.ImageResolution[1])
}

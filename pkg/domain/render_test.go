package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	var req RenderRequest
	req.Normalize()

	assert.Equal(t, DefaultCameraName, req.CameraName)
	assert.Equal(t, float64(DefaultFocalLength), req.CameraFocalLength)
	assert.Equal(t, float64(DefaultHorizontalAperture), req.CameraHorizontalAperture)
	assert.Equal(t, [2]int{DefaultResolution, DefaultResolution}, req.ImageResolution)
	assert.Equal(t, [3]float64{0, 0, 0}, req.CameraPosition, "pose defaults to the origin")
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	req := RenderRequest{
		CameraName:        "camera_3",
		CameraFocalLength: 35,
		ImageResolution:   [2]int{1920, 1080},
	}
	req.Normalize()

	assert.Equal(t, "camera_3", req.CameraName)
	assert.Equal(t, 35.0, req.CameraFocalLength)
	assert.Equal(t, [2]int{1920, 1080}, req.ImageResolution)
}

func TestValidate(t *testing.T) {
	valid := func() RenderRequest {
		var r RenderRequest
		r.Normalize()
		return r
	}

	tests := []struct {
		name    string
		mutate  func(*RenderRequest)
		wantErr string
	}{
		{"defaults are valid", func(r *RenderRequest) {}, ""},
		{"zero focal length", func(r *RenderRequest) { r.CameraFocalLength = 0 }, "camera_focal_length"},
		{"negative aperture", func(r *RenderRequest) { r.CameraHorizontalAperture = -2 }, "camera_horizontal_aperture"},
		{"zero width", func(r *RenderRequest) { r.ImageResolution[0] = 0 }, "image_resolution"},
		{"negative height", func(r *RenderRequest) { r.ImageResolution[1] = -4 }, "image_resolution"},
		{"oversized", func(r *RenderRequest) { r.ImageResolution = [2]int{MaxResolution + 1, 64} }, "image_resolution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestAspectRatio(t *testing.T) {
	req := RenderRequest{ImageResolution: [2]int{1920, 1080}}
	assert.InDelta(t, 16.0/9.0, req.AspectRatio(), 1e-9)
}

func TestStageMetaNormalize(t *testing.T) {
	var meta StageMeta
	meta.Normalize()
	assert.Equal(t, UpAxisY, meta.UpAxis)
	assert.Equal(t, float64(DefaultNearClip), meta.NearClip)
	assert.Equal(t, float64(DefaultFarClip), meta.FarClip)

	zUp := StageMeta{UpAxis: "z", NearClip: 0.5, FarClip: 2000}
	zUp.Normalize()
	assert.Equal(t, UpAxisZ, zUp.UpAxis)
	assert.Equal(t, 0.5, zUp.NearClip)
}

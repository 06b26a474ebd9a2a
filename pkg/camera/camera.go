// Package camera reproduces the host runtime's USD camera math in Go:
// aperture conformance, perspective projection from physical intrinsics, and
// the world-to-camera / world-to-NDC extrinsics reported alongside frames.
package camera

import (
	"math"

	"github.com/mirislabs/renderd/pkg/domain"
)

// ConformVerticalAperture derives the vertical aperture from the horizontal
// one so the film back matches the output aspect ratio.
func ConformVerticalAperture(horizontalAperture float64, resolution [2]int) float64 {
	aspect := float64(resolution[0]) / float64(resolution[1])
	return horizontalAperture / aspect
}

// Projection builds the perspective projection matrix for a physical camera.
// Apertures and focal length share a unit (tenths of a scene unit in USD);
// only their ratio matters. The matrix maps camera space to NDC with the
// camera looking down -Z, matching GfFrustum.ComputeProjectionMatrix.
func Projection(focalLength, horizAperture, vertAperture, near, far float64) Mat4 {
	right := near * horizAperture / (2 * focalLength)
	top := near * vertAperture / (2 * focalLength)
	return Mat4{
		near / right, 0, 0, 0,
		0, near / top, 0, 0,
		0, 0, -(far + near) / (far - near), -1,
		0, 0, -2 * far * near / (far - near), 0,
	}
}

// CameraToWorld builds the camera's local-to-world transform from a position
// and an XYZ Euler rotation in degrees. For Z-up stages the transform is
// post-multiplied by a -90 degree rotation about X, converting to Y-up.
func CameraToWorld(position, rotationDeg Vec3, upAxis string) Mat4 {
	m := EulerXYZ(rotationDeg).Mul(Translation(position))
	if upAxis == domain.UpAxisZ {
		m = m.Mul(RotationX(-90))
	}
	return m
}

// FieldOfViewX returns the horizontal field of view in degrees.
func FieldOfViewX(focalLength, horizAperture float64) float64 {
	return 2 * math.Atan(horizAperture/(2*focalLength)) * 180 / math.Pi
}

// InfoForRequest computes the full CameraInfo for a render request against
// the given stage metadata.
func InfoForRequest(req domain.RenderRequest, meta domain.StageMeta) domain.CameraInfo {
	meta.Normalize()

	vert := ConformVerticalAperture(req.CameraHorizontalAperture, req.ImageResolution)
	proj := Projection(req.CameraFocalLength, req.CameraHorizontalAperture, vert, meta.NearClip, meta.FarClip)

	camToWorld := CameraToWorld(Vec3(req.CameraPosition), Vec3(req.CameraRotation), meta.UpAxis)
	worldToCam := camToWorld.AffineInverse()
	worldToNDC := worldToCam.Mul(proj)

	return domain.CameraInfo{
		FocalLength:        req.CameraFocalLength,
		HorizontalAperture: req.CameraHorizontalAperture,
		VerticalAperture:   vert,
		NearClip:           meta.NearClip,
		FarClip:            meta.FarClip,
		WorldToCamera:      [16]float64(worldToCam),
		WorldToNDC:         [16]float64(worldToNDC),
		ProjectionMatrix:   [16]float64(proj),
	}
}

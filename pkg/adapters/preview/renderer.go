// Package preview implements a diagnostic renderer backend that synthesizes
// frames analytically from the camera parameters alone. It exists so the HTTP
// surface, frame cache, writer, and camera math can run and be tested without
// the host runtime; it deliberately does not read stage contents.
package preview

import (
	"context"
	"hash/fnv"
	"image"
	"math"
	"sync"
	"time"

	"github.com/mirislabs/renderd/pkg/camera"
	"github.com/mirislabs/renderd/pkg/domain"
)

const (
	nearClip = 0.1
	farClip  = 1000.0

	// groundCell is the checker cell size in scene units.
	groundCell = 10.0
)

// Renderer produces a sky gradient above a checkered ground plane. Output is
// deterministic for a given stage path and request.
type Renderer struct {
	mu    sync.Mutex
	stage string
}

// New creates a preview Renderer.
func New() *Renderer {
	return &Renderer{}
}

// OpenStage records the identifier and reports preview metadata. The file is
// never read.
func (r *Renderer) OpenStage(ctx context.Context, path string) (domain.StageMeta, error) {
	r.mu.Lock()
	r.stage = path
	r.mu.Unlock()
	return domain.StageMeta{UpAxis: domain.UpAxisY, NearClip: nearClip, FarClip: farClip}, nil
}

// Render synthesizes a frame by casting one ray per pixel against the ground
// plane. Depth is the distance to the image plane, far clip for sky pixels.
func (r *Renderer) Render(ctx context.Context, stage domain.StageRef, req domain.RenderRequest) (*domain.Frame, error) {
	start := time.Now()

	w, h := req.ImageResolution[0], req.ImageResolution[1]
	vert := camera.ConformVerticalAperture(req.CameraHorizontalAperture, req.ImageResolution)
	tanX := req.CameraHorizontalAperture / (2 * req.CameraFocalLength)
	tanY := vert / (2 * req.CameraFocalLength)

	camToWorld := camera.CameraToWorld(camera.Vec3(req.CameraPosition), camera.Vec3(req.CameraRotation), stage.UpAxis)
	origin := camToWorld.TransformPoint(camera.Vec3{})
	forward := camToWorld.TransformDir(camera.Vec3{0, 0, -1}).Normalize()

	// Tint the checker from the stage path so distinct stages are
	// distinguishable in output.
	tint := stageTint(stage.Path)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	depth := make([]float32, w*h)

	for py := 0; py < h; py++ {
		// NDC y runs top-down.
		ny := 1 - 2*(float64(py)+0.5)/float64(h)
		for px := 0; px < w; px++ {
			nx := 2*(float64(px)+0.5)/float64(w) - 1

			dir := camToWorld.TransformDir(camera.Vec3{nx * tanX, ny * tanY, -1}).Normalize()

			var cr, cg, cb uint8
			d := farClip
			if dir[1] < -1e-9 && origin[1] > 0 {
				t := -origin[1] / dir[1]
				hit := origin.Add(dir.Scale(t))
				cr, cg, cb = groundColor(hit, tint)
				d = math.Min(t*dir.Dot(forward), farClip)
			} else {
				cr, cg, cb = skyColor(dir[1])
			}

			i := py*w + px
			img.Pix[i*4] = cr
			img.Pix[i*4+1] = cg
			img.Pix[i*4+2] = cb
			img.Pix[i*4+3] = 255
			depth[i] = float32(d)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	return &domain.Frame{
		CameraName: req.CameraName,
		StagePath:  stage.Path,
		RGBA:       img,
		Depth:      depth,
		RenderedAt: start.UTC(),
		Elapsed:    time.Since(start),
	}, nil
}

// Close is a no-op; the preview backend holds no resources.
func (r *Renderer) Close() error { return nil }

func stageTint(path string) uint8 {
	h := fnv.New32a()
	h.Write([]byte(path))
	return uint8(h.Sum32() % 64)
}

func groundColor(hit camera.Vec3, tint uint8) (uint8, uint8, uint8) {
	cx := int(math.Floor(hit[0] / groundCell))
	cz := int(math.Floor(hit[2] / groundCell))
	if (cx+cz)&1 == 0 {
		return 180, 180 - tint, 180
	}
	return 90, 90, 90 + tint
}

func skyColor(y float64) (uint8, uint8, uint8) {
	// Horizon white blending to blue at the zenith.
	t := math.Min(1, math.Max(0, y))
	return uint8(255 - t*130), uint8(255 - t*80), 255
}

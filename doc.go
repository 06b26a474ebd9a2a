/*
Package renderd is an HTTP render gateway for a USD stage renderer.

It exposes the host runtime's two operations, open_stage and render, over a
small JSON API and takes care of everything around them: request defaults and
validation, the active-stage invariant, camera intrinsics/extrinsics, frame
encoding (RGB PNG, depth TIFF), a content-addressed frame cache, and
observability hooks.

The renderer itself is a port. In production the kit backend forwards calls
to a running Omniverse Kit process; the preview backend synthesizes frames
locally so the full surface works in development and tests.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/mirislabs/renderd"
		"github.com/mirislabs/renderd/pkg/adapters/preview"
		"github.com/mirislabs/renderd/pkg/domain"
	)

	func main() {
		svc := renderd.New(preview.New())
		defer svc.Close()

		ctx := context.Background()
		if _, err := svc.OpenStage(ctx, "/tmp/scene.usd"); err != nil {
			log.Fatal(err)
		}

		artifact, _, err := svc.Render(ctx, domain.RenderRequest{
			CameraName:     "camera_0",
			CameraPosition: [3]float64{0, 5, 20},
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("rendered %s in %dms", artifact.CameraName, artifact.ElapsedMS)
	}
*/
package renderd

package domain

// Defaults applied to a RenderRequest before validation. They match the host
// runtime's camera defaults so an empty request body renders something sane.
const (
	DefaultCameraName         = "camera_0"
	DefaultFocalLength        = 15.0
	DefaultHorizontalAperture = 20.0
	DefaultResolution         = 1024

	// MaxResolution bounds a single image dimension. Anything above this is
	// almost certainly a client error and would stall the host renderer.
	MaxResolution = 16384

	// DefaultNearClip and DefaultFarClip are the USD camera clipping range
	// defaults, used when the backend does not report its own.
	DefaultNearClip = 1.0
	DefaultFarClip  = 1000000.0
)

// Stage up axis values as reported by the host runtime.
const (
	UpAxisY = "Y"
	UpAxisZ = "Z"
)

// StageExtensions lists the USD file extensions accepted by /open_stage.
var StageExtensions = []string{".usd", ".usda", ".usdc", ".usdz"}

package domain

import "errors"

// ErrNoStageOpen is returned when a render is requested before any stage was opened.
var ErrNoStageOpen = errors.New("no stage open")

// ErrStageNotFound is returned when the stage identifier does not resolve to a file.
var ErrStageNotFound = errors.New("stage not found")

// ErrUnsupportedStageFormat is returned for identifiers without a USD extension.
var ErrUnsupportedStageFormat = errors.New("unsupported stage format")

// ErrFrameNotFound is returned when a frame key cannot be found in the store.
var ErrFrameNotFound = errors.New("frame not found")

// ErrRendererUnavailable is returned when the host renderer cannot be reached.
var ErrRendererUnavailable = errors.New("renderer unavailable")

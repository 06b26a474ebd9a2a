package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageOpen   EventType = "stage_open"
	EventRenderStart EventType = "render_start"
	EventRenderDone  EventType = "render_done"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// StageEvent is fired after an open_stage attempt.
type StageEvent struct {
	EventBase
	Path    string `json:"path"`
	UpAxis  string `json:"up_axis,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// RenderEvent is fired around a render.
type RenderEvent struct {
	EventBase
	CameraName string        `json:"camera_name"`
	StagePath  string        `json:"stage_path"`
	Resolution [2]int        `json:"resolution"`
	CacheHit   bool          `json:"cache_hit,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	IsError    bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for service observability. The serve
// command wires metrics and structured logging through these.
type LifecycleHooks struct {
	OnStageOpen   func(context.Context, *StageEvent)
	OnRenderStart func(context.Context, *RenderEvent)
	OnRenderDone  func(context.Context, *RenderEvent)
}

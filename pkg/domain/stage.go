package domain

import (
	"strings"
	"time"
)

// StageRef identifies the stage currently owned by the renderer backend.
type StageRef struct {
	// Path is the USD file location or omniverse:// identifier as given to /open_stage.
	Path string `json:"path"`

	// UpAxis is the stage up axis ("Y" or "Z"). Camera extrinsics depend on it.
	UpAxis string `json:"up_axis"`

	// OpenedAt records when the backend acknowledged the open.
	OpenedAt time.Time `json:"opened_at"`
}

// StageMeta is what a renderer backend reports after opening a stage.
type StageMeta struct {
	UpAxis   string  `json:"up_axis"`
	NearClip float64 `json:"near_clip"`
	FarClip  float64 `json:"far_clip"`
}

// Normalize fills zero values with USD defaults. Hosts are inconsistent
// about axis casing, so "z" and "Z" both mean Z-up.
func (m *StageMeta) Normalize() {
	m.UpAxis = strings.ToUpper(strings.TrimSpace(m.UpAxis))
	if m.UpAxis != UpAxisZ {
		m.UpAxis = UpAxisY
	}
	if m.NearClip <= 0 {
		m.NearClip = DefaultNearClip
	}
	if m.FarClip <= m.NearClip {
		m.FarClip = DefaultFarClip
	}
}

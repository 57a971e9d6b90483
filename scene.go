package compositor

import (
	"sort"
)

// Placement maps a decoded frame onto the output canvas: top-left position
// in output pixels, a uniform scale factor, and a depth value. Lower Z is
// in front; the depth test uses a less-than comparison, so on equal Z the
// stream with the lower id wins (streams draw in ascending id order).
type Placement struct {
	X, Y  int32
	Z     float32
	Scale float64
}

func (p Placement) validate() error {
	if p.Z < 0 || p.Z > 1 || p.Scale <= 0 {
		return ErrBadPlacement
	}
	return nil
}

// VideoConfig is the declarative per-video configuration: where the video
// goes and which transformation chain runs on each of its frames before
// compositing. The chain is applied in order.
type VideoConfig struct {
	Placement       Placement
	Transformations []Transformation
}

// Scene maps video ids to their configuration. It is pure data with no
// GPU resources and no ordering semantics; State owns the authoritative
// copy and keeps it key-synchronized with the live stream set.
type Scene struct {
	configs map[VideoID]VideoConfig
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{configs: make(map[VideoID]VideoConfig)}
}

// Set inserts or replaces the configuration for id.
func (s *Scene) Set(id VideoID, cfg VideoConfig) {
	s.configs[id] = cfg
}

// Remove deletes the configuration for id, if present.
func (s *Scene) Remove(id VideoID) {
	delete(s.configs, id)
}

// Get returns the configuration for id.
func (s *Scene) Get(id VideoID) (VideoConfig, bool) {
	cfg, ok := s.configs[id]
	return cfg, ok
}

// Len returns the number of configured videos.
func (s *Scene) Len() int { return len(s.configs) }

// IDs returns the configured video ids in ascending order.
func (s *Scene) IDs() []VideoID {
	ids := make([]VideoID, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// matchesIDs reports whether the scene's key set equals the given live set.
func (s *Scene) matchesIDs(live map[VideoID]*inputStream) bool {
	if len(s.configs) != len(live) {
		return false
	}
	for id := range s.configs {
		if _, ok := live[id]; !ok {
			return false
		}
	}
	return true
}

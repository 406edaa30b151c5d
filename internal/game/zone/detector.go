package zone

import "github.com/udisondev/pvpguard/internal/model"

// DefaultRadius is the PvP zone radius around every anchor.
const DefaultRadius = 50.0

// Detector answers proximity queries against the current anchor set.
// Every query scans the live set; nothing is cached.
type Detector struct {
	anchors  *AnchorSet
	radiusSq float64
	radius   float64
}

// NewDetector creates a Detector. A non-positive radius takes DefaultRadius.
func NewDetector(anchors *AnchorSet, radius float64) *Detector {
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &Detector{anchors: anchors, radius: radius, radiusSq: radius * radius}
}

// Radius returns the zone radius.
func (d *Detector) Radius() float64 { return d.radius }

// Anchors returns the anchor registry the detector reads.
func (d *Detector) Anchors() *AnchorSet { return d.anchors }

// IsNearAnyBase reports whether pos is strictly within the radius of at
// least one anchor. False when there are no anchors.
func (d *Detector) IsNearAnyBase(pos model.Position) bool {
	near := false
	d.anchors.forEach(func(a model.BaseAnchor) bool {
		if pos.DistanceSquared(a.Position) < d.radiusSq {
			near = true
			return false
		}
		return true
	})
	return near
}

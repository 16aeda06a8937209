package dynamic

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
)

// BoundaryFunc computes the outline of an ellipse centred at center.
type BoundaryFunc func(center r3.Vec, semiMajorAxis, semiMinorAxis, bearing float64) []r3.Vec

// DefaultBoundary tessellates on WGS84 at one-degree granularity.
func DefaultBoundary(center r3.Vec, semiMajorAxis, semiMinorAxis, bearing float64) []r3.Vec {
	return core.ComputeEllipseBoundary(core.WGS84, center, semiMajorAxis, semiMinorAxis, bearing, core.DefaultEllipseGranularity)
}

// Ellipse is a surface ellipse around the entity position. Its boundary is
// cached on the last (position, semi-major, semi-minor, bearing) tuple.
type Ellipse struct {
	SemiMajorAxis *Property[float64]
	SemiMinorAxis *Property[float64]
	Bearing       *Property[float64]

	boundary BoundaryFunc

	cached        []r3.Vec
	lastPosition  r3.Vec
	lastSemiMajor float64
	lastSemiMinor float64
	lastBearing   float64
}

// SetBoundaryFunc replaces the geometry routine and drops the cache.
func (e *Ellipse) SetBoundaryFunc(fn BoundaryFunc) {
	e.boundary = fn
	e.cached = nil
}

// Vertices returns the boundary at time t around position, or nil when an
// axis is undefined or not positive. While the inputs stay the same the
// previously returned slice is returned again.
func (e *Ellipse) Vertices(t time.Time, position r3.Vec) []r3.Vec {
	semiMajor, ok := e.SemiMajorAxis.ValueAt(t)
	if !ok || semiMajor <= 0 {
		return nil
	}
	semiMinor, ok := e.SemiMinorAxis.ValueAt(t)
	if !ok || semiMinor <= 0 {
		return nil
	}
	bearing, ok := e.Bearing.ValueAt(t)
	if !ok {
		bearing = 0
	}

	if e.cached != nil &&
		position == e.lastPosition &&
		semiMajor == e.lastSemiMajor &&
		semiMinor == e.lastSemiMinor &&
		bearing == e.lastBearing {
		return e.cached
	}

	fn := e.boundary
	if fn == nil {
		fn = DefaultBoundary
	}
	e.cached = fn(position, semiMajor, semiMinor, bearing)
	e.lastPosition = position
	e.lastSemiMajor = semiMajor
	e.lastSemiMinor = semiMinor
	e.lastBearing = bearing
	return e.cached
}

func (e *Ellipse) properties() []Spanner {
	var out []Spanner
	out = appendSpanner(out, e.SemiMajorAxis)
	out = appendSpanner(out, e.SemiMinorAxis)
	out = appendSpanner(out, e.Bearing)
	return out
}

func processEllipse(e *Entity, packet Packet, parse IntervalParser) (bool, error) {
	m, ok, err := beginFacet(packet, "ellipse", parse)
	if !ok {
		return false, err
	}
	ellipse := e.Ellipse
	if ellipse == nil {
		ellipse = &Ellipse{}
		m.updated = true
	}

	field(m, &ellipse.SemiMajorAxis, Number, "semiMajorAxis")
	field(m, &ellipse.SemiMinorAxis, Number, "semiMinorAxis")
	field(m, &ellipse.Bearing, Number, "bearing")

	e.Ellipse = ellipse
	return m.result()
}

func mergeEllipse(target, source *Entity) {
	src := source.Ellipse
	if src == nil {
		return
	}
	if target.Ellipse == nil {
		target.Ellipse = &Ellipse{boundary: src.boundary}
	}
	dst := target.Ellipse
	firstWins(&dst.SemiMajorAxis, src.SemiMajorAxis)
	firstWins(&dst.SemiMinorAxis, src.SemiMinorAxis)
	firstWins(&dst.Bearing, src.Bearing)
}

package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultEllipseGranularity is the angular step between boundary vertices.
const DefaultEllipseGranularity = math.Pi / 180

// ComputeEllipseBoundary returns a closed ring of points on e outlining the
// ellipse centred at center. bearing is the clockwise angle of the major
// axis from north in radians. Vertices keep the centre's geodetic height.
func ComputeEllipseBoundary(e *Ellipsoid, center r3.Vec, semiMajorAxis, semiMinorAxis, bearing, granularity float64) []r3.Vec {
	if semiMinorAxis > semiMajorAxis {
		semiMajorAxis, semiMinorAxis = semiMinorAxis, semiMajorAxis
	}
	if granularity <= 0 {
		granularity = DefaultEllipseGranularity
	}
	carto, ok := e.CartesianToCartographic(center)
	if !ok {
		return nil
	}

	enu := EastNorthUpToFixedFrame(center, e)
	east := enu.Vector(r3.Vec{X: 1})
	north := enu.Vector(r3.Vec{Y: 1})

	sinB, cosB := math.Sincos(bearing)
	major := r3.Add(r3.Scale(cosB, north), r3.Scale(sinB, east))
	minor := r3.Add(r3.Scale(-sinB, north), r3.Scale(cosB, east))

	n := int(math.Ceil(2 * math.Pi / granularity))
	out := make([]r3.Vec, 0, n+1)
	for i := 0; i < n; i++ {
		theta := float64(i) * 2 * math.Pi / float64(n)
		sinT, cosT := math.Sincos(theta)
		p := r3.Add(center, r3.Add(
			r3.Scale(semiMajorAxis*cosT, major),
			r3.Scale(semiMinorAxis*sinT, minor),
		))
		surface, ok := e.ScaleToGeodeticSurface(p)
		if !ok {
			continue
		}
		out = append(out, r3.Add(surface, r3.Scale(carto.Height, e.GeodeticSurfaceNormal(surface))))
	}
	if len(out) > 0 {
		out = append(out, out[0])
	}
	return out
}

package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	Epsilon2  = 1e-2
	Epsilon3  = 1e-3
	Epsilon4  = 1e-4
	Epsilon6  = 1e-6
	Epsilon10 = 1e-10
	Epsilon12 = 1e-12
	Epsilon14 = 1e-14
	Epsilon15 = 1e-15
)

// Cartographic is a geodetic position: longitude and latitude in radians,
// height in metres above the ellipsoid.
type Cartographic struct {
	Longitude float64
	Latitude  float64
	Height    float64
}

// CartographicFromDegrees converts degree inputs to a Cartographic.
func CartographicFromDegrees(lonDeg, latDeg, height float64) Cartographic {
	return Cartographic{Longitude: lonDeg * math.Pi / 180, Latitude: latDeg * math.Pi / 180, Height: height}
}

// Ellipsoid is a triaxial ellipsoid centred at the origin.
type Ellipsoid struct {
	Radii               r3.Vec
	radiiSquared        r3.Vec
	oneOverRadii        r3.Vec
	oneOverRadiiSquared r3.Vec
}

// NewEllipsoid builds an ellipsoid from its three radii.
func NewEllipsoid(x, y, z float64) *Ellipsoid {
	return &Ellipsoid{
		Radii:               r3.Vec{X: x, Y: y, Z: z},
		radiiSquared:        r3.Vec{X: x * x, Y: y * y, Z: z * z},
		oneOverRadii:        r3.Vec{X: 1 / x, Y: 1 / y, Z: 1 / z},
		oneOverRadiiSquared: r3.Vec{X: 1 / (x * x), Y: 1 / (y * y), Z: 1 / (z * z)},
	}
}

var (
	// WGS84 is the Earth reference ellipsoid in metres.
	WGS84 = NewEllipsoid(6378137.0, 6378137.0, 6356752.3142451793)
	// UnitSphere has radius one on every axis.
	UnitSphere = NewEllipsoid(1, 1, 1)
)

// MaximumRadius returns the largest of the three radii.
func (e *Ellipsoid) MaximumRadius() float64 {
	return math.Max(e.Radii.X, math.Max(e.Radii.Y, e.Radii.Z))
}

// GeodeticSurfaceNormal returns the outward unit normal of the ellipsoid
// surface through p.
func (e *Ellipsoid) GeodeticSurfaceNormal(p r3.Vec) r3.Vec {
	return r3.Unit(mulElem(p, e.oneOverRadiiSquared))
}

// GeodeticSurfaceNormalCartographic returns the surface normal at c.
func (e *Ellipsoid) GeodeticSurfaceNormalCartographic(c Cartographic) r3.Vec {
	cosLat := math.Cos(c.Latitude)
	return r3.Unit(r3.Vec{
		X: cosLat * math.Cos(c.Longitude),
		Y: cosLat * math.Sin(c.Longitude),
		Z: math.Sin(c.Latitude),
	})
}

// CartographicToCartesian converts a geodetic position to fixed-frame
// cartesian coordinates.
func (e *Ellipsoid) CartographicToCartesian(c Cartographic) r3.Vec {
	n := e.GeodeticSurfaceNormalCartographic(c)
	k := mulElem(e.radiiSquared, n)
	gamma := math.Sqrt(r3.Dot(n, k))
	k = r3.Scale(1/gamma, k)
	return r3.Add(k, r3.Scale(c.Height, n))
}

// ScaleToGeodeticSurface projects p along the geodetic normal onto the
// surface. It returns false for points too close to the centre.
func (e *Ellipsoid) ScaleToGeodeticSurface(p r3.Vec) (r3.Vec, bool) {
	x2 := p.X * p.X * e.oneOverRadiiSquared.X
	y2 := p.Y * p.Y * e.oneOverRadiiSquared.Y
	z2 := p.Z * p.Z * e.oneOverRadiiSquared.Z

	squaredNorm := x2 + y2 + z2
	ratio := math.Sqrt(1 / squaredNorm)
	intersection := r3.Scale(ratio, p)

	const centerToleranceSquared = 0.1
	if squaredNorm < centerToleranceSquared {
		if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
			return r3.Vec{}, false
		}
		return intersection, true
	}

	gradient := r3.Scale(2, mulElem(intersection, e.oneOverRadiiSquared))
	lambda := (1 - ratio) * r3.Norm(p) / (0.5 * r3.Norm(gradient))

	var xm, ym, zm, fn float64
	correction := 0.0
	for i := 0; i < 64; i++ {
		lambda -= correction
		xm = 1 / (1 + lambda*e.oneOverRadiiSquared.X)
		ym = 1 / (1 + lambda*e.oneOverRadiiSquared.Y)
		zm = 1 / (1 + lambda*e.oneOverRadiiSquared.Z)

		xm2, ym2, zm2 := xm*xm, ym*ym, zm*zm
		fn = x2*xm2 + y2*ym2 + z2*zm2 - 1
		if math.Abs(fn) <= Epsilon12 {
			break
		}
		denominator := x2*xm2*xm*e.oneOverRadiiSquared.X +
			y2*ym2*ym*e.oneOverRadiiSquared.Y +
			z2*zm2*zm*e.oneOverRadiiSquared.Z
		correction = fn / (-2 * denominator)
	}
	return r3.Vec{X: p.X * xm, Y: p.Y * ym, Z: p.Z * zm}, true
}

// CartesianToCartographic converts fixed-frame cartesian coordinates to a
// geodetic position. It returns false at the ellipsoid centre.
func (e *Ellipsoid) CartesianToCartographic(p r3.Vec) (Cartographic, bool) {
	surface, ok := e.ScaleToGeodeticSurface(p)
	if !ok {
		return Cartographic{}, false
	}
	n := e.GeodeticSurfaceNormal(surface)
	h := r3.Sub(p, surface)
	height := r3.Norm(h)
	if r3.Dot(h, p) < 0 {
		height = -height
	}
	return Cartographic{
		Longitude: math.Atan2(n.Y, n.X),
		Latitude:  math.Asin(clamp(n.Z, -1, 1)),
		Height:    height,
	}, true
}

// Height returns the geodetic height of p, or NaN at the centre.
func (e *Ellipsoid) Height(p r3.Vec) float64 {
	c, ok := e.CartesianToCartographic(p)
	if !ok {
		return math.NaN()
	}
	return c.Height
}

// LineOfSight reports whether the segment p1-p2 clears the ellipsoid.
func (e *Ellipsoid) LineOfSight(p1, p2 r3.Vec) bool {
	// Work in scaled space where the ellipsoid is the unit sphere.
	q1 := mulElem(p1, e.oneOverRadii)
	v := r3.Sub(mulElem(p2, e.oneOverRadii), q1)
	a := r3.Dot(v, v)
	if a == 0 {
		return r3.Norm2(q1) > 1
	}

	t := clamp(-r3.Dot(q1, v)/a, 0, 1)
	closest := r3.Add(q1, r3.Scale(t, v))
	return r3.Norm2(closest) > 1
}

// ElevationDegrees returns the elevation angle of the target as seen from
// the observer using the geodetic normal as zenith. 0° = horizon, 90° =
// overhead.
func (e *Ellipsoid) ElevationDegrees(observer, target r3.Vec) float64 {
	v := r3.Sub(target, observer)
	vNorm := r3.Norm(v)
	if vNorm == 0 || r3.Norm(observer) == 0 {
		return 90
	}
	zenith := e.GeodeticSurfaceNormal(observer)
	cosGamma := clamp(r3.Dot(v, zenith)/vNorm, -1, 1)
	return 90.0 - math.Acos(cosGamma)*180.0/math.Pi
}

func mulElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 { return clamp(v, lo, hi) }

// EqualsEpsilon compares two vectors componentwise within eps.
func EqualsEpsilon(a, b r3.Vec, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}

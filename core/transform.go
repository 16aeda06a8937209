package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid transform: world = Rotation·local + Translation.
// Rotation must be orthonormal; its columns are the local axes expressed in
// the parent frame.
type Transform struct {
	Rotation    *r3.Mat
	Translation r3.Vec
}

// Identity returns the identity transform.
func Identity() *Transform {
	return &Transform{Rotation: r3.Eye()}
}

// NewTransformFromAxes builds a transform whose local x, y and z axes map to
// the given (unit, orthogonal) vectors and whose origin is origin.
func NewTransformFromAxes(x, y, z, origin r3.Vec) *Transform {
	return &Transform{
		Rotation: r3.NewMat([]float64{
			x.X, y.X, z.X,
			x.Y, y.Y, z.Y,
			x.Z, y.Z, z.Z,
		}),
		Translation: origin,
	}
}

// Point maps a local point to the parent frame.
func (t *Transform) Point(p r3.Vec) r3.Vec {
	if t == nil {
		return p
	}
	return r3.Add(t.Rotation.MulVec(p), t.Translation)
}

// Vector maps a local direction to the parent frame.
func (t *Transform) Vector(v r3.Vec) r3.Vec {
	if t == nil {
		return v
	}
	return t.Rotation.MulVec(v)
}

// InversePoint maps a parent-frame point into the local frame.
func (t *Transform) InversePoint(p r3.Vec) r3.Vec {
	if t == nil {
		return p
	}
	return t.Rotation.MulVecTrans(r3.Sub(p, t.Translation))
}

// InverseVector maps a parent-frame direction into the local frame.
func (t *Transform) InverseVector(v r3.Vec) r3.Vec {
	if t == nil {
		return v
	}
	return t.Rotation.MulVecTrans(v)
}

// Clone returns a deep copy.
func (t *Transform) Clone() *Transform {
	if t == nil {
		return nil
	}
	m := r3.NewMat(nil)
	m.CloneFrom(t.Rotation)
	return &Transform{Rotation: m, Translation: t.Translation}
}

// EastNorthUpToFixedFrame returns the local east-north-up frame at origin.
func EastNorthUpToFixedFrame(origin r3.Vec, e *Ellipsoid) *Transform {
	if math.Abs(origin.X) < Epsilon14 && math.Abs(origin.Y) < Epsilon14 {
		// At the poles east is undefined; pick +Y.
		sign := 1.0
		if origin.Z < 0 {
			sign = -1
		}
		return NewTransformFromAxes(
			r3.Vec{Y: 1},
			r3.Vec{X: -sign},
			r3.Vec{Z: sign},
			origin,
		)
	}
	up := e.GeodeticSurfaceNormal(origin)
	east := r3.Unit(r3.Vec{X: -origin.Y, Y: origin.X})
	north := r3.Cross(up, east)
	return NewTransformFromAxes(east, north, up, origin)
}

// Ray is a half-line from Origin along the unit Direction.
type Ray struct {
	Origin    r3.Vec
	Direction r3.Vec
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Direction))
}

// Plane is the set of points p with Normal·p + Distance = 0.
type Plane struct {
	Normal   r3.Vec
	Distance float64
}

// RayPlane intersects a ray with a plane. It returns false when the ray is
// parallel to the plane or the plane lies behind the origin.
func RayPlane(ray Ray, plane Plane) (r3.Vec, bool) {
	denominator := r3.Dot(plane.Normal, ray.Direction)
	if math.Abs(denominator) < Epsilon15 {
		return r3.Vec{}, false
	}
	t := (-plane.Distance - r3.Dot(plane.Normal, ray.Origin)) / denominator
	if t < 0 {
		return r3.Vec{}, false
	}
	return ray.At(t), true
}

// RayEllipsoid returns the entry and exit distances of ray through e.
func RayEllipsoid(ray Ray, e *Ellipsoid) (start, stop float64, ok bool) {
	q := mulElem(e.oneOverRadii, ray.Origin)
	w := mulElem(e.oneOverRadii, ray.Direction)

	q2 := r3.Norm2(q)
	qw := r3.Dot(q, w)

	switch {
	case q2 > 1:
		if qw >= 0 {
			return 0, 0, false
		}
		qw2 := qw * qw
		difference := q2 - 1
		w2 := r3.Norm2(w)
		product := w2 * difference
		if qw2 < product {
			return 0, 0, false
		}
		if qw2 > product {
			temp := -qw + math.Sqrt(qw2-product)
			root0 := temp / w2
			root1 := difference / temp
			return math.Min(root0, root1), math.Max(root0, root1), true
		}
		root := math.Sqrt(difference / w2)
		return root, root, true
	case q2 < 1:
		difference := q2 - 1
		w2 := r3.Norm2(w)
		product := w2 * difference
		temp := -qw + math.Sqrt(qw*qw-product)
		return 0, temp / w2, true
	default:
		if qw < 0 {
			return 0, -qw / r3.Norm2(w), true
		}
		return 0, 0, false
	}
}

// PickEllipsoid returns the first point where ray meets e.
func PickEllipsoid(ray Ray, e *Ellipsoid) (r3.Vec, bool) {
	start, _, ok := RayEllipsoid(ray, e)
	if !ok {
		return r3.Vec{}, false
	}
	return ray.At(start), true
}

// GrazingAltitudeLocation returns the point along a ray that misses e where
// it passes closest to the surface, measured in the ellipsoid's scaled
// space. Rays pointing away from the surface return their origin.
func GrazingAltitudeLocation(ray Ray, e *Ellipsoid) (r3.Vec, bool) {
	if r3.Norm2(ray.Direction) == 0 {
		return r3.Vec{}, false
	}
	normal := e.GeodeticSurfaceNormal(ray.Origin)
	if r3.Dot(ray.Direction, normal) >= 0 {
		return ray.Origin, true
	}
	q := mulElem(e.oneOverRadii, ray.Origin)
	w := mulElem(e.oneOverRadii, ray.Direction)
	s := -r3.Dot(q, w) / r3.Norm2(w)
	if s < 0 {
		s = 0
	}
	return ray.At(s), true
}

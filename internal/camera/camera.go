// Package camera provides a reference camera and camera controller for the
// navigation view-model. The camera stores its orientation in a local frame
// described by Transform; world-frame accessors apply that transform.
package camera

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
)

// ErrNilCanvas is returned when a camera is built without a canvas.
var ErrNilCanvas = errors.New("camera: canvas is required")

// Canvas reports the drawing surface size in pixels.
type Canvas interface {
	ClientWidth() float64
	ClientHeight() float64
}

// Size is a fixed-size Canvas.
type Size struct {
	Width, Height float64
}

func (s Size) ClientWidth() float64  { return s.Width }
func (s Size) ClientHeight() float64 { return s.Height }

// PerspectiveFrustum describes a symmetric perspective projection. The
// aspect ratio follows the canvas.
type PerspectiveFrustum struct {
	Fovy float64
	Near float64
	Far  float64
}

// OrthographicFrustum describes an orthographic projection in metres.
type OrthographicFrustum struct {
	Left, Right float64
	Top, Bottom float64
	Near, Far   float64
}

// Width returns Right-Left.
func (f *OrthographicFrustum) Width() float64 { return f.Right - f.Left }

// Height returns Top-Bottom.
func (f *OrthographicFrustum) Height() float64 { return f.Top - f.Bottom }

// Camera holds the eye position and orientation in the frame of Transform.
type Camera struct {
	Position  r3.Vec
	Direction r3.Vec
	Up        r3.Vec
	Right     r3.Vec

	// Transform maps camera-frame coordinates to world coordinates. Nil
	// means identity.
	Transform *core.Transform

	Frustum PerspectiveFrustum
	// Ortho is the projection used in 2D.
	Ortho *OrthographicFrustum

	canvas Canvas
}

// New returns a camera looking at the centre of WGS84 from 2.5 maximum radii.
func New(canvas Canvas) (*Camera, error) {
	if canvas == nil {
		return nil, ErrNilCanvas
	}
	c := &Camera{canvas: canvas}
	c.SetView3D(core.WGS84)
	return c, nil
}

// Canvas returns the drawing surface.
func (c *Camera) Canvas() Canvas { return c.canvas }

// SetView3D places the camera in the default globe view.
func (c *Camera) SetView3D(e *core.Ellipsoid) {
	maxRadius := e.MaximumRadius()
	c.Position = r3.Scale(2.5*maxRadius, r3.Unit(r3.Vec{Y: -2, Z: 1}))
	c.Direction = r3.Unit(r3.Scale(-1, c.Position))
	c.Right = r3.Unit(r3.Cross(c.Direction, r3.Vec{Z: 1}))
	c.Up = r3.Cross(c.Right, c.Direction)
	c.Transform = nil
	c.Frustum = PerspectiveFrustum{Fovy: math.Pi / 3, Near: 1, Far: 500000000}
	c.Ortho = nil
}

// SetView2D looks straight down on the projected map with an orthographic
// frustum spanning the whole map width.
func (c *Camera) SetView2D(e *core.Ellipsoid) {
	maxRadius := e.MaximumRadius()
	c.setMapOrientation(maxRadius)
	right := maxRadius * math.Pi
	top := right
	if w := c.canvas.ClientWidth(); w > 0 {
		top = right * c.canvas.ClientHeight() / w
	}
	c.Ortho = &OrthographicFrustum{
		Left: -right, Right: right,
		Top: top, Bottom: -top,
		Near: 0.01 * maxRadius, Far: 60 * maxRadius,
	}
}

// SetViewColumbus looks straight down on the projected map in perspective.
func (c *Camera) SetViewColumbus(e *core.Ellipsoid) {
	c.setMapOrientation(e.MaximumRadius())
	c.Frustum = PerspectiveFrustum{Fovy: math.Pi / 3, Near: 1, Far: 500000000}
	c.Ortho = nil
}

func (c *Camera) setMapOrientation(height float64) {
	c.Position = r3.Vec{Z: height}
	c.Direction = r3.Vec{Z: -1}
	c.Up = r3.Vec{Y: 1}
	c.Right = r3.Vec{X: 1}
	c.Transform = MapTransform()
}

// MapTransform maps projected map coordinates (x east, y north, z up) onto
// the world axes used for 2D and Columbus View.
func MapTransform() *core.Transform {
	return core.NewTransformFromAxes(r3.Vec{Y: 1}, r3.Vec{Z: 1}, r3.Vec{X: 1}, r3.Vec{})
}

// PositionWC returns the position in world coordinates.
func (c *Camera) PositionWC() r3.Vec { return c.Transform.Point(c.Position) }

// DirectionWC returns the view direction in world coordinates.
func (c *Camera) DirectionWC() r3.Vec { return c.Transform.Vector(c.Direction) }

// UpWC returns the up vector in world coordinates.
func (c *Camera) UpWC() r3.Vec { return c.Transform.Vector(c.Up) }

// RightWC returns the right vector in world coordinates.
func (c *Camera) RightWC() r3.Vec { return c.Transform.Vector(c.Right) }

// WorldToCameraCoordinates maps a world point into the camera frame.
func (c *Camera) WorldToCameraCoordinates(p r3.Vec) r3.Vec { return c.Transform.InversePoint(p) }

// SetTransform re-expresses the camera in the frame of t without moving it
// in the world, and returns the previous transform.
func (c *Camera) SetTransform(t *core.Transform) *core.Transform {
	old := c.Transform
	position, direction, up, right := c.PositionWC(), c.DirectionWC(), c.UpWC(), c.RightWC()
	c.Transform = t
	c.Position = t.InversePoint(position)
	c.Direction = t.InverseVector(direction)
	c.Up = t.InverseVector(up)
	c.Right = t.InverseVector(right)
	return old
}

// pickRayPerspective returns the world ray through a window pixel.
func (c *Camera) pickRayPerspective(window r2.Vec) core.Ray {
	width, height := c.canvas.ClientWidth(), c.canvas.ClientHeight()
	tanPhi := math.Tan(c.Frustum.Fovy * 0.5)
	tanTheta := tanPhi
	if height > 0 {
		tanTheta = width / height * tanPhi
	}
	near := c.Frustum.Near

	x := 2/width*window.X - 1
	y := 2/height*(height-window.Y) - 1

	position := c.PositionWC()
	nearCenter := r3.Add(position, r3.Scale(near, c.DirectionWC()))
	xDir := r3.Scale(x*near*tanTheta, c.RightWC())
	yDir := r3.Scale(y*near*tanPhi, c.UpWC())
	direction := r3.Unit(r3.Sub(r3.Add(r3.Add(nearCenter, xDir), yDir), position))
	return core.Ray{Origin: position, Direction: direction}
}

// pickRayOrthographic returns the ray through a window pixel. The origin is
// offset from the camera-frame position on the frustum plane.
func (c *Camera) pickRayOrthographic(window r2.Vec) core.Ray {
	width, height := c.canvas.ClientWidth(), c.canvas.ClientHeight()
	f := c.Ortho
	x := (2/width*window.X - 1) * f.Width() * 0.5
	y := (2/height*(height-window.Y) - 1) * f.Height() * 0.5

	origin := c.Position
	origin.X += x
	origin.Y += y
	return core.Ray{Origin: origin, Direction: c.DirectionWC()}
}

func rotateCamera(c *Camera, axis r3.Vec, angle float64) {
	if angle == 0 || r3.Norm2(axis) == 0 {
		return
	}
	// Positive angles turn the camera clockwise about axis.
	rot := r3.NewRotation(-angle, axis)
	c.Position = rot.Rotate(c.Position)
	c.Direction = rot.Rotate(c.Direction)
	c.Up = rot.Rotate(c.Up)
	c.Right = rot.Rotate(c.Right)
}

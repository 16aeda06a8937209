package camera

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/model"
)

// ErrNilCamera is returned when a controller is built without a camera.
var ErrNilCamera = errors.New("camera: camera is required")

// MaxTranslateFactor bounds the 2D frustum to this many map half-widths.
const MaxTranslateFactor = 1.5

// Controller moves, zooms and rotates a Camera according to the active
// scene mode.
type Controller struct {
	camera    *Camera
	mode      model.SceneMode
	ellipsoid *core.Ellipsoid

	constrainedAxis *r3.Vec
}

// NewController binds a controller to cam in 3D mode on WGS84.
func NewController(cam *Camera) (*Controller, error) {
	if cam == nil {
		return nil, ErrNilCamera
	}
	return &Controller{camera: cam, mode: model.Scene3D, ellipsoid: core.WGS84}, nil
}

// Camera returns the controlled camera.
func (c *Controller) Camera() *Camera { return c.camera }

// Mode returns the scene mode used for picking and zooming.
func (c *Controller) Mode() model.SceneMode { return c.mode }

// SetMode changes the scene mode without touching the camera.
func (c *Controller) SetMode(mode model.SceneMode) { c.mode = mode }

// SetEllipsoid sets the globe shape; nil selects WGS84.
func (c *Controller) SetEllipsoid(e *core.Ellipsoid) {
	if e == nil {
		e = core.WGS84
	}
	c.ellipsoid = e
}

// ResetView switches mode and moves the camera to that mode's home view.
func (c *Controller) ResetView(mode model.SceneMode) {
	c.mode = mode
	switch mode {
	case model.Scene2D:
		c.camera.SetView2D(c.ellipsoid)
	case model.ColumbusView:
		c.camera.SetViewColumbus(c.ellipsoid)
	default:
		c.camera.SetView3D(c.ellipsoid)
	}
}

// ConstrainedAxis returns the axis vertical rotations are constrained to.
func (c *Controller) ConstrainedAxis() (r3.Vec, bool) {
	if c.constrainedAxis == nil {
		return r3.Vec{}, false
	}
	return *c.constrainedAxis, true
}

// SetConstrainedAxis constrains vertical rotation to axis.
func (c *Controller) SetConstrainedAxis(axis r3.Vec) {
	c.constrainedAxis = &axis
}

// ClearConstrainedAxis removes the rotation constraint.
func (c *Controller) ClearConstrainedAxis() { c.constrainedAxis = nil }

// Position returns the camera position in its own frame.
func (c *Controller) Position() r3.Vec { return c.camera.Position }

// Direction returns the view direction in the camera frame.
func (c *Controller) Direction() r3.Vec { return c.camera.Direction }

// DirectionWC returns the view direction in world coordinates.
func (c *Controller) DirectionWC() r3.Vec { return c.camera.DirectionWC() }

// WorldToCameraCoordinates maps a world point into the camera frame.
func (c *Controller) WorldToCameraCoordinates(p r3.Vec) r3.Vec {
	return c.camera.WorldToCameraCoordinates(p)
}

// PickRay returns the ray through a window pixel (origin top-left).
func (c *Controller) PickRay(window r2.Vec) core.Ray {
	if c.mode == model.Scene2D && c.camera.Ortho != nil {
		return c.camera.pickRayOrthographic(window)
	}
	return c.camera.pickRayPerspective(window)
}

// Magnitude is the distance measure zooming works against: the distance
// from the origin in 3D, the height above the map in Columbus View and the
// larger frustum extent in 2D.
func (c *Controller) Magnitude() float64 {
	switch c.mode {
	case model.Scene2D:
		if f := c.camera.Ortho; f != nil {
			return math.Max(f.Width(), f.Height())
		}
		return math.Abs(c.camera.Position.Z)
	case model.ColumbusView:
		return math.Abs(c.camera.Position.Z)
	default:
		return r3.Norm(c.camera.Position)
	}
}

// Move translates the camera by direction scaled by amount.
func (c *Controller) Move(direction r3.Vec, amount float64) {
	c.camera.Position = r3.Add(c.camera.Position, r3.Scale(amount, direction))
}

// MoveForward moves along the view direction.
func (c *Controller) MoveForward(amount float64) { c.Move(c.camera.Direction, amount) }

// MoveBackward moves against the view direction.
func (c *Controller) MoveBackward(amount float64) { c.Move(c.camera.Direction, -amount) }

// MoveRight moves along the right vector.
func (c *Controller) MoveRight(amount float64) { c.Move(c.camera.Right, amount) }

// MoveLeft moves against the right vector.
func (c *Controller) MoveLeft(amount float64) { c.Move(c.camera.Right, -amount) }

// MoveUp moves along the up vector.
func (c *Controller) MoveUp(amount float64) { c.Move(c.camera.Up, amount) }

// MoveDown moves against the up vector.
func (c *Controller) MoveDown(amount float64) { c.Move(c.camera.Up, -amount) }

// ZoomIn narrows the frustum in 2D and moves forward otherwise.
func (c *Controller) ZoomIn(amount float64) {
	if c.mode == model.Scene2D && c.camera.Ortho != nil {
		c.zoom2D(amount)
		return
	}
	c.MoveForward(amount)
}

// ZoomOut is ZoomIn with the amount negated.
func (c *Controller) ZoomOut(amount float64) { c.ZoomIn(-amount) }

func (c *Controller) zoom2D(amount float64) {
	f := c.camera.Ortho
	amount *= 0.5
	newRight := f.Right - amount
	newLeft := f.Left + amount

	maxRight := math.Pi * c.ellipsoid.MaximumRadius() * MaxTranslateFactor
	if newRight > maxRight {
		newRight, newLeft = maxRight, -maxRight
	}
	if newRight <= newLeft {
		newRight, newLeft = 1, -1
	}

	ratio := f.Top / f.Right
	f.Right, f.Left = newRight, newLeft
	f.Top = f.Right * ratio
	f.Bottom = -f.Top
}

// RotateUp rotates the camera about the centre of transform towards the
// top of the view. A nil transform uses the camera's own frame.
func (c *Controller) RotateUp(angle float64, transform *core.Transform) {
	c.rotateVertical(-angle, transform)
}

// RotateDown is RotateUp with the angle negated.
func (c *Controller) RotateDown(angle float64, transform *core.Transform) {
	c.rotateVertical(angle, transform)
}

// RotateRight rotates about the constrained axis, or the up vector when no
// axis is set.
func (c *Controller) RotateRight(angle float64, transform *core.Transform) {
	c.rotateHorizontal(-angle, transform)
}

// RotateLeft is RotateRight with the angle negated.
func (c *Controller) RotateLeft(angle float64, transform *core.Transform) {
	c.rotateHorizontal(angle, transform)
}

func (c *Controller) rotateHorizontal(angle float64, transform *core.Transform) {
	c.inFrame(transform, func(cam *Camera) {
		if axis, ok := c.ConstrainedAxis(); ok {
			rotateCamera(cam, axis, angle)
			return
		}
		rotateCamera(cam, cam.Up, angle)
	})
}

func (c *Controller) rotateVertical(angle float64, transform *core.Transform) {
	c.inFrame(transform, func(cam *Camera) {
		axis, constrained := c.ConstrainedAxis()
		if !constrained || core.EqualsEpsilon(cam.Position, r3.Vec{}, core.Epsilon2) {
			rotateCamera(cam, cam.Right, angle)
			return
		}

		p := r3.Unit(cam.Position)
		axis = r3.Unit(axis)
		northParallel := core.EqualsEpsilon(p, axis, core.Epsilon2)
		southParallel := core.EqualsEpsilon(p, r3.Scale(-1, axis), core.Epsilon2)

		switch {
		case !northParallel && !southParallel:
			// Never rotate past the poles of the constrained axis.
			angleToAxis := math.Acos(core.Clamp(r3.Dot(p, axis), -1, 1))
			if angle > 0 && angle > angleToAxis {
				angle = angleToAxis - core.Epsilon4
			}
			angleToAxis = math.Acos(core.Clamp(-r3.Dot(p, axis), -1, 1))
			if angle < 0 && -angle > angleToAxis {
				angle = -angleToAxis + core.Epsilon4
			}
			rotateCamera(cam, r3.Cross(axis, p), angle)
		case (northParallel && angle < 0) || (southParallel && angle > 0):
			rotateCamera(cam, cam.Right, angle)
		}
	})
}

// inFrame runs fn with the camera expressed in transform's frame and
// restores the original frame afterwards.
func (c *Controller) inFrame(transform *core.Transform, fn func(cam *Camera)) {
	if transform == nil {
		fn(c.camera)
		return
	}
	old := c.camera.SetTransform(transform)
	fn(c.camera)
	c.camera.SetTransform(old)
}

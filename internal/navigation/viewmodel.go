// Package navigation turns ring and joystick signals into camera motion.
//
// A ViewModel holds five clamped control signals. Each frame, Update decays
// the signals that are not being dragged and then applies zoom, pan and tilt
// for the active scene mode through a CameraController. A Widget maps raw
// pointer events onto those signals.
package navigation

import (
	"errors"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/model"
)

var (
	// ErrNilCanvas is returned when a ViewModel is built without a canvas.
	ErrNilCanvas = errors.New("navigation: canvas is required")
	// ErrNilCameraController is returned when a ViewModel is built without
	// a camera controller.
	ErrNilCameraController = errors.New("navigation: camera controller is required")
)

// Signal domains and rate limits.
const (
	MaxZoomRingAngle   = 45.0
	MaxTiltRingAngle   = 45.0
	MaxPointerDistance = 40.0

	MinimumZoomRate   = 20.0
	MaximumZoomRate   = 5906376272000.0
	MinimumRotateRate = 1.0 / 5000.0
	MaximumRotateRate = 1.77

	// DecayFactor scales released signals every frame until they fall
	// below core.Epsilon3.
	DecayFactor = 0.9

	// ZoomStep is the ring increment applied by the zoom commands.
	ZoomStep = 0.25
)

// Operation names passed to an OperationRecorder.
const (
	OpZoom = "zoom"
	OpPan  = "pan"
	OpTilt = "tilt"
)

// Canvas reports the size of the drawing surface in pixels.
type Canvas interface {
	ClientWidth() float64
	ClientHeight() float64
}

// CameraController is the camera surface the view-model drives. Positions
// and directions without a WC suffix are in the camera's own frame.
type CameraController interface {
	PickRay(window r2.Vec) core.Ray
	Magnitude() float64

	Position() r3.Vec
	Direction() r3.Vec
	DirectionWC() r3.Vec
	WorldToCameraCoordinates(p r3.Vec) r3.Vec

	ConstrainedAxis() (r3.Vec, bool)
	SetConstrainedAxis(axis r3.Vec)
	ClearConstrainedAxis()

	ZoomIn(amount float64)
	Move(direction r3.Vec, amount float64)
	MoveRight(amount float64)
	MoveUp(amount float64)
	RotateUp(angle float64, transform *core.Transform)
	RotateRight(angle float64, transform *core.Transform)
}

// OperationRecorder is notified whenever an update moves the camera.
type OperationRecorder interface {
	NavigationOperation(mode model.SceneMode, operation string)
}

// Signals is a snapshot of the control signals, in degrees except for
// PointerDistance.
type Signals struct {
	ZoomRingAngle    float64
	TiltRingAngle    float64
	NorthRingAngle   float64
	PointerDistance  float64
	PointerDirection float64
}

// Command is a bound action such as a zoom button.
type Command func()

// Option configures a ViewModel. New fails with the first option error.
type Option func(*ViewModel) error

// WithRecorder reports camera operations to r.
func WithRecorder(r OperationRecorder) Option {
	return func(vm *ViewModel) error {
		vm.recorder = r
		return nil
	}
}

// WithConfig validates cfg and applies it on construction.
func WithConfig(cfg Config) Option {
	return func(vm *ViewModel) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		cfg.Apply(vm)
		return nil
	}
}

type subscriber struct {
	id int
	fn func(Signals)
}

// ViewModel is the navigation state for one camera-attached widget. It is
// not safe for concurrent use; drive it from the frame loop.
type ViewModel struct {
	canvas     Canvas
	controller CameraController
	ellipsoid  *core.Ellipsoid

	EnableTranslate bool
	EnableZoom      bool
	EnableRotate    bool
	EnableTilt      bool

	MaximumMovementRatio float64
	MinimumZoomDistance  float64
	MaximumZoomDistance  float64
	ZoomFactor           float64

	// Dragging flags are owned by the gesture mapper. A dragged signal is
	// not decayed.
	ZoomRingDragging    bool
	TiltRingDragging    bool
	NorthRingDragging   bool
	PanJoystickDragging bool

	rotateFactor         float64
	rotateRateAdjustment float64

	signals Signals

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int

	recorder OperationRecorder

	zoomIn  Command
	zoomOut Command
}

// New builds a ViewModel on WGS84. Both collaborators are required.
func New(canvas Canvas, controller CameraController, opts ...Option) (*ViewModel, error) {
	if canvas == nil {
		return nil, ErrNilCanvas
	}
	if controller == nil {
		return nil, ErrNilCameraController
	}
	vm := &ViewModel{
		canvas:               canvas,
		controller:           controller,
		EnableTranslate:      true,
		EnableZoom:           true,
		EnableRotate:         true,
		EnableTilt:           true,
		MaximumMovementRatio: 0.1,
		MinimumZoomDistance:  20,
		MaximumZoomDistance:  math.Inf(1),
		ZoomFactor:           1,
	}
	vm.SetEllipsoid(core.WGS84)
	vm.zoomIn = func() { vm.SetZoomRingAngle(vm.signals.ZoomRingAngle + ZoomStep) }
	vm.zoomOut = func() { vm.SetZoomRingAngle(vm.signals.ZoomRingAngle - ZoomStep) }
	for _, opt := range opts {
		if err := opt(vm); err != nil {
			return nil, err
		}
	}
	return vm, nil
}

// Canvas returns the drawing surface.
func (vm *ViewModel) Canvas() Canvas { return vm.canvas }

// Ellipsoid returns the reference ellipsoid.
func (vm *ViewModel) Ellipsoid() *core.Ellipsoid { return vm.ellipsoid }

// SetEllipsoid changes the reference ellipsoid and recomputes the rotate
// factors from its maximum radius. Nil selects WGS84.
func (vm *ViewModel) SetEllipsoid(e *core.Ellipsoid) {
	if e == nil {
		e = core.WGS84
	}
	radius := e.MaximumRadius()
	vm.ellipsoid = e
	vm.rotateFactor = 1 / radius
	vm.rotateRateAdjustment = radius
}

// ZoomInCommand steps the zoom ring towards zooming in.
func (vm *ViewModel) ZoomInCommand() Command { return vm.zoomIn }

// ZoomOutCommand steps the zoom ring towards zooming out.
func (vm *ViewModel) ZoomOutCommand() Command { return vm.zoomOut }

// Signals returns the current signal values.
func (vm *ViewModel) Signals() Signals { return vm.signals }

func (vm *ViewModel) ZoomRingAngle() float64    { return vm.signals.ZoomRingAngle }
func (vm *ViewModel) TiltRingAngle() float64    { return vm.signals.TiltRingAngle }
func (vm *ViewModel) NorthRingAngle() float64   { return vm.signals.NorthRingAngle }
func (vm *ViewModel) PointerDistance() float64  { return vm.signals.PointerDistance }
func (vm *ViewModel) PointerDirection() float64 { return vm.signals.PointerDirection }

// SetZoomRingAngle stores angle clamped to ±MaxZoomRingAngle.
func (vm *ViewModel) SetZoomRingAngle(angle float64) {
	vm.signals.ZoomRingAngle = core.Clamp(angle, -MaxZoomRingAngle, MaxZoomRingAngle)
	vm.notify()
}

// SetTiltRingAngle stores angle clamped to ±MaxTiltRingAngle.
func (vm *ViewModel) SetTiltRingAngle(angle float64) {
	vm.signals.TiltRingAngle = core.Clamp(angle, -MaxTiltRingAngle, MaxTiltRingAngle)
	vm.notify()
}

// SetNorthRingAngle stores angle normalised to (-180, 180].
func (vm *ViewModel) SetNorthRingAngle(angle float64) {
	vm.signals.NorthRingAngle = normalizeDegrees(angle)
	vm.notify()
}

// SetPointerDistance stores distance clamped to [0, MaxPointerDistance].
func (vm *ViewModel) SetPointerDistance(distance float64) {
	vm.signals.PointerDistance = core.Clamp(distance, 0, MaxPointerDistance)
	vm.notify()
}

// SetPointerDirection stores direction normalised to (-180, 180]. Zero
// points right.
func (vm *ViewModel) SetPointerDirection(direction float64) {
	vm.signals.PointerDirection = normalizeDegrees(direction)
	vm.notify()
}

// Subscribe registers fn to receive the signals after every write.
func (vm *ViewModel) Subscribe(fn func(Signals)) (unsubscribe func()) {
	vm.subMu.Lock()
	defer vm.subMu.Unlock()
	vm.nextSub++
	id := vm.nextSub
	vm.subs = append(vm.subs, subscriber{id: id, fn: fn})
	return func() {
		vm.subMu.Lock()
		defer vm.subMu.Unlock()
		for i, s := range vm.subs {
			if s.id == id {
				vm.subs = append(vm.subs[:i:i], vm.subs[i+1:]...)
				return
			}
		}
	}
}

func (vm *ViewModel) notify() {
	vm.subMu.Lock()
	subs := append([]subscriber(nil), vm.subs...)
	vm.subMu.Unlock()
	for _, s := range subs {
		s.fn(vm.signals)
	}
}

// Update runs one frame: decay released signals, then move the camera for
// mode. There is no memory of the previous mode.
func (vm *ViewModel) Update(mode model.SceneMode) {
	vm.decay()
	switch mode {
	case model.Scene2D:
		if vm.EnableZoom && vm.signals.ZoomRingAngle != 0 {
			vm.record(mode, OpZoom, vm.zoom2D())
		}
		if vm.EnableTranslate && vm.signals.PointerDistance != 0 {
			vm.record(mode, OpPan, vm.pan2D())
		}
	case model.ColumbusView:
		if vm.EnableZoom && vm.signals.ZoomRingAngle != 0 {
			vm.record(mode, OpZoom, vm.zoomCV())
		}
		if vm.EnableTranslate && vm.signals.PointerDistance != 0 {
			vm.record(mode, OpPan, vm.panCV())
		}
	case model.Scene3D:
		if vm.EnableZoom && vm.signals.ZoomRingAngle != 0 {
			vm.record(mode, OpZoom, vm.zoom3D())
		}
		// Panning the globe rotates the camera around it.
		if vm.EnableTranslate && vm.EnableRotate && vm.signals.PointerDistance != 0 {
			vm.record(mode, OpPan, vm.pan3D())
		}
		if vm.EnableTilt && vm.signals.TiltRingAngle != 0 {
			vm.record(mode, OpTilt, vm.tilt3D())
		}
	}
}

func (vm *ViewModel) record(mode model.SceneMode, op string, moved bool) {
	if moved && vm.recorder != nil {
		vm.recorder.NavigationOperation(mode, op)
	}
}

func (vm *ViewModel) decay() {
	if !vm.ZoomRingDragging && vm.signals.ZoomRingAngle != 0 {
		vm.SetZoomRingAngle(decayed(vm.signals.ZoomRingAngle))
	}
	if !vm.TiltRingDragging && vm.signals.TiltRingAngle != 0 {
		vm.SetTiltRingAngle(decayed(vm.signals.TiltRingAngle))
	}
	if !vm.PanJoystickDragging && vm.signals.PointerDistance != 0 {
		vm.SetPointerDistance(decayed(vm.signals.PointerDistance))
	}
}

func decayed(v float64) float64 {
	if math.Abs(v) > core.Epsilon3 {
		return v * DecayFactor
	}
	return 0
}

// handleZoom zooms towards distanceMeasure's minimum. percentage scales the
// minimum zoom distance for oblique views. It reports whether the camera
// moved.
func (vm *ViewModel) handleZoom(distanceMeasure, percentage float64) bool {
	minHeight := vm.MinimumZoomDistance * percentage
	maxHeight := vm.MaximumZoomDistance

	zoomRate := core.Clamp(vm.ZoomFactor*(distanceMeasure-minHeight), MinimumZoomRate, MaximumZoomRate)

	angle := vm.signals.ZoomRingAngle
	var ratio float64
	if a := math.Abs(angle); a > 3 && a < 25 {
		ratio = angle / 1440
	} else {
		ratio = angle / 360
	}
	ratio = math.Min(ratio, vm.MaximumMovementRatio)
	distance := zoomRate * ratio

	// Suppress jitter at the limits.
	if distance > 0 && math.Abs(distanceMeasure-minHeight) <= 1 {
		return false
	}
	if distance < 0 && math.Abs(distanceMeasure-maxHeight) <= 1 {
		return false
	}

	if distanceMeasure-distance < minHeight {
		distance = distanceMeasure - minHeight - 1
	} else if distanceMeasure-distance > maxHeight {
		distance = distanceMeasure - maxHeight
	}

	vm.controller.ZoomIn(distance)
	return true
}

func (vm *ViewModel) zoom2D() bool {
	return vm.handleZoom(vm.controller.Magnitude(), 1)
}

func (vm *ViewModel) pan2D() bool {
	offset, ok := vm.pointerOffset()
	if !ok {
		return false
	}
	start := vm.controller.PickRay(r2.Scale(0.1, offset)).Origin
	end := vm.controller.PickRay(r2.Vec{}).Origin

	vm.controller.MoveRight(start.X - end.X)
	vm.controller.MoveUp(start.Y - end.Y)
	return true
}

// mapPlane is the projected map plane in world coordinates.
var mapPlane = core.Plane{Normal: r3.Vec{X: 1}}

func (vm *ViewModel) zoomCV() bool {
	ray := vm.controller.PickRay(vm.windowCenter())
	denominator := r3.Dot(mapPlane.Normal, ray.Direction)
	if denominator == 0 {
		return false
	}
	distance := -r3.Dot(mapPlane.Normal, ray.Origin) / denominator
	return vm.handleZoom(distance, 1)
}

func (vm *ViewModel) panCV() bool {
	offset, ok := vm.pointerOffset()
	if !ok {
		return false
	}
	start, ok := core.RayPlane(vm.controller.PickRay(r2.Scale(0.1, offset)), mapPlane)
	if !ok {
		return false
	}
	end, ok := core.RayPlane(vm.controller.PickRay(r2.Vec{}), mapPlane)
	if !ok {
		return false
	}

	amount := r3.Norm(r3.Sub(start, end)) / 100
	if amount <= core.Epsilon6 {
		return false
	}
	// Window y grows downwards.
	vm.controller.Move(r3.Vec{X: offset.X, Y: -offset.Y}, amount)
	return true
}

func (vm *ViewModel) zoom3D() bool {
	position := vm.controller.Position()
	c, ok := vm.ellipsoid.CartesianToCartographic(position)
	if !ok {
		return false
	}
	dot := r3.Dot(r3.Unit(position), vm.controller.Direction())
	return vm.handleZoom(c.Height, core.Clamp(math.Abs(dot), 0.25, 1))
}

func (vm *ViewModel) pan3D() bool {
	offset, ok := vm.pointerOffset()
	if !ok {
		return false
	}
	rate := vm.rotateRate(vm.rotateFactor, vm.rotateRateAdjustment)
	deltaPhi := offset.X / 1000 * rate
	deltaTheta := offset.Y / 1000 * rate

	vm.controller.RotateRight(deltaPhi, nil)
	vm.controller.RotateUp(deltaTheta, nil)
	return true
}

func (vm *ViewModel) tilt3D() bool {
	minHeight := vm.MinimumZoomDistance * 0.25
	c, ok := vm.ellipsoid.CartesianToCartographic(vm.controller.Position())
	if !ok {
		return false
	}
	if c.Height-minHeight-1 < core.Epsilon3 && vm.signals.TiltRingAngle < 0 {
		return false
	}

	ray := vm.controller.PickRay(vm.windowCenter())
	center, ok := core.PickEllipsoid(ray, vm.ellipsoid)
	if !ok {
		grazing, ok := core.GrazingAltitudeLocation(ray, vm.ellipsoid)
		if !ok {
			return false
		}
		carto, ok := vm.ellipsoid.CartesianToCartographic(grazing)
		if !ok {
			return false
		}
		carto.Height = 0
		center = vm.ellipsoid.CartographicToCartesian(carto)
	}

	center = vm.controller.WorldToCameraCoordinates(center)
	transform := core.EastNorthUpToFixedFrame(center, vm.ellipsoid)

	angle := minHeight * 0.25 / r3.Norm(r3.Sub(center, vm.controller.Position()))
	// Tilting rotates about a point on the surface, so the rate uses
	// unit-sphere factors.
	vm.rotate3D(transform, r3.Vec{Z: 1}, math.Pi/2-angle, 1, 1)
	return true
}

// rotate3D tilts about transform's origin with vertical rotation constrained
// to axis, then pulls the view back inside restrictedAngle of the axis.
func (vm *ViewModel) rotate3D(transform *core.Transform, axis r3.Vec, restrictedAngle, rotateFactor, rotateRateAdjustment float64) {
	ctrl := vm.controller
	oldAxis, hadAxis := ctrl.ConstrainedAxis()
	ctrl.SetConstrainedAxis(axis)
	defer func() {
		if hadAxis {
			ctrl.SetConstrainedAxis(oldAxis)
		} else {
			ctrl.ClearConstrainedAxis()
		}
	}()

	rate := vm.rotateRate(rotateFactor, rotateRateAdjustment)

	var thetaRatio float64
	if tilt := vm.signals.TiltRingAngle; math.Abs(tilt) > 3 {
		thetaRatio = tilt / 7200
	}
	thetaRatio = math.Min(thetaRatio, vm.MaximumMovementRatio)
	ctrl.RotateUp(-rate*thetaRatio, transform)

	direction := transform.InverseVector(ctrl.DirectionWC())
	angle := math.Acos(core.Clamp(-r3.Dot(direction, axis), -1, 1))
	if angle > restrictedAngle {
		ctrl.RotateUp(-(angle - restrictedAngle), transform)
	}
}

func (vm *ViewModel) rotateRate(factor, adjustment float64) float64 {
	rho := r3.Norm(vm.controller.Position())
	return core.Clamp(factor*(rho-adjustment), MinimumRotateRate, MaximumRotateRate)
}

// pointerOffset converts the pointer signal to a window-space vector (x
// right, y down). It is false while the pointer is within the dead zone.
func (vm *ViewModel) pointerOffset() (r2.Vec, bool) {
	magnitude := vm.signals.PointerDistance
	if magnitude <= 5 {
		return r2.Vec{}, false
	}
	angle := vm.signals.PointerDirection * math.Pi / 180
	return r2.Vec{
		X: snapZero(magnitude * math.Cos(angle)),
		Y: snapZero(magnitude * math.Sin(angle)),
	}, true
}

func (vm *ViewModel) windowCenter() r2.Vec {
	return r2.Vec{X: vm.canvas.ClientWidth() / 2, Y: vm.canvas.ClientHeight() / 2}
}

func snapZero(v float64) float64 {
	if math.Abs(v) < core.Epsilon10 {
		return 0
	}
	return v
}

func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}

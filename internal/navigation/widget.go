package navigation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrNilViewModel is returned when a Widget is built without a view-model.
var ErrNilViewModel = errors.New("navigation: view-model is required")

// Widget layout in its own 200x200 coordinate box (y down).
const (
	WidgetSize = 200.0

	joystickRadius  = 10.0
	northRingInner  = 40.0
	northRingOuter  = 60.0
	ringRadius      = 80.0
	ringPointerSize = 10.0
	ringArcHalfSpan = 60.0

	zoomRingPhase = 180.0
	tiltRingPhase = 0.0
)

var widgetCenter = r2.Vec{X: WidgetSize / 2, Y: WidgetSize / 2}

// EventType is the kind of pointer event.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	PointerLeave
)

// PointerEvent is a mouse or touch event in client coordinates.
type PointerEvent struct {
	Type    EventType
	ClientX float64
	ClientY float64
}

// Rect is the host element's bounding rectangle in client coordinates.
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// Control identifies one virtual control of the widget.
type Control int

const (
	ControlNone Control = iota
	ControlZoomRing
	ControlTiltRing
	ControlNorthRing
	ControlPanJoystick
)

func (c Control) String() string {
	switch c {
	case ControlZoomRing:
		return "zoomRing"
	case ControlTiltRing:
		return "tiltRing"
	case ControlNorthRing:
		return "northRing"
	case ControlPanJoystick:
		return "panJoystick"
	default:
		return "none"
	}
}

// Widget maps pointer events to view-model signals. Each widget tracks its
// own grabbed control, so several widgets can share a screen.
type Widget struct {
	vm      *ViewModel
	rect    Rect
	grabbed Control
}

// NewWidget binds a widget occupying rect to vm.
func NewWidget(vm *ViewModel, rect Rect) (*Widget, error) {
	if vm == nil {
		return nil, ErrNilViewModel
	}
	return &Widget{vm: vm, rect: rect}, nil
}

// SetRect updates the host rectangle, e.g. after a resize.
func (w *Widget) SetRect(rect Rect) { w.rect = rect }

// Grabbed returns the control being dragged, if any.
func (w *Widget) Grabbed() Control { return w.grabbed }

// HandleEvent applies one pointer event. It reports whether the event was
// consumed by a control.
func (w *Widget) HandleEvent(ev PointerEvent) bool {
	p := w.toWidget(ev)
	switch ev.Type {
	case PointerDown:
		return w.pointerDown(p)
	case PointerMove:
		if w.grabbed == ControlNone {
			return false
		}
		if !w.inside(p) {
			w.release()
			return true
		}
		w.drag(p)
		return true
	case PointerUp, PointerLeave:
		grabbed := w.grabbed != ControlNone
		w.release()
		return grabbed
	}
	return false
}

func (w *Widget) pointerDown(p r2.Vec) bool {
	if !w.inside(p) {
		return false
	}
	c := w.controlAt(p)
	if c == ControlNone {
		if !onZoomArc(p) {
			return false
		}
		// A click on the ring steps towards the side clicked.
		if p.Y < w.zoomPointerPosition().Y {
			w.vm.ZoomInCommand()()
		} else {
			w.vm.ZoomOutCommand()()
		}
		return true
	}
	w.grab(c)
	w.drag(p)
	return true
}

func (w *Widget) grab(c Control) {
	w.grabbed = c
	w.setDragging(c, true)
}

func (w *Widget) release() {
	if w.grabbed == ControlNone {
		return
	}
	w.setDragging(w.grabbed, false)
	w.grabbed = ControlNone
}

func (w *Widget) setDragging(c Control, dragging bool) {
	switch c {
	case ControlZoomRing:
		w.vm.ZoomRingDragging = dragging
	case ControlTiltRing:
		w.vm.TiltRingDragging = dragging
	case ControlNorthRing:
		w.vm.NorthRingDragging = dragging
	case ControlPanJoystick:
		w.vm.PanJoystickDragging = dragging
	}
}

// ControlAt reports the control a press at widget point (x, y) would grab.
func (w *Widget) ControlAt(x, y float64) Control {
	return w.controlAt(r2.Vec{X: x, Y: y})
}

// OnRing reports whether widget point (x, y) lies on the outer ring track.
func OnRing(x, y float64) bool {
	return inBand(r2.Vec{X: x, Y: y}, ringRadius-ringPointerSize/2, ringRadius+ringPointerSize/2)
}

func (w *Widget) controlAt(p r2.Vec) Control {
	switch {
	case r2.Norm(r2.Sub(p, w.joystickPosition())) <= joystickRadius:
		return ControlPanJoystick
	case r2.Norm(r2.Sub(p, w.zoomPointerPosition())) <= ringPointerSize:
		return ControlZoomRing
	case r2.Norm(r2.Sub(p, w.tiltPointerPosition())) <= ringPointerSize:
		return ControlTiltRing
	case inBand(p, northRingInner, northRingOuter):
		return ControlNorthRing
	}
	return ControlNone
}

func (w *Widget) drag(p r2.Vec) {
	angle := angleOf(p)
	switch w.grabbed {
	case ControlZoomRing:
		w.vm.SetZoomRingAngle(normalizeDegrees(zoomRingPhase - angle))
	case ControlTiltRing:
		w.vm.SetTiltRingAngle(normalizeDegrees(angle - tiltRingPhase))
	case ControlNorthRing:
		w.vm.SetNorthRingAngle(angle - 90)
	case ControlPanJoystick:
		distance := r2.Norm(r2.Sub(p, widgetCenter))
		w.vm.SetPointerDistance(distance)
		if distance > 0 {
			w.vm.SetPointerDirection(angle)
		}
	}
}

func (w *Widget) toWidget(ev PointerEvent) r2.Vec {
	if w.rect.Width <= 0 || w.rect.Height <= 0 {
		return r2.Vec{X: -1, Y: -1}
	}
	return r2.Vec{
		X: (ev.ClientX - w.rect.Left) / w.rect.Width * WidgetSize,
		Y: (ev.ClientY - w.rect.Top) / w.rect.Height * WidgetSize,
	}
}

func (w *Widget) inside(p r2.Vec) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= WidgetSize && p.Y <= WidgetSize
}

func (w *Widget) joystickPosition() r2.Vec {
	return pointAt(w.vm.PointerDirection(), w.vm.PointerDistance())
}

func (w *Widget) zoomPointerPosition() r2.Vec {
	return pointAt(zoomRingPhase-w.vm.ZoomRingAngle(), ringRadius)
}

func (w *Widget) tiltPointerPosition() r2.Vec {
	return pointAt(tiltRingPhase+w.vm.TiltRingAngle(), ringRadius)
}

// angleOf returns the counter-clockwise angle of p about the widget centre
// in degrees, with zero pointing right.
func angleOf(p r2.Vec) float64 {
	d := r2.Sub(p, widgetCenter)
	return math.Atan2(-d.Y, d.X) * 180 / math.Pi
}

func pointAt(angleDeg, radius float64) r2.Vec {
	a := angleDeg * math.Pi / 180
	return r2.Vec{X: widgetCenter.X + radius*math.Cos(a), Y: widgetCenter.Y - radius*math.Sin(a)}
}

func inBand(p r2.Vec, inner, outer float64) bool {
	r := r2.Norm(r2.Sub(p, widgetCenter))
	return r >= inner && r <= outer
}

func onZoomArc(p r2.Vec) bool {
	if !inBand(p, ringRadius-ringPointerSize, ringRadius+ringPointerSize) {
		return false
	}
	return math.Abs(normalizeDegrees(zoomRingPhase-angleOf(p))) <= ringArcHalfSpan
}

package visualizer

import (
	"math"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/model"
)

// ConeVisualizer draws the cone facet as a conic sensor.
type ConeVisualizer struct {
	*facetVisualizer[*ConicSensor]
}

// NewConeVisualizer binds a cone visualizer to primitives.
func NewConeVisualizer(primitives Primitives, collection EntitySource, opts ...Option) (*ConeVisualizer, error) {
	v, err := newFacetVisualizer("cone", primitives, collection, func() *ConicSensor { return &ConicSensor{} }, drawCone, opts)
	if err != nil {
		return nil, err
	}
	return &ConeVisualizer{v}, nil
}

func drawCone(e *dynamic.Entity, t time.Time, acquire func() *ConicSensor) bool {
	cone := e.Cone
	if cone == nil || !valueOr(cone.Show, t, true) {
		return false
	}
	position, ok := e.Position.ValueAt(t)
	if !ok {
		return false
	}
	orientation, ok := e.Orientation.ValueAt(t)
	if !ok {
		return false
	}

	p := acquire()
	p.ModelMatrix = ModelMatrix(orientation, position)
	p.MinimumClockAngle = valueOr(cone.MinimumClockAngle, t, 0)
	p.MaximumClockAngle = valueOr(cone.MaximumClockAngle, t, model.TwoPi)
	p.InnerHalfAngle = valueOr(cone.InnerHalfAngle, t, 0)
	p.OuterHalfAngle = valueOr(cone.OuterHalfAngle, t, math.Pi)
	p.Radius = valueOr(cone.Radius, t, math.Inf(1))
	p.ShowIntersection = valueOr(cone.ShowIntersection, t, true)
	p.IntersectionColor = valueOr(cone.IntersectionColor, t, model.White)
	p.IntersectionWidth = valueOr(cone.IntersectionWidth, t, 1)
	return true
}

// ModelMatrix places a sensor at position, rotated by the conjugate of
// orientation.
func ModelMatrix(orientation quat.Number, position r3.Vec) *core.Transform {
	rotation := r3.Rotation(quat.Conj(orientation)).Mat()
	return &core.Transform{Rotation: rotation, Translation: position}
}

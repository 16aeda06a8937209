package visualizer

import (
	"time"

	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/model"
)

// PointVisualizer draws the point facet.
type PointVisualizer struct {
	*facetVisualizer[*PointPrimitive]
}

// NewPointVisualizer binds a point visualizer to primitives. collection may
// be nil and set later.
func NewPointVisualizer(primitives Primitives, collection EntitySource, opts ...Option) (*PointVisualizer, error) {
	v, err := newFacetVisualizer("point", primitives, collection, func() *PointPrimitive { return &PointPrimitive{} }, drawPoint, opts)
	if err != nil {
		return nil, err
	}
	return &PointVisualizer{v}, nil
}

func drawPoint(e *dynamic.Entity, t time.Time, acquire func() *PointPrimitive) bool {
	point := e.Point
	if point == nil || !valueOr(point.Show, t, true) {
		return false
	}
	position, ok := e.Position.ValueAt(t)
	if !ok {
		return false
	}
	p := acquire()
	p.Position = position
	p.Color = valueOr(point.Color, t, model.White)
	p.PixelSize = valueOr(point.PixelSize, t, 1)
	p.OutlineColor = valueOr(point.OutlineColor, t, model.Black)
	p.OutlineWidth = valueOr(point.OutlineWidth, t, 0)
	return true
}

func valueOr[T any](p *dynamic.Property[T], t time.Time, fallback T) T {
	if v, ok := p.ValueAt(t); ok {
		return v
	}
	return fallback
}

package visualizer

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/internal/dynamic"
)

// EllipseVisualizer draws the ellipse facet as a closed polyline.
type EllipseVisualizer struct {
	*facetVisualizer[*Polyline]
}

// NewEllipseVisualizer binds an ellipse visualizer to primitives.
func NewEllipseVisualizer(primitives Primitives, collection EntitySource, opts ...Option) (*EllipseVisualizer, error) {
	v, err := newFacetVisualizer("ellipse", primitives, collection, func() *Polyline { return &Polyline{} }, drawEllipse, opts)
	if err != nil {
		return nil, err
	}
	return &EllipseVisualizer{v}, nil
}

func drawEllipse(e *dynamic.Entity, t time.Time, acquire func() *Polyline) bool {
	if e.Ellipse == nil {
		return false
	}
	position, ok := e.Position.ValueAt(t)
	if !ok {
		return false
	}
	vertices := e.Ellipse.Vertices(t, position)
	if len(vertices) == 0 {
		return false
	}
	p := acquire()
	// The facet caches its vertices, so an unchanged slice means unchanged
	// geometry.
	if !sameSlice(p.Positions, vertices) {
		p.Positions = vertices
		p.Revision++
	}
	return true
}

func sameSlice(a, b []r3.Vec) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}

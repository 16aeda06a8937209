// Package visualizer keeps render primitives in step with the entities of a
// collection. Each visualizer handles one facet and owns the primitives it
// adds to a shared Primitives pool.
package visualizer

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/model"
)

// Primitive is a drawable held by a Primitives pool.
type Primitive interface {
	base() *Base
}

// Base carries the fields every primitive shares.
type Base struct {
	// Owner is the entity currently drawn by the primitive, nil while the
	// primitive waits for reuse.
	Owner *dynamic.Entity
	Show  bool
}

func (b *Base) base() *Base { return b }

// OwnerID returns the owning entity's id, or "".
func (b *Base) OwnerID() string {
	if b.Owner == nil {
		return ""
	}
	return b.Owner.ID()
}

// PointPrimitive is a screen-space dot.
type PointPrimitive struct {
	Base
	Position     r3.Vec
	Color        model.Color
	PixelSize    float64
	OutlineColor model.Color
	OutlineWidth float64
}

// LabelPrimitive is a text billboard.
type LabelPrimitive struct {
	Base
	Position         r3.Vec
	Text             string
	Font             string
	Style            model.LabelStyle
	FillColor        model.Color
	OutlineColor     model.Color
	OutlineWidth     float64
	HorizontalOrigin model.HorizontalOrigin
	VerticalOrigin   model.VerticalOrigin
	EyeOffset        r3.Vec
	PixelOffset      model.Cartesian2
	Scale            float64
}

// Polyline is a connected line strip. Revision increments every time
// Positions is reassigned.
type Polyline struct {
	Base
	Positions []r3.Vec
	Revision  int
}

// ConicSensor is a cone volume with clock and half-angle limits.
type ConicSensor struct {
	Base
	ModelMatrix       *core.Transform
	MinimumClockAngle float64
	MaximumClockAngle float64
	InnerHalfAngle    float64
	OuterHalfAngle    float64
	Radius            float64
	ShowIntersection  bool
	IntersectionColor model.Color
	IntersectionWidth float64
}

// Primitives is the scene's primitive collection.
type Primitives interface {
	Add(p Primitive)
	Remove(p Primitive) bool
	Get(i int) Primitive
	Len() int
}

// PrimitiveList is an in-memory Primitives implementation safe for
// concurrent use.
type PrimitiveList struct {
	mu    sync.RWMutex
	items []Primitive
}

// NewPrimitiveList returns an empty list.
func NewPrimitiveList() *PrimitiveList {
	return &PrimitiveList{}
}

func (l *PrimitiveList) Add(p Primitive) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, p)
}

func (l *PrimitiveList) Remove(p Primitive) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, item := range l.items {
		if item == p {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the i-th primitive in insertion order, or nil when out of
// range.
func (l *PrimitiveList) Get(i int) Primitive {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

func (l *PrimitiveList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Shown counts the primitives currently visible.
func (l *PrimitiveList) Shown() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, p := range l.items {
		if p.base().Show {
			n++
		}
	}
	return n
}

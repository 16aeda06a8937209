package visualizer

import (
	"errors"
	"time"

	"github.com/signalsfoundry/globeview/internal/dynamic"
)

// ErrNilPrimitives is returned when a visualizer is built without a
// primitive collection.
var ErrNilPrimitives = errors.New("visualizer: primitive collection is required")

// EntitySource is the entity collection a visualizer reads.
type EntitySource interface {
	Entities() []*dynamic.Entity
}

// MetricsRecorder receives primitive counts after every update.
type MetricsRecorder interface {
	SetPrimitiveCounts(visualizer string, total, shown int)
}

// Visualizer renders one facet of every entity in a collection.
type Visualizer interface {
	Name() string
	Update(t time.Time)
	SetCollection(c EntitySource)
	Collection() EntitySource
	RemoveAllPrimitives()
	Destroy()
	IsDestroyed() bool
}

// Option configures a visualizer.
type Option func(*options)

type options struct {
	metrics MetricsRecorder
}

// WithMetricsRecorder reports primitive counts to m.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// drawFunc resolves the facet of e at t. It calls acquire only once the
// required values are known and returns false when nothing should be drawn.
type drawFunc[P Primitive] func(e *dynamic.Entity, t time.Time, acquire func() P) bool

// facetVisualizer holds the bookkeeping shared by every facet visualizer:
// the entity to primitive assignment and the pool of hidden primitives
// waiting for reuse.
type facetVisualizer[P Primitive] struct {
	name       string
	primitives Primitives
	collection EntitySource
	metrics    MetricsRecorder

	newPrimitive func() P
	draw         drawFunc[P]

	assigned  map[string]P
	order     []string
	unused    []P
	all       []P
	destroyed bool
}

func newFacetVisualizer[P Primitive](name string, primitives Primitives, collection EntitySource, newPrimitive func() P, draw drawFunc[P], opts []Option) (*facetVisualizer[P], error) {
	if primitives == nil {
		return nil, ErrNilPrimitives
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &facetVisualizer[P]{
		name:         name,
		primitives:   primitives,
		collection:   collection,
		metrics:      o.metrics,
		newPrimitive: newPrimitive,
		draw:         draw,
		assigned:     make(map[string]P),
	}, nil
}

func (v *facetVisualizer[P]) Name() string { return v.name }

// Collection returns the entity source, or nil.
func (v *facetVisualizer[P]) Collection() EntitySource { return v.collection }

// Update draws every entity at t. Primitives of entities that lost the
// facet, or left the collection, are hidden and kept for reuse, so the
// number of primitives never shrinks here.
func (v *facetVisualizer[P]) Update(t time.Time) {
	if v.destroyed || v.collection == nil {
		return
	}
	entities := v.collection.Entities()
	present := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		present[e.ID()] = struct{}{}
	}
	// Release departed entities first so newcomers reuse their primitives.
	for _, id := range append([]string(nil), v.order...) {
		if _, ok := present[id]; !ok {
			v.release(id)
		}
	}
	for _, e := range entities {
		var p P
		acquired := false
		acquire := func() P {
			if !acquired {
				p = v.acquire(e)
				acquired = true
			}
			return p
		}
		if v.draw(e, t, acquire) {
			acquire().base().Show = true
		} else {
			v.release(e.ID())
		}
	}
	v.report()
}

func (v *facetVisualizer[P]) acquire(e *dynamic.Entity) P {
	id := e.ID()
	if p, ok := v.assigned[id]; ok {
		p.base().Owner = e
		return p
	}
	var p P
	if n := len(v.unused); n > 0 {
		p = v.unused[n-1]
		v.unused = v.unused[:n-1]
	} else {
		p = v.newPrimitive()
		v.primitives.Add(p)
		v.all = append(v.all, p)
	}
	p.base().Owner = e
	v.assigned[id] = p
	v.order = append(v.order, id)
	return p
}

func (v *facetVisualizer[P]) release(id string) {
	p, ok := v.assigned[id]
	if !ok {
		return
	}
	b := p.base()
	b.Show = false
	b.Owner = nil
	delete(v.assigned, id)
	for i, o := range v.order {
		if o == id {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
	v.unused = append(v.unused, p)
}

// SetCollection switches the entity source. Every primitive is removed from
// the pool.
func (v *facetVisualizer[P]) SetCollection(c EntitySource) {
	if v.collection == c {
		return
	}
	v.RemoveAllPrimitives()
	v.collection = c
}

// RemoveAllPrimitives removes the visualizer's primitives from the pool and
// forgets every assignment.
func (v *facetVisualizer[P]) RemoveAllPrimitives() {
	for _, p := range v.all {
		v.primitives.Remove(p)
	}
	v.all = nil
	v.unused = nil
	v.order = nil
	v.assigned = make(map[string]P)
	v.report()
}

// Destroy removes all primitives. Later calls do nothing.
func (v *facetVisualizer[P]) Destroy() {
	if v.destroyed {
		return
	}
	v.RemoveAllPrimitives()
	v.destroyed = true
}

func (v *facetVisualizer[P]) IsDestroyed() bool { return v.destroyed }

func (v *facetVisualizer[P]) report() {
	if v.metrics == nil {
		return
	}
	shown := 0
	for _, p := range v.all {
		if p.base().Show {
			shown++
		}
	}
	v.metrics.SetPrimitiveCounts(v.name, len(v.all), shown)
}

package kb

import (
	"sync"

	"github.com/signalsfoundry/globeview/internal/dynamic"
)

// Composite flattens several layered collections into one target
// collection. Layers earlier in the list take priority: their properties
// win when more than one layer defines the same attribute.
type Composite struct {
	mu     sync.Mutex
	target *EntityCollection
	layers []*EntityCollection
}

// NewComposite builds a composite writing into target.
func NewComposite(target *EntityCollection, layers ...*EntityCollection) *Composite {
	if target == nil {
		target = NewEntityCollection()
	}
	return &Composite{target: target, layers: layers}
}

// Target returns the flattened collection.
func (c *Composite) Target() *EntityCollection { return c.target }

// SetLayers replaces the layer list. Call Recompose to apply it.
func (c *Composite) SetLayers(layers ...*EntityCollection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers = layers
}

// Recompose rebuilds every target entity from the layers. Target entities
// that no layer defines any more are removed.
func (c *Composite) Recompose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var ids []string
	for _, layer := range c.layers {
		for _, e := range layer.Entities() {
			if !seen[e.ID()] {
				seen[e.ID()] = true
				ids = append(ids, e.ID())
			}
		}
	}

	for _, e := range c.target.Entities() {
		if !seen[e.ID()] {
			_ = c.target.Remove(e.ID())
		}
	}

	for _, id := range ids {
		merged := c.target.GetOrCreate(id)
		dynamic.ClearFacets(merged)
		for _, layer := range c.layers {
			if src := layer.Get(id); src != nil {
				dynamic.MergeFrom(merged, src)
			}
		}
	}
}

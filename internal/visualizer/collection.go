package visualizer

import "time"

// Collection fans calls out to a fixed list of visualizers.
type Collection struct {
	visualizers []Visualizer
	collection  EntitySource
}

// NewCollection groups visualizers. Each one is switched to collection.
func NewCollection(collection EntitySource, visualizers ...Visualizer) *Collection {
	c := &Collection{visualizers: visualizers}
	c.SetCollection(collection)
	return c
}

// NewStandardCollection builds the point, label, ellipse and cone
// visualizers over one primitive pool.
func NewStandardCollection(primitives Primitives, collection EntitySource, opts ...Option) (*Collection, error) {
	point, err := NewPointVisualizer(primitives, collection, opts...)
	if err != nil {
		return nil, err
	}
	label, err := NewLabelVisualizer(primitives, collection, opts...)
	if err != nil {
		return nil, err
	}
	ellipse, err := NewEllipseVisualizer(primitives, collection, opts...)
	if err != nil {
		return nil, err
	}
	cone, err := NewConeVisualizer(primitives, collection, opts...)
	if err != nil {
		return nil, err
	}
	return NewCollection(collection, point, label, ellipse, cone), nil
}

// Visualizers returns the grouped visualizers.
func (c *Collection) Visualizers() []Visualizer {
	return append([]Visualizer(nil), c.visualizers...)
}

// Collection returns the entity source shared by the visualizers.
func (c *Collection) Collection() EntitySource { return c.collection }

// SetCollection switches every visualizer to collection.
func (c *Collection) SetCollection(collection EntitySource) {
	c.collection = collection
	for _, v := range c.visualizers {
		v.SetCollection(collection)
	}
}

// Update draws every visualizer at t.
func (c *Collection) Update(t time.Time) {
	for _, v := range c.visualizers {
		v.Update(t)
	}
}

// RemoveAllPrimitives removes every visualizer's primitives.
func (c *Collection) RemoveAllPrimitives() {
	for _, v := range c.visualizers {
		v.RemoveAllPrimitives()
	}
}

// Destroy destroys every visualizer.
func (c *Collection) Destroy() {
	for _, v := range c.visualizers {
		v.Destroy()
	}
}

package visualizer

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/model"
)

// DefaultFont is used when a label has no font property.
const DefaultFont = "30px sans-serif"

// LabelVisualizer draws the label facet.
type LabelVisualizer struct {
	*facetVisualizer[*LabelPrimitive]
}

// NewLabelVisualizer binds a label visualizer to primitives.
func NewLabelVisualizer(primitives Primitives, collection EntitySource, opts ...Option) (*LabelVisualizer, error) {
	v, err := newFacetVisualizer("label", primitives, collection, func() *LabelPrimitive { return &LabelPrimitive{} }, drawLabel, opts)
	if err != nil {
		return nil, err
	}
	return &LabelVisualizer{v}, nil
}

func drawLabel(e *dynamic.Entity, t time.Time, acquire func() *LabelPrimitive) bool {
	label := e.Label
	if label == nil || !valueOr(label.Show, t, true) {
		return false
	}
	position, ok := e.Position.ValueAt(t)
	if !ok {
		return false
	}
	text, ok := label.Text.ValueAt(t)
	if !ok {
		return false
	}

	p := acquire()
	p.Position = position
	p.Text = text
	p.Font = valueOr(label.Font, t, DefaultFont)
	p.Style = valueOr(label.Style, t, model.LabelFill)
	p.FillColor = valueOr(label.FillColor, t, model.White)
	p.OutlineColor = valueOr(label.OutlineColor, t, model.Black)
	p.OutlineWidth = valueOr(label.OutlineWidth, t, 1)
	p.HorizontalOrigin = valueOr(label.HorizontalOrigin, t, model.HorizontalLeft)
	p.VerticalOrigin = valueOr(label.VerticalOrigin, t, model.VerticalBottom)
	p.EyeOffset = valueOr(label.EyeOffset, t, r3.Vec{})
	p.PixelOffset = valueOr(label.PixelOffset, t, model.Cartesian2{})
	p.Scale = valueOr(label.Scale, t, 1)
	return true
}

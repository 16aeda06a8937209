package dynamic

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/model"
)

// Label is text anchored at the entity position.
type Label struct {
	Text             *Property[string]
	Font             *Property[string]
	Style            *Property[model.LabelStyle]
	FillColor        *Property[model.Color]
	OutlineColor     *Property[model.Color]
	OutlineWidth     *Property[float64]
	HorizontalOrigin *Property[model.HorizontalOrigin]
	VerticalOrigin   *Property[model.VerticalOrigin]
	EyeOffset        *Property[r3.Vec]
	PixelOffset      *Property[model.Cartesian2]
	Scale            *Property[float64]
	Show             *Property[bool]
}

func (l *Label) properties() []Spanner {
	var out []Spanner
	out = appendSpanner(out, l.Text)
	out = appendSpanner(out, l.Font)
	out = appendSpanner(out, l.Style)
	out = appendSpanner(out, l.FillColor)
	out = appendSpanner(out, l.OutlineColor)
	out = appendSpanner(out, l.OutlineWidth)
	out = appendSpanner(out, l.HorizontalOrigin)
	out = appendSpanner(out, l.VerticalOrigin)
	out = appendSpanner(out, l.EyeOffset)
	out = appendSpanner(out, l.PixelOffset)
	out = appendSpanner(out, l.Scale)
	out = appendSpanner(out, l.Show)
	return out
}

func processLabel(e *Entity, packet Packet, parse IntervalParser) (bool, error) {
	m, ok, err := beginFacet(packet, "label", parse)
	if !ok {
		return false, err
	}
	label := e.Label
	if label == nil {
		label = &Label{}
		m.updated = true
	}

	field(m, &label.Text, String, "text")
	field(m, &label.Font, String, "font")
	field(m, &label.Style, LabelStyle, "style")
	field(m, &label.FillColor, Color, "fillColor")
	field(m, &label.OutlineColor, Color, "outlineColor")
	field(m, &label.OutlineWidth, Number, "outlineWidth")
	field(m, &label.HorizontalOrigin, HorizontalOrigin, "horizontalOrigin")
	field(m, &label.VerticalOrigin, VerticalOrigin, "verticalOrigin")
	field(m, &label.EyeOffset, Cartesian3, "eyeOffset")
	field(m, &label.PixelOffset, Cartesian2, "pixelOffset")
	field(m, &label.Scale, Number, "scale")
	field(m, &label.Show, Boolean, "show")

	e.Label = label
	return m.result()
}

func mergeLabel(target, source *Entity) {
	src := source.Label
	if src == nil {
		return
	}
	if target.Label == nil {
		target.Label = &Label{}
	}
	dst := target.Label
	firstWins(&dst.Text, src.Text)
	firstWins(&dst.Font, src.Font)
	firstWins(&dst.Style, src.Style)
	firstWins(&dst.FillColor, src.FillColor)
	firstWins(&dst.OutlineColor, src.OutlineColor)
	firstWins(&dst.OutlineWidth, src.OutlineWidth)
	firstWins(&dst.HorizontalOrigin, src.HorizontalOrigin)
	firstWins(&dst.VerticalOrigin, src.VerticalOrigin)
	firstWins(&dst.EyeOffset, src.EyeOffset)
	firstWins(&dst.PixelOffset, src.PixelOffset)
	firstWins(&dst.Scale, src.Scale)
	firstWins(&dst.Show, src.Show)
}

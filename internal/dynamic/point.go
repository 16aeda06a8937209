package dynamic

import "github.com/signalsfoundry/globeview/model"

// Point is a screen-space dot drawn at the entity position.
type Point struct {
	Color        *Property[model.Color]
	PixelSize    *Property[float64]
	OutlineColor *Property[model.Color]
	OutlineWidth *Property[float64]
	Show         *Property[bool]
}

func (p *Point) properties() []Spanner {
	var out []Spanner
	out = appendSpanner(out, p.Color)
	out = appendSpanner(out, p.PixelSize)
	out = appendSpanner(out, p.OutlineColor)
	out = appendSpanner(out, p.OutlineWidth)
	out = appendSpanner(out, p.Show)
	return out
}

func processPoint(e *Entity, packet Packet, parse IntervalParser) (bool, error) {
	m, ok, err := beginFacet(packet, "point", parse)
	if !ok {
		return false, err
	}
	point := e.Point
	if point == nil {
		point = &Point{}
		m.updated = true
	}

	field(m, &point.Color, Color, "color")
	field(m, &point.PixelSize, Number, "pixelSize")
	field(m, &point.OutlineColor, Color, "outlineColor")
	field(m, &point.OutlineWidth, Number, "outlineWidth")
	field(m, &point.Show, Boolean, "show")

	e.Point = point
	return m.result()
}

func mergePoint(target, source *Entity) {
	src := source.Point
	if src == nil {
		return
	}
	if target.Point == nil {
		target.Point = &Point{}
	}
	dst := target.Point
	firstWins(&dst.Color, src.Color)
	firstWins(&dst.PixelSize, src.PixelSize)
	firstWins(&dst.OutlineColor, src.OutlineColor)
	firstWins(&dst.OutlineWidth, src.OutlineWidth)
	firstWins(&dst.Show, src.Show)
}

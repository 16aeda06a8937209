package dynamic

import "github.com/signalsfoundry/globeview/model"

// Cone is a sensor volume anchored at the entity position and oriented by
// the entity orientation. Angles are in radians.
type Cone struct {
	MinimumClockAngle *Property[float64]
	MaximumClockAngle *Property[float64]
	InnerHalfAngle    *Property[float64]
	OuterHalfAngle    *Property[float64]
	Radius            *Property[float64]
	Show              *Property[bool]
	ShowIntersection  *Property[bool]
	IntersectionColor *Property[model.Color]
	IntersectionWidth *Property[float64]
}

func (c *Cone) properties() []Spanner {
	var out []Spanner
	out = appendSpanner(out, c.MinimumClockAngle)
	out = appendSpanner(out, c.MaximumClockAngle)
	out = appendSpanner(out, c.InnerHalfAngle)
	out = appendSpanner(out, c.OuterHalfAngle)
	out = appendSpanner(out, c.Radius)
	out = appendSpanner(out, c.Show)
	out = appendSpanner(out, c.ShowIntersection)
	out = appendSpanner(out, c.IntersectionColor)
	out = appendSpanner(out, c.IntersectionWidth)
	return out
}

func processCone(e *Entity, packet Packet, parse IntervalParser) (bool, error) {
	m, ok, err := beginFacet(packet, "cone", parse)
	if !ok {
		return false, err
	}
	cone := e.Cone
	if cone == nil {
		cone = &Cone{}
		m.updated = true
	}

	field(m, &cone.MinimumClockAngle, Number, "minimumClockAngle")
	field(m, &cone.MaximumClockAngle, Number, "maximumClockAngle")
	field(m, &cone.InnerHalfAngle, Number, "innerHalfAngle")
	field(m, &cone.OuterHalfAngle, Number, "outerHalfAngle")
	field(m, &cone.Radius, Number, "radius")
	field(m, &cone.Show, Boolean, "show")
	field(m, &cone.ShowIntersection, Boolean, "showIntersection")
	field(m, &cone.IntersectionColor, Color, "intersectionColor")
	field(m, &cone.IntersectionWidth, Number, "intersectionWidth")

	e.Cone = cone
	return m.result()
}

func mergeCone(target, source *Entity) {
	src := source.Cone
	if src == nil {
		return
	}
	if target.Cone == nil {
		target.Cone = &Cone{}
	}
	dst := target.Cone
	firstWins(&dst.MinimumClockAngle, src.MinimumClockAngle)
	firstWins(&dst.MaximumClockAngle, src.MaximumClockAngle)
	firstWins(&dst.InnerHalfAngle, src.InnerHalfAngle)
	firstWins(&dst.OuterHalfAngle, src.OuterHalfAngle)
	firstWins(&dst.Radius, src.Radius)
	firstWins(&dst.Show, src.Show)
	firstWins(&dst.ShowIntersection, src.ShowIntersection)
	firstWins(&dst.IntersectionColor, src.IntersectionColor)
	firstWins(&dst.IntersectionWidth, src.IntersectionWidth)
}

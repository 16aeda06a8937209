package sceneapi

import (
	"time"

	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/model"
)

// Snapshot renders e's values at t as plain JSON-compatible data. Facets
// and properties without a value at t are omitted.
func Snapshot(e *dynamic.Entity, t time.Time) map[string]any {
	out := map[string]any{
		"id":   e.ID(),
		"time": model.FormatTime(t),
	}
	if span, ok := e.Availability(); ok && !span.IsInfinite() {
		out["availability"] = span.String()
	}
	if e.Position != nil {
		if p, ok := e.Position.ValueAt(t); ok {
			out["position"] = []any{p.X, p.Y, p.Z}
		}
	}
	if e.Orientation != nil {
		if q, ok := e.Orientation.ValueAt(t); ok {
			out["orientation"] = []any{q.Imag, q.Jmag, q.Kmag, q.Real}
		}
	}

	if e.Point != nil {
		f := facet{}
		f.color("color", e.Point.Color, t)
		f.float("pixelSize", e.Point.PixelSize, t)
		f.color("outlineColor", e.Point.OutlineColor, t)
		f.float("outlineWidth", e.Point.OutlineWidth, t)
		f.bool("show", e.Point.Show, t)
		out["point"] = map[string]any(f)
	}
	if e.Label != nil {
		f := facet{}
		if e.Label.Text != nil {
			if v, ok := e.Label.Text.ValueAt(t); ok {
				f["text"] = v
			}
		}
		f.color("fillColor", e.Label.FillColor, t)
		f.float("scale", e.Label.Scale, t)
		f.bool("show", e.Label.Show, t)
		out["label"] = map[string]any(f)
	}
	if e.Ellipse != nil {
		f := facet{}
		f.float("semiMajorAxis", e.Ellipse.SemiMajorAxis, t)
		f.float("semiMinorAxis", e.Ellipse.SemiMinorAxis, t)
		f.float("bearing", e.Ellipse.Bearing, t)
		out["ellipse"] = map[string]any(f)
	}
	if e.Cone != nil {
		f := facet{}
		f.float("innerHalfAngle", e.Cone.InnerHalfAngle, t)
		f.float("outerHalfAngle", e.Cone.OuterHalfAngle, t)
		f.float("minimumClockAngle", e.Cone.MinimumClockAngle, t)
		f.float("maximumClockAngle", e.Cone.MaximumClockAngle, t)
		f.float("radius", e.Cone.Radius, t)
		f.bool("show", e.Cone.Show, t)
		f.bool("showIntersection", e.Cone.ShowIntersection, t)
		f.color("intersectionColor", e.Cone.IntersectionColor, t)
		out["cone"] = map[string]any(f)
	}
	return out
}

type facet map[string]any

func (f facet) float(key string, p *dynamic.Property[float64], t time.Time) {
	if p == nil {
		return
	}
	if v, ok := p.ValueAt(t); ok {
		f[key] = v
	}
}

func (f facet) bool(key string, p *dynamic.Property[bool], t time.Time) {
	if p == nil {
		return
	}
	if v, ok := p.ValueAt(t); ok {
		f[key] = v
	}
}

func (f facet) color(key string, p *dynamic.Property[model.Color], t time.Time) {
	if p == nil {
		return
	}
	if c, ok := p.ValueAt(t); ok {
		f[key] = []any{c.Red, c.Green, c.Blue, c.Alpha}
	}
}

package dynamic

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/model"
)

func TestProcessPacketCreatesPointFacet(t *testing.T) {
	e := NewEntity("sat-1")
	packet := Packet{
		"id": "sat-1",
		"point": map[string]any{
			"color":        map[string]any{"rgbaf": []any{1.0, 0.0, 0.0, 1.0}},
			"pixelSize":    map[string]any{"number": 8.0},
			"outlineColor": map[string]any{"rgba": []any{0.0, 0.0, 255.0, 255.0}},
			"outlineWidth": 2.0,
			"show":         true,
			"unknownThing": "ignored",
		},
	}
	updated, err := ProcessPacket(e, packet)
	if err != nil {
		t.Fatalf("ProcessPacket: %v", err)
	}
	if !updated {
		t.Fatalf("first packet should report an update")
	}
	if e.Point == nil || e.Point.Color == nil || e.Point.PixelSize == nil || e.Point.Show == nil {
		t.Fatalf("point facet not populated: %+v", e.Point)
	}
	if c, _ := e.Point.Color.ValueAt(epoch); c != (model.Color{Red: 1, Alpha: 1}) {
		t.Fatalf("color = %+v", c)
	}
	if w, _ := e.Point.OutlineWidth.ValueAt(epoch); w != 2 {
		t.Fatalf("outlineWidth = %v", w)
	}

	// Merging the same attributes again changes values but creates nothing.
	packet["point"] = map[string]any{"pixelSize": 12.0}
	updated, err = ProcessPacket(e, packet)
	if err != nil {
		t.Fatalf("ProcessPacket: %v", err)
	}
	if updated {
		t.Fatalf("re-merging existing properties should not report an update")
	}
	if v, _ := e.Point.PixelSize.ValueAt(epoch); v != 12 {
		t.Fatalf("pixelSize = %v", v)
	}
}

func TestProcessPacketIgnoresUnrelatedPackets(t *testing.T) {
	e := NewEntity("x")
	updated, err := ProcessPacket(e, Packet{"id": "x", "billboard": map[string]any{"image": "a.png"}})
	if err != nil || updated {
		t.Fatalf("ProcessPacket = %v,%v want false,nil", updated, err)
	}
	if e.Point != nil || e.Label != nil || e.Ellipse != nil || e.Cone != nil {
		t.Fatalf("no facet should have been created")
	}
}

func TestProcessPacketLabelWithInterval(t *testing.T) {
	e := NewEntity("gs")
	packet := Packet{
		"label": map[string]any{
			"interval":         "2012-03-15T10:00:00Z/2012-03-15T11:00:00Z",
			"text":             "Ground station",
			"font":             "12pt sans-serif",
			"style":            "FILL_AND_OUTLINE",
			"fillColor":        map[string]any{"rgbaf": []any{1.0, 1.0, 1.0, 1.0}},
			"horizontalOrigin": "LEFT",
			"verticalOrigin":   "TOP",
			"pixelOffset":      map[string]any{"cartesian2": []any{5.0, -4.0}},
			"eyeOffset":        map[string]any{"cartesian": []any{0.0, 0.0, -10.0}},
			"scale":            1.5,
			"show":             true,
		},
	}
	if _, err := ProcessPacket(e, packet); err != nil {
		t.Fatalf("ProcessPacket: %v", err)
	}
	l := e.Label
	if text, ok := l.Text.ValueAt(at(60)); !ok || text != "Ground station" {
		t.Fatalf("text = %q,%v", text, ok)
	}
	if _, ok := l.Text.ValueAt(at(7200)); ok {
		t.Fatalf("text should be undefined outside the packet interval")
	}
	if s, _ := l.Style.ValueAt(at(1)); s != model.LabelFillAndOutline {
		t.Fatalf("style = %v", s)
	}
	if h, _ := l.HorizontalOrigin.ValueAt(at(1)); h != model.HorizontalLeft {
		t.Fatalf("horizontalOrigin = %v", h)
	}
	if v, _ := l.VerticalOrigin.ValueAt(at(1)); v != model.VerticalTop {
		t.Fatalf("verticalOrigin = %v", v)
	}
	if p, _ := l.PixelOffset.ValueAt(at(1)); p != (model.Cartesian2{X: 5, Y: -4}) {
		t.Fatalf("pixelOffset = %v", p)
	}
	if o, _ := l.EyeOffset.ValueAt(at(1)); o != (r3.Vec{Z: -10}) {
		t.Fatalf("eyeOffset = %v", o)
	}
}

func TestProcessPacketBadFacetIntervalReportsError(t *testing.T) {
	e := NewEntity("bad")
	packet := Packet{
		"ellipse": map[string]any{"interval": "not-an-interval", "semiMajorAxis": 10.0},
		"point":   map[string]any{"pixelSize": 3.0},
	}
	updated, err := ProcessPacket(e, packet)
	if !errors.Is(err, model.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if e.Ellipse != nil {
		t.Fatalf("facet with bad interval should not be created")
	}
	if !updated || e.Point == nil {
		t.Fatalf("other facets in the packet should still apply")
	}
}

func TestProcessPacketFailedPropertyIsNotAttached(t *testing.T) {
	e := NewEntity("c")
	_, err := ProcessPacket(e, Packet{"cone": map[string]any{"radius": "far", "outerHalfAngle": 0.5}})
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
	if e.Cone == nil || e.Cone.Radius != nil || e.Cone.OuterHalfAngle == nil {
		t.Fatalf("unexpected cone state %+v", e.Cone)
	}
}

func TestProcessPacketPositionAndOrientation(t *testing.T) {
	e := NewEntity("sat")
	packet := Packet{
		"position": map[string]any{
			"epoch":     "2012-03-15T10:00:00Z",
			"cartesian": []any{0.0, 7000e3, 0.0, 0.0, 60.0, 0.0, 7000e3, 0.0},
		},
		"orientation": map[string]any{"unitQuaternion": []any{0.0, 0.0, 0.0, 2.0}},
	}
	if _, err := ProcessPacket(e, packet); err != nil {
		t.Fatalf("ProcessPacket: %v", err)
	}
	mid, ok := e.Position.ValueAt(at(30))
	if !ok || mid != (r3.Vec{X: 3500e3, Y: 3500e3}) {
		t.Fatalf("position at 30s = %v,%v", mid, ok)
	}
	q, _ := e.Orientation.ValueAt(epoch)
	if q.Real != 1 {
		t.Fatalf("orientation should be normalised, got %v", q)
	}
}

func TestMergeFromFirstWins(t *testing.T) {
	target := NewEntity("a")
	source := NewEntity("a")
	if _, err := ProcessPacket(target, Packet{"point": map[string]any{"pixelSize": 1.0}}); err != nil {
		t.Fatalf("ProcessPacket: %v", err)
	}
	if _, err := ProcessPacket(source, Packet{
		"point":    map[string]any{"pixelSize": 2.0, "show": false},
		"label":    map[string]any{"text": "from source"},
		"position": map[string]any{"cartesian": []any{1.0, 2.0, 3.0}},
	}); err != nil {
		t.Fatalf("ProcessPacket: %v", err)
	}

	MergeFrom(target, source)

	if v, _ := target.Point.PixelSize.ValueAt(epoch); v != 1 {
		t.Fatalf("existing property should win, got %v", v)
	}
	if target.Point.Show != source.Point.Show {
		t.Fatalf("missing property should be copied by reference")
	}
	if target.Label == nil || target.Label.Text != source.Label.Text {
		t.Fatalf("missing facet should be copied")
	}
	if target.Label == source.Label {
		t.Fatalf("facet aggregate should not be aliased")
	}
	if target.Position != source.Position {
		t.Fatalf("position should be copied by reference")
	}
}

func TestClearFacets(t *testing.T) {
	e := NewEntity("a")
	_, _ = ProcessPacket(e, Packet{
		"point":   map[string]any{"pixelSize": 1.0},
		"ellipse": map[string]any{"semiMajorAxis": 1.0},
	})
	for _, h := range Facets {
		if h.Name == "point" {
			h.Clear(e)
		}
	}
	if e.Point != nil || e.Ellipse == nil {
		t.Fatalf("only the point facet should be cleared")
	}
	ClearFacets(e)
	if e.Ellipse != nil || len(e.Properties()) != 0 {
		t.Fatalf("ClearFacets should detach everything")
	}
}

func TestEntityAvailability(t *testing.T) {
	e := NewEntity("a")
	if _, ok := e.Availability(); ok {
		t.Fatalf("entity without properties has no availability")
	}
	_, _ = ProcessPacket(e, Packet{
		"point": map[string]any{
			"interval":  "2012-03-15T10:00:00Z/2012-03-15T12:00:00Z",
			"pixelSize": 1.0,
		},
		"label": map[string]any{
			"interval": "2012-03-15T11:00:00Z/2012-03-15T13:00:00Z",
			"text":     "x",
		},
	})
	got, ok := e.Availability()
	if !ok {
		t.Fatalf("expected availability")
	}
	want := model.NewInterval(at(3600), at(7200))
	if !got.Equal(want) {
		t.Fatalf("Availability = %v want %v", got, want)
	}
}

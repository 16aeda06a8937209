package dynamic

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/model"
)

// Packet is one parsed unit of scene-description data.
type Packet map[string]any

// ID returns the packet's "id" field, if it is text.
func (p Packet) ID() (string, bool) {
	id, ok := p["id"].(string)
	return id, ok && id != ""
}

// Entity is a uniquely identified scene object. Each facet slot is nil
// until a packet first references it.
type Entity struct {
	id string

	Position    *Property[r3.Vec]
	Orientation *Property[quat.Number]

	Point   *Point
	Label   *Label
	Ellipse *Ellipse
	Cone    *Cone
}

// NewEntity creates an entity with no facets.
func NewEntity(id string) *Entity {
	return &Entity{id: id}
}

// ID returns the immutable identifier.
func (e *Entity) ID() string { return e.id }

// Properties returns every time-indexed property the entity owns.
func (e *Entity) Properties() []Spanner {
	var out []Spanner
	out = appendSpanner(out, e.Position)
	out = appendSpanner(out, e.Orientation)
	if e.Point != nil {
		out = append(out, e.Point.properties()...)
	}
	if e.Label != nil {
		out = append(out, e.Label.properties()...)
	}
	if e.Ellipse != nil {
		out = append(out, e.Ellipse.properties()...)
	}
	if e.Cone != nil {
		out = append(out, e.Cone.properties()...)
	}
	return out
}

// Availability returns the intersection of the spans of every property.
// The boolean is false when the entity has no properties or the spans do
// not overlap.
func (e *Entity) Availability() (model.TimeInterval, bool) {
	props := e.Properties()
	if len(props) == 0 {
		return model.TimeInterval{}, false
	}
	out := model.Infinite
	for _, p := range props {
		span, ok := p.Span()
		if !ok {
			continue
		}
		overlap, ok := out.Intersect(span)
		if !ok {
			return model.TimeInterval{}, false
		}
		out = overlap
	}
	return out, true
}

// FacetHandler bundles the packet, merge and clear operations of one facet.
type FacetHandler struct {
	Name    string
	Process func(e *Entity, packet Packet, parse IntervalParser) (bool, error)
	Merge   func(target, source *Entity)
	Clear   func(e *Entity)
}

// Facets lists the handlers applied to every packet, in order.
var Facets = []FacetHandler{
	{Name: "position", Process: processPosition, Merge: mergePosition, Clear: func(e *Entity) { e.Position = nil }},
	{Name: "orientation", Process: processOrientation, Merge: mergeOrientation, Clear: func(e *Entity) { e.Orientation = nil }},
	{Name: "point", Process: processPoint, Merge: mergePoint, Clear: func(e *Entity) { e.Point = nil }},
	{Name: "label", Process: processLabel, Merge: mergeLabel, Clear: func(e *Entity) { e.Label = nil }},
	{Name: "ellipse", Process: processEllipse, Merge: mergeEllipse, Clear: func(e *Entity) { e.Ellipse = nil }},
	{Name: "cone", Process: processCone, Merge: mergeCone, Clear: func(e *Entity) { e.Cone = nil }},
}

// ProcessPacket merges every recognised facet of packet into e. It reports
// whether any facet or property was newly created. Facets that fail to
// merge are reported together; the others are still applied.
func ProcessPacket(e *Entity, packet Packet) (bool, error) {
	return ProcessPacketWith(e, packet, model.ParseInterval)
}

// ProcessPacketWith is ProcessPacket with a caller-supplied interval parser.
func ProcessPacketWith(e *Entity, packet Packet, parse IntervalParser) (bool, error) {
	if parse == nil {
		parse = model.ParseInterval
	}
	updated := false
	var errs []error
	for _, h := range Facets {
		u, err := h.Process(e, packet, parse)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
		}
		updated = updated || u
	}
	return updated, errors.Join(errs...)
}

// MergeFrom copies into target every facet or property that source has and
// target lacks. Properties are shared by reference; existing ones win.
func MergeFrom(target, source *Entity) {
	if target == nil || source == nil {
		return
	}
	for _, h := range Facets {
		h.Merge(target, source)
	}
}

// ClearFacets detaches every facet and entity-level property from e.
func ClearFacets(e *Entity) {
	for _, h := range Facets {
		h.Clear(e)
	}
}

func processPosition(e *Entity, packet Packet, parse IntervalParser) (bool, error) {
	return mergeProperty(&e.Position, Cartesian3, packet["position"], nil, parse)
}

func processOrientation(e *Entity, packet Packet, parse IntervalParser) (bool, error) {
	return mergeProperty(&e.Orientation, UnitQuaternion, packet["orientation"], nil, parse)
}

func mergePosition(target, source *Entity) { firstWins(&target.Position, source.Position) }

func mergeOrientation(target, source *Entity) { firstWins(&target.Orientation, source.Orientation) }

// mergeProperty creates *target on first use and merges raw into it. A
// property is only attached once its first merge succeeded.
func mergeProperty[T any](target **Property[T], codec *Codec[T], raw any, interval *model.TimeInterval, parse IntervalParser) (bool, error) {
	if raw == nil {
		return false, nil
	}
	if *target != nil {
		return false, (*target).merge(raw, interval, parse)
	}
	prop := NewProperty(codec)
	if err := prop.merge(raw, interval, parse); err != nil {
		return false, err
	}
	*target = prop
	return true, nil
}

func firstWins[T any](dst **Property[T], src *Property[T]) {
	if *dst == nil && src != nil {
		*dst = src
	}
}

func appendSpanner[T any](out []Spanner, p *Property[T]) []Spanner {
	if p == nil {
		return out
	}
	return append(out, p)
}

// facetMerge accumulates the outcome of merging one facet's attributes.
type facetMerge struct {
	data     map[string]any
	interval *model.TimeInterval
	parse    IntervalParser
	updated  bool
	errs     []error
}

// beginFacet extracts the facet sub-object and its interval. ok is false
// when the packet does not mention the facet.
func beginFacet(packet Packet, name string, parse IntervalParser) (*facetMerge, bool, error) {
	data, ok := packet[name].(map[string]any)
	if !ok {
		return nil, false, nil
	}
	m := &facetMerge{data: data, parse: parse}
	if raw, present := data["interval"]; present {
		text, ok := raw.(string)
		if !ok {
			return nil, false, fmt.Errorf("interval %v is not text: %w", raw, ErrInvalidValue)
		}
		iv, err := parse(text)
		if err != nil {
			return nil, false, err
		}
		m.interval = &iv
	}
	return m, true, nil
}

func field[T any](m *facetMerge, target **Property[T], codec *Codec[T], key string) {
	created, err := mergeProperty(target, codec, m.data[key], m.interval, m.parse)
	if err != nil {
		m.errs = append(m.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	m.updated = m.updated || created
}

func (m *facetMerge) result() (bool, error) {
	return m.updated, errors.Join(m.errs...)
}

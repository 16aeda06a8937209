package dynamic

import (
	"fmt"
	"sort"
	"time"

	"github.com/signalsfoundry/globeview/model"
)

// IntervalParser turns ISO-8601 "start/stop" text into an interval.
type IntervalParser func(string) (model.TimeInterval, error)

// Spanner reports the time span over which a value is defined.
type Spanner interface {
	Span() (model.TimeInterval, bool)
}

type payload[T any] struct {
	sampled bool
	value   T
	times   []time.Time
	values  []T
}

// Property is a value that may vary over time. It holds an optional global
// constant and a set of non-overlapping intervals, each carrying either a
// constant or a sampled series.
type Property[T any] struct {
	codec     *Codec[T]
	constant  T
	hasConst  bool
	intervals model.IntervalCollection[payload[T]]
}

// NewProperty returns an empty property decoding values with codec.
func NewProperty[T any](codec *Codec[T]) *Property[T] {
	return &Property[T]{codec: codec}
}

// Merge adds raw packet data to the property, scoped to interval when it is
// non-nil. Items are decoded before anything is stored, so a failed merge
// leaves the property untouched.
func (p *Property[T]) Merge(raw any, interval *model.TimeInterval) error {
	return p.merge(raw, interval, model.ParseInterval)
}

type pendingUpdate[T any] struct {
	interval *model.TimeInterval
	data     payload[T]
}

func (p *Property[T]) merge(raw any, interval *model.TimeInterval, parse IntervalParser) error {
	items := []any{raw}
	if arr, ok := raw.([]any); ok && isIntervalList(arr) {
		items = arr
	}

	updates := make([]pendingUpdate[T], 0, len(items))
	for _, item := range items {
		scope := interval
		if m, ok := item.(map[string]any); ok {
			if rawInterval, present := m["interval"]; present {
				text, ok := rawInterval.(string)
				if !ok {
					return p.codec.invalid(rawInterval, "interval must be text")
				}
				parsed, err := parse(text)
				if err != nil {
					return err
				}
				if scope != nil {
					overlap, ok := scope.Intersect(parsed)
					if !ok {
						continue
					}
					parsed = overlap
				}
				scope = &parsed
			}
		}

		data, err := p.decode(item)
		if err != nil {
			return err
		}
		updates = append(updates, pendingUpdate[T]{interval: scope, data: data})
	}

	for _, u := range updates {
		p.apply(u)
	}
	return nil
}

func (p *Property[T]) apply(u pendingUpdate[T]) {
	if u.interval == nil && !u.data.sampled {
		p.constant = u.data.value
		p.hasConst = true
		return
	}

	scope := model.Infinite
	if u.interval != nil {
		scope = *u.interval
	}
	if u.data.sampled {
		if existing, ok := p.intervals.FindExact(scope); ok && existing.sampled {
			p.intervals.Replace(scope, mergeSamples(existing, u.data))
			return
		}
	}
	p.intervals.Add(scope, u.data)
}

// decode turns one raw item into a constant or sampled payload.
func (p *Property[T]) decode(item any) (payload[T], error) {
	c := p.codec
	key := c.Keys[0]
	inner := item
	var epoch any

	if m, ok := item.(map[string]any); ok {
		found := false
		for _, k := range c.Keys {
			if v, present := m[k]; present {
				key, inner, found = k, v, true
				break
			}
		}
		if !found {
			return payload[T]{}, c.invalid(item, "no recognised value key")
		}
		epoch = m["epoch"]
	}

	arr, isArray := inner.([]any)
	if !isArray {
		if c.Length != 1 {
			return payload[T]{}, c.invalid(inner, fmt.Sprintf("expected %d elements", c.Length))
		}
		v, err := c.Decode(key, []any{inner})
		if err != nil {
			return payload[T]{}, fmt.Errorf("%s: %w", c.Name, err)
		}
		return payload[T]{value: v}, nil
	}

	if c.Length > 1 && len(arr) == c.Length {
		v, err := c.Decode(key, arr)
		if err != nil {
			return payload[T]{}, fmt.Errorf("%s: %w", c.Name, err)
		}
		return payload[T]{value: v}, nil
	}

	return p.decodeSamples(key, arr, epoch)
}

func (p *Property[T]) decodeSamples(key string, arr []any, rawEpoch any) (payload[T], error) {
	c := p.codec
	stride := c.Length + 1
	if len(arr) == 0 || len(arr)%stride != 0 {
		return payload[T]{}, c.invalid(arr, fmt.Sprintf("sample array length %d is not a multiple of %d", len(arr), stride))
	}

	var epoch *time.Time
	if rawEpoch != nil {
		text, ok := rawEpoch.(string)
		if !ok {
			return payload[T]{}, c.invalid(rawEpoch, "epoch must be text")
		}
		t, err := model.ParseTime(text)
		if err != nil {
			return payload[T]{}, err
		}
		epoch = &t
	}

	n := len(arr) / stride
	type sample struct {
		t time.Time
		v T
	}
	samples := make([]sample, 0, n)
	for i := 0; i < n; i++ {
		chunk := arr[i*stride : (i+1)*stride]
		var at time.Time
		switch tv := chunk[0].(type) {
		case string:
			t, err := model.ParseTime(tv)
			if err != nil {
				return payload[T]{}, err
			}
			at = t
		default:
			seconds, ok := toFloat(tv)
			if !ok {
				return payload[T]{}, c.invalid(tv, "sample time must be text or seconds")
			}
			if epoch == nil {
				return payload[T]{}, c.invalid(tv, "sample offsets need an epoch")
			}
			at = epoch.Add(time.Duration(seconds * float64(time.Second)))
		}
		v, err := c.Decode(key, chunk[1:])
		if err != nil {
			return payload[T]{}, fmt.Errorf("%s: %w", c.Name, err)
		}
		samples = append(samples, sample{t: at, v: v})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].t.Before(samples[j].t) })

	out := payload[T]{sampled: true, times: make([]time.Time, 0, n), values: make([]T, 0, n)}
	for _, s := range samples {
		if k := len(out.times); k > 0 && out.times[k-1].Equal(s.t) {
			out.values[k-1] = s.v
			continue
		}
		out.times = append(out.times, s.t)
		out.values = append(out.values, s.v)
	}
	return out, nil
}

// mergeSamples combines two sorted series into fresh slices; incoming
// samples win at equal times.
func mergeSamples[T any](existing, incoming payload[T]) payload[T] {
	out := payload[T]{
		sampled: true,
		times:   make([]time.Time, 0, len(existing.times)+len(incoming.times)),
		values:  make([]T, 0, len(existing.values)+len(incoming.values)),
	}
	i, j := 0, 0
	for i < len(existing.times) || j < len(incoming.times) {
		switch {
		case j >= len(incoming.times):
			out.times = append(out.times, existing.times[i])
			out.values = append(out.values, existing.values[i])
			i++
		case i >= len(existing.times):
			out.times = append(out.times, incoming.times[j])
			out.values = append(out.values, incoming.values[j])
			j++
		case existing.times[i].Before(incoming.times[j]):
			out.times = append(out.times, existing.times[i])
			out.values = append(out.values, existing.values[i])
			i++
		case incoming.times[j].Before(existing.times[i]):
			out.times = append(out.times, incoming.times[j])
			out.values = append(out.values, incoming.values[j])
			j++
		default:
			out.times = append(out.times, incoming.times[j])
			out.values = append(out.values, incoming.values[j])
			i++
			j++
		}
	}
	return out
}

// ValueAt resolves the value governing t. The boolean is false when the
// property has no value at t.
func (p *Property[T]) ValueAt(t time.Time) (T, bool) {
	var zero T
	if p == nil {
		return zero, false
	}
	if e, ok := p.intervals.Find(t); ok {
		return p.evaluate(e.Data, t)
	}
	if p.hasConst {
		return p.constant, true
	}
	return zero, false
}

func (p *Property[T]) evaluate(data payload[T], t time.Time) (T, bool) {
	if !data.sampled {
		return data.value, true
	}
	var zero T
	next := sort.Search(len(data.times), func(i int) bool { return data.times[i].After(t) })
	if next == 0 {
		return zero, false
	}
	prev := next - 1
	if next == len(data.times) || data.times[prev].Equal(t) || !p.codec.Interpolatable() {
		return data.values[prev], true
	}
	span := data.times[next].Sub(data.times[prev]).Seconds()
	f := t.Sub(data.times[prev]).Seconds() / span
	return p.codec.Interpolate(data.values[prev], data.values[next], f), true
}

// Constant returns the global constant, if one was merged.
func (p *Property[T]) Constant() (T, bool) {
	return p.constant, p.hasConst
}

// Intervals returns the stored intervals in time order.
func (p *Property[T]) Intervals() []model.TimeInterval {
	entries := p.intervals.Entries()
	out := make([]model.TimeInterval, len(entries))
	for i, e := range entries {
		out[i] = e.Interval
	}
	return out
}

// Span returns the time span over which the property is defined. A global
// constant is defined everywhere; samples stored without an interval
// contribute their sample range.
func (p *Property[T]) Span() (model.TimeInterval, bool) {
	if p == nil {
		return model.TimeInterval{}, false
	}
	if p.hasConst {
		return model.Infinite, true
	}
	var out model.TimeInterval
	found := false
	for _, e := range p.intervals.Entries() {
		iv := e.Interval
		if e.Data.sampled && iv.IsInfinite() && len(e.Data.times) > 0 {
			iv = model.NewInterval(e.Data.times[0], e.Data.times[len(e.Data.times)-1])
		}
		if !found {
			out, found = iv, true
			continue
		}
		out = out.Union(iv)
	}
	return out, found
}

func isIntervalList(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	for _, item := range arr {
		if _, ok := item.(map[string]any); !ok {
			return false
		}
	}
	return true
}

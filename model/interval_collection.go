package model

import (
	"sort"
	"time"
)

// IntervalEntry pairs an interval with its payload.
type IntervalEntry[T any] struct {
	Interval TimeInterval
	Data     T
}

// IntervalCollection is an ordered set of non-overlapping intervals, each
// carrying a payload. The zero value is ready to use.
type IntervalCollection[T any] struct {
	entries []IntervalEntry[T]
}

// Len returns the number of stored intervals.
func (c *IntervalCollection[T]) Len() int { return len(c.entries) }

// Entries returns a copy of the stored intervals in time order.
func (c *IntervalCollection[T]) Entries() []IntervalEntry[T] {
	out := make([]IntervalEntry[T], len(c.entries))
	copy(out, c.entries)
	return out
}

// Add stores data over interval. Existing intervals overlapping it are
// trimmed or split so the new data wins on the overlap. Empty intervals are
// ignored.
func (c *IntervalCollection[T]) Add(interval TimeInterval, data T) {
	if interval.IsEmpty() {
		return
	}

	kept := make([]IntervalEntry[T], 0, len(c.entries)+2)
	for _, e := range c.entries {
		if _, overlaps := e.Interval.Intersect(interval); !overlaps {
			kept = append(kept, e)
			continue
		}
		if left, ok := leftRemainder(e.Interval, interval); ok {
			kept = append(kept, IntervalEntry[T]{Interval: left, Data: e.Data})
		}
		if right, ok := rightRemainder(e.Interval, interval); ok {
			kept = append(kept, IntervalEntry[T]{Interval: right, Data: e.Data})
		}
	}
	kept = append(kept, IntervalEntry[T]{Interval: interval, Data: data})
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i].Interval, kept[j].Interval
		if a.Start.Equal(b.Start) {
			return a.IsStartIncluded && !b.IsStartIncluded
		}
		return a.Start.Before(b.Start)
	})
	c.entries = kept
}

// Replace swaps the payload of the interval exactly equal to interval.
func (c *IntervalCollection[T]) Replace(interval TimeInterval, data T) bool {
	for i := range c.entries {
		if c.entries[i].Interval.Equal(interval) {
			c.entries[i].Data = data
			return true
		}
	}
	return false
}

// FindExact returns the payload stored over exactly interval.
func (c *IntervalCollection[T]) FindExact(interval TimeInterval) (T, bool) {
	for _, e := range c.entries {
		if e.Interval.Equal(interval) {
			return e.Data, true
		}
	}
	var zero T
	return zero, false
}

// Find returns the entry covering t.
func (c *IntervalCollection[T]) Find(t time.Time) (IntervalEntry[T], bool) {
	idx := sort.Search(len(c.entries), func(i int) bool {
		return !c.entries[i].Interval.Stop.Before(t)
	})
	for i := idx; i < len(c.entries); i++ {
		e := c.entries[i]
		if e.Interval.Start.After(t) {
			break
		}
		if e.Interval.Contains(t) {
			return e, true
		}
	}
	return IntervalEntry[T]{}, false
}

// Span returns the hull of all stored intervals.
func (c *IntervalCollection[T]) Span() (TimeInterval, bool) {
	if len(c.entries) == 0 {
		return TimeInterval{}, false
	}
	out := c.entries[0].Interval
	for _, e := range c.entries[1:] {
		out = out.Union(e.Interval)
	}
	return out, true
}

// Clear drops every interval.
func (c *IntervalCollection[T]) Clear() { c.entries = nil }

func leftRemainder(existing, cut TimeInterval) (TimeInterval, bool) {
	if !existing.Start.Before(cut.Start) &&
		!(existing.Start.Equal(cut.Start) && existing.IsStartIncluded && !cut.IsStartIncluded) {
		return TimeInterval{}, false
	}
	left := TimeInterval{
		Start:           existing.Start,
		IsStartIncluded: existing.IsStartIncluded,
		Stop:            cut.Start,
		IsStopIncluded:  !cut.IsStartIncluded,
	}
	return left, !left.IsEmpty()
}

func rightRemainder(existing, cut TimeInterval) (TimeInterval, bool) {
	if !existing.Stop.After(cut.Stop) &&
		!(existing.Stop.Equal(cut.Stop) && existing.IsStopIncluded && !cut.IsStopIncluded) {
		return TimeInterval{}, false
	}
	right := TimeInterval{
		Start:           cut.Stop,
		IsStartIncluded: !cut.IsStopIncluded,
		Stop:            existing.Stop,
		IsStopIncluded:  existing.IsStopIncluded,
	}
	return right, !right.IsEmpty()
}

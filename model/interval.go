package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrParse is wrapped by every error returned while parsing ISO-8601 text.
var ErrParse = errors.New("parse error")

// ParseError reports malformed ISO-8601 instant or interval text.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

var (
	// MinimumTime is the earliest representable scene time.
	MinimumTime = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)
	// MaximumTime is the latest representable scene time (9999-12-31T24:00:00Z).
	MaximumTime = time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)

	// Infinite covers all representable time and doubles as the
	// "unbounded from epoch" availability sentinel.
	Infinite = TimeInterval{
		Start:           MinimumTime,
		Stop:            MaximumTime,
		IsStartIncluded: true,
		IsStopIncluded:  true,
	}
)

// TimeInterval is a range of instants with independent inclusivity flags.
type TimeInterval struct {
	Start           time.Time
	Stop            time.Time
	IsStartIncluded bool
	IsStopIncluded  bool
}

// NewInterval returns the closed interval [start, stop].
func NewInterval(start, stop time.Time) TimeInterval {
	return TimeInterval{Start: start, Stop: stop, IsStartIncluded: true, IsStopIncluded: true}
}

// IsEmpty reports whether the interval contains no instant.
func (i TimeInterval) IsEmpty() bool {
	if i.Stop.Before(i.Start) {
		return true
	}
	if i.Stop.Equal(i.Start) {
		return !(i.IsStartIncluded && i.IsStopIncluded)
	}
	return false
}

// IsInfinite reports whether i spans all representable time.
func (i TimeInterval) IsInfinite() bool {
	return i.Equal(Infinite)
}

// Contains reports whether t falls inside the interval.
func (i TimeInterval) Contains(t time.Time) bool {
	if i.IsEmpty() {
		return false
	}
	afterStart := t.After(i.Start) || (t.Equal(i.Start) && i.IsStartIncluded)
	beforeStop := t.Before(i.Stop) || (t.Equal(i.Stop) && i.IsStopIncluded)
	return afterStart && beforeStop
}

// Equal compares bounds by instant and inclusivity.
func (i TimeInterval) Equal(o TimeInterval) bool {
	return i.Start.Equal(o.Start) && i.Stop.Equal(o.Stop) &&
		i.IsStartIncluded == o.IsStartIncluded && i.IsStopIncluded == o.IsStopIncluded
}

// Intersect returns the overlap of i and o. The boolean is false when the
// overlap is empty.
func (i TimeInterval) Intersect(o TimeInterval) (TimeInterval, bool) {
	out := TimeInterval{}
	switch {
	case i.Start.After(o.Start):
		out.Start, out.IsStartIncluded = i.Start, i.IsStartIncluded
	case o.Start.After(i.Start):
		out.Start, out.IsStartIncluded = o.Start, o.IsStartIncluded
	default:
		out.Start, out.IsStartIncluded = i.Start, i.IsStartIncluded && o.IsStartIncluded
	}
	switch {
	case i.Stop.Before(o.Stop):
		out.Stop, out.IsStopIncluded = i.Stop, i.IsStopIncluded
	case o.Stop.Before(i.Stop):
		out.Stop, out.IsStopIncluded = o.Stop, o.IsStopIncluded
	default:
		out.Stop, out.IsStopIncluded = i.Stop, i.IsStopIncluded && o.IsStopIncluded
	}
	if out.IsEmpty() {
		return TimeInterval{}, false
	}
	return out, true
}

// Union returns the smallest interval covering both i and o.
func (i TimeInterval) Union(o TimeInterval) TimeInterval {
	if i.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return i
	}
	out := TimeInterval{}
	switch {
	case i.Start.Before(o.Start):
		out.Start, out.IsStartIncluded = i.Start, i.IsStartIncluded
	case o.Start.Before(i.Start):
		out.Start, out.IsStartIncluded = o.Start, o.IsStartIncluded
	default:
		out.Start, out.IsStartIncluded = i.Start, i.IsStartIncluded || o.IsStartIncluded
	}
	switch {
	case i.Stop.After(o.Stop):
		out.Stop, out.IsStopIncluded = i.Stop, i.IsStopIncluded
	case o.Stop.After(i.Stop):
		out.Stop, out.IsStopIncluded = o.Stop, o.IsStopIncluded
	default:
		out.Stop, out.IsStopIncluded = i.Stop, i.IsStopIncluded || o.IsStopIncluded
	}
	return out
}

// Duration returns Stop - Start.
func (i TimeInterval) Duration() time.Duration {
	return i.Stop.Sub(i.Start)
}

// String renders the interval in the ISO-8601 "start/stop" form.
func (i TimeInterval) String() string {
	return FormatTime(i.Start) + "/" + FormatTime(i.Stop)
}

// AddDays offsets t by a possibly fractional number of days.
func AddDays(t time.Time, days float64) time.Time {
	return t.Add(time.Duration(days * float64(24*time.Hour)))
}

// SecondsDifference returns (a - b) in seconds.
func SecondsDifference(a, b time.Time) float64 {
	return a.Sub(b).Seconds()
}

// FormatTime renders t as RFC 3339 in UTC, using the 24:00 form for
// MaximumTime.
func FormatTime(t time.Time) string {
	if t.Equal(MaximumTime) {
		return "9999-12-31T24:00:00Z"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 instant. Values without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return time.Time{}, &ParseError{Input: s, Reason: "empty instant"}
	}

	// Go rejects hour 24; ISO-8601 uses it for the end of a day.
	endOfDay := false
	if idx := strings.Index(text, "T24:00"); idx > 0 {
		rest := strings.TrimLeft(text[idx+len("T24:00"):], ":0.")
		if rest != "" && rest != "Z" {
			return time.Time{}, &ParseError{Input: s, Reason: "hour 24 must be followed by zero minutes and seconds"}
		}
		text = text[:idx] + "T00:00:00Z"
		endOfDay = true
	}

	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, text, time.UTC)
		if err == nil {
			t = t.UTC()
			if endOfDay {
				t = t.AddDate(0, 0, 1)
			}
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Input: s, Reason: "unrecognised instant"}
}

// ParseInterval parses ISO-8601 "start/stop" text into a closed interval.
func ParseInterval(s string) (TimeInterval, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return TimeInterval{}, &ParseError{Input: s, Reason: "expected start/stop"}
	}
	start, err := ParseTime(parts[0])
	if err != nil {
		return TimeInterval{}, &ParseError{Input: s, Reason: "start: " + reasonOf(err)}
	}
	stop, err := ParseTime(parts[1])
	if err != nil {
		return TimeInterval{}, &ParseError{Input: s, Reason: "stop: " + reasonOf(err)}
	}
	return NewInterval(start, stop), nil
}

func reasonOf(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return err.Error()
}

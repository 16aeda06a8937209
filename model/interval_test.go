package model

import (
	"errors"
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := ParseTime(s)
	if err != nil {
		t.Fatalf("ParseTime(%q): %v", s, err)
	}
	return v
}

func TestParseIntervalForms(t *testing.T) {
	cases := []struct {
		in    string
		start time.Time
		stop  time.Time
	}{
		{
			in:    "2012-03-15T10:00:00Z/2012-03-16T10:00:00Z",
			start: time.Date(2012, 3, 15, 10, 0, 0, 0, time.UTC),
			stop:  time.Date(2012, 3, 16, 10, 0, 0, 0, time.UTC),
		},
		{
			in:    "2012-03-15T10:00Z/2012-03-15T10:30:15.5Z",
			start: time.Date(2012, 3, 15, 10, 0, 0, 0, time.UTC),
			stop:  time.Date(2012, 3, 15, 10, 30, 15, 500000000, time.UTC),
		},
		{
			in:    "2012-03-15/2012-03-16",
			start: time.Date(2012, 3, 15, 0, 0, 0, 0, time.UTC),
			stop:  time.Date(2012, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			in:    "0000-01-01T00:00:00Z/9999-12-31T24:00:00Z",
			start: MinimumTime,
			stop:  MaximumTime,
		},
	}
	for _, tc := range cases {
		got, err := ParseInterval(tc.in)
		if err != nil {
			t.Fatalf("ParseInterval(%q): %v", tc.in, err)
		}
		if !got.Start.Equal(tc.start) || !got.Stop.Equal(tc.stop) {
			t.Fatalf("ParseInterval(%q) = %v, want %v/%v", tc.in, got, tc.start, tc.stop)
		}
		if !got.IsStartIncluded || !got.IsStopIncluded {
			t.Fatalf("ParseInterval(%q) should be closed", tc.in)
		}
	}
}

func TestParseIntervalMalformed(t *testing.T) {
	for _, in := range []string{"", "2012-03-15T10:00:00Z", "nonsense/2012-03-16", "2012-03-15/later", "a/b/c"} {
		_, err := ParseInterval(in)
		if err == nil {
			t.Fatalf("ParseInterval(%q) expected error", in)
		}
		if !errors.Is(err, ErrParse) {
			t.Fatalf("ParseInterval(%q) error %v does not wrap ErrParse", in, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Input != in {
			t.Fatalf("ParseInterval(%q) error %v should be a *ParseError for the input", in, err)
		}
	}
}

func TestIntervalContainsRespectsInclusivity(t *testing.T) {
	start := mustTime(t, "2020-01-01T00:00:00Z")
	stop := start.Add(10 * time.Second)
	half := TimeInterval{Start: start, Stop: stop, IsStartIncluded: true}

	if !half.Contains(start) {
		t.Fatalf("start should be included")
	}
	if half.Contains(stop) {
		t.Fatalf("stop should be excluded")
	}
	if half.Contains(start.Add(-time.Nanosecond)) {
		t.Fatalf("instant before start should be excluded")
	}
	if !(TimeInterval{Start: start, Stop: start, IsStartIncluded: true}).IsEmpty() {
		t.Fatalf("degenerate half-open interval should be empty")
	}
}

func TestIntersectAndUnion(t *testing.T) {
	base := mustTime(t, "2020-01-01T00:00:00Z")
	a := NewInterval(base, base.Add(10*time.Second))
	b := NewInterval(base.Add(5*time.Second), base.Add(20*time.Second))
	c := NewInterval(base.Add(30*time.Second), base.Add(40*time.Second))

	got, ok := a.Intersect(b)
	if !ok {
		t.Fatalf("expected overlap")
	}
	want := NewInterval(base.Add(5*time.Second), base.Add(10*time.Second))
	if !got.Equal(want) {
		t.Fatalf("Intersect = %v, want %v", got, want)
	}
	if _, ok := a.Intersect(c); ok {
		t.Fatalf("disjoint intervals should not intersect")
	}
	u := a.Union(c)
	if !u.Start.Equal(a.Start) || !u.Stop.Equal(c.Stop) {
		t.Fatalf("Union = %v", u)
	}
	if !Infinite.IsInfinite() {
		t.Fatalf("Infinite should report IsInfinite")
	}
}

func TestAddDays(t *testing.T) {
	base := mustTime(t, "2020-01-01T00:00:00Z")
	if got := AddDays(base, 1); !got.Equal(base.Add(24 * time.Hour)) {
		t.Fatalf("AddDays(1) = %v", got)
	}
	if got := AddDays(base, 0.5); !got.Equal(base.Add(12 * time.Hour)) {
		t.Fatalf("AddDays(0.5) = %v", got)
	}
	if got := SecondsDifference(base.Add(90*time.Second), base); got != 90 {
		t.Fatalf("SecondsDifference = %v", got)
	}
}

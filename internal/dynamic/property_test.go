package dynamic

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/signalsfoundry/globeview/model"
)

var epoch = time.Date(2012, 3, 15, 10, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second)))
}

func halfOpen(from, to float64) *model.TimeInterval {
	return &model.TimeInterval{Start: at(from), Stop: at(to), IsStartIncluded: true}
}

func TestPropertyUndefinedWithoutData(t *testing.T) {
	p := NewProperty(Number)
	if _, ok := p.ValueAt(epoch); ok {
		t.Fatalf("empty property should be undefined")
	}
	if err := p.Merge(5.0, halfOpen(0, 10)); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if _, ok := p.ValueAt(at(20)); ok {
		t.Fatalf("time outside every interval with no constant should be undefined")
	}
	var nilProp *Property[float64]
	if _, ok := nilProp.ValueAt(epoch); ok {
		t.Fatalf("nil property should be undefined")
	}
}

func TestPropertyDisjointIntervalMerges(t *testing.T) {
	p := NewProperty(Number)
	if err := p.Merge(1.0, halfOpen(0, 10)); err != nil {
		t.Fatalf("Merge v1: %v", err)
	}
	if err := p.Merge(2.0, halfOpen(10, 20)); err != nil {
		t.Fatalf("Merge v2: %v", err)
	}

	if v, ok := p.ValueAt(at(5)); !ok || v != 1 {
		t.Fatalf("ValueAt(5) = %v,%v want 1", v, ok)
	}
	if v, ok := p.ValueAt(at(15)); !ok || v != 2 {
		t.Fatalf("ValueAt(15) = %v,%v want 2", v, ok)
	}
	if v, ok := p.ValueAt(at(10)); !ok || v != 2 {
		t.Fatalf("ValueAt(10) = %v,%v want 2", v, ok)
	}
}

func TestPropertyOverlapNewestWins(t *testing.T) {
	p := NewProperty(String)
	if err := p.Merge("old", halfOpen(0, 100)); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := p.Merge("new", halfOpen(40, 60)); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for s, want := range map[float64]string{10: "old", 50: "new", 70: "old"} {
		if v, _ := p.ValueAt(at(s)); v != want {
			t.Fatalf("ValueAt(%v) = %q want %q", s, v, want)
		}
	}
}

func TestPropertyConstantFallback(t *testing.T) {
	p := NewProperty(Boolean)
	if err := p.Merge(true, nil); err != nil {
		t.Fatalf("Merge constant: %v", err)
	}
	if err := p.Merge(map[string]any{"boolean": false}, halfOpen(0, 10)); err != nil {
		t.Fatalf("Merge interval: %v", err)
	}
	if v, ok := p.ValueAt(at(5)); !ok || v {
		t.Fatalf("covered time should use interval value, got %v,%v", v, ok)
	}
	if v, ok := p.ValueAt(at(50)); !ok || !v {
		t.Fatalf("uncovered time should use constant, got %v,%v", v, ok)
	}

	// A later constant replaces the earlier one.
	if err := p.Merge(false, nil); err != nil {
		t.Fatalf("Merge constant: %v", err)
	}
	if v, _ := p.ValueAt(at(50)); v {
		t.Fatalf("constant should have been replaced")
	}
}

func TestPropertySampledNumberInterpolates(t *testing.T) {
	p := NewProperty(Number)
	raw := map[string]any{
		"epoch":  "2012-03-15T10:00:00Z",
		"number": []any{0.0, 10.0, 10.0, 20.0, 20.0, 40.0},
	}
	if err := p.Merge(raw, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	cases := []struct {
		sec  float64
		want float64
		ok   bool
	}{
		{-1, 0, false},
		{0, 10, true},
		{5, 15, true},
		{10, 20, true},
		{15, 30, true},
		{25, 40, true},
	}
	for _, tc := range cases {
		got, ok := p.ValueAt(at(tc.sec))
		if ok != tc.ok || (ok && !scalar.EqualWithinAbs(got, tc.want, 1e-12)) {
			t.Fatalf("ValueAt(%v) = %v,%v want %v,%v", tc.sec, got, ok, tc.want, tc.ok)
		}
	}

	span, ok := p.Span()
	if !ok || !span.Start.Equal(at(0)) || !span.Stop.Equal(at(20)) {
		t.Fatalf("Span = %v,%v want sample range", span, ok)
	}
}

func TestPropertySampledColorInterpolates(t *testing.T) {
	p := NewProperty(Color)
	raw := map[string]any{
		"epoch": "2012-03-15T10:00:00Z",
		"rgba":  []any{0.0, 0.0, 0.0, 0.0, 255.0, 10.0, 255.0, 255.0, 255.0, 255.0},
	}
	if err := p.Merge(raw, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	got, ok := p.ValueAt(at(5))
	if !ok {
		t.Fatalf("expected value")
	}
	want := model.Color{Red: 0.5, Green: 0.5, Blue: 0.5, Alpha: 1}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b float64) bool { return scalar.EqualWithinAbs(a, b, 1e-12) })); diff != "" {
		t.Fatalf("color mismatch (-want +got):\n%s", diff)
	}
}

func TestPropertyStepValuedSamples(t *testing.T) {
	p := NewProperty(String)
	raw := map[string]any{
		"string": []any{"2012-03-15T10:00:00Z", "a", "2012-03-15T10:00:10Z", "b"},
	}
	if err := p.Merge(raw, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for s, want := range map[float64]string{0: "a", 9.9: "a", 10: "b", 1000: "b"} {
		if v, ok := p.ValueAt(at(s)); !ok || v != want {
			t.Fatalf("ValueAt(%v) = %q,%v want %q", s, v, ok, want)
		}
	}
}

func TestPropertySamplesMergeOnSameInterval(t *testing.T) {
	p := NewProperty(Number)
	first := map[string]any{"epoch": "2012-03-15T10:00:00Z", "number": []any{0.0, 1.0, 10.0, 2.0}}
	second := map[string]any{"epoch": "2012-03-15T10:00:00Z", "number": []any{10.0, 5.0, 20.0, 6.0}}
	if err := p.Merge(first, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := p.Merge(second, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if v, _ := p.ValueAt(at(0)); v != 1 {
		t.Fatalf("first sample lost, got %v", v)
	}
	if v, _ := p.ValueAt(at(10)); v != 5 {
		t.Fatalf("newer sample should win at equal time, got %v", v)
	}
	if v, _ := p.ValueAt(at(15)); v != 5.5 {
		t.Fatalf("ValueAt(15) = %v want 5.5", v)
	}
}

func TestPropertyIntervalList(t *testing.T) {
	p := NewProperty(Number)
	raw := []any{
		map[string]any{"interval": "2012-03-15T10:00:00Z/2012-03-15T10:00:10Z", "number": 1.0},
		map[string]any{"interval": "2012-03-15T10:00:20Z/2012-03-15T10:00:30Z", "number": 3.0},
	}
	if err := p.Merge(raw, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := len(p.Intervals()); got != 2 {
		t.Fatalf("expected 2 intervals, got %d", got)
	}
	if v, _ := p.ValueAt(at(25)); v != 3 {
		t.Fatalf("ValueAt(25) = %v", v)
	}
	if _, ok := p.ValueAt(at(15)); ok {
		t.Fatalf("gap between intervals should be undefined")
	}
}

func TestPropertyParseErrorLeavesStateUnchanged(t *testing.T) {
	p := NewProperty(Number)
	if err := p.Merge(1.0, halfOpen(0, 10)); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	raw := []any{
		map[string]any{"interval": "2012-03-15T10:00:00Z/2012-03-15T10:00:10Z", "number": 7.0},
		map[string]any{"interval": "garbage", "number": 9.0},
	}
	err := p.Merge(raw, nil)
	if !errors.Is(err, model.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if v, _ := p.ValueAt(at(5)); v != 1 {
		t.Fatalf("property mutated by failed merge: %v", v)
	}
	if got := len(p.Intervals()); got != 1 {
		t.Fatalf("expected 1 interval after failed merge, got %d", got)
	}
}

func TestPropertyInvalidValue(t *testing.T) {
	p := NewProperty(Number)
	for _, raw := range []any{"five", map[string]any{"boolean": true}, map[string]any{"number": []any{1.0, 2.0}}} {
		if err := p.Merge(raw, nil); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("Merge(%v) error = %v, want ErrInvalidValue", raw, err)
		}
	}
	if _, ok := p.Constant(); ok {
		t.Fatalf("invalid merges should not set a constant")
	}
}

func TestPropertyAcceptsIntegerEncodings(t *testing.T) {
	p := NewProperty(Color)
	if err := p.Merge(map[string]any{"rgba": []any{int8(0), uint8(255), int64(0), uint16(255)}}, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	got, _ := p.ValueAt(epoch)
	if got != (model.Color{Green: 1, Alpha: 1}) {
		t.Fatalf("got %+v", got)
	}
}

func TestPropertySpan(t *testing.T) {
	p := NewProperty(Number)
	if _, ok := p.Span(); ok {
		t.Fatalf("empty property has no span")
	}
	_ = p.Merge(1.0, halfOpen(0, 10))
	_ = p.Merge(2.0, halfOpen(20, 30))
	span, ok := p.Span()
	if !ok || !span.Start.Equal(at(0)) || !span.Stop.Equal(at(30)) {
		t.Fatalf("Span = %v,%v", span, ok)
	}
	_ = p.Merge(3.0, nil)
	if span, _ := p.Span(); !span.IsInfinite() {
		t.Fatalf("constant should make span infinite, got %v", span)
	}
}

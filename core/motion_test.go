package core

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestStaticMotionModel_NoChange(t *testing.T) {
	want := r3.Vec{X: 1, Y: 2, Z: 3}
	m := &StaticMotionModel{Position: want}

	t1 := time.Now().UTC()
	for _, at := range []time.Time{t1, t1.Add(time.Hour)} {
		got, ok := m.PositionAt(at)
		if !ok || got != want {
			t.Fatalf("static position at %v = %v, %v; want %v", at, got, ok, want)
		}
	}
}

// We don't assert exact orbital values (those belong to go-satellite);
// we check that positions move and sit at a plausible LEO altitude.
func TestOrbitalSGP4MotionModel_ChangesOverTime(t *testing.T) {
	m := NewOrbitalModelFromTLE(issTLE1, issTLE2)

	t1 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	first, ok := m.PositionAt(t1)
	if !ok {
		t.Fatalf("propagation at %v failed", t1)
	}
	second, ok := m.PositionAt(t1.Add(5 * time.Minute))
	if !ok {
		t.Fatalf("propagation after 5m failed")
	}
	if first == second {
		t.Fatalf("expected orbital position to change over time, got %+v at both times", first)
	}

	for _, p := range []r3.Vec{first, second} {
		h := WGS84.Height(p)
		if math.IsNaN(h) || h < 300e3 || h > 500e3 {
			t.Fatalf("height %v m outside the ISS band", h)
		}
	}
}

func TestNewMotionModel(t *testing.T) {
	fixed := r3.Vec{X: 6371000}
	if _, ok := NewMotionModel(fixed, "", "").(*StaticMotionModel); !ok {
		t.Fatalf("missing TLE should select static motion")
	}
	if _, ok := NewMotionModel(fixed, issTLE1, "  ").(*StaticMotionModel); !ok {
		t.Fatalf("blank second line should select static motion")
	}
	if _, ok := NewMotionModel(fixed, issTLE1, issTLE2).(*OrbitalSGP4MotionModel); !ok {
		t.Fatalf("TLE should select SGP4 motion")
	}
}

package dynamic

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func newEllipseEntity(t *testing.T, semiMajor, semiMinor any) *Entity {
	t.Helper()
	e := NewEntity("ellipse")
	facet := map[string]any{"bearing": 0.0}
	if semiMajor != nil {
		facet["semiMajorAxis"] = semiMajor
	}
	if semiMinor != nil {
		facet["semiMinorAxis"] = semiMinor
	}
	if _, err := ProcessPacket(e, Packet{"ellipse": facet}); err != nil {
		t.Fatalf("ProcessPacket: %v", err)
	}
	return e
}

func TestEllipseVerticesCachedWhileInputsUnchanged(t *testing.T) {
	e := newEllipseEntity(t, 10.0, 5.0)
	calls := 0
	e.Ellipse.SetBoundaryFunc(func(center r3.Vec, a, b, bearing float64) []r3.Vec {
		calls++
		return []r3.Vec{center, {X: a}, {Y: b}}
	})
	position := r3.Vec{X: 6378137}

	first := e.Ellipse.Vertices(epoch, position)
	second := e.Ellipse.Vertices(at(1), position)
	if len(first) == 0 {
		t.Fatalf("expected vertices")
	}
	if &first[0] != &second[0] || calls != 1 {
		t.Fatalf("unchanged inputs should return the cached slice (calls=%d)", calls)
	}

	moved := e.Ellipse.Vertices(epoch, r3.Vec{X: 6378138})
	if &moved[0] == &first[0] || calls != 2 {
		t.Fatalf("changed position should recompute (calls=%d)", calls)
	}

	if err := e.Ellipse.SemiMinorAxis.Merge(6.0, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	resized := e.Ellipse.Vertices(epoch, r3.Vec{X: 6378138})
	if &resized[0] == &moved[0] || calls != 3 {
		t.Fatalf("changed axis should recompute (calls=%d)", calls)
	}

	if err := e.Ellipse.Bearing.Merge(0.25, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	rotated := e.Ellipse.Vertices(epoch, r3.Vec{X: 6378138})
	if &rotated[0] == &resized[0] || calls != 4 {
		t.Fatalf("changed bearing should recompute (calls=%d)", calls)
	}
}

func TestEllipseVerticesAbsent(t *testing.T) {
	position := r3.Vec{X: 6378137}
	cases := []struct {
		name             string
		semiMajor, minor any
	}{
		{"missing major", nil, 5.0},
		{"missing minor", 10.0, nil},
		{"zero major", 0.0, 5.0},
		{"negative minor", 10.0, -1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEllipseEntity(t, tc.semiMajor, tc.minor)
			if v := e.Ellipse.Vertices(epoch, position); v != nil {
				t.Fatalf("expected no vertices, got %d", len(v))
			}
		})
	}
}

func TestEllipseDefaultBoundaryOnGlobe(t *testing.T) {
	e := newEllipseEntity(t, 20000.0, 10000.0)
	position := r3.Vec{X: 6378137}
	v := e.Ellipse.Vertices(epoch, position)
	if len(v) < 100 {
		t.Fatalf("expected tessellated ring, got %d vertices", len(v))
	}
}

package orbit

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/visualizer"
)

const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestParseTLE(t *testing.T) {
	doc := strings.Join([]string{
		"ISS (ZARYA)",
		issLine1,
		issLine2,
		"",
		issLine1,
		issLine2,
	}, "\n")
	sats, err := ParseTLE(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseTLE: %v", err)
	}
	want := []Satellite{
		{ID: "sat-25544", Name: "ISS (ZARYA)", Line1: issLine1, Line2: issLine2},
		{ID: "sat-25544", Name: "25544", Line1: issLine1, Line2: issLine2},
	}
	if diff := cmp.Diff(want, sats); diff != "" {
		t.Fatalf("satellites mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTLEErrors(t *testing.T) {
	tests := map[string]string{
		"line 2 first":   issLine2,
		"truncated":      "NAME\n" + issLine1,
		"name in middle": issLine1 + "\nNAME\n" + issLine2,
		"two line 1s":    issLine1 + "\n" + issLine1,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseTLE(strings.NewReader(doc)); !errors.Is(err, ErrMalformedTLE) {
				t.Fatalf("error = %v, want ErrMalformedTLE", err)
			}
		})
	}
}

func TestPacketSamplesTrack(t *testing.T) {
	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	opts := DefaultOptions(start)
	opts.Duration = 10 * time.Minute
	opts.SensorHalfAngle = math.Pi / 8

	sat := Satellite{ID: "sat-25544", Name: "ISS", Line1: issLine1, Line2: issLine2}
	packet, err := Packet(sat, opts)
	require.NoError(t, err)

	e := dynamic.NewEntity(sat.ID)
	_, err = dynamic.ProcessPacket(e, packet)
	require.NoError(t, err)
	require.NotNil(t, e.Position)
	require.NotNil(t, e.Orientation)
	require.NotNil(t, e.Cone)
	require.NotNil(t, e.Label)

	span, ok := e.Availability()
	require.True(t, ok)
	require.True(t, span.Start.Equal(start), "span start %v", span.Start)
	require.True(t, span.Stop.Equal(start.Add(10*time.Minute)), "span stop %v", span.Stop)

	mid := start.Add(90 * time.Second)
	pos, ok := e.Position.ValueAt(mid)
	require.True(t, ok)
	h := core.WGS84.Height(pos)
	require.Greater(t, h, 300e3)
	require.Less(t, h, 500e3)

	q, ok := e.Orientation.ValueAt(start)
	require.True(t, ok)
	p0, _ := e.Position.ValueAt(start)
	axis := visualizer.ModelMatrix(q, p0).Vector(r3.Vec{Z: 1})
	nadir := r3.Unit(r3.Scale(-1, p0))
	if !core.EqualsEpsilon(axis, nadir, 1e-9) {
		t.Fatalf("cone axis %v, want nadir %v", axis, nadir)
	}
}

func TestNadirOrientationAtPoles(t *testing.T) {
	for _, p := range []r3.Vec{{Z: 7e6}, {Z: -7e6}, {X: 7e6}} {
		axis := visualizer.ModelMatrix(NadirOrientation(p), p).Vector(r3.Vec{Z: 1})
		if !core.EqualsEpsilon(axis, r3.Unit(r3.Scale(-1, p)), 1e-12) {
			t.Fatalf("NadirOrientation(%v) points +Z at %v", p, axis)
		}
	}
}

func TestPacketsValidatesOptions(t *testing.T) {
	opts := DefaultOptions(time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC))
	opts.Duration = time.Minute
	sats := []Satellite{
		{ID: "a", Line1: issLine1, Line2: issLine2},
		{ID: "b", Line1: issLine1, Line2: issLine2},
	}
	packets, err := Packets(sats, opts)
	if err != nil {
		t.Fatalf("Packets: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("packets = %d, want 2", len(packets))
	}
	if id, _ := packets[1].ID(); id != "b" {
		t.Fatalf("second packet id = %q", id)
	}

	opts.Step = 0
	if _, err := Packets(sats, opts); err == nil {
		t.Fatalf("zero step accepted")
	}
}

type stuckModel struct{}

func (stuckModel) PositionAt(time.Time) (r3.Vec, bool) { return r3.Vec{}, false }

func TestTrackWithoutSamplesFails(t *testing.T) {
	opts := DefaultOptions(time.Now())
	if _, err := trackPacket("x", "x", stuckModel{}, opts); !errors.Is(err, ErrPropagation) {
		t.Fatalf("error = %v, want ErrPropagation", err)
	}
}

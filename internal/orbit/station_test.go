package orbit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/internal/dynamic"
)

func TestGroundStationPacket(t *testing.T) {
	e := dynamic.NewEntity("gs")
	if _, err := dynamic.ProcessPacket(e, GroundStationPacket(Station{ID: "gs", Name: "Equator"})); err != nil {
		t.Fatalf("ProcessPacket: %v", err)
	}
	pos, ok := e.Position.Constant()
	if !ok || math.Abs(pos.X-core.WGS84.Radii.X) > 1e-6 {
		t.Fatalf("position = %v, %v", pos, ok)
	}
	text, _ := e.Label.Text.Constant()
	if text != "Equator" {
		t.Fatalf("label = %q", text)
	}
}

func TestStationMotionIsFixed(t *testing.T) {
	m := Station{ID: "gs", Longitude: 10, Latitude: 20, Height: 100}.Motion()
	a, okA := m.PositionAt(time.Now())
	b, okB := m.PositionAt(time.Now().Add(6 * time.Hour))
	require.True(t, okA && okB)
	require.Equal(t, a, b)
	require.InDelta(t, 100, core.WGS84.Height(a), 1e-6)
}

func TestParseStations(t *testing.T) {
	got, err := ParseStations(" gs1,Quito,-78.5,-0.2 ; gs2,Svalbard,15.4,78.2,450;")
	require.NoError(t, err)
	require.Equal(t, []Station{
		{ID: "gs1", Name: "Quito", Longitude: -78.5, Latitude: -0.2},
		{ID: "gs2", Name: "Svalbard", Longitude: 15.4, Latitude: 78.2, Height: 450},
	}, got)

	for _, bad := range []string{"gs,Name,1", ",Name,1,2", "gs,Name,x,2", "gs,Name,1,95"} {
		if _, err := ParseStations(bad); err == nil {
			t.Fatalf("ParseStations(%q) accepted", bad)
		}
	}
}

// subSatellite returns the station directly below sat at t.
func subSatellite(t *testing.T, id string, sat Satellite, at time.Time) Station {
	t.Helper()
	p, ok := core.NewOrbitalModelFromTLE(sat.Line1, sat.Line2).PositionAt(at)
	require.True(t, ok)
	c, ok := core.WGS84.CartesianToCartographic(p)
	require.True(t, ok)
	return Station{ID: id, Longitude: c.Longitude * 180 / math.Pi, Latitude: c.Latitude * 180 / math.Pi}
}

func TestVisibilityOverheadAndAntipode(t *testing.T) {
	at := time.Date(2021, 10, 2, 12, 0, 0, 0, time.UTC)
	sat := Satellite{ID: "iss", Line1: issLine1, Line2: issLine2}
	below := subSatellite(t, "below", sat, at)
	antipode := Station{ID: "antipode", Longitude: below.Longitude + 180, Latitude: -below.Latitude}

	v := NewVisibility([]Station{below, antipode}, []Satellite{sat}, DefaultMinElevationDeg)
	contacts := v.At(at)
	require.Len(t, contacts, 1)
	require.Equal(t, "below", contacts[0].StationID)
	require.Equal(t, "iss", contacts[0].SatelliteID)
	require.InDelta(t, 90, contacts[0].ElevationDeg, 0.5)
}

func TestVisibilityHonoursElevationMask(t *testing.T) {
	at := time.Date(2021, 10, 2, 12, 0, 0, 0, time.UTC)
	sat := Satellite{ID: "iss", Line1: issLine1, Line2: issLine2}
	below := subSatellite(t, "below", sat, at)
	// Roughly 15 degrees of arc away the ISS sits just above the horizon.
	offset := Station{ID: "offset", Longitude: below.Longitude, Latitude: below.Latitude + 15}
	if offset.Latitude > 90 {
		offset.Latitude = below.Latitude - 15
	}

	low := NewVisibility([]Station{offset}, []Satellite{sat}, 0).At(at)
	require.Len(t, low, 1)
	require.Less(t, low[0].ElevationDeg, 45.0)

	require.Empty(t, NewVisibility([]Station{offset}, []Satellite{sat}, 60).At(at))
}

package orbit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/model"
)

// DefaultMinElevationDeg is the elevation mask used when none is given.
const DefaultMinElevationDeg = 10.0

// Station is a fixed ground site in geodetic degrees and metres.
type Station struct {
	ID        string
	Name      string
	Longitude float64
	Latitude  float64
	Height    float64
}

// Motion returns the station's Earth-fixed motion model.
func (s Station) Motion() core.MotionModel {
	c := core.CartographicFromDegrees(s.Longitude, s.Latitude, s.Height)
	return &core.StaticMotionModel{Position: core.WGS84.CartographicToCartesian(c)}
}

// ParseStations reads "id,name,lon,lat[,height]" entries separated by ';'.
func ParseStations(s string) ([]Station, error) {
	var out []Station
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, ",")
		if len(fields) < 4 || len(fields) > 5 {
			return nil, fmt.Errorf("orbit: station %q: want id,name,lon,lat[,height]", entry)
		}
		st := Station{ID: strings.TrimSpace(fields[0]), Name: strings.TrimSpace(fields[1])}
		if st.ID == "" {
			return nil, fmt.Errorf("orbit: station %q: empty id", entry)
		}
		nums := []*float64{&st.Longitude, &st.Latitude, &st.Height}
		for i, f := range fields[2:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("orbit: station %q: %w", entry, err)
			}
			*nums[i] = v
		}
		if st.Latitude < -90 || st.Latitude > 90 {
			return nil, fmt.Errorf("orbit: station %q: latitude %v out of range", entry, st.Latitude)
		}
		out = append(out, st)
	}
	return out, nil
}

// GroundStationPacket places a labelled point at the station.
func GroundStationPacket(st Station) dynamic.Packet {
	p, _ := st.Motion().PositionAt(time.Time{})
	return dynamic.Packet{
		"id":       st.ID,
		"position": map[string]any{"cartesian": []any{p.X, p.Y, p.Z}},
		"point": map[string]any{
			"color":     colorValue(model.Color{Green: 1, Alpha: 1}),
			"pixelSize": 8.0,
		},
		"label": map[string]any{"text": st.Name},
	}
}

// Contact is a satellite in view of a station.
type Contact struct {
	StationID    string
	SatelliteID  string
	ElevationDeg float64
}

// Visibility evaluates station-to-satellite geometry over the Earth
// ellipsoid.
type Visibility struct {
	MinElevationDeg float64

	ellipsoid  *core.Ellipsoid
	stations   []Station
	sites      []core.MotionModel
	satellites []Satellite
	tracks     []core.MotionModel
}

// NewVisibility propagates sats with SGP4 and keeps stations fixed.
func NewVisibility(stations []Station, sats []Satellite, minElevationDeg float64) *Visibility {
	v := &Visibility{
		MinElevationDeg: minElevationDeg,
		ellipsoid:       core.WGS84,
		stations:        stations,
		satellites:      sats,
	}
	for _, st := range stations {
		v.sites = append(v.sites, st.Motion())
	}
	for _, sat := range sats {
		v.tracks = append(v.tracks, core.NewMotionModel(r3.Vec{}, sat.Line1, sat.Line2))
	}
	return v
}

// At lists every station/satellite pair with a clear line of sight and an
// elevation at or above the mask. Satellites that fail to propagate are
// skipped.
func (v *Visibility) At(t time.Time) []Contact {
	var out []Contact
	satPos := make([]r3.Vec, len(v.tracks))
	satOK := make([]bool, len(v.tracks))
	for i, m := range v.tracks {
		satPos[i], satOK[i] = m.PositionAt(t)
	}
	for i, site := range v.sites {
		ground, _ := site.PositionAt(t)
		// The eye sits one metre above the site.
		eye := r3.Add(ground, v.ellipsoid.GeodeticSurfaceNormal(ground))
		for j, sat := range satPos {
			if !satOK[j] || !v.ellipsoid.LineOfSight(eye, sat) {
				continue
			}
			el := v.ellipsoid.ElevationDegrees(ground, sat)
			if el < v.MinElevationDeg {
				continue
			}
			out = append(out, Contact{
				StationID:    v.stations[i].ID,
				SatelliteID:  v.satellites[j].ID,
				ElevationDeg: el,
			})
		}
	}
	return out
}

package core

import (
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"gonum.org/v1/gonum/spatial/r3"
)

// MotionModel reports an object's Earth-fixed position, in metres, at a
// simulation time.
type MotionModel interface {
	PositionAt(simTime time.Time) (r3.Vec, bool)
}

// StaticMotionModel keeps the object at a fixed position.
type StaticMotionModel struct {
	Position r3.Vec
}

// PositionAt for static motion ignores the time.
func (m *StaticMotionModel) PositionAt(time.Time) (r3.Vec, bool) {
	return m.Position, true
}

// OrbitalSGP4MotionModel uses a TLE and SGP4 to propagate a satellite.
type OrbitalSGP4MotionModel struct {
	sat satellite.Satellite
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) *OrbitalSGP4MotionModel {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSGP4MotionModel{sat: sat}
}

// PositionAt propagates the satellite to simTime and rotates the result
// into the Earth-fixed frame. go-satellite works in kilometres; positions
// are returned in metres. It returns false when propagation diverges.
func (m *OrbitalSGP4MotionModel) PositionAt(simTime time.Time) (r3.Vec, bool) {
	simTime = simTime.UTC()
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	const kmToM = 1000.0
	p := r3.Vec{X: posECEF.X * kmToM, Y: posECEF.Y * kmToM, Z: posECEF.Z * kmToM}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) || r3.Norm(p) == 0 {
		return r3.Vec{}, false
	}
	return p, true
}

// NewMotionModel uses SGP4 when both TLE lines are present and otherwise
// keeps the object at fixed.
func NewMotionModel(fixed r3.Vec, tle1, tle2 string) MotionModel {
	if strings.TrimSpace(tle1) != "" && strings.TrimSpace(tle2) != "" {
		return NewOrbitalModelFromTLE(tle1, tle2)
	}
	return &StaticMotionModel{Position: fixed}
}

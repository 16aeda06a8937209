package orbit

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/model"
)

// ErrPropagation is returned when no sample of a track could be computed.
var ErrPropagation = errors.New("orbit: propagation failed")

// Options controls how tracks are sampled and drawn.
type Options struct {
	Start    time.Time
	Duration time.Duration
	Step     time.Duration

	PointColor model.Color
	PixelSize  float64
	ShowLabel  bool

	// SensorHalfAngle in radians attaches a nadir-pointing cone when
	// positive.
	SensorHalfAngle float64
	SensorRadius    float64
}

// DefaultOptions samples one day every minute from start.
func DefaultOptions(start time.Time) Options {
	return Options{
		Start:      start.UTC(),
		Duration:   24 * time.Hour,
		Step:       time.Minute,
		PointColor: model.Color{Red: 1, Green: 1, Alpha: 1},
		PixelSize:  6,
		ShowLabel:  true,
	}
}

func (o Options) validate() error {
	if o.Step <= 0 {
		return fmt.Errorf("orbit: step must be positive, got %v", o.Step)
	}
	if o.Duration < 0 {
		return fmt.Errorf("orbit: duration must not be negative, got %v", o.Duration)
	}
	return nil
}

// Packet samples sat over the configured window. Positions are Earth-fixed
// metres with offsets in seconds from Options.Start; samples where SGP4
// diverges are skipped.
func Packet(sat Satellite, opts Options) (dynamic.Packet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	motion := core.NewOrbitalModelFromTLE(sat.Line1, sat.Line2)
	return trackPacket(sat.ID, sat.Name, motion, opts)
}

// Packets samples every satellite. Failures are joined; the packets that
// could be built are still returned.
func Packets(sats []Satellite, opts Options) ([]dynamic.Packet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	out := make([]dynamic.Packet, 0, len(sats))
	var errs []error
	for _, sat := range sats {
		p, err := Packet(sat, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sat.ID, err))
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

func trackPacket(id, name string, motion core.MotionModel, opts Options) (dynamic.Packet, error) {
	epoch := opts.Start.UTC()
	n := int(opts.Duration/opts.Step) + 1
	positions := make([]any, 0, 4*n)
	orientations := make([]any, 0, 5*n)
	for i := 0; i < n; i++ {
		offset := time.Duration(i) * opts.Step
		p, ok := motion.PositionAt(epoch.Add(offset))
		if !ok {
			continue
		}
		q := NadirOrientation(p)
		seconds := offset.Seconds()
		positions = append(positions, seconds, p.X, p.Y, p.Z)
		orientations = append(orientations, seconds, q.Imag, q.Jmag, q.Kmag, q.Real)
	}
	if len(positions) == 0 {
		return nil, ErrPropagation
	}

	epochText := epoch.Format(time.RFC3339Nano)
	packet := dynamic.Packet{
		"id": id,
		"position": map[string]any{
			"epoch":     epochText,
			"cartesian": positions,
		},
		"point": map[string]any{
			"color":     colorValue(opts.PointColor),
			"pixelSize": opts.PixelSize,
		},
	}
	if opts.ShowLabel && name != "" {
		packet["label"] = map[string]any{
			"text":        name,
			"pixelOffset": map[string]any{"cartesian2": []any{8.0, 0.0}},
		}
	}
	if opts.SensorHalfAngle > 0 {
		packet["orientation"] = map[string]any{
			"epoch":          epochText,
			"unitQuaternion": orientations,
		}
		radius := opts.SensorRadius
		if radius <= 0 {
			radius = 5000e3
		}
		packet["cone"] = map[string]any{
			"outerHalfAngle":    opts.SensorHalfAngle,
			"radius":            radius,
			"intersectionColor": colorValue(opts.PointColor),
		}
	}
	return packet, nil
}

// NadirOrientation returns the orientation whose model matrix maps the
// local +Z axis to the direction from p toward the Earth's centre.
func NadirOrientation(p r3.Vec) quat.Number {
	nadir := r3.Unit(r3.Scale(-1, p))
	z := r3.Vec{Z: 1}
	axis := r3.Cross(z, nadir)
	s := r3.Norm(axis)
	c := r3.Dot(z, nadir)
	var toNadir quat.Number
	switch {
	case s < core.Epsilon12 && c > 0:
		toNadir = quat.Number{Real: 1}
	case s < core.Epsilon12:
		toNadir = quat.Number{Imag: 1}
	default:
		half := math.Atan2(s, c) / 2
		axis = r3.Scale(math.Sin(half)/s, axis)
		toNadir = quat.Number{Real: math.Cos(half), Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
	}
	// Model matrices are built from the conjugate of the orientation.
	return quat.Conj(toNadir)
}

func colorValue(c model.Color) map[string]any {
	return map[string]any{"rgbaf": []any{c.Red, c.Green, c.Blue, c.Alpha}}
}

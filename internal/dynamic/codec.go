package dynamic

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/core"
	"github.com/signalsfoundry/globeview/model"
)

// ErrInvalidValue is wrapped by errors for packet values that cannot be
// decoded into the property's type.
var ErrInvalidValue = errors.New("invalid property value")

// Codec describes how raw packet data decodes into values of type T.
//
// Keys lists the wrapper keys that may hold the value ({"number": 5}); the
// first key is also the key assumed for bare values. Length is the number
// of raw elements per value: 1 for scalars, 3 for cartesian, and so on.
// Interpolate is nil for step-valued types.
type Codec[T any] struct {
	Name        string
	Keys        []string
	Length      int
	Decode      func(key string, elems []any) (T, error)
	Interpolate func(a, b T, f float64) T
}

// Interpolatable reports whether values blend linearly between samples.
func (c *Codec[T]) Interpolatable() bool { return c.Interpolate != nil }

func (c *Codec[T]) invalid(raw any, reason string) error {
	return fmt.Errorf("%s value %v: %s: %w", c.Name, raw, reason, ErrInvalidValue)
}

// Number decodes floating point values.
var Number = &Codec[float64]{
	Name:   "number",
	Keys:   []string{"number"},
	Length: 1,
	Decode: func(_ string, elems []any) (float64, error) {
		v, ok := toFloat(elems[0])
		if !ok {
			return 0, fmt.Errorf("not a number: %w", ErrInvalidValue)
		}
		return v, nil
	},
	Interpolate: func(a, b float64, f float64) float64 { return a + (b-a)*f },
}

// Boolean decodes step-valued booleans.
var Boolean = &Codec[bool]{
	Name:   "boolean",
	Keys:   []string{"boolean"},
	Length: 1,
	Decode: func(_ string, elems []any) (bool, error) {
		v, ok := elems[0].(bool)
		if !ok {
			return false, fmt.Errorf("not a boolean: %w", ErrInvalidValue)
		}
		return v, nil
	},
}

// String decodes step-valued text.
var String = &Codec[string]{
	Name:   "string",
	Keys:   []string{"string"},
	Length: 1,
	Decode: func(_ string, elems []any) (string, error) {
		v, ok := elems[0].(string)
		if !ok {
			return "", fmt.Errorf("not a string: %w", ErrInvalidValue)
		}
		return v, nil
	},
}

// Color decodes "rgba" (0-255) and "rgbaf" (0-1) colors.
var Color = &Codec[model.Color]{
	Name:   "color",
	Keys:   []string{"rgba", "rgbaf"},
	Length: 4,
	Decode: func(key string, elems []any) (model.Color, error) {
		v, err := floats(elems)
		if err != nil {
			return model.Color{}, err
		}
		if key == "rgba" {
			return model.ColorFromBytes(v[0], v[1], v[2], v[3]), nil
		}
		return model.Color{Red: v[0], Green: v[1], Blue: v[2], Alpha: v[3]}, nil
	},
	Interpolate: model.LerpColor,
}

// Cartesian2 decodes two-component values such as pixel offsets.
var Cartesian2 = &Codec[model.Cartesian2]{
	Name:   "cartesian2",
	Keys:   []string{"cartesian2"},
	Length: 2,
	Decode: func(_ string, elems []any) (model.Cartesian2, error) {
		v, err := floats(elems)
		if err != nil {
			return model.Cartesian2{}, err
		}
		return model.Cartesian2{X: v[0], Y: v[1]}, nil
	},
	Interpolate: model.LerpCartesian2,
}

// Cartesian3 decodes fixed-frame positions given as "cartesian" metres or
// as WGS84 "cartographicDegrees" / "cartographicRadians".
var Cartesian3 = &Codec[r3.Vec]{
	Name:   "cartesian",
	Keys:   []string{"cartesian", "cartographicDegrees", "cartographicRadians"},
	Length: 3,
	Decode: func(key string, elems []any) (r3.Vec, error) {
		v, err := floats(elems)
		if err != nil {
			return r3.Vec{}, err
		}
		switch key {
		case "cartographicDegrees":
			return core.WGS84.CartographicToCartesian(core.CartographicFromDegrees(v[0], v[1], v[2])), nil
		case "cartographicRadians":
			return core.WGS84.CartographicToCartesian(core.Cartographic{Longitude: v[0], Latitude: v[1], Height: v[2]}), nil
		default:
			return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
		}
	},
	Interpolate: func(a, b r3.Vec, f float64) r3.Vec {
		return r3.Add(a, r3.Scale(f, r3.Sub(b, a)))
	},
}

// UnitQuaternion decodes [x, y, z, w] orientations.
var UnitQuaternion = &Codec[quat.Number]{
	Name:   "unitQuaternion",
	Keys:   []string{"unitQuaternion"},
	Length: 4,
	Decode: func(_ string, elems []any) (quat.Number, error) {
		v, err := floats(elems)
		if err != nil {
			return quat.Number{}, err
		}
		q := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2], Real: v[3]}
		n := quat.Abs(q)
		if n == 0 || math.IsNaN(n) {
			return quat.Number{}, fmt.Errorf("zero quaternion: %w", ErrInvalidValue)
		}
		return quat.Scale(1/n, q), nil
	},
	Interpolate: model.NlerpQuaternion,
}

// HorizontalOrigin decodes CENTER / LEFT / RIGHT.
var HorizontalOrigin = enumCodec("horizontalOrigin", model.ParseHorizontalOrigin)

// VerticalOrigin decodes CENTER / BOTTOM / TOP.
var VerticalOrigin = enumCodec("verticalOrigin", model.ParseVerticalOrigin)

// LabelStyle decodes FILL / OUTLINE / FILL_AND_OUTLINE.
var LabelStyle = enumCodec("labelStyle", model.ParseLabelStyle)

func enumCodec[T any](name string, parse func(string) (T, error)) *Codec[T] {
	return &Codec[T]{
		Name:   name,
		Keys:   []string{name},
		Length: 1,
		Decode: func(_ string, elems []any) (T, error) {
			s, ok := elems[0].(string)
			if !ok {
				var zero T
				return zero, fmt.Errorf("not a string: %w", ErrInvalidValue)
			}
			v, err := parse(s)
			if err != nil {
				return v, fmt.Errorf("%v: %w", err, ErrInvalidValue)
			}
			return v, nil
		},
	}
}

func floats(elems []any) ([]float64, error) {
	out := make([]float64, len(elems))
	for i, e := range elems {
		v, ok := toFloat(e)
		if !ok {
			return nil, fmt.Errorf("element %d (%v) is not a number: %w", i, e, ErrInvalidValue)
		}
		out[i] = v
	}
	return out, nil
}

// toFloat accepts every numeric type produced by the JSON, msgpack and
// protobuf Struct decoders.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

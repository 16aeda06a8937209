package model

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/num/quat"
)

// Color is an RGBA color with components in [0, 1].
type Color struct {
	Red   float64
	Green float64
	Blue  float64
	Alpha float64
}

var (
	White = Color{Red: 1, Green: 1, Blue: 1, Alpha: 1}
	Black = Color{Alpha: 1}
)

// ColorFromBytes builds a Color from 0-255 components.
func ColorFromBytes(r, g, b, a float64) Color {
	return Color{Red: r / 255, Green: g / 255, Blue: b / 255, Alpha: a / 255}
}

// LerpColor interpolates each component linearly.
func LerpColor(a, b Color, t float64) Color {
	return Color{
		Red:   lerp(a.Red, b.Red, t),
		Green: lerp(a.Green, b.Green, t),
		Blue:  lerp(a.Blue, b.Blue, t),
		Alpha: lerp(a.Alpha, b.Alpha, t),
	}
}

// Cartesian2 is a two-component value such as a pixel offset.
type Cartesian2 struct {
	X float64
	Y float64
}

// LerpCartesian2 interpolates componentwise.
func LerpCartesian2(a, b Cartesian2, t float64) Cartesian2 {
	return Cartesian2{X: lerp(a.X, b.X, t), Y: lerp(a.Y, b.Y, t)}
}

// NlerpQuaternion interpolates two unit quaternions along the shorter arc and
// renormalizes the result.
func NlerpQuaternion(a, b quat.Number, t float64) quat.Number {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = quat.Scale(-1, b)
	}
	q := quat.Add(quat.Scale(1-t, a), quat.Scale(t, b))
	n := quat.Abs(q)
	if n == 0 {
		return a
	}
	return quat.Scale(1/n, q)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// HorizontalOrigin positions a label horizontally relative to its anchor.
type HorizontalOrigin int

const (
	HorizontalCenter HorizontalOrigin = iota
	HorizontalLeft
	HorizontalRight
)

var horizontalOriginNames = map[string]HorizontalOrigin{
	"CENTER": HorizontalCenter,
	"LEFT":   HorizontalLeft,
	"RIGHT":  HorizontalRight,
}

// ParseHorizontalOrigin maps CENTER, LEFT or RIGHT.
func ParseHorizontalOrigin(s string) (HorizontalOrigin, error) {
	if v, ok := horizontalOriginNames[strings.ToUpper(s)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown horizontal origin %q", s)
}

func (h HorizontalOrigin) String() string { return nameOf(horizontalOriginNames, h) }

// VerticalOrigin positions a label vertically relative to its anchor.
type VerticalOrigin int

const (
	VerticalCenter VerticalOrigin = iota
	VerticalBottom
	VerticalTop
)

var verticalOriginNames = map[string]VerticalOrigin{
	"CENTER": VerticalCenter,
	"BOTTOM": VerticalBottom,
	"TOP":    VerticalTop,
}

// ParseVerticalOrigin maps CENTER, BOTTOM or TOP.
func ParseVerticalOrigin(s string) (VerticalOrigin, error) {
	if v, ok := verticalOriginNames[strings.ToUpper(s)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown vertical origin %q", s)
}

func (v VerticalOrigin) String() string { return nameOf(verticalOriginNames, v) }

// LabelStyle selects how label glyphs are drawn.
type LabelStyle int

const (
	LabelFill LabelStyle = iota
	LabelOutline
	LabelFillAndOutline
)

var labelStyleNames = map[string]LabelStyle{
	"FILL":             LabelFill,
	"OUTLINE":          LabelOutline,
	"FILL_AND_OUTLINE": LabelFillAndOutline,
}

// ParseLabelStyle maps FILL, OUTLINE or FILL_AND_OUTLINE.
func ParseLabelStyle(s string) (LabelStyle, error) {
	if v, ok := labelStyleNames[strings.ToUpper(s)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown label style %q", s)
}

func (l LabelStyle) String() string { return nameOf(labelStyleNames, l) }

func nameOf[T comparable](names map[string]T, v T) string {
	for k, candidate := range names {
		if candidate == v {
			return k
		}
	}
	return "UNKNOWN"
}

// TwoPi is a full turn in radians.
const TwoPi = 2 * math.Pi

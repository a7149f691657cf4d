// Package geometry provides the spatial primitives shared by capture, inference
// and restoration: points, bounds, centers, distances and waypoint routing.
//
// Every function here is total. Absent or non-finite input never panics; it
// degrades to the origin.
package geometry

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Point is a single 2D coordinate. A waypoint whose coordinates are non-finite
// (NaN or ±Inf) is considered invalid; NaN is also how a JSON null coordinate
// is represented once decoded.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Bounds is the axis-aligned rectangle occupied by a shape.
type Bounds struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return finite(p.X) && finite(p.Y)
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Valid reports whether all four components are finite and the size is not
// negative.
func (b Bounds) Valid() bool {
	return finite(b.X) && finite(b.Y) && finite(b.Width) && finite(b.Height) &&
		b.Width >= 0 && b.Height >= 0
}

// Sanitized returns b unchanged when valid, or zero bounds otherwise.
func (b Bounds) Sanitized() Bounds {
	if !b.Valid() {
		return Bounds{}
	}
	return b
}

// Origin returns the top-left corner of the bounds.
func (b Bounds) Origin() Point {
	if !b.Valid() {
		return Point{}
	}
	return Point{X: b.X, Y: b.Y}
}

// Overlaps reports whether b and o share interior area. Bounds that only
// touch along an edge do not overlap, and invalid bounds overlap nothing.
func (b Bounds) Overlaps(o Bounds) bool {
	if !b.Valid() || !o.Valid() {
		return false
	}
	return b.X < o.X+o.Width && o.X < b.X+b.Width &&
		b.Y < o.Y+o.Height && o.Y < b.Y+b.Height
}

// Center returns the center of b, or the origin when b is not valid.
func Center(b Bounds) Point {
	if !b.Valid() {
		return Point{}
	}
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Distance returns the Euclidean distance between a and b. Non-finite points
// are treated as the origin.
func Distance(a, b Point) float64 {
	if !a.Finite() {
		a = Point{}
	}
	if !b.Finite() {
		b = Point{}
	}
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// ValidWaypoints reports whether points is a usable connection route: at least
// two points and every coordinate finite.
func ValidWaypoints(points []Point) bool {
	if len(points) < 2 {
		return false
	}
	for _, p := range points {
		if !p.Finite() {
			return false
		}
	}
	return true
}

// StraightRoute returns the two-point route between the centers of source and
// target.
func StraightRoute(source, target Bounds) []Point {
	return []Point{Center(source), Center(target)}
}

// OrthogonalRoute returns a four-point route leaving the source center
// vertically, crossing horizontally at the midline halfway between the two
// Y-centers, and entering the target center vertically.
func OrthogonalRoute(source, target Bounds) []Point {
	s := Center(source)
	t := Center(target)
	midY := (s.Y + t.Y) / 2
	return []Point{
		s,
		{X: s.X, Y: midY},
		{X: t.X, Y: midY},
		t,
	}
}

// Clone returns a copy of points that shares no backing array with the input.
func Clone(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}

// MarshalJSON writes non-finite coordinates as null, since JSON has no NaN.
func (p Point) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"x":`)
	writeCoord(&buf, p.X)
	buf.WriteString(`,"y":`)
	writeCoord(&buf, p.Y)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads null coordinates as NaN so they stay detectably invalid.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.X, p.Y = math.NaN(), math.NaN()
	if raw.X != nil {
		p.X = *raw.X
	}
	if raw.Y != nil {
		p.Y = *raw.Y
	}
	return nil
}

func writeCoord(buf *bytes.Buffer, v float64) {
	if !finite(v) {
		buf.WriteString("null")
		return
	}
	buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

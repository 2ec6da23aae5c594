// Package geom holds the small vector helpers shared by the trigger and
// stroke math: everything operates on plain float64 pairs, not a generic
// vector library.
package geom

import "math"

// Point is a 2D vector. Used for deltas, positions and stroke samples alike.
type Point struct {
	X, Y float64
}

func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }
func (p Point) Div(f float64) Point   { return Point{p.X / f, p.Y / f} }

func (p Point) IsZero() bool { return p.X == 0 && p.Y == 0 }

// Hypot returns the Euclidean length of the vector.
func Hypot(p Point) float64 {
	return math.Hypot(p.X, p.Y)
}

// Atan2Deg360 returns the angle of p in [0, 360) using the standard
// atan2(Y, X) convention. Callers that want screen-space "up" to land on
// 90 degrees must flip Y themselves before calling, since not every
// caller needs that convention (octant-to-octant comparisons among
// points sharing the same delta space do not).
func Atan2Deg360(p Point) float64 {
	deg := math.Atan2(p.Y, p.X) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Range is a closed interval, used for action thresholds and trigger
// progress gates.
type Range struct {
	Min, Max float64
}

// Contains reports whether v falls within the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Package stroke implements a lazy point-stream recognizer: construction
// from a raw delta stream, resampling to a canonical point count,
// unit-square normalisation, per-point (x, y, t, alpha) samples, and
// template similarity scoring.
package stroke

import (
	"math"

	"github.com/libgrip/libgrip/internal/geom"
)

// CanonicalPoints is the fixed resample target, matching the $1 Unistroke
// family of recognizers this design descends from.
const CanonicalPoints = 64

// MinMatchingScore is the minimum similarity a Stroke template match must
// clear for the trigger to end.
const MinMatchingScore = 0.7

// Sample is one resampled, normalised point: (x, y, t, alpha) where t is
// cumulative arc-length fraction and alpha is the local tangent angle.
type Sample struct {
	X, Y, T, Alpha float64
}

// Stroke is a normalised sample sequence, restartable only by
// reconstruction from the originating delta list.
type Stroke struct {
	points []Sample
}

// New constructs a Stroke from a sequence of raw 2D deltas: integrate into a path, resample, normalise, sample
// (x, y, t, alpha).
func New(deltas []geom.Point) Stroke {
	if len(deltas) == 0 {
		return Stroke{}
	}
	path := integrate(deltas)
	resampled := resample(path, CanonicalPoints)
	normalized := normalize(resampled)
	return Stroke{points: annotate(normalized)}
}

func integrate(deltas []geom.Point) []geom.Point {
	path := make([]geom.Point, 0, len(deltas)+1)
	cur := geom.Point{}
	path = append(path, cur)
	for _, d := range deltas {
		cur = cur.Add(d)
		path = append(path, cur)
	}
	return path
}

func pathLength(path []geom.Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += geom.Hypot(path[i].Sub(path[i-1]))
	}
	return total
}

// resample produces exactly n equally-arc-length-spaced points along path.
func resample(path []geom.Point, n int) []geom.Point {
	if len(path) < 2 {
		out := make([]geom.Point, n)
		if len(path) == 1 {
			for i := range out {
				out[i] = path[0]
			}
		}
		return out
	}

	length := pathLength(path)
	if length == 0 {
		out := make([]geom.Point, n)
		for i := range out {
			out[i] = path[0]
		}
		return out
	}

	interval := length / float64(n-1)
	out := make([]geom.Point, 0, n)
	out = append(out, path[0])

	accumulated := 0.0
	prev := path[0]
	idx := 1
	for idx < len(path) && len(out) < n {
		cur := path[idx]
		segLen := geom.Hypot(cur.Sub(prev))
		if accumulated+segLen >= interval {
			t := (interval - accumulated) / segLen
			newPoint := prev.Add(cur.Sub(prev).Scale(t))
			out = append(out, newPoint)
			prev = newPoint
			accumulated = 0
			continue
		}
		accumulated += segLen
		prev = cur
		idx++
	}
	for len(out) < n {
		out = append(out, path[len(path)-1])
	}
	return out
}

// normalize scales the path into the unit square [-1, 1] while preserving
// aspect ratio, centred at the origin.
func normalize(path []geom.Point) []geom.Point {
	if len(path) == 0 {
		return path
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range path {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	w := maxX - minX
	h := maxY - minY
	scale := math.Max(w, h)
	if scale == 0 {
		scale = 1
	}
	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2

	out := make([]geom.Point, len(path))
	for i, p := range path {
		out[i] = geom.Point{
			X: (p.X - cx) / scale * 2,
			Y: (p.Y - cy) / scale * 2,
		}
	}
	return out
}

// annotate computes cumulative-arc-length fraction t and local tangent
// angle alpha for every point.
func annotate(path []geom.Point) []Sample {
	if len(path) == 0 {
		return nil
	}
	length := pathLength(path)
	out := make([]Sample, len(path))
	accumulated := 0.0
	for i, p := range path {
		if i > 0 {
			accumulated += geom.Hypot(p.Sub(path[i-1]))
		}
		t := 0.0
		if length > 0 {
			t = accumulated / length
		}

		var alpha float64
		switch {
		case i < len(path)-1:
			d := path[i+1].Sub(p)
			alpha = math.Atan2(d.Y, d.X)
		case i > 0:
			d := p.Sub(path[i-1])
			alpha = math.Atan2(d.Y, d.X)
		}

		out[i] = Sample{X: p.X, Y: p.Y, T: t, Alpha: alpha}
	}
	return out
}

func (s Stroke) Points() []Sample { return s.points }

// Compare returns a similarity score in [0, 1] between s and template,
// both assumed to be resampled to CanonicalPoints. The score
// is 1 minus the mean point-wise Euclidean distance normalised against the
// worst case (diagonal of the unit square).
func (s Stroke) Compare(template Stroke) float64 {
	n := len(s.points)
	if n == 0 || n != len(template.points) {
		return 0
	}
	var sum float64
	for i := range s.points {
		a, b := s.points[i], template.points[i]
		dx := a.X - b.X
		dy := a.Y - b.Y
		sum += math.Hypot(dx, dy)
	}
	mean := sum / float64(n)
	const worstCase = 2.8284271247461903 // hypot(2, 2), opposite corners of [-1,1]^2
	score := 1 - mean/worstCase
	return geom.Clamp(score, 0, 1)
}

package spatial

import "math"

// MinExtent is the smallest width or height a playfield is clamped to.
const MinExtent = 1e-3

// Rect is an axis-aligned rectangle. Y grows downward, as on screen.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Sanitize replaces non-finite values with zero, flips negative extents and
// raises each extent to at least minExtent.
func (r Rect) Sanitize(minExtent float64) Rect {
	r.X, r.Y, r.W, r.H = finite(r.X), finite(r.Y), finite(r.W), finite(r.H)
	if r.W < 0 {
		r.X, r.W = r.X+r.W, -r.W
	}
	if r.H < 0 {
		r.Y, r.H = r.Y+r.H, -r.H
	}
	if r.W < minExtent {
		r.W = minExtent
	}
	if r.H < minExtent {
		r.H = minExtent
	}
	return r
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Inflate grows r by pad on every side.
func (r Rect) Inflate(pad float64) Rect {
	return Rect{X: r.X - pad, Y: r.Y - pad, W: r.W + 2*pad, H: r.H + 2*pad}
}

// Overlaps reports whether r and o share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Union returns the bounding box of r and o.
func (r Rect) Union(o Rect) Rect {
	x0, y0 := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	x1, y1 := math.Max(r.X+r.W, o.X+o.W), math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Center returns the midpoint of r.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Distance returns the distance from (x, y) to the nearest point of r, zero
// when inside.
func (r Rect) Distance(x, y float64) float64 {
	dx := math.Max(math.Max(r.X-x, 0), x-(r.X+r.W))
	dy := math.Max(math.Max(r.Y-y, 0), y-(r.Y+r.H))
	return math.Hypot(dx, dy)
}

func (r Rect) xSpan() (float64, float64) { return r.X, r.X + r.W }

func (r Rect) ySpan() (float64, float64) { return r.Y, r.Y + r.H }

// Clamp moves (x, y) to the nearest point inside r.
func (r Rect) Clamp(x, y float64) (float64, float64) {
	return clamp(x, r.X, r.X+r.W), clamp(y, r.Y, r.Y+r.H)
}

// MergeOverlapping collapses overlapping rects into their bounding boxes until
// no two results overlap. Empty rects are dropped.
func MergeOverlapping(rects []Rect) []Rect {
	out := make([]Rect, 0, len(rects))
	for _, r := range rects {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(out) && !merged; i++ {
			for j := i + 1; j < len(out); j++ {
				if out[i].Overlaps(out[j]) {
					out[i] = out[i].Union(out[j])
					out = append(out[:j], out[j+1:]...)
					merged = true
					break
				}
			}
		}
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

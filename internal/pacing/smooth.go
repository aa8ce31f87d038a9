package pacing

import "math"

// snapEps absorbs float noise so a value that should sit on a bound does.
const snapEps = 1e-9

// StepToward moves cur toward target by alpha of the gap, but never less than
// settle and never past target. The result is clamped to [lo, hi], and values
// within snapEps of a bound or of target land exactly on it.
func StepToward(cur, target, alpha, settle, lo, hi float64) float64 {
	target = Clamp(target, lo, hi)
	d := target - cur
	if math.Abs(d) <= snapEps {
		return target
	}
	step := math.Max(alpha*math.Abs(d), settle)
	if step > math.Abs(d) {
		step = math.Abs(d)
	}
	next := cur + math.Copysign(step, d)
	if math.Abs(next-target) <= snapEps {
		next = target
	}
	return Clamp(next, lo, hi)
}

// Clamp bounds v to [lo, hi], snapping near-bound values onto the bound and
// mapping NaN to lo.
func Clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v <= lo+snapEps:
		return lo
	case v >= hi-snapEps:
		return hi
	}
	return v
}

package director

import (
	"math"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/pacing"
)

// Sensitivities of each field to the tempo term. Positive tempo tightens.
const (
	spawnSensitivity = 0.36
	lifeSensitivity  = 0.26
	sizeSensitivity  = 0.16
	wrongSensitivity = 0.30
	junkSensitivity  = 0.36

	// skillPush is the extra tempo granted to a player on a clean streak.
	skillPush = 0.15
)

// Options tunes a Director.
type Options struct {
	Bounds          Bounds
	SmoothAlpha     float64
	SettleStep      float64
	MissFloor       int
	NearDeadlineSec float64
}

// DefaultOptions matches config.Default.
func DefaultOptions() Options {
	return Options{
		Bounds:          DefaultBounds(),
		SmoothAlpha:     0.25,
		SettleStep:      0.02,
		MissFloor:       10,
		NearDeadlineSec: 6,
	}
}

// Trace records how the last tick reached its output.
type Trace struct {
	Adaptive bool     `json:"adaptive"`
	Baseline Vector   `json:"baseline"`
	Target   Vector   `json:"target"`
	Output   Vector   `json:"output"`
	Fired    []string `json:"fired"`
	NowMs    int64    `json:"nowMs"`
}

// Director blends pacing risk with live signals into a tuning Vector. The
// capability set is fixed for its lifetime.
type Director struct {
	opts Options
	caps config.Capabilities
	base Vector
	cur  Vector
	last Trace
}

// New creates a director for a session.
func New(caps config.Capabilities, difficulty config.Difficulty, opts Options) *Director {
	if !(opts.SmoothAlpha > 0 && opts.SmoothAlpha <= 1) {
		opts.SmoothAlpha = DefaultOptions().SmoothAlpha
	}
	if !(opts.SettleStep >= 0 && opts.SettleStep < 1) {
		opts.SettleStep = DefaultOptions().SettleStep
	}
	if opts.MissFloor < 1 {
		opts.MissFloor = DefaultOptions().MissFloor
	}
	if opts.Bounds == (Bounds{}) {
		opts.Bounds = DefaultBounds()
	}
	d := &Director{
		opts: opts,
		caps: caps,
		base: opts.Bounds.Clamp(BaseTable(difficulty)),
	}
	d.Reset()
	return d
}

// Reset returns the output to the base table.
func (d *Director) Reset() {
	d.cur = d.base
	d.last = Trace{Adaptive: d.caps.Adaptive, Baseline: d.base, Target: d.base, Output: d.base}
}

// Base returns the fixed tuning for the session's difficulty.
func (d *Director) Base() Vector { return d.base }

// Current returns the last output.
func (d *Director) Current() Vector { return d.cur }

// LastTrace returns the audit record of the last tick.
func (d *Director) LastTrace() Trace {
	t := d.last
	t.Fired = append([]string(nil), d.last.Fired...)
	return t
}

// Tick computes the next tuning. Call it about once per second.
func (d *Director) Tick(sig Signals) Vector {
	if !d.caps.Adaptive {
		d.cur = d.base
		d.last = Trace{Adaptive: false, Baseline: d.base, Target: d.base, Output: d.base, NowMs: sig.NowMs}
		return d.cur
	}

	sig = sanitize(sig)
	baseline := d.baseline(sig)
	target := baseline
	var fired []string
	for _, g := range guards {
		var hit bool
		if target, hit = g.apply(d, target, sig); hit {
			fired = append(fired, g.name)
		}
	}

	out := d.smooth(d.cur, target)
	if d.underPressure(sig) {
		// Under pressure nothing tightens: not past the base, not past the last output.
		out = Looser(Looser(out, d.cur), d.base)
	}
	d.cur = out
	d.last = Trace{Adaptive: true, Baseline: baseline, Target: target, Output: out, Fired: fired, NowMs: sig.NowMs}
	return out
}

// baseline maps risk and live skill to a clamped vector around the base table.
func (d *Director) baseline(sig Signals) Vector {
	tempo := 0.5 - sig.Risk + skillPush*skill(sig)
	return d.opts.Bounds.Clamp(Vector{
		Spawn: d.base.Spawn - spawnSensitivity*tempo,
		Life:  d.base.Life - lifeSensitivity*tempo,
		Size:  d.base.Size - sizeSensitivity*tempo,
		Wrong: d.base.Wrong + wrongSensitivity*tempo,
		Junk:  d.base.Junk + junkSensitivity*tempo,
	})
}

func (d *Director) smooth(cur, target Vector) Vector {
	a, s, b := d.opts.SmoothAlpha, d.opts.SettleStep, d.opts.Bounds
	return Vector{
		Spawn: pacing.StepToward(cur.Spawn, target.Spawn, a, s, b.Min.Spawn, b.Max.Spawn),
		Life:  pacing.StepToward(cur.Life, target.Life, a, s, b.Min.Life, b.Max.Life),
		Size:  pacing.StepToward(cur.Size, target.Size, a, s, b.Min.Size, b.Max.Size),
		Wrong: pacing.StepToward(cur.Wrong, target.Wrong, a, s, b.Min.Wrong, b.Max.Wrong),
		Junk:  pacing.StepToward(cur.Junk, target.Junk, a, s, b.Min.Junk, b.Max.Junk),
	}
}

// skill is 0 for no streak and 1 for a long combo at high accuracy.
func skill(sig Signals) float64 {
	combo := pacing.Clamp(float64(sig.Combo-4)/12, 0, 1)
	var a float64
	if sig.Accuracy != nil {
		a = *sig.Accuracy
	}
	acc := pacing.Clamp((a-0.70)/0.25, 0, 1)
	return combo * acc
}

func sanitize(sig Signals) Signals {
	sig.Risk = pacing.Clamp(finite(sig.Risk, 0.5), 0, 1)
	if sig.Accuracy != nil {
		acc := finite(*sig.Accuracy, 0)
		if acc > 1 {
			acc /= 100
		}
		acc = pacing.Clamp(acc, 0, 1)
		sig.Accuracy = &acc
	}
	if sig.Combo < 0 {
		sig.Combo = 0
	}
	if sig.Misses < 0 {
		sig.Misses = 0
	}
	sig.MiniSecondsLeft = finite(sig.MiniSecondsLeft, math.Inf(1))
	return sig
}

func finite(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

package pacing

import "math"

const (
	varianceAlpha = 0.08
	missRateAlpha = 0.18

	// Reaction time thresholds in milliseconds.
	slowReactionMs     = 430
	verySlowReactionMs = 520
	slowPenalty        = 0.18
	verySlowPenalty    = 0.35

	// A miss rate of neutralMissRate contributes half of the risk range.
	neutralMissRate = 0.15

	streakWarn        = 2
	streakWarnPenalty = 0.22
	streakHigh        = 4
	streakHighPenalty = 0.28

	// Below warmupEvents the risk deviation from neutral is damped.
	warmupEvents = 6
	warmupDamp   = 0.65
	neutralRisk  = 0.5

	spawnSensitivity = 0.36
	lifeSensitivity  = 0.26
)

// Options bounds and tunes a Controller.
type Options struct {
	SpawnMin      float64
	SpawnMax      float64
	LifeMin       float64
	LifeMax       float64
	ReactionAlpha float64
	SmoothAlpha   float64
	SettleStep    float64
	// Fixed keeps the multipliers at neutral while risk and stats still track
	// the player. Non-adaptive run modes set it.
	Fixed bool
}

// DefaultOptions matches config.Default.
func DefaultOptions() Options {
	return Options{
		SpawnMin:      0.82,
		SpawnMax:      1.18,
		LifeMin:       0.88,
		LifeMax:       1.12,
		ReactionAlpha: 0.18,
		SmoothAlpha:   0.25,
		SettleStep:    0.02,
	}
}

// Multipliers scale the host's base spawn interval and target lifetime.
// Values above 1 give the player more time.
type Multipliers struct {
	Spawn    float64 `json:"spawnMultiplier"`
	Lifetime float64 `json:"lifetimeMultiplier"`
}

// State is a snapshot of the controller.
type State struct {
	SpawnMultiplier      float64 `json:"spawnMultiplier"`
	LifetimeMultiplier   float64 `json:"lifetimeMultiplier"`
	RiskEstimate         float64 `json:"riskEstimate"`
	MissStreak           int     `json:"missStreak"`
	HitStreak            int     `json:"hitStreak"`
	ReactionTimeEwma     float64 `json:"reactionTimeEwma"`
	ReactionVarianceEwma float64 `json:"reactionVarianceEwma"`
	MissRateEwma         float64 `json:"missRateEwma"`
	Events               int     `json:"events"`
	Hits                 int     `json:"hits"`
	Misses               int     `json:"misses"`
	LastEventMs          int64   `json:"lastEventMs"`
	HasReaction          bool    `json:"hasReaction"`
}

// Controller turns hit/miss feedback into bounded spawn-interval and lifetime
// multipliers. It is not safe for concurrent use.
type Controller struct {
	opts Options
	st   State
}

// New returns a controller at neutral pacing. Invalid bounds or alphas fall
// back to DefaultOptions.
func New(opts Options) *Controller {
	d := DefaultOptions()
	if !validRange(opts.SpawnMin, opts.SpawnMax) {
		opts.SpawnMin, opts.SpawnMax = d.SpawnMin, d.SpawnMax
	}
	if !validRange(opts.LifeMin, opts.LifeMax) {
		opts.LifeMin, opts.LifeMax = d.LifeMin, d.LifeMax
	}
	if !(opts.ReactionAlpha > 0 && opts.ReactionAlpha <= 1) {
		opts.ReactionAlpha = d.ReactionAlpha
	}
	if !(opts.SmoothAlpha > 0 && opts.SmoothAlpha <= 1) {
		opts.SmoothAlpha = d.SmoothAlpha
	}
	if !(opts.SettleStep >= 0 && opts.SettleStep < 1) {
		opts.SettleStep = d.SettleStep
	}
	c := &Controller{opts: opts}
	c.Reset()
	return c
}

// Reset returns the controller to neutral.
func (c *Controller) Reset() {
	c.st = State{
		SpawnMultiplier:    Clamp(1, c.opts.SpawnMin, c.opts.SpawnMax),
		LifetimeMultiplier: Clamp(1, c.opts.LifeMin, c.opts.LifeMax),
		RiskEstimate:       neutralRisk,
	}
}

// Options returns the effective options.
func (c *Controller) Options() Options { return c.opts }

// OnHit records a hit with its reaction time. Non-finite or negative times
// count as zero.
func (c *Controller) OnHit(reactionMs float64, tsMs int64) {
	if math.IsNaN(reactionMs) || math.IsInf(reactionMs, 0) || reactionMs < 0 {
		reactionMs = 0
	}
	st := &c.st
	st.Events++
	st.Hits++
	st.HitStreak++
	st.MissStreak = 0
	st.LastEventMs = tsMs

	if !st.HasReaction {
		st.ReactionTimeEwma = reactionMs
		st.HasReaction = true
	} else {
		dev := reactionMs - st.ReactionTimeEwma
		st.ReactionTimeEwma += c.opts.ReactionAlpha * dev
		st.ReactionVarianceEwma += varianceAlpha * (dev*dev - st.ReactionVarianceEwma)
	}
	st.MissRateEwma += missRateAlpha * (0 - st.MissRateEwma)
	c.update()
}

// OnMiss records a miss.
func (c *Controller) OnMiss(tsMs int64) {
	st := &c.st
	st.Events++
	st.Misses++
	st.MissStreak++
	st.HitStreak = 0
	st.LastEventMs = tsMs
	st.MissRateEwma += missRateAlpha * (1 - st.MissRateEwma)
	c.update()
}

// Multipliers returns the current multipliers.
func (c *Controller) Multipliers() Multipliers {
	return Multipliers{Spawn: c.st.SpawnMultiplier, Lifetime: c.st.LifetimeMultiplier}
}

// Risk returns the current risk estimate in [0,1].
func (c *Controller) Risk() float64 { return c.st.RiskEstimate }

// State returns a copy of the controller state.
func (c *Controller) State() State { return c.st }

// computeRisk scores the miss rate against neutralMissRate so a steady miss
// stream alone can reach full risk, and warmup damps toward neutral rather
// than toward zero so early sessions start at neutral pacing.
func (c *Controller) computeRisk() float64 {
	st := c.st
	r := 0.0
	if st.HasReaction {
		switch {
		case st.ReactionTimeEwma > verySlowReactionMs:
			r += verySlowPenalty
		case st.ReactionTimeEwma > slowReactionMs:
			r += slowPenalty
		}
	}
	r += 0.5 * st.MissRateEwma / neutralMissRate
	if st.MissStreak >= streakWarn {
		r += streakWarnPenalty
	}
	if st.MissStreak >= streakHigh {
		r += streakHighPenalty
	}
	if st.Events < warmupEvents {
		r = neutralRisk + (r-neutralRisk)*warmupDamp
	}
	return Clamp(r, 0, 1)
}

// Targets maps a risk estimate onto spawn-interval and lifetime targets,
// clamped to the bounds. Higher risk gives longer intervals and lifetimes.
func (c *Controller) Targets(risk float64) Multipliers {
	t := neutralRisk - Clamp(risk, 0, 1)
	return Multipliers{
		Spawn:    Clamp(1-spawnSensitivity*t, c.opts.SpawnMin, c.opts.SpawnMax),
		Lifetime: Clamp(1-lifeSensitivity*t, c.opts.LifeMin, c.opts.LifeMax),
	}
}

func (c *Controller) update() {
	c.st.RiskEstimate = c.computeRisk()
	if c.opts.Fixed {
		return
	}
	target := c.Targets(c.st.RiskEstimate)
	o := c.opts
	c.st.SpawnMultiplier = StepToward(c.st.SpawnMultiplier, target.Spawn, o.SmoothAlpha, o.SettleStep, o.SpawnMin, o.SpawnMax)
	c.st.LifetimeMultiplier = StepToward(c.st.LifetimeMultiplier, target.Lifetime, o.SmoothAlpha, o.SettleStep, o.LifeMin, o.LifeMax)
}

func validRange(lo, hi float64) bool {
	return !math.IsNaN(lo) && !math.IsNaN(hi) && !math.IsInf(lo, 0) && !math.IsInf(hi, 0) && lo > 0 && lo <= hi
}

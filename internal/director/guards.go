package director

// Signals are the live inputs to one tick. A nil Accuracy counts as zero.
type Signals struct {
	Risk            float64  `json:"risk"`
	Accuracy        *float64 `json:"accuracy,omitempty"`
	Combo           int      `json:"combo"`
	Misses          int      `json:"misses"`
	StormActive     bool     `json:"stormActive"`
	BossActive      bool     `json:"bossActive"`
	MiniActive      bool     `json:"miniActive"`
	MiniSecondsLeft float64  `json:"miniSecondsLeft"`
	NowMs           int64    `json:"nowMs"`
}

// guard is one clamp in the ordered override list. It reports whether it fired.
type guard struct {
	name  string
	apply func(d *Director, v Vector, sig Signals) (Vector, bool)
}

// guards run in this order on top of the baseline. Later guards win.
var guards = []guard{
	{name: "pressure", apply: pressureGuard},
	{name: "miss_floor", apply: missFloorGuard},
}

// pressureGuard keeps difficulty from stacking on narrative pressure: every
// field is held at the session baseline or looser.
func pressureGuard(d *Director, v Vector, sig Signals) (Vector, bool) {
	if !d.underPressure(sig) {
		return v, false
	}
	return Looser(v, d.base), true
}

// missFloorGuard forces the most forgiving tuning once misses pile up.
func missFloorGuard(d *Director, v Vector, sig Signals) (Vector, bool) {
	if sig.Misses < d.opts.MissFloor {
		return v, false
	}
	return d.opts.Bounds.Forgiving(), true
}

func (d *Director) underPressure(sig Signals) bool {
	nearDeadline := sig.MiniActive && sig.MiniSecondsLeft <= d.opts.NearDeadlineSec
	return sig.StormActive || sig.BossActive || nearDeadline
}

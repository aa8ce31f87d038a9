package pacing

import (
	"math"
	"testing"

	"github.com/MJE43/fairpace/internal/engine"
)

func TestTenMissesPlateauAtSpawnMax(t *testing.T) {
	c := New(DefaultOptions())
	prev := c.Multipliers().Spawn
	for i := 1; i <= 10; i++ {
		c.OnMiss(int64(i) * 1000)
		m := c.Multipliers()
		if m.Spawn < prev {
			t.Fatalf("miss %d: spawn multiplier fell %v -> %v", i, prev, m.Spawn)
		}
		if r := c.Risk(); r < 0 || r > 1 {
			t.Fatalf("miss %d: risk %v outside [0,1]", i, r)
		}
		prev = m.Spawn
	}
	if got := c.Multipliers().Spawn; got != 1.18 {
		t.Errorf("spawn multiplier after 10 misses = %.17f, want exactly 1.18", got)
	}
	if got := c.Multipliers().Lifetime; got != 1.12 {
		t.Errorf("lifetime multiplier after 10 misses = %.17f, want exactly 1.12", got)
	}

	c.OnMiss(11000)
	if got := c.Multipliers().Spawn; got != 1.18 {
		t.Errorf("spawn multiplier left plateau: %.17f", got)
	}
}

func TestTenFastHitsPlateauAtSpawnMin(t *testing.T) {
	c := New(DefaultOptions())
	prev := c.Multipliers().Spawn
	for i := 1; i <= 10; i++ {
		c.OnHit(200, int64(i)*900)
		m := c.Multipliers()
		if m.Spawn > prev {
			t.Fatalf("hit %d: spawn multiplier rose %v -> %v", i, prev, m.Spawn)
		}
		prev = m.Spawn
	}
	if got := c.Multipliers().Spawn; got != 0.82 {
		t.Errorf("spawn multiplier after 10 hits = %.17f, want exactly 0.82", got)
	}
	if got := c.Multipliers().Lifetime; got != 0.88 {
		t.Errorf("lifetime multiplier after 10 hits = %.17f, want exactly 0.88", got)
	}
	if st := c.State(); st.ReactionTimeEwma != 200 || st.ReactionVarianceEwma != 0 {
		t.Errorf("constant reaction times gave ewma %v variance %v", st.ReactionTimeEwma, st.ReactionVarianceEwma)
	}
}

func TestPlateauOnCustomBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.SpawnMin, opts.SpawnMax = 0.9, 1.1
	c := New(opts)
	for i := 0; i < 20; i++ {
		c.OnMiss(0)
	}
	if got := c.Multipliers().Spawn; got != 1.1 {
		t.Errorf("spawn multiplier = %.17f, want exactly 1.1", got)
	}
	for i := 0; i < 30; i++ {
		c.OnHit(150, 0)
	}
	if got := c.Multipliers().Spawn; got != 0.9 {
		t.Errorf("spawn multiplier = %.17f, want exactly 0.9", got)
	}
}

func TestBoundedUnderAnySequence(t *testing.T) {
	sequences := map[string]func(i int, rng *engine.Source) (hit bool, rt float64){
		"all hits fast": func(int, *engine.Source) (bool, float64) { return true, 50 },
		"all hits slow": func(int, *engine.Source) (bool, float64) { return true, 5000 },
		"all misses":    func(int, *engine.Source) (bool, float64) { return false, 0 },
		"alternating":   func(i int, _ *engine.Source) (bool, float64) { return i%2 == 0, 480 },
		"random":        func(_ int, rng *engine.Source) (bool, float64) { return rng.Chance(0.6), rng.Range(100, 900) },
		"extreme inputs": func(i int, _ *engine.Source) (bool, float64) {
			return true, []float64{math.NaN(), math.Inf(1), -1e9, 1e12}[i%4]
		},
	}

	for name, next := range sequences {
		t.Run(name, func(t *testing.T) {
			c := New(DefaultOptions())
			rng := engine.NewSource(name)
			for i := 0; i < 500; i++ {
				hit, rt := next(i, rng)
				if hit {
					c.OnHit(rt, int64(i))
				} else {
					c.OnMiss(int64(i))
				}
				st := c.State()
				if st.SpawnMultiplier < 0.82 || st.SpawnMultiplier > 1.18 {
					t.Fatalf("event %d: spawn %v out of bounds", i, st.SpawnMultiplier)
				}
				if st.LifetimeMultiplier < 0.88 || st.LifetimeMultiplier > 1.12 {
					t.Fatalf("event %d: lifetime %v out of bounds", i, st.LifetimeMultiplier)
				}
				if st.RiskEstimate < 0 || st.RiskEstimate > 1 || math.IsNaN(st.RiskEstimate) {
					t.Fatalf("event %d: risk %v outside [0,1]", i, st.RiskEstimate)
				}
			}
		})
	}
}

func TestNoSingleEventJump(t *testing.T) {
	c := New(DefaultOptions())
	for i := 0; i < 20; i++ {
		c.OnHit(180, 0)
	}
	before := c.Multipliers()
	c.OnMiss(0)
	after := c.Multipliers()
	// Full span is 0.36; one event may move at most a quarter of the gap.
	if d := math.Abs(after.Spawn - before.Spawn); d > 0.25*0.36+1e-12 {
		t.Errorf("one miss moved spawn by %v", d)
	}
}

func TestTimestampsDoNotAffectOutput(t *testing.T) {
	a := New(DefaultOptions())
	b := New(DefaultOptions())
	ts := []int64{0, 16, 17, 900, 5000, 5001, 60000}
	for i, tsMs := range ts {
		if i%3 == 0 {
			a.OnMiss(int64(i) * 1000)
			b.OnMiss(tsMs)
		} else {
			a.OnHit(350, int64(i)*1000)
			b.OnHit(350, tsMs)
		}
	}
	if a.Multipliers() != b.Multipliers() || a.Risk() != b.Risk() {
		t.Errorf("irregular timestamps changed output: %+v vs %+v", a.Multipliers(), b.Multipliers())
	}
	if b.State().LastEventMs != 60000 {
		t.Errorf("LastEventMs = %d", b.State().LastEventMs)
	}
}

func TestRiskWarmupDamping(t *testing.T) {
	c := New(DefaultOptions())
	c.OnHit(200, 0)
	if r := c.Risk(); math.Abs(r-0.175) > 1e-12 {
		t.Errorf("risk after one fast hit = %v, want 0.175", r)
	}
	for i := 0; i < 5; i++ {
		c.OnHit(200, 0)
	}
	if r := c.Risk(); r != 0 {
		t.Errorf("risk after six fast hits = %v, want 0", r)
	}
}

func TestSlowReactionRaisesRisk(t *testing.T) {
	fast, slow := New(DefaultOptions()), New(DefaultOptions())
	for i := 0; i < 10; i++ {
		fast.OnHit(300, 0)
		slow.OnHit(600, 0)
	}
	if slow.Risk() <= fast.Risk() {
		t.Errorf("slow risk %v <= fast risk %v", slow.Risk(), fast.Risk())
	}
	if slow.Multipliers().Spawn <= fast.Multipliers().Spawn {
		t.Error("slow player did not get a longer spawn interval")
	}
}

func TestFixedKeepsNeutralMultipliers(t *testing.T) {
	opts := DefaultOptions()
	opts.Fixed = true
	c := New(opts)
	for i := 0; i < 10; i++ {
		c.OnMiss(int64(i) * 1000)
	}
	if m := c.Multipliers(); m.Spawn != 1 || m.Lifetime != 1 {
		t.Errorf("fixed multipliers = %+v, want 1/1", m)
	}
	st := c.State()
	if st.Misses != 10 || st.MissStreak != 10 || st.RiskEstimate != 1 {
		t.Errorf("fixed controller stopped tracking: %+v", st)
	}
}

func TestReset(t *testing.T) {
	c := New(DefaultOptions())
	for i := 0; i < 7; i++ {
		c.OnMiss(int64(i))
	}
	c.Reset()
	st := c.State()
	if st.Events != 0 || st.MissStreak != 0 || st.HasReaction || st.MissRateEwma != 0 {
		t.Errorf("Reset left state behind: %+v", st)
	}
	if st.SpawnMultiplier != 1 || st.LifetimeMultiplier != 1 || st.RiskEstimate != 0.5 {
		t.Errorf("Reset did not restore neutral pacing: %+v", st)
	}
}

func TestNewRepairsOptions(t *testing.T) {
	c := New(Options{SpawnMin: 2, SpawnMax: 1, LifeMin: math.NaN(), ReactionAlpha: 7, SmoothAlpha: -1, SettleStep: 3})
	if got := c.Options(); got != DefaultOptions() {
		t.Errorf("Options() = %+v, want defaults", got)
	}
}

func TestStepToward(t *testing.T) {
	tests := []struct {
		name                string
		cur, target, lo, hi float64
		want                float64
	}{
		{"large gap uses alpha", 1.0, 0.2, 0, 2, 0.8},
		{"small gap uses settle step", 1.0, 1.05, 0, 2, 1.02},
		{"never overshoots", 1.0, 1.01, 0, 2, 1.01},
		{"target clamped to bound", 1.0, 5, 0.5, 1.1, 1.025},
		{"snaps onto bound", 1.17999999999, 1.18, 0.82, 1.18, 1.18},
		{"at target stays", 0.82, 0.82, 0.82, 1.18, 0.82},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StepToward(tt.cur, tt.target, 0.25, 0.02, tt.lo, tt.hi)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("StepToward() = %.15f, want %.15f", got, tt.want)
			}
		})
	}
}

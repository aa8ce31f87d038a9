package simulate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/director"
	"github.com/MJE43/fairpace/internal/engine"
	"github.com/MJE43/fairpace/internal/pattern"
	"github.com/MJE43/fairpace/internal/session"
)

const tickIntervalMs = 1000

// Options control a simulated run.
type Options struct {
	Spawns         int
	BaseIntervalMs float64
	BaseLifetimeMs float64
	// StormEvery, when positive, marks every Nth second as storm pressure.
	StormEvery int
	// SampleEvery keeps one trace sample per this many spawns.
	SampleEvery int
	Start       time.Time
	Params      session.Params
}

// DefaultOptions returns a one-minute-ish run.
func DefaultOptions() Options {
	return Options{
		Spawns:         120,
		BaseIntervalMs: 800,
		BaseLifetimeMs: 1200,
		SampleEvery:    1,
		Start:          time.Unix(0, 0).UTC(),
	}
}

// Sample is one point of the multiplier trace.
type Sample struct {
	Seq      int             `json:"seq"`
	TsMs     int64           `json:"tsMs"`
	Hit      bool            `json:"hit"`
	SpawnMul float64         `json:"spawnMultiplier"`
	LifeMul  float64         `json:"lifetimeMultiplier"`
	Risk     float64         `json:"risk"`
	Tuning   director.Vector `json:"tuning"`
}

// Report summarizes a run.
type Report struct {
	SessionID  string           `json:"sessionId"`
	SeedHash   string           `json:"seedHash"`
	Spawns     int              `json:"spawns"`
	Hits       int              `json:"hits"`
	Misses     int              `json:"misses"`
	Accuracy   float64          `json:"accuracy"`
	Ticks      int              `json:"ticks"`
	DurationMs int64            `json:"durationMs"`
	Modes      map[string]int   `json:"modes"`
	Stages     map[string]int   `json:"stages"`
	Final      session.Snapshot `json:"final"`
	Trace      []Sample         `json:"trace"`
	Logs       []LogEntry       `json:"logs,omitempty"`
}

// Runner plays a player model against fresh sessions.
type Runner struct {
	cfg  config.Config
	rec  session.Recorder
	opts Options
}

// NewRunner creates a runner. rec may be nil.
func NewRunner(cfg config.Config, rec session.Recorder, opts Options) *Runner {
	def := DefaultOptions()
	if opts.Spawns <= 0 {
		opts.Spawns = def.Spawns
	}
	if !(opts.BaseIntervalMs > 0) {
		opts.BaseIntervalMs = def.BaseIntervalMs
	}
	if !(opts.BaseLifetimeMs > 0) {
		opts.BaseLifetimeMs = def.BaseLifetimeMs
	}
	if opts.SampleEvery <= 0 {
		opts.SampleEvery = def.SampleEvery
	}
	if opts.Start.IsZero() {
		opts.Start = def.Start
	}
	return &Runner{cfg: cfg, rec: rec, opts: opts}
}

// Run executes script against a new session. The player's own randomness is
// derived from the session seed, so a seeded run is reproducible.
func (r *Runner) Run(ctx context.Context, script string) (*Report, error) {
	sess, err := session.New(r.cfg, r.opts.Params, r.opts.Start)
	if err != nil {
		return nil, err
	}
	sess.Attach(r.rec)

	vm := NewVM(engine.NewSource(sess.Seed()).Derive("player"))
	if err := vm.Execute(script); err != nil {
		return nil, err
	}

	rep := &Report{
		SessionID: sess.ID(),
		SeedHash:  sess.SeedHash(),
		Modes:     make(map[string]int),
		Stages:    make(map[string]int),
	}

	var (
		nowMs      int64
		nextTickMs int64 = tickIntervalMs
		combo      int
		prevX      = 0.5
		prevY      = 0.5
	)
	n := r.opts.Spawns
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		progress := float64(i) / float64(n)
		phase := 1 + int(progress*3)
		sp := sess.PickNextSpawn(pattern.Context{Phase: phase, Progress: progress})
		rep.Modes[string(sp.Mode)]++
		rep.Stages[string(sp.Stage)]++

		lifetime := r.opts.BaseLifetimeMs * sp.LifeMul * sp.Tuning.Life
		reaction, err := vm.React(SpawnView{
			Seq:        sp.Seq,
			X:          sp.XPct,
			Y:          sp.YPct,
			Mode:       string(sp.Mode),
			Stage:      string(sp.Stage),
			Phase:      phase,
			Progress:   progress,
			LifetimeMs: lifetime,
			SizeMul:    sp.Tuning.Size,
			Distance:   math.Hypot(sp.XPct-prevX, sp.YPct-prevY),
		})
		if err != nil {
			return nil, fmt.Errorf("spawn %d: %w", sp.Seq, err)
		}
		prevX, prevY = sp.XPct, sp.YPct

		hit := reaction.Hit && reaction.ReactionMs <= lifetime
		if hit {
			sess.OnHit(reaction.ReactionMs, nowMs+int64(reaction.ReactionMs))
			rep.Hits++
			combo++
		} else {
			sess.OnMiss(nowMs + int64(lifetime))
			rep.Misses++
			combo = 0
		}

		nowMs += int64(r.opts.BaseIntervalMs * sp.SpawnMul * sp.Tuning.Spawn)
		for nowMs >= nextTickMs {
			sess.Tick(director.Signals{
				Combo:       combo,
				StormActive: r.stormAt(nextTickMs),
				NowMs:       nextTickMs,
			})
			rep.Ticks++
			nextTickMs += tickIntervalMs
		}

		if sp.Seq%r.opts.SampleEvery == 0 || i == n-1 {
			m := sess.Multipliers()
			rep.Trace = append(rep.Trace, Sample{
				Seq:      sp.Seq,
				TsMs:     nowMs,
				Hit:      hit,
				SpawnMul: m.Spawn,
				LifeMul:  m.Lifetime,
				Risk:     sess.Diagnostics().Pacing.RiskEstimate,
				Tuning:   sess.Tuning(),
			})
		}
	}

	rep.Spawns = n
	rep.DurationMs = nowMs
	if n > 0 {
		rep.Accuracy = float64(rep.Hits) / float64(n)
	}
	rep.Final = sess.Diagnostics()
	rep.Logs = vm.Logs()
	if r.rec != nil {
		r.rec.SessionEnded(sess.ID(), r.opts.Start.Add(time.Duration(nowMs)*time.Millisecond))
	}
	return rep, nil
}

func (r *Runner) stormAt(tickMs int64) bool {
	if r.opts.StormEvery <= 0 {
		return false
	}
	return (tickMs/tickIntervalMs)%int64(r.opts.StormEvery) == 0
}

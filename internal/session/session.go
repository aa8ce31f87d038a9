package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/director"
	"github.com/MJE43/fairpace/internal/engine"
	"github.com/MJE43/fairpace/internal/pacing"
	"github.com/MJE43/fairpace/internal/pattern"
	"github.com/MJE43/fairpace/internal/spatial"
)

var (
	// ErrSeedRequired is returned when a run mode demands an explicit seed.
	ErrSeedRequired = errors.New("session: explicit seed required")
	// ErrNotFound is returned by Manager for unknown session IDs.
	ErrNotFound = errors.New("session: not found")
)

// Params describe a new session. Zero RunMode and Difficulty inherit the config.
type Params struct {
	Seed       string            `json:"seed"`
	RunMode    config.RunMode    `json:"runMode"`
	Difficulty config.Difficulty `json:"difficulty"`
	Playfield  spatial.Rect      `json:"playfield"`
	Exclusions []spatial.Rect    `json:"exclusions"`
}

// Spawn is a placed target with the pacing that applies to it.
type Spawn struct {
	Seq        int             `json:"seq"`
	XPct       float64         `json:"xPct"`
	YPct       float64         `json:"yPct"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Mode       pattern.Mode    `json:"mode"`
	StepIndex  int             `json:"stepIndex"`
	Stage      spatial.Stage   `json:"stage"`
	SpawnMul   float64         `json:"spawnMultiplier"`
	LifeMul    float64         `json:"lifetimeMultiplier"`
	Tuning     director.Vector `json:"tuning"`
	Candidates int             `json:"candidates"`
}

// Event kinds.
const (
	EventHit  = "hit"
	EventMiss = "miss"
)

// Event is one performance sample.
type Event struct {
	Seq        int     `json:"seq"`
	Kind       string  `json:"kind"`
	ReactionMs float64 `json:"reactionMs"`
	TsMs       int64   `json:"tsMs"`
}

// Session is the per-game pacing and placement core. It owns its random
// streams, pacing state and spawn history. It is not safe for concurrent use.
type Session struct {
	id         string
	cfg        config.Config
	caps       config.Capabilities
	seed       string
	createdAt  time.Time
	playfield  spatial.Rect
	exclusions []spatial.Rect

	patternRNG *engine.Source
	spawnRNG   *engine.Source
	sequencer  *pattern.Sequencer
	sampler    *spatial.Sampler
	history    *spatial.History
	pacer      *pacing.Controller
	director   *director.Director

	spawns int
	events int
	rec    Recorder
}

// New creates a session. In a run mode that requires a seed an empty seed is
// an error; otherwise an empty seed is derived from now.
func New(cfg config.Config, p Params, now time.Time) (*Session, error) {
	cfg = cfg.Normalized()
	if p.RunMode != "" {
		if !p.RunMode.Valid() {
			return nil, fmt.Errorf("%w: unknown run mode %q", config.ErrInvalid, p.RunMode)
		}
		cfg.RunMode = p.RunMode
	}
	if p.Difficulty != "" {
		if !p.Difficulty.Valid() {
			return nil, fmt.Errorf("%w: unknown difficulty %q", config.ErrInvalid, p.Difficulty)
		}
		cfg.Difficulty = p.Difficulty
	}

	caps := cfg.RunMode.Capabilities()
	seed := strings.TrimSpace(p.Seed)
	if seed == "" {
		if caps.RequireSeed {
			return nil, fmt.Errorf("%w for run mode %s", ErrSeedRequired, cfg.RunMode)
		}
		seed = strconv.FormatInt(now.UnixMilli(), 10)
	}

	root := engine.NewSource(seed)
	patternRNG := root.Derive("pattern")
	s := &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		caps:       caps,
		seed:       seed,
		createdAt:  now.UTC(),
		patternRNG: patternRNG,
		spawnRNG:   root.Derive("spawn"),
		sequencer:  pattern.NewSequencer(patternRNG, cfg.PatternStickyChance, cfg.ForceRerollEvery),
		sampler: spatial.NewSampler(spatial.Options{
			Candidates:      cfg.SampleCandidates,
			EdgeMarginPct:   cfg.EdgeMarginPct,
			ExclusionPadPct: cfg.ExclusionPadPct,
			MinSeparation:   cfg.MinSeparation,
		}),
		history: spatial.NewHistory(cfg.HistoryCapacity),
		pacer: pacing.New(pacing.Options{
			SpawnMin:      cfg.SpawnMulMin,
			SpawnMax:      cfg.SpawnMulMax,
			LifeMin:       cfg.LifeMulMin,
			LifeMax:       cfg.LifeMulMax,
			ReactionAlpha: cfg.ReactionAlpha,
			SmoothAlpha:   cfg.PacingSmoothAlpha,
			SettleStep:    cfg.PacingSettleStep,
			Fixed:         !caps.Adaptive,
		}),
		director: director.New(caps, cfg.Difficulty, director.Options{
			Bounds:          director.DefaultBounds(),
			SmoothAlpha:     cfg.PacingSmoothAlpha,
			SettleStep:      cfg.PacingSettleStep,
			MissFloor:       cfg.MissFloorThreshold,
			NearDeadlineSec: 6,
		}),
	}
	s.SetLayout(p.Playfield, p.Exclusions)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Seed returns the seed in use.
func (s *Session) Seed() string { return s.seed }

// SeedHash returns a short digest of the seed, safe to log.
func (s *Session) SeedHash() string { return HashSeed(s.seed) }

// RunMode returns the effective run mode.
func (s *Session) RunMode() config.RunMode { return s.cfg.RunMode }

// Difficulty returns the effective difficulty.
func (s *Session) Difficulty() config.Difficulty { return s.cfg.Difficulty }

// Capabilities returns the run-mode capability set.
func (s *Session) Capabilities() config.Capabilities { return s.caps }

// CreatedAt returns the creation time in UTC.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Config returns the effective configuration.
func (s *Session) Config() config.Config { return s.cfg }

// SetLayout replaces the playfield and exclusion rects, e.g. after a resize.
// A zero playfield means the unit square.
func (s *Session) SetLayout(playfield spatial.Rect, exclusions []spatial.Rect) {
	if playfield == (spatial.Rect{}) {
		playfield = spatial.Rect{W: 1, H: 1}
	}
	s.playfield = playfield.Sanitize(spatial.MinExtent)
	s.exclusions = append([]spatial.Rect(nil), exclusions...)
}

// Layout returns the current playfield and a copy of the exclusions.
func (s *Session) Layout() (spatial.Rect, []spatial.Rect) {
	return s.playfield, append([]spatial.Rect(nil), s.exclusions...)
}

// PickNextSpawn chooses the mode and position of the next target.
func (s *Session) PickNextSpawn(ctx pattern.Context) Spawn {
	if ctx.Difficulty == "" {
		ctx.Difficulty = s.cfg.Difficulty
	}
	step := s.sequencer.Next(ctx)
	res := s.sampler.PickPoint(s.playfield, s.history, s.exclusions, step, ctx, s.spawnRNG)
	s.spawns++
	m := s.pacer.Multipliers()
	sp := Spawn{
		Seq:        s.spawns,
		XPct:       res.XPct,
		YPct:       res.YPct,
		X:          res.X,
		Y:          res.Y,
		Mode:       res.Mode,
		StepIndex:  res.StepIndex,
		Stage:      res.Stage,
		SpawnMul:   m.Spawn,
		LifeMul:    m.Lifetime,
		Tuning:     s.director.Current(),
		Candidates: res.Candidates,
	}
	if s.rec != nil {
		s.rec.SpawnPlaced(s.id, sp)
	}
	return sp
}

// OnHit feeds a hit with its reaction time.
func (s *Session) OnHit(reactionMs float64, tsMs int64) pacing.Multipliers {
	s.pacer.OnHit(reactionMs, tsMs)
	s.record(EventHit, reactionMs, tsMs)
	return s.pacer.Multipliers()
}

// OnMiss feeds a miss.
func (s *Session) OnMiss(tsMs int64) pacing.Multipliers {
	s.pacer.OnMiss(tsMs)
	s.record(EventMiss, 0, tsMs)
	return s.pacer.Multipliers()
}

func (s *Session) record(kind string, reactionMs float64, tsMs int64) {
	s.events++
	if s.rec == nil {
		return
	}
	if math.IsNaN(reactionMs) || math.IsInf(reactionMs, 0) {
		reactionMs = 0
	}
	s.rec.EventRecorded(s.id, Event{Seq: s.events, Kind: kind, ReactionMs: reactionMs, TsMs: tsMs})
}

// Multipliers returns the current pacing multipliers.
func (s *Session) Multipliers() pacing.Multipliers { return s.pacer.Multipliers() }

// Tick runs the difficulty director. Risk always comes from the session's
// pacing state; misses and a nil accuracy fall back to it.
func (s *Session) Tick(sig director.Signals) director.Vector {
	st := s.pacer.State()
	sig.Risk = st.RiskEstimate
	if sig.Misses < st.Misses {
		sig.Misses = st.Misses
	}
	if sig.Accuracy == nil && st.Events > 0 {
		acc := float64(st.Hits) / float64(st.Events)
		sig.Accuracy = &acc
	}
	v := s.director.Tick(sig)
	if s.rec != nil {
		s.rec.SnapshotTaken(s.id, s.Diagnostics())
	}
	return v
}

// ResetPattern clears spawn history and the pattern run. Random streams and
// pacing are untouched.
func (s *Session) ResetPattern() {
	s.history.Clear()
	s.sequencer.Reset()
}

// Tuning returns the director's current output.
func (s *Session) Tuning() director.Vector { return s.director.Current() }

// Trace returns the director's audit record for the last tick.
func (s *Session) Trace() director.Trace { return s.director.LastTrace() }

// History returns the remembered spawns, oldest first.
func (s *Session) History() []spatial.Entry { return s.history.Entries() }

// HashSeed returns the first 16 hex characters of the seed's SHA-256.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:16]
}

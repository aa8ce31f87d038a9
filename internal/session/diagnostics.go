package session

import (
	"math"
	"time"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/director"
	"github.com/MJE43/fairpace/internal/pacing"
	"github.com/MJE43/fairpace/internal/pattern"
)

// Snapshot is a read-only copy of a session's control state for telemetry.
// Floats are rounded to three decimals.
type Snapshot struct {
	SessionID    string            `json:"sessionId"`
	RunMode      config.RunMode    `json:"runMode"`
	Difficulty   config.Difficulty `json:"difficulty"`
	Adaptive     bool              `json:"adaptive"`
	SeedHash     string            `json:"seedHash"`
	Pacing       pacing.State      `json:"pacing"`
	Tuning       director.Vector   `json:"tuning"`
	Spawns       int               `json:"spawns"`
	Events       int               `json:"events"`
	HistoryLen   int               `json:"historyLen"`
	PatternMode  pattern.Mode      `json:"patternMode"`
	PatternDraws uint64            `json:"patternDraws"`
	SpawnDraws   uint64            `json:"spawnDraws"`
	TakenAt      time.Time         `json:"takenAt"`
}

// Diagnostics returns a snapshot of the session.
func (s *Session) Diagnostics() Snapshot {
	st := s.pacer.State()
	st.SpawnMultiplier = round3(st.SpawnMultiplier)
	st.LifetimeMultiplier = round3(st.LifetimeMultiplier)
	st.RiskEstimate = round3(st.RiskEstimate)
	st.ReactionTimeEwma = round3(st.ReactionTimeEwma)
	st.ReactionVarianceEwma = round3(st.ReactionVarianceEwma)
	st.MissRateEwma = round3(st.MissRateEwma)

	v := s.director.Current()
	return Snapshot{
		SessionID:  s.id,
		RunMode:    s.cfg.RunMode,
		Difficulty: s.cfg.Difficulty,
		Adaptive:   s.caps.Adaptive,
		SeedHash:   s.SeedHash(),
		Pacing:     st,
		Tuning: director.Vector{
			Spawn: round3(v.Spawn),
			Life:  round3(v.Life),
			Size:  round3(v.Size),
			Wrong: round3(v.Wrong),
			Junk:  round3(v.Junk),
		},
		Spawns:       s.spawns,
		Events:       s.events,
		HistoryLen:   s.history.Len(),
		PatternMode:  s.sequencer.Current(),
		PatternDraws: s.patternRNG.Draws(),
		SpawnDraws:   s.spawnRNG.Draws(),
		TakenAt:      time.Now().UTC(),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

package pattern

import (
	"math"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/engine"
)

const (
	// Progress below introProgress reads as a tutorial and favours center.
	introProgress = 0.18
	introBoost    = 6.0
	// Progress at or above climaxProgress favours corners.
	climaxProgress = 0.80
	climaxBoost    = 5.0
)

// Context is what the host knows about the session when asking for a spawn.
type Context struct {
	Phase      int               `json:"phase"`
	Progress   float64           `json:"progress"`
	Difficulty config.Difficulty `json:"difficulty"`
}

// Step is the sequencer's decision for one spawn.
type Step struct {
	Mode      Mode `json:"mode"`
	StepIndex int  `json:"stepIndex"`
}

// Sequencer picks the pattern mode for each spawn. It keeps runs of one mode
// alive with a sticky chance and forces a reroll every few calls.
type Sequencer struct {
	rng         *engine.Source
	sticky      float64
	rerollEvery int

	current Mode
	step    int
	calls   int
}

// NewSequencer builds a sequencer drawing from rng. rerollEvery <= 0 disables
// the forced reroll.
func NewSequencer(rng *engine.Source, sticky float64, rerollEvery int) *Sequencer {
	if math.IsNaN(sticky) || sticky < 0 {
		sticky = 0
	} else if sticky > 1 {
		sticky = 1
	}
	return &Sequencer{rng: rng, sticky: sticky, rerollEvery: rerollEvery}
}

// Next returns the mode for the next spawn and its index within the current run.
func (s *Sequencer) Next(ctx Context) Step {
	s.calls++
	progress := clampUnit(ctx.Progress)
	focus, boost, hasFocus := teachingFocus(progress)

	forced := s.rerollEvery > 0 && s.calls%s.rerollEvery == 0
	bypass := hasFocus && s.current != focus
	if s.current != "" && !forced && !bypass && s.rng.Chance(s.sticky) {
		s.step++
		return Step{Mode: s.current, StepIndex: s.step}
	}

	w := weightsFor(ctx.Phase)
	if hasFocus {
		w[focus.index()] *= boost
	}
	next := s.draw(w)
	if next == s.current {
		s.step++
	} else {
		s.current = next
		s.step = 0
	}
	return Step{Mode: s.current, StepIndex: s.step}
}

// Current returns the active mode, or "" before the first call.
func (s *Sequencer) Current() Mode { return s.current }

// Reset clears the run state. The random stream is not reseeded.
func (s *Sequencer) Reset() {
	s.current = ""
	s.step = 0
	s.calls = 0
}

func (s *Sequencer) draw(w weights) Mode {
	total := 0.0
	for _, v := range w {
		total += v
	}
	r := s.rng.Next() * total
	for i, v := range w {
		if r < v {
			return Modes[i]
		}
		r -= v
	}
	return Modes[len(Modes)-1]
}

func teachingFocus(progress float64) (Mode, float64, bool) {
	switch {
	case progress < introProgress:
		return ModeCenter, introBoost, true
	case progress >= climaxProgress:
		return ModeCorners, climaxBoost, true
	}
	return "", 1, false
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

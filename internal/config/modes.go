package config

import (
	"fmt"
	"strings"
)

// RunMode selects how a session treats adaptation and seeding.
type RunMode string

const (
	RunModePlay     RunMode = "play"
	RunModeResearch RunMode = "research"
	RunModePractice RunMode = "practice"
)

// Capabilities is the single gate consulted by the controllers. Nothing
// downstream compares RunMode values directly.
type Capabilities struct {
	// Adaptive enables personalization from live performance signals.
	Adaptive bool
	// RequireSeed rejects sessions created without an explicit seed.
	RequireSeed bool
}

// Capabilities returns the capability set for the run mode. Unknown modes get
// the play capabilities.
func (m RunMode) Capabilities() Capabilities {
	switch m {
	case RunModeResearch:
		return Capabilities{Adaptive: false, RequireSeed: true}
	case RunModePractice:
		return Capabilities{Adaptive: false}
	default:
		return Capabilities{Adaptive: true}
	}
}

// Valid reports whether m is a known run mode.
func (m RunMode) Valid() bool {
	switch m {
	case RunModePlay, RunModeResearch, RunModePractice:
		return true
	}
	return false
}

// ParseRunMode accepts the canonical names plus "study" as an alias for research.
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "play":
		return RunModePlay, nil
	case "research", "study":
		return RunModeResearch, nil
	case "practice":
		return RunModePractice, nil
	}
	return "", fmt.Errorf("%w: unknown run mode %q", ErrInvalid, s)
}

// Difficulty is the host-selected difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// Level maps the tier onto [0,1] for geometry that scales with difficulty.
func (d Difficulty) Level() float64 {
	switch d {
	case DifficultyEasy:
		return 0.25
	case DifficultyHard:
		return 0.85
	default:
		return 0.5
	}
}

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty parses a tier name, defaulting to normal for empty input.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return DifficultyNormal, nil
	case "easy":
		return DifficultyEasy, nil
	case "hard":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalid, s)
}

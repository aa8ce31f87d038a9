package pattern

import (
	"fmt"
	"strings"
)

// Mode is the shape of upcoming spawns.
type Mode string

const (
	ModeWave    Mode = "wave"
	ModeZigzag  Mode = "zigzag"
	ModeGrid    Mode = "grid"
	ModeRing    Mode = "ring"
	ModeCorners Mode = "corners"
	ModeSpray   Mode = "spray"
	ModeCenter  Mode = "center"
)

// Modes lists every mode in table order. Weighted draws walk this order so
// results never depend on map iteration.
var Modes = []Mode{ModeWave, ModeZigzag, ModeGrid, ModeRing, ModeCorners, ModeSpray, ModeCenter}

func (m Mode) index() int {
	for i, v := range Modes {
		if v == m {
			return i
		}
	}
	return -1
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m.index() >= 0 }

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("pattern: unknown mode %q", s)
	}
	return m, nil
}

// weights is indexed in Modes order.
type weights [7]float64

// phaseWeights: early phases teach with center and wave, the middle phase
// spreads across the field, the last phase pushes corners and zigzag.
var phaseWeights = map[int]weights{
	//  wave zigzag grid ring corners spray center
	1: {3.0, 0.5, 1.0, 1.0, 0.5, 2.0, 3.0},
	2: {1.5, 2.5, 3.0, 3.0, 1.0, 1.0, 0.5},
	3: {1.0, 3.0, 1.5, 2.5, 3.0, 1.0, 0.25},
}

// weightsFor returns the table for the phase, falling back to phase 1.
func weightsFor(phase int) weights {
	if w, ok := phaseWeights[phase]; ok {
		return w
	}
	return phaseWeights[1]
}

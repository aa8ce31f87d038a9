package director

import (
	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/pacing"
)

// Vector is the tuning handed to the host. Spawn, Life and Size above 1 make
// play easier; Wrong and Junk above 1 make it harder.
type Vector struct {
	Spawn float64 `json:"spawnMul"`
	Life  float64 `json:"lifeMul"`
	Size  float64 `json:"sizeMul"`
	Wrong float64 `json:"wrongMul"`
	Junk  float64 `json:"junkMul"`
}

// Neutral is the identity tuning.
var Neutral = Vector{Spawn: 1, Life: 1, Size: 1, Wrong: 1, Junk: 1}

// Bounds are the per-field fairness limits.
type Bounds struct {
	Min Vector `json:"min"`
	Max Vector `json:"max"`
}

// DefaultBounds returns the standard per-field limits.
func DefaultBounds() Bounds {
	return Bounds{
		Min: Vector{Spawn: 0.88, Life: 0.86, Size: 0.92, Wrong: 0.78, Junk: 0.72},
		Max: Vector{Spawn: 1.20, Life: 1.22, Size: 1.12, Wrong: 1.20, Junk: 1.25},
	}
}

// Clamp bounds every field of v.
func (b Bounds) Clamp(v Vector) Vector {
	return Vector{
		Spawn: pacing.Clamp(v.Spawn, b.Min.Spawn, b.Max.Spawn),
		Life:  pacing.Clamp(v.Life, b.Min.Life, b.Max.Life),
		Size:  pacing.Clamp(v.Size, b.Min.Size, b.Max.Size),
		Wrong: pacing.Clamp(v.Wrong, b.Min.Wrong, b.Max.Wrong),
		Junk:  pacing.Clamp(v.Junk, b.Min.Junk, b.Max.Junk),
	}
}

// Forgiving returns the most forgiving vector inside the bounds.
func (b Bounds) Forgiving() Vector {
	return Vector{Spawn: b.Max.Spawn, Life: b.Max.Life, Size: b.Max.Size, Wrong: b.Min.Wrong, Junk: b.Min.Junk}
}

// Looser returns, field by field, whichever of a and b is easier.
func Looser(a, b Vector) Vector {
	return Vector{
		Spawn: max(a.Spawn, b.Spawn),
		Life:  max(a.Life, b.Life),
		Size:  max(a.Size, b.Size),
		Wrong: min(a.Wrong, b.Wrong),
		Junk:  min(a.Junk, b.Junk),
	}
}

// AtLeastAsLoose reports whether every field of v is as easy as ref or easier.
func (v Vector) AtLeastAsLoose(ref Vector) bool {
	return v.Spawn >= ref.Spawn && v.Life >= ref.Life && v.Size >= ref.Size &&
		v.Wrong <= ref.Wrong && v.Junk <= ref.Junk
}

// BaseTable is the fixed tuning per difficulty. Non-adaptive sessions use it
// unchanged.
func BaseTable(d config.Difficulty) Vector {
	switch d {
	case config.DifficultyEasy:
		return Vector{Spawn: 1.08, Life: 1.06, Size: 1.06, Wrong: 0.94, Junk: 0.92}
	case config.DifficultyHard:
		return Vector{Spawn: 0.92, Life: 0.94, Size: 0.94, Wrong: 1.06, Junk: 1.08}
	default:
		return Neutral
	}
}

package api

import (
	"fmt"
	"math"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/pattern"
	"github.com/MJE43/fairpace/internal/session"
	"github.com/MJE43/fairpace/internal/spatial"
)

const (
	maxExclusions = 64
	maxReactionMs = 60_000
	maxSeedLength = 512
	maxPhase      = 16
)

// ValidateCreateSessionRequest checks a create request and converts it to
// session parameters.
func ValidateCreateSessionRequest(req *CreateSessionRequest) (session.Params, error) {
	var p session.Params
	if len(req.Seed) > maxSeedLength {
		return p, fmt.Errorf("seed too long (max %d bytes)", maxSeedLength)
	}
	p.Seed = req.Seed

	if req.RunMode != "" {
		m, err := config.ParseRunMode(req.RunMode)
		if err != nil {
			return p, err
		}
		p.RunMode = m
	}
	if req.Difficulty != "" {
		d, err := config.ParseDifficulty(req.Difficulty)
		if err != nil {
			return p, err
		}
		p.Difficulty = d
	}
	if req.Playfield != nil {
		if err := validateRect("playfield", *req.Playfield); err != nil {
			return p, err
		}
		p.Playfield = *req.Playfield
	}
	if err := validateExclusions(req.Exclusions); err != nil {
		return p, err
	}
	p.Exclusions = req.Exclusions
	return p, nil
}

// ValidateSpawnRequest converts a spawn request to a pattern context.
func ValidateSpawnRequest(req *SpawnRequest) (pattern.Context, error) {
	ctx := pattern.Context{Phase: req.Phase, Progress: req.Progress}
	if req.Phase < 0 || req.Phase > maxPhase {
		return ctx, fmt.Errorf("phase must be between 0 and %d", maxPhase)
	}
	if !isFinite(req.Progress) {
		return ctx, fmt.Errorf("progress must be a finite number")
	}
	if req.Difficulty != "" {
		d, err := config.ParseDifficulty(req.Difficulty)
		if err != nil {
			return ctx, err
		}
		ctx.Difficulty = d
	}
	return ctx, nil
}

// ValidateHitRequest checks a hit report.
func ValidateHitRequest(req *HitRequest) error {
	if !isFinite(req.ReactionMs) || req.ReactionMs < 0 {
		return fmt.Errorf("reactionMs must be a non-negative number")
	}
	if req.ReactionMs > maxReactionMs {
		return fmt.Errorf("reactionMs too large (max %d)", maxReactionMs)
	}
	if req.TsMs < 0 {
		return fmt.Errorf("tsMs must be >= 0")
	}
	return nil
}

// ValidateMissRequest checks a miss report.
func ValidateMissRequest(req *MissRequest) error {
	if req.TsMs < 0 {
		return fmt.Errorf("tsMs must be >= 0")
	}
	return nil
}

// ValidateTickRequest checks the director signals.
func ValidateTickRequest(req *TickRequest) error {
	if a := req.Accuracy; a != nil && (!isFinite(*a) || *a < 0 || *a > 100) {
		return fmt.Errorf("accuracy must be between 0 and 1, or a percentage")
	}
	if req.Combo < 0 {
		return fmt.Errorf("combo must be >= 0")
	}
	if req.Misses < 0 {
		return fmt.Errorf("misses must be >= 0")
	}
	if !isFinite(req.MiniSecondsLeft) {
		return fmt.Errorf("miniSecondsLeft must be a finite number")
	}
	return nil
}

// ValidateLayoutRequest checks a layout update.
func ValidateLayoutRequest(req *LayoutRequest) error {
	if err := validateRect("playfield", req.Playfield); err != nil {
		return err
	}
	return validateExclusions(req.Exclusions)
}

// ValidateSeedHashRequest checks a seed hash request.
func ValidateSeedHashRequest(req *SeedHashRequest) error {
	if req.Seed == "" {
		return fmt.Errorf("seed is required")
	}
	if len(req.Seed) > maxSeedLength {
		return fmt.Errorf("seed too long (max %d bytes)", maxSeedLength)
	}
	return nil
}

func validateExclusions(rects []spatial.Rect) error {
	if len(rects) > maxExclusions {
		return fmt.Errorf("too many exclusions (max %d)", maxExclusions)
	}
	for i, r := range rects {
		if err := validateRect(fmt.Sprintf("exclusions[%d]", i), r); err != nil {
			return err
		}
	}
	return nil
}

func validateRect(field string, r spatial.Rect) error {
	if !isFinite(r.X) || !isFinite(r.Y) || !isFinite(r.W) || !isFinite(r.H) {
		return fmt.Errorf("%s must have finite coordinates", field)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

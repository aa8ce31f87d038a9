package spatial

import (
	"math"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/engine"
	"github.com/MJE43/fairpace/internal/pattern"
)

const (
	waveColumns  = 5
	waveRows     = 3
	zigzagLanes  = 5
	ringMinRatio = 0.18
	ringMaxRatio = 0.46
	cornerInset  = 0.25
	centerJitter = 0.08
)

type candidate struct {
	x, y float64
	cell int
}

// shape places one candidate for the mode inside the safe rect. Every
// coordinate is normalized to the playfield.
func shape(step pattern.Step, ctx pattern.Context, safe Rect, hist *History, rng *engine.Source) candidate {
	if step.StepIndex < 0 {
		step.StepIndex = 0
	}
	var c candidate
	switch step.Mode {
	case pattern.ModeGrid:
		c = gridPoint(ctx.Difficulty, safe, hist, rng)
	case pattern.ModeRing:
		c = ringPoint(step.StepIndex, safe, rng)
	case pattern.ModeWave:
		c = wavePoint(step.StepIndex, ctx.Phase, safe, rng)
	case pattern.ModeZigzag:
		c = zigzagPoint(step.StepIndex, ctx.Difficulty, safe, rng)
	case pattern.ModeCorners:
		c = cornerPoint(step.StepIndex, safe, rng)
	case pattern.ModeCenter:
		cx, cy := safe.Center()
		c = candidate{x: cx + rng.Jitter(centerJitter*safe.W), y: cy + rng.Jitter(centerJitter*safe.H), cell: NoCell}
	default:
		c = uniformPoint(safe, rng)
	}
	c.x, c.y = safe.Clamp(c.x, c.y)
	return c
}

func uniformPoint(safe Rect, rng *engine.Source) candidate {
	return candidate{x: safe.X + rng.Next()*safe.W, y: safe.Y + rng.Next()*safe.H, cell: NoCell}
}

func gridSize(d config.Difficulty) int {
	if d == config.DifficultyHard {
		return 4
	}
	return 3
}

// gridPoint jitters inside a cell that is not in recent history, if any.
func gridPoint(d config.Difficulty, safe Rect, hist *History, rng *engine.Source) candidate {
	n := gridSize(d)
	free := make([]int, 0, n*n)
	for cell := 0; cell < n*n; cell++ {
		if hist == nil || !hist.HasCell(cell) {
			free = append(free, cell)
		}
	}
	var cell int
	if len(free) > 0 {
		cell = free[rng.Intn(len(free))]
	} else {
		cell = rng.Intn(n * n)
	}
	row, col := cell/n, cell%n
	cw, ch := safe.W/float64(n), safe.H/float64(n)
	return candidate{
		x:    safe.X + (float64(col)+0.5)*cw + rng.Jitter(0.3*cw),
		y:    safe.Y + (float64(row)+0.5)*ch + rng.Jitter(0.3*ch),
		cell: cell,
	}
}

// ringPoint advances the angle by a tenth of a turn per step.
func ringPoint(stepIndex int, safe Rect, rng *engine.Source) candidate {
	cx, cy := safe.Center()
	side := math.Min(safe.W, safe.H)
	r := rng.Range(ringMinRatio, ringMaxRatio) * side
	a := float64(stepIndex)*math.Pi/5 + rng.Jitter(math.Pi/10)
	return candidate{x: cx + math.Cos(a)*r, y: cy + math.Sin(a)*r, cell: NoCell}
}

// wavePoint ping-pongs across the columns; the row follows the phase.
func wavePoint(stepIndex, phase int, safe Rect, rng *engine.Source) candidate {
	period := 2 * (waveColumns - 1)
	pos := stepIndex % period
	col := pos
	if pos >= waveColumns {
		col = period - pos
	}
	row := phase - 1
	if row < 0 || row >= waveRows {
		row = 0
	}
	cw, rh := safe.W/waveColumns, safe.H/waveRows
	return candidate{
		x:    safe.X + (float64(col)+0.5)*cw + rng.Jitter(0.25*cw),
		y:    safe.Y + (float64(row)+0.5)*rh + rng.Jitter(0.3*rh),
		cell: NoCell,
	}
}

// zigzagPoint alternates left and right while stepping through lanes; harder
// sessions jump more lanes per step.
func zigzagPoint(stepIndex int, d config.Difficulty, safe Rect, rng *engine.Source) candidate {
	jump := 1 + int(math.Round(d.Level()*3))
	lane := (stepIndex * jump) % zigzagLanes
	side := 0.2
	if stepIndex%2 == 1 {
		side = 0.8
	}
	lh := safe.H / zigzagLanes
	return candidate{
		x:    safe.X + side*safe.W + rng.Jitter(0.06*safe.W),
		y:    safe.Y + (float64(lane)+0.5)*lh + rng.Jitter(0.25*lh),
		cell: NoCell,
	}
}

// cornerPoint rotates clockwise from the top-left, one grid cell in from the edge.
func cornerPoint(stepIndex int, safe Rect, rng *engine.Source) candidate {
	fx := [4]float64{cornerInset, 1 - cornerInset, 1 - cornerInset, cornerInset}
	fy := [4]float64{cornerInset, cornerInset, 1 - cornerInset, 1 - cornerInset}
	k := stepIndex % 4
	return candidate{
		x:    safe.X + (fx[k]+rng.Jitter(0.04))*safe.W,
		y:    safe.Y + (fy[k]+rng.Jitter(0.04))*safe.H,
		cell: NoCell,
	}
}

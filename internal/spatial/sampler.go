package spatial

import (
	"math"
	"slices"

	"github.com/MJE43/fairpace/internal/engine"
	"github.com/MJE43/fairpace/internal/pattern"
)

// Stage names how a point was resolved.
type Stage string

const (
	StagePrimary Stage = "primary"
	StageRelaxed Stage = "relaxed"
	StageLattice Stage = "lattice"
	StageCenter  Stage = "center"
)

const (
	latticeSize   = 16
	edgeNudge     = 1e-4
	repulsionEps  = 1e-3
	closeRepulsor = 25.0
)

// Options tunes the sampler. Fractions are of the playfield size.
type Options struct {
	Candidates      int
	EdgeMarginPct   float64
	ExclusionPadPct float64
	MinSeparation   float64
}

// DefaultOptions matches config.Default.
func DefaultOptions() Options {
	return Options{Candidates: 16, EdgeMarginPct: 0.04, ExclusionPadPct: 0.02, MinSeparation: 0.09}
}

// Result is a placed spawn. XPct/YPct are fractions of the playfield; X/Y are
// in playfield units.
type Result struct {
	XPct       float64      `json:"xPct"`
	YPct       float64      `json:"yPct"`
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	Mode       pattern.Mode `json:"mode"`
	StepIndex  int          `json:"stepIndex"`
	Cell       int          `json:"cell"`
	Stage      Stage        `json:"stage"`
	Candidates int          `json:"candidates"`
}

// Sampler places spawn points. It holds no per-session state; history and
// the random stream are passed in.
type Sampler struct {
	opts Options
}

// NewSampler sanitizes opts and returns a sampler.
func NewSampler(opts Options) *Sampler {
	d := DefaultOptions()
	if opts.Candidates < 1 {
		opts.Candidates = d.Candidates
	}
	opts.EdgeMarginPct = clamp(finite(opts.EdgeMarginPct), 0, 0.45)
	opts.ExclusionPadPct = clamp(finite(opts.ExclusionPadPct), 0, 0.45)
	opts.MinSeparation = clamp(finite(opts.MinSeparation), 0, 1)
	return &Sampler{opts: opts}
}

// Options returns the sanitized options.
func (s *Sampler) Options() Options { return s.opts }

// PickPoint chooses a point for the step and pushes it into hist. It always
// returns a point inside the playfield. Exclusions are in playfield units.
func (s *Sampler) PickPoint(playfield Rect, hist *History, exclusions []Rect, step pattern.Step, ctx pattern.Context, rng *engine.Source) Result {
	pf := playfield.Sanitize(MinExtent)
	raw := normalizeExclusions(pf, exclusions)
	m := s.opts.EdgeMarginPct
	safe := Rect{X: m, Y: m, W: 1 - 2*m, H: 1 - 2*m}

	var last *Entry
	if hist != nil {
		if e, ok := hist.Last(); ok {
			last = &e
		}
	}

	cands := make([]candidate, 0, 2*s.opts.Candidates)
	for i := 0; i < s.opts.Candidates; i++ {
		cands = append(cands, shape(step, ctx, safe, hist, rng))
	}

	pad := s.opts.ExclusionPadPct
	stage := StagePrimary
	best, ok := s.choose(cands, hist, last, inflateAll(MergeOverlapping(raw), pad))
	if !ok {
		stage = StageRelaxed
		for i := 0; i < s.opts.Candidates; i++ {
			cands = append(cands, uniformPoint(safe, rng))
		}
		for _, relaxed := range []float64{pad * 0.5, 0} {
			if best, ok = s.choose(cands, hist, last, inflateAll(raw, relaxed)); ok {
				break
			}
		}
	}
	if !ok {
		stage = StageLattice
		best, ok = s.lattice(safe, hist, last, raw)
		if !ok {
			best, ok = s.scan(edgeAxis(safe.X, safe.W, raw, Rect.xSpan), edgeAxis(safe.Y, safe.H, raw, Rect.ySpan), hist, last, raw)
		}
	}
	if !ok {
		stage = StageCenter
		cx, cy := safe.Center()
		best = candidate{x: cx, y: cy, cell: NoCell}
	}

	if hist != nil {
		hist.Push(Entry{X: best.x, Y: best.y, Cell: best.cell})
	}
	return Result{
		XPct:       best.x,
		YPct:       best.y,
		X:          pf.X + best.x*pf.W,
		Y:          pf.Y + best.y*pf.H,
		Mode:       step.Mode,
		StepIndex:  step.StepIndex,
		Cell:       best.cell,
		Stage:      stage,
		Candidates: len(cands),
	}
}

// choose returns the lowest-penalty candidate outside every exclusion that
// does not repeat the previous point.
func (s *Sampler) choose(cands []candidate, hist *History, last *Entry, excl []Rect) (candidate, bool) {
	bestIdx := -1
	bestPenalty := math.Inf(1)
	for i, c := range cands {
		if repeats(c, last) || excluded(c.x, c.y, excl) {
			continue
		}
		if p := s.penalty(c, hist); p < bestPenalty {
			bestIdx, bestPenalty = i, p
		}
	}
	if bestIdx < 0 {
		return candidate{}, false
	}
	return cands[bestIdx], true
}

// penalty sums inverse-distance repulsion from every remembered spawn, much
// stronger inside the minimum separation.
func (s *Sampler) penalty(c candidate, hist *History) float64 {
	if hist == nil {
		return 0
	}
	total := 0.0
	for _, e := range hist.items {
		d := math.Hypot(c.x-e.X, c.y-e.Y)
		p := 1 / (d + repulsionEps)
		if d < s.opts.MinSeparation {
			p *= closeRepulsor
		}
		total += p
	}
	return total
}

// lattice scans a regular grid of the safe rect for the valid point farthest
// in aggregate from the exclusions. Ties go to the lower repulsion penalty.
func (s *Sampler) lattice(safe Rect, hist *History, last *Entry, excl []Rect) (candidate, bool) {
	xs := make([]float64, latticeSize)
	ys := make([]float64, latticeSize)
	for i := range latticeSize {
		xs[i] = safe.X + (float64(i)+0.5)/latticeSize*safe.W
		ys[i] = safe.Y + (float64(i)+0.5)/latticeSize*safe.H
	}
	return s.scan(xs, ys, hist, last, excl)
}

// scan scores every (x, y) pair of the two axes.
func (s *Sampler) scan(xs, ys []float64, hist *History, last *Entry, excl []Rect) (candidate, bool) {
	var best candidate
	found := false
	bestScore, bestPenalty := -1.0, math.Inf(1)
	for _, y := range ys {
		for _, x := range xs {
			c := candidate{x: x, y: y, cell: NoCell}
			if repeats(c, last) || excluded(c.x, c.y, excl) {
				continue
			}
			score := 0.0
			for _, r := range excl {
				score += r.Distance(c.x, c.y)
			}
			p := s.penalty(c, hist)
			if score > bestScore+1e-9 || (math.Abs(score-bestScore) <= 1e-9 && p < bestPenalty) {
				best, bestScore, bestPenalty, found = c, score, p, true
			}
		}
	}
	return best, found
}

// edgeAxis returns coordinates along one axis of the safe span [lo, lo+size]:
// just outside every exclusion edge and the midpoint of every gap between
// consecutive edges. It finds free bands narrower than the lattice spacing.
func edgeAxis(lo, size float64, excl []Rect, span func(Rect) (float64, float64)) []float64 {
	hi := lo + size
	edges := []float64{lo, hi}
	for _, r := range excl {
		a, b := span(r)
		edges = append(edges, clamp(a, lo, hi), clamp(b, lo, hi))
	}
	slices.Sort(edges)
	edges = slices.Compact(edges)

	out := make([]float64, 0, 3*len(edges))
	for i, e := range edges {
		out = append(out, clamp(e-edgeNudge, lo, hi), clamp(e+edgeNudge, lo, hi))
		if i > 0 {
			out = append(out, (edges[i-1]+e)/2)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// normalizeExclusions converts rects from playfield units to playfield
// fractions, dropping empty ones.
func normalizeExclusions(pf Rect, rects []Rect) []Rect {
	out := make([]Rect, 0, len(rects))
	for _, r := range rects {
		r.X, r.Y, r.W, r.H = finite(r.X), finite(r.Y), finite(r.W), finite(r.H)
		if r.W < 0 {
			r.X, r.W = r.X+r.W, -r.W
		}
		if r.H < 0 {
			r.Y, r.H = r.Y+r.H, -r.H
		}
		n := Rect{X: (r.X - pf.X) / pf.W, Y: (r.Y - pf.Y) / pf.H, W: r.W / pf.W, H: r.H / pf.H}
		if !n.Empty() {
			out = append(out, n)
		}
	}
	return out
}

func inflateAll(rects []Rect, pad float64) []Rect {
	out := make([]Rect, len(rects))
	for i, r := range rects {
		out[i] = r.Inflate(pad)
	}
	return out
}

func excluded(x, y float64, rects []Rect) bool {
	for _, r := range rects {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

func repeats(c candidate, last *Entry) bool {
	return last != nil && c.x == last.X && c.y == last.Y
}

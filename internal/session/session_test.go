package session

import (
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/director"
	"github.com/MJE43/fairpace/internal/pattern"
	"github.com/MJE43/fairpace/internal/spatial"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func mustNew(t *testing.T, p Params) *Session {
	t.Helper()
	s, err := New(config.Default(), p, testNow)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestResearchRequiresSeed(t *testing.T) {
	for _, seed := range []string{"", "   "} {
		_, err := New(config.Default(), Params{RunMode: config.RunModeResearch, Seed: seed}, testNow)
		if !errors.Is(err, ErrSeedRequired) {
			t.Errorf("seed %q: error = %v, want ErrSeedRequired", seed, err)
		}
	}

	s := mustNew(t, Params{RunMode: config.RunModeResearch, Seed: "study-001"})
	if s.Seed() != "study-001" || s.Capabilities().Adaptive {
		t.Errorf("research session seed=%q caps=%+v", s.Seed(), s.Capabilities())
	}
}

func TestPlayWithoutSeedDerivesFromClock(t *testing.T) {
	s := mustNew(t, Params{})
	want := strconv.FormatInt(testNow.UnixMilli(), 10)
	if s.Seed() != want {
		t.Errorf("Seed() = %q, want %q", s.Seed(), want)
	}
	if s.RunMode() != config.RunModePlay {
		t.Errorf("RunMode() = %q", s.RunMode())
	}
}

func TestInvalidParams(t *testing.T) {
	if _, err := New(config.Default(), Params{RunMode: "arcade"}, testNow); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("bad run mode error = %v", err)
	}
	if _, err := New(config.Default(), Params{Difficulty: "insane"}, testNow); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("bad difficulty error = %v", err)
	}
}

func playScript(s *Session) ([]Spawn, []director.Vector) {
	var spawns []Spawn
	var tunings []director.Vector
	for i := 0; i < 120; i++ {
		ctx := pattern.Context{Phase: 1 + i/40, Progress: float64(i) / 120}
		spawns = append(spawns, s.PickNextSpawn(ctx))
		if i%4 == 3 {
			s.OnMiss(int64(i) * 700)
		} else {
			s.OnHit(250+float64(i%5)*60, int64(i)*700)
		}
		if i%2 == 0 {
			tunings = append(tunings, s.Tick(director.Signals{Combo: i % 9, StormActive: i%30 < 5}))
		}
	}
	return spawns, tunings
}

func TestSameSeedReproducesSession(t *testing.T) {
	p := Params{Seed: "study-001", Playfield: spatial.Rect{W: 1280, H: 720}, Exclusions: []spatial.Rect{{X: 0, Y: 0, W: 1280, H: 90}}}
	a, b := mustNew(t, p), mustNew(t, p)
	if a.ID() == b.ID() {
		t.Fatal("two sessions share an ID")
	}
	sa, ta := playScript(a)
	sb, tb := playScript(b)
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("spawn %d differs: %+v vs %+v", i, sa[i], sb[i])
		}
	}
	for i := range ta {
		if ta[i] != tb[i] {
			t.Fatalf("tuning %d differs: %+v vs %+v", i, ta[i], tb[i])
		}
	}
	da, db := a.Diagnostics(), b.Diagnostics()
	if da.Pacing != db.Pacing || da.Tuning != db.Tuning || da.SpawnDraws != db.SpawnDraws {
		t.Errorf("diagnostics differ: %+v vs %+v", da, db)
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := mustNew(t, Params{Seed: "a"})
	b := mustNew(t, Params{Seed: "b"})
	same := 0
	for i := 0; i < 20; i++ {
		x := a.PickNextSpawn(pattern.Context{Phase: 2, Progress: 0.5})
		y := b.PickNextSpawn(pattern.Context{Phase: 2, Progress: 0.5})
		if x.XPct == y.XPct && x.YPct == y.YPct {
			same++
		}
	}
	if same > 1 {
		t.Errorf("%d of 20 spawns identical across seeds", same)
	}
}

func TestSpawnsAvoidExcludedBands(t *testing.T) {
	s := mustNew(t, Params{
		Seed:      "bands",
		Playfield: spatial.Rect{W: 1000, H: 1000},
		Exclusions: []spatial.Rect{
			{X: 0, Y: 0, W: 1000, H: 500},
			{X: 0, Y: 900, W: 1000, H: 100},
		},
	})
	for i := 0; i < 100; i++ {
		sp := s.PickNextSpawn(pattern.Context{Phase: 1 + i%3, Progress: float64(i) / 100})
		if sp.Y <= 500 || sp.Y >= 900 {
			t.Fatalf("spawn %d at y=%.2f outside the middle band (mode %s, stage %s)", i, sp.Y, sp.Mode, sp.Stage)
		}
	}
}

func TestResearchTickIgnoresSignals(t *testing.T) {
	s := mustNew(t, Params{Seed: "study-007", RunMode: config.RunModeResearch, Difficulty: config.DifficultyHard})
	want := director.BaseTable(config.DifficultyHard)
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			s.OnMiss(int64(i))
		} else {
			s.OnHit(900, int64(i))
		}
		got := s.Tick(director.Signals{StormActive: true, BossActive: true, MiniActive: true, MiniSecondsLeft: 3, Combo: i})
		if got != want {
			t.Fatalf("tick %d: %+v, want %+v", i, got, want)
		}
	}
}

func TestNonAdaptivePacingStaysNeutral(t *testing.T) {
	for _, p := range []Params{
		{Seed: "study-1", RunMode: config.RunModeResearch},
		{Seed: "drill-1", RunMode: config.RunModePractice},
	} {
		s := mustNew(t, p)
		for i := 0; i < 10; i++ {
			s.OnMiss(int64(i) * 1000)
		}
		sp := s.PickNextSpawn(pattern.Context{Phase: 1, Progress: 0.5})
		if sp.SpawnMul != 1 || sp.LifeMul != 1 {
			t.Errorf("%s: spawn multipliers = %v/%v, want 1/1", p.RunMode, sp.SpawnMul, sp.LifeMul)
		}
		if m := s.Multipliers(); m.Spawn != 1 || m.Lifetime != 1 {
			t.Errorf("%s: Multipliers() = %+v, want 1/1", p.RunMode, m)
		}
		if d := s.Diagnostics(); d.Pacing.Misses != 10 {
			t.Errorf("%s: diagnostics misses = %d, want 10", p.RunMode, d.Pacing.Misses)
		}
	}
}

func TestExplicitZeroAccuracyIsKept(t *testing.T) {
	zero, omitted := mustNew(t, Params{Seed: "acc"}), mustNew(t, Params{Seed: "acc"})
	for i := 0; i < 10; i++ {
		zero.OnHit(200, int64(i)*1000)
		omitted.OnHit(200, int64(i)*1000)
	}
	acc := 0.0
	z := zero.Tick(director.Signals{Combo: 20, Accuracy: &acc})
	o := omitted.Tick(director.Signals{Combo: 20})
	if z.Wrong >= o.Wrong || z.Junk >= o.Junk {
		t.Errorf("zero accuracy tuning %+v not looser than hit-ratio tuning %+v", z, o)
	}
}

func TestMissesDrivePacingToBound(t *testing.T) {
	s := mustNew(t, Params{Seed: "misses"})
	for i := 0; i < 10; i++ {
		s.OnMiss(int64(i) * 1000)
	}
	if m := s.Multipliers(); m.Spawn != config.Default().SpawnMulMax {
		t.Errorf("spawn multiplier = %v, want %v", m.Spawn, config.Default().SpawnMulMax)
	}
	tune := s.Tick(director.Signals{})
	if tune.Spawn <= 1 {
		t.Errorf("director did not loosen after misses: %+v", tune)
	}
}

func TestResetPatternClearsHistory(t *testing.T) {
	s := mustNew(t, Params{Seed: "reset"})
	for i := 0; i < 5; i++ {
		s.PickNextSpawn(pattern.Context{Phase: 1, Progress: 0.5})
	}
	if len(s.History()) != 5 {
		t.Fatalf("history length = %d, want 5", len(s.History()))
	}
	before := s.Multipliers()
	s.ResetPattern()
	if len(s.History()) != 0 {
		t.Errorf("history length after reset = %d", len(s.History()))
	}
	if s.Diagnostics().PatternMode != "" {
		t.Errorf("pattern mode survived reset")
	}
	if s.Multipliers() != before {
		t.Errorf("ResetPattern changed pacing")
	}
}

func TestHistoryCapacityHonoured(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryCapacity = 3
	s, err := New(cfg, Params{Seed: "cap"}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		s.PickNextSpawn(pattern.Context{})
		if n := len(s.History()); n > 3 {
			t.Fatalf("history length %d exceeds 3", n)
		}
	}
}

func TestDiagnosticsRounded(t *testing.T) {
	s := mustNew(t, Params{Seed: "diag"})
	for i := 0; i < 7; i++ {
		s.OnHit(333.3333, int64(i))
		s.PickNextSpawn(pattern.Context{})
	}
	acc := 0.81
	s.Tick(director.Signals{Combo: 7, Accuracy: &acc})
	d := s.Diagnostics()
	vals := []float64{
		d.Pacing.SpawnMultiplier, d.Pacing.LifetimeMultiplier, d.Pacing.RiskEstimate,
		d.Pacing.ReactionTimeEwma, d.Pacing.ReactionVarianceEwma, d.Pacing.MissRateEwma,
		d.Tuning.Spawn, d.Tuning.Life, d.Tuning.Size, d.Tuning.Wrong, d.Tuning.Junk,
	}
	for i, v := range vals {
		if math.Abs(v*1000-math.Round(v*1000)) > 1e-6 {
			t.Errorf("value %d = %v has more than three decimals", i, v)
		}
	}
	if d.Spawns != 7 || d.Events != 7 || d.SeedHash != HashSeed("diag") || len(d.SeedHash) != 16 {
		t.Errorf("diagnostics counters wrong: %+v", d)
	}
}

type fakeRecorder struct {
	mu        sync.Mutex
	started   []Info
	spawns    int
	events    []Event
	snapshots int
	ended     []string
}

func (f *fakeRecorder) SessionStarted(info Info) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, info)
}

func (f *fakeRecorder) SpawnPlaced(string, Spawn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spawns++
}

func (f *fakeRecorder) EventRecorded(_ string, ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeRecorder) SnapshotTaken(string, Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
}

func (f *fakeRecorder) SessionEnded(id string, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
}

func TestManagerLifecycle(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewManager(config.Default(), rec)

	if _, err := m.Create(Params{RunMode: config.RunModeResearch}); !errors.Is(err, ErrSeedRequired) {
		t.Fatalf("Create() without seed error = %v", err)
	}
	s, err := m.Create(Params{Seed: "mgr"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	id := s.ID()

	err = m.Do(id, func(s *Session) error {
		s.PickNextSpawn(pattern.Context{})
		s.OnHit(300, 1)
		s.OnMiss(2)
		s.Tick(director.Signals{})
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if m.Len() != 1 || m.IDs()[0] != id {
		t.Errorf("IDs() = %v", m.IDs())
	}

	if err := m.Delete(id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := m.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
	if err := m.Do(id, func(*Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Do() after delete error = %v", err)
	}

	if len(rec.started) != 1 || rec.spawns != 1 || len(rec.events) != 2 || rec.snapshots != 1 || len(rec.ended) != 1 {
		t.Errorf("recorder saw started=%d spawns=%d events=%d snapshots=%d ended=%d",
			len(rec.started), rec.spawns, len(rec.events), rec.snapshots, len(rec.ended))
	}
	if rec.events[0].Kind != EventHit || rec.events[1].Kind != EventMiss || rec.events[1].Seq != 2 {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := NewManager(config.Default(), nil)
	s, err := m.Create(Params{Seed: "concurrent"})
	if err != nil {
		t.Fatal(err)
	}
	const workers, perWorker = 8, 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = m.Do(s.ID(), func(s *Session) error {
					s.PickNextSpawn(pattern.Context{Phase: 1 + w%3})
					s.OnHit(300, int64(i))
					return nil
				})
			}
		}(w)
	}
	wg.Wait()

	var d Snapshot
	_ = m.Do(s.ID(), func(s *Session) error {
		d = s.Diagnostics()
		return nil
	})
	if d.Spawns != workers*perWorker || d.Events != workers*perWorker {
		t.Errorf("spawns=%d events=%d, want %d each", d.Spawns, d.Events, workers*perWorker)
	}
}

// Package journal writes a write-only audit trail of sessions to the store.
package journal

import (
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/fairpace/internal/session"
	"github.com/MJE43/fairpace/internal/store"
)

const (
	defaultFlushSize = 50
	queueDepth       = 256
)

// Recorder buffers spawns and events per session and writes them to the
// store in batches from a single writer goroutine, so rows for a session are
// written in the order they were recorded.
type Recorder struct {
	db        store.DB
	flushSize int

	mu     sync.Mutex
	spawns map[string][]store.SpawnRow
	events map[string][]store.EventRow
	closed bool

	jobs chan job
	done chan struct{}
}

type job struct {
	name string
	run  func() error
}

var _ session.Recorder = (*Recorder)(nil)

// New starts a recorder. flushSize controls how many rows of one kind are
// buffered per session before a batch insert.
func New(db store.DB, flushSize int) *Recorder {
	if flushSize <= 0 {
		flushSize = defaultFlushSize
	}
	r := &Recorder{
		db:        db,
		flushSize: flushSize,
		spawns:    make(map[string][]store.SpawnRow),
		events:    make(map[string][]store.EventRow),
		jobs:      make(chan job, queueDepth),
		done:      make(chan struct{}),
	}
	go r.writer()
	return r
}

func (r *Recorder) writer() {
	defer close(r.done)
	for j := range r.jobs {
		if j.run == nil {
			continue
		}
		if err := j.run(); err != nil {
			log.Printf("[JOURNAL] %s error: %v", j.name, err)
		}
	}
}

// SessionStarted journals a new session.
func (r *Recorder) SessionStarted(info session.Info) {
	row := &store.SessionRow{
		ID:         info.ID,
		RunMode:    info.RunMode,
		Difficulty: info.Difficulty,
		SeedHash:   info.SeedHash,
		CreatedAt:  info.CreatedAt,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueueLocked("save session", func() error { return r.db.SaveSession(row) })
}

// SpawnPlaced buffers a spawn.
func (r *Recorder) SpawnPlaced(sessionID string, sp session.Spawn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spawns[sessionID] = append(r.spawns[sessionID], store.SpawnRow{
		Seq:       sp.Seq,
		Mode:      string(sp.Mode),
		StepIndex: sp.StepIndex,
		XPct:      sp.XPct,
		YPct:      sp.YPct,
		Stage:     string(sp.Stage),
		SpawnMul:  fixed(sp.SpawnMul),
		LifeMul:   fixed(sp.LifeMul),
	})
	if len(r.spawns[sessionID]) >= r.flushSize {
		r.flushSpawnsLocked(sessionID)
	}
}

// EventRecorded buffers a hit or miss.
func (r *Recorder) EventRecorded(sessionID string, ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[sessionID] = append(r.events[sessionID], store.EventRow{
		Seq:        ev.Seq,
		Kind:       ev.Kind,
		ReactionMs: ev.ReactionMs,
		TsMs:       ev.TsMs,
	})
	if len(r.events[sessionID]) >= r.flushSize {
		r.flushEventsLocked(sessionID)
	}
}

// SnapshotTaken flushes the session's buffers and journals the snapshot.
func (r *Recorder) SnapshotTaken(sessionID string, snap session.Snapshot) {
	row := &store.SnapshotRow{
		Spawns:    snap.Spawns,
		Events:    snap.Events,
		SpawnMul:  fixed(snap.Pacing.SpawnMultiplier),
		LifeMul:   fixed(snap.Pacing.LifetimeMultiplier),
		Risk:      fixed(snap.Pacing.RiskEstimate),
		TuneSpawn: fixed(snap.Tuning.Spawn),
		TuneLife:  fixed(snap.Tuning.Life),
		Size:      fixed(snap.Tuning.Size),
		Wrong:     fixed(snap.Tuning.Wrong),
		Junk:      fixed(snap.Tuning.Junk),
		TakenAt:   snap.TakenAt,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushSessionLocked(sessionID)
	r.enqueueLocked("insert snapshot", func() error { return r.db.InsertSnapshot(sessionID, row) })
}

// SessionEnded flushes the session's buffers and stamps its end time.
func (r *Recorder) SessionEnded(sessionID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushSessionLocked(sessionID)
	delete(r.spawns, sessionID)
	delete(r.events, sessionID)
	r.enqueueLocked("end session", func() error { return r.db.EndSession(sessionID, at) })
}

// Flush writes every buffered row and waits until the store has them.
func (r *Recorder) Flush() {
	barrier := make(chan struct{})
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	for id := range r.spawns {
		r.flushSessionLocked(id)
	}
	for id := range r.events {
		r.flushSessionLocked(id)
	}
	r.jobs <- job{name: "barrier", run: func() error { close(barrier); return nil }}
	r.mu.Unlock()
	<-barrier
}

// Close flushes and stops the writer. Later calls are dropped.
func (r *Recorder) Close() error {
	r.Flush()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()
	<-r.done
	return nil
}

func (r *Recorder) flushSessionLocked(sessionID string) {
	r.flushSpawnsLocked(sessionID)
	r.flushEventsLocked(sessionID)
}

func (r *Recorder) flushSpawnsLocked(sessionID string) {
	buf := r.spawns[sessionID]
	if len(buf) == 0 {
		return
	}
	rows := make([]store.SpawnRow, len(buf))
	copy(rows, buf)
	r.spawns[sessionID] = buf[:0]
	r.enqueueLocked("flush spawns", func() error { return r.db.InsertSpawns(sessionID, rows) })
}

func (r *Recorder) flushEventsLocked(sessionID string) {
	buf := r.events[sessionID]
	if len(buf) == 0 {
		return
	}
	rows := make([]store.EventRow, len(buf))
	copy(rows, buf)
	r.events[sessionID] = buf[:0]
	r.enqueueLocked("flush events", func() error { return r.db.InsertEvents(sessionID, rows) })
}

func (r *Recorder) enqueueLocked(name string, run func() error) {
	if r.closed {
		log.Printf("[JOURNAL] %s dropped: recorder closed", name)
		return
	}
	r.jobs <- job{name: name, run: run}
}

func fixed(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(3)
}

package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// DB is the session journal. It is written by the journal recorder and read
// back only for offline review; no session ever loads state from it.
type DB interface {
	SaveSession(s *SessionRow) error
	EndSession(id string, at time.Time) error
	InsertSpawns(sessionID string, spawns []SpawnRow) error
	InsertEvents(sessionID string, events []EventRow) error
	InsertSnapshot(sessionID string, snap *SnapshotRow) error
	GetSession(id string) (*SessionRow, error)
	ListSessions(query SessionsQuery) (*SessionsList, error)
	ListSpawns(sessionID string) ([]SpawnRow, error)
	ListEvents(sessionID string) ([]EventRow, error)
	ListSnapshots(sessionID string) ([]SnapshotRow, error)
	DeleteSession(id string) error
	Close() error
}

// SessionRow is one journaled session.
type SessionRow struct {
	ID         string     `json:"id"`
	RunMode    string     `json:"runMode"`
	Difficulty string     `json:"difficulty"`
	SeedHash   string     `json:"seedHash"`
	CreatedAt  time.Time  `json:"createdAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
	Spawns     int        `json:"spawns"`
	Events     int        `json:"events"`
}

// SpawnRow is one placed target.
type SpawnRow struct {
	Seq       int             `json:"seq"`
	Mode      string          `json:"mode"`
	StepIndex int             `json:"stepIndex"`
	XPct      float64         `json:"xPct"`
	YPct      float64         `json:"yPct"`
	Stage     string          `json:"stage"`
	SpawnMul  decimal.Decimal `json:"spawnMultiplier"`
	LifeMul   decimal.Decimal `json:"lifetimeMultiplier"`
}

// EventRow is one hit or miss.
type EventRow struct {
	Seq        int     `json:"seq"`
	Kind       string  `json:"kind"`
	ReactionMs float64 `json:"reactionMs"`
	TsMs       int64   `json:"tsMs"`
}

// SnapshotRow is a diagnostics snapshot. Multipliers are stored as fixed
// precision text so exports match the values the host saw. SpawnMul and
// LifeMul are the pacing multipliers; TuneSpawn through Junk are the
// director's tuning vector.
type SnapshotRow struct {
	ID        int64           `json:"id"`
	Spawns    int             `json:"spawns"`
	Events    int             `json:"events"`
	SpawnMul  decimal.Decimal `json:"spawnMultiplier"`
	LifeMul   decimal.Decimal `json:"lifetimeMultiplier"`
	Risk      decimal.Decimal `json:"risk"`
	TuneSpawn decimal.Decimal `json:"tuneSpawnMul"`
	TuneLife  decimal.Decimal `json:"tuneLifeMul"`
	Size      decimal.Decimal `json:"sizeMul"`
	Wrong     decimal.Decimal `json:"wrongMul"`
	Junk      decimal.Decimal `json:"junkMul"`
	TakenAt   time.Time       `json:"takenAt"`
}

// SessionsQuery filters and paginates ListSessions.
type SessionsQuery struct {
	RunMode string `json:"runMode,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// SessionsList is one page of sessions.
type SessionsList struct {
	Sessions   []SessionRow `json:"sessions"`
	TotalCount int          `json:"totalCount"`
	Page       int          `json:"page"`
	PerPage    int          `json:"perPage"`
	TotalPages int          `json:"totalPages"`
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("store: session not found")

// SQLiteDB implements DB on SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens the journal at path. ":memory:" keeps a single
// connection so every query sees the same database.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: busy timeout: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate creates the journal tables.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			run_mode TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			seed_hash TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL,
			ended_at_ms INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS spawns (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			mode TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			x_pct REAL NOT NULL,
			y_pct REAL NOT NULL,
			stage TEXT NOT NULL,
			spawn_mul TEXT NOT NULL,
			life_mul TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('hit', 'miss')),
			reaction_ms REAL NOT NULL DEFAULT 0,
			ts_ms INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			spawns INTEGER NOT NULL,
			events INTEGER NOT NULL,
			spawn_mul TEXT NOT NULL,
			life_mul TEXT NOT NULL,
			risk TEXT NOT NULL,
			tune_spawn_mul TEXT NOT NULL,
			tune_life_mul TEXT NOT NULL,
			size_mul TEXT NOT NULL,
			wrong_mul TEXT NOT NULL,
			junk_mul TEXT NOT NULL,
			taken_at_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_run_mode ON sessions(run_mode)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// SaveSession inserts a session, assigning an ID when empty.
func (s *SQLiteDB) SaveSession(sess *SessionRow) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, run_mode, difficulty, seed_hash, created_at_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.RunMode, sess.Difficulty, sess.SeedHash, sess.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}

// EndSession stamps the end time of a session.
func (s *SQLiteDB) EndSession(id string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE sessions SET ended_at_ms = ? WHERE id = ?`, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("store: end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: end session %q: %w", id, ErrNotFound)
	}
	return nil
}

// InsertSpawns records spawns in a single transaction.
func (s *SQLiteDB) InsertSpawns(sessionID string, spawns []SpawnRow) error {
	if len(spawns) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO spawns (session_id, seq, mode, step_index, x_pct, y_pct, stage, spawn_mul, life_mul)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, sp := range spawns {
		_, err := stmt.Exec(sessionID, sp.Seq, sp.Mode, sp.StepIndex, sp.XPct, sp.YPct, sp.Stage,
			sp.SpawnMul.String(), sp.LifeMul.String())
		if err != nil {
			return fmt.Errorf("store: insert spawn #%d: %w", sp.Seq, err)
		}
	}
	return tx.Commit()
}

// InsertEvents records hit/miss events in a single transaction.
func (s *SQLiteDB) InsertEvents(sessionID string, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO events (session_id, seq, kind, reaction_ms, ts_ms) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(sessionID, ev.Seq, ev.Kind, ev.ReactionMs, ev.TsMs); err != nil {
			return fmt.Errorf("store: insert event #%d: %w", ev.Seq, err)
		}
	}
	return tx.Commit()
}

// InsertSnapshot saves a diagnostics snapshot.
func (s *SQLiteDB) InsertSnapshot(sessionID string, snap *SnapshotRow) error {
	res, err := s.db.Exec(
		`INSERT INTO snapshots (session_id, spawns, events, spawn_mul, life_mul, risk,
			tune_spawn_mul, tune_life_mul, size_mul, wrong_mul, junk_mul, taken_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, snap.Spawns, snap.Events,
		snap.SpawnMul.String(), snap.LifeMul.String(), snap.Risk.String(),
		snap.TuneSpawn.String(), snap.TuneLife.String(),
		snap.Size.String(), snap.Wrong.String(), snap.Junk.String(),
		snap.TakenAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: insert snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = id
	}
	return nil
}

const sessionColumns = `s.id, s.run_mode, s.difficulty, s.seed_hash, s.created_at_ms, s.ended_at_ms,
	(SELECT COUNT(*) FROM spawns sp WHERE sp.session_id = s.id),
	(SELECT COUNT(*) FROM events ev WHERE ev.session_id = s.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (SessionRow, error) {
	var (
		sess    SessionRow
		created int64
		ended   sql.NullInt64
	)
	err := r.Scan(&sess.ID, &sess.RunMode, &sess.Difficulty, &sess.SeedHash, &created, &ended,
		&sess.Spawns, &sess.Events)
	if err != nil {
		return sess, err
	}
	sess.CreatedAt = time.UnixMilli(created).UTC()
	if ended.Valid {
		t := time.UnixMilli(ended.Int64).UTC()
		sess.EndedAt = &t
	}
	return sess, nil
}

// GetSession fetches a session by ID.
func (s *SQLiteDB) GetSession(id string) (*SessionRow, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns sessions newest first with pagination.
func (s *SQLiteDB) ListSessions(query SessionsQuery) (*SessionsList, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PerPage < 1 {
		query.PerPage = 50
	}
	if query.PerPage > 500 {
		query.PerPage = 500
	}
	offset := (query.Page - 1) * query.PerPage

	where := ""
	var args []any
	if query.RunMode != "" {
		where = " WHERE s.run_mode = ?"
		args = append(args, query.RunMode)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions s`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("store: count sessions: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM sessions s`+where+
			` ORDER BY s.created_at_ms DESC, s.id LIMIT ? OFFSET ?`,
		append(args, query.PerPage, offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]SessionRow, 0, query.PerPage)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}

	totalPages := total / query.PerPage
	if total%query.PerPage > 0 {
		totalPages++
	}

	return &SessionsList{
		Sessions:   sessions,
		TotalCount: total,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

// ListSpawns returns a session's spawns in placement order.
func (s *SQLiteDB) ListSpawns(sessionID string) ([]SpawnRow, error) {
	rows, err := s.db.Query(
		`SELECT seq, mode, step_index, x_pct, y_pct, stage, spawn_mul, life_mul
		 FROM spawns WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list spawns: %w", err)
	}
	defer rows.Close()

	var spawns []SpawnRow
	for rows.Next() {
		var sp SpawnRow
		if err := rows.Scan(&sp.Seq, &sp.Mode, &sp.StepIndex, &sp.XPct, &sp.YPct, &sp.Stage, &sp.SpawnMul, &sp.LifeMul); err != nil {
			return nil, fmt.Errorf("store: scan spawn: %w", err)
		}
		spawns = append(spawns, sp)
	}
	return spawns, rows.Err()
}

// ListEvents returns a session's events in order.
func (s *SQLiteDB) ListEvents(sessionID string) ([]EventRow, error) {
	rows, err := s.db.Query(
		`SELECT seq, kind, reaction_ms, ts_ms FROM events WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var ev EventRow
		if err := rows.Scan(&ev.Seq, &ev.Kind, &ev.ReactionMs, &ev.TsMs); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListSnapshots returns a session's snapshots oldest first.
func (s *SQLiteDB) ListSnapshots(sessionID string) ([]SnapshotRow, error) {
	rows, err := s.db.Query(
		`SELECT id, spawns, events, spawn_mul, life_mul, risk,
			tune_spawn_mul, tune_life_mul, size_mul, wrong_mul, junk_mul, taken_at_ms
		 FROM snapshots WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []SnapshotRow
	for rows.Next() {
		var (
			snap  SnapshotRow
			taken int64
		)
		err := rows.Scan(&snap.ID, &snap.Spawns, &snap.Events, &snap.SpawnMul, &snap.LifeMul,
			&snap.Risk, &snap.TuneSpawn, &snap.TuneLife, &snap.Size, &snap.Wrong, &snap.Junk, &taken)
		if err != nil {
			return nil, fmt.Errorf("store: scan snapshot: %w", err)
		}
		snap.TakenAt = time.UnixMilli(taken).UTC()
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteSession removes a session and everything recorded for it.
func (s *SQLiteDB) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM spawns WHERE session_id = ?`,
		`DELETE FROM events WHERE session_id = ?`,
		`DELETE FROM snapshots WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("store: delete session: %w", err)
		}
	}
	return tx.Commit()
}

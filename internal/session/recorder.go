package session

import "time"

// Info describes a session when it starts.
type Info struct {
	ID         string    `json:"id"`
	RunMode    string    `json:"runMode"`
	Difficulty string    `json:"difficulty"`
	SeedHash   string    `json:"seedHash"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Recorder receives a write-only trail of session activity. Implementations
// must not block the caller for long.
type Recorder interface {
	SessionStarted(info Info)
	SpawnPlaced(sessionID string, sp Spawn)
	EventRecorded(sessionID string, ev Event)
	SnapshotTaken(sessionID string, snap Snapshot)
	SessionEnded(sessionID string, at time.Time)
}

// Attach sets the recorder and reports the session start to it.
func (s *Session) Attach(rec Recorder) {
	s.rec = rec
	if rec != nil {
		rec.SessionStarted(s.Info())
	}
}

// Info returns the session's start record.
func (s *Session) Info() Info {
	return Info{
		ID:         s.id,
		RunMode:    string(s.cfg.RunMode),
		Difficulty: string(s.cfg.Difficulty),
		SeedHash:   s.SeedHash(),
		CreatedAt:  s.createdAt,
	}
}

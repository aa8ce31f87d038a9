package api

import (
	"time"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/director"
	"github.com/MJE43/fairpace/internal/pacing"
	"github.com/MJE43/fairpace/internal/pattern"
	"github.com/MJE43/fairpace/internal/session"
	"github.com/MJE43/fairpace/internal/spatial"
)

// CreateSessionRequest starts a session.
type CreateSessionRequest struct {
	Seed       string         `json:"seed"`
	RunMode    string         `json:"runMode"`
	Difficulty string         `json:"difficulty"`
	Playfield  *spatial.Rect  `json:"playfield,omitempty"`
	Exclusions []spatial.Rect `json:"exclusions,omitempty"`
}

// SessionResponse describes a live session. The raw seed is never echoed.
type SessionResponse struct {
	ID            string              `json:"id"`
	RunMode       config.RunMode      `json:"runMode"`
	Difficulty    config.Difficulty   `json:"difficulty"`
	Capabilities  config.Capabilities `json:"capabilities"`
	SeedHash      string              `json:"seedHash"`
	CreatedAt     time.Time           `json:"createdAt"`
	Multipliers   pacing.Multipliers  `json:"multipliers"`
	Tuning        director.Vector     `json:"tuning"`
	EngineVersion string              `json:"engineVersion"`
}

// SessionsResponse lists live session IDs.
type SessionsResponse struct {
	Sessions      []string `json:"sessions"`
	EngineVersion string   `json:"engineVersion"`
}

// SpawnRequest asks for the next target placement.
type SpawnRequest struct {
	Phase      int     `json:"phase"`
	Progress   float64 `json:"progress"`
	Difficulty string  `json:"difficulty"`
}

// SpawnResponse carries the placed target.
type SpawnResponse struct {
	Spawn         session.Spawn `json:"spawn"`
	EngineVersion string        `json:"engineVersion"`
}

// HitRequest reports a hit.
type HitRequest struct {
	ReactionMs float64 `json:"reactionMs"`
	TsMs       int64   `json:"tsMs"`
}

// MissRequest reports a miss.
type MissRequest struct {
	TsMs int64 `json:"tsMs"`
}

// PacingResponse carries the multipliers after a performance event.
type PacingResponse struct {
	Multipliers   pacing.Multipliers `json:"multipliers"`
	Risk          float64            `json:"risk"`
	EngineVersion string             `json:"engineVersion"`
}

// TickRequest carries the live signals for a director tick. Risk is ignored;
// the session's own pacing state supplies it.
type TickRequest = director.Signals

// TickResponse carries the tuning and how it was reached.
type TickResponse struct {
	Tuning        director.Vector `json:"tuning"`
	Trace         director.Trace  `json:"trace"`
	EngineVersion string          `json:"engineVersion"`
}

// LayoutRequest replaces the playfield and exclusion zones.
type LayoutRequest struct {
	Playfield  spatial.Rect   `json:"playfield"`
	Exclusions []spatial.Rect `json:"exclusions"`
}

// LayoutResponse echoes the layout in use.
type LayoutResponse struct {
	Playfield     spatial.Rect   `json:"playfield"`
	Exclusions    []spatial.Rect `json:"exclusions"`
	EngineVersion string         `json:"engineVersion"`
}

// DiagnosticsResponse wraps a session snapshot.
type DiagnosticsResponse struct {
	Snapshot      session.Snapshot `json:"snapshot"`
	History       []spatial.Entry  `json:"history"`
	EngineVersion string           `json:"engineVersion"`
}

// ModesResponse lists the enumerations a client may send.
type ModesResponse struct {
	RunModes      []RunModeInfo    `json:"runModes"`
	Difficulties  []DifficultyInfo `json:"difficulties"`
	Patterns      []pattern.Mode   `json:"patterns"`
	EngineVersion string           `json:"engineVersion"`
}

// RunModeInfo describes one run mode.
type RunModeInfo struct {
	Name         config.RunMode      `json:"name"`
	Capabilities config.Capabilities `json:"capabilities"`
}

// DifficultyInfo describes one difficulty.
type DifficultyInfo struct {
	Name  config.Difficulty `json:"name"`
	Level float64           `json:"level"`
	Base  director.Vector   `json:"base"`
}

// SeedHashRequest asks for the logged hash of a seed.
type SeedHashRequest struct {
	Seed string `json:"seed"`
}

// SeedHashResponse carries the seed hashes.
type SeedHashResponse struct {
	Hash          string `json:"hash"`
	StreamSeed    uint32 `json:"streamSeed"`
	EngineVersion string `json:"engineVersion"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status        string         `json:"status"`
	Checks        map[string]any `json:"checks,omitempty"`
	Sessions      int            `json:"sessions"`
	Uptime        string         `json:"uptime"`
	EngineVersion string         `json:"engineVersion"`
	GitCommit     string         `json:"gitCommit"`
	BuildTime     string         `json:"buildTime"`
}

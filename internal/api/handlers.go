package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/director"
	"github.com/MJE43/fairpace/internal/engine"
	"github.com/MJE43/fairpace/internal/pattern"
	"github.com/MJE43/fairpace/internal/session"
)

const maxBodyBytes = 1 << 20

// decodeJSON parses the request body into dst. An empty body leaves dst at
// its zero value when allowEmpty is set.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "Invalid JSON format", map[string]any{
		"error": err.Error(),
	})
	return false
}

func (s *Server) validationError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, err.Error(), nil)
}

func (s *Server) sessionResponse(sess *session.Session) SessionResponse {
	return SessionResponse{
		ID:            sess.ID(),
		RunMode:       sess.RunMode(),
		Difficulty:    sess.Difficulty(),
		Capabilities:  sess.Capabilities(),
		SeedHash:      sess.SeedHash(),
		CreatedAt:     sess.CreatedAt(),
		Multipliers:   sess.Multipliers(),
		Tuning:        sess.Tuning(),
		EngineVersion: EngineVersion,
	}
}

// handleCreateSession starts a session. Research sessions need the bearer
// token when one is configured.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !s.decodeJSON(w, r, &req, true) {
		return
	}
	p, err := ValidateCreateSessionRequest(&req)
	if err != nil {
		s.validationError(w, r, err)
		return
	}

	mode := p.RunMode
	if mode == "" {
		mode = s.mgr.Config().RunMode
	}
	if mode == config.RunModeResearch && !s.authorized(r) {
		s.rejectUnauthorized(w, r)
		return
	}

	sess, err := s.mgr.Create(p)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.metrics.sessionsCreated.WithLabelValues(string(sess.RunMode())).Inc()
	s.security.LogSessionCreated(middleware.GetReqID(r.Context()), sess.ID(),
		string(sess.RunMode()), string(sess.Difficulty()), sess.Seed())

	s.writeJSON(w, http.StatusCreated, s.sessionResponse(sess))
}

// handleListSessions lists live session IDs, optionally only those of one
// run mode (?runMode=).
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.mgr.IDs()
	if raw := r.URL.Query().Get("runMode"); raw != "" {
		mode, err := config.ParseRunMode(raw)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		kept := ids[:0]
		for _, id := range ids {
			var match bool
			err := s.mgr.Do(id, func(sess *session.Session) error {
				match = sess.RunMode() == mode
				return nil
			})
			if err == nil && match {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	s.writeJSON(w, http.StatusOK, SessionsResponse{Sessions: ids, EngineVersion: EngineVersion})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	var resp SessionResponse
	err := s.mgr.Do(chi.URLParam(r, "id"), func(sess *session.Session) error {
		resp = s.sessionResponse(sess)
		return nil
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req SpawnRequest
	if !s.decodeJSON(w, r, &req, true) {
		return
	}
	ctx, err := ValidateSpawnRequest(&req)
	if err != nil {
		s.validationError(w, r, err)
		return
	}

	var sp session.Spawn
	err = s.mgr.Do(chi.URLParam(r, "id"), func(sess *session.Session) error {
		sp = sess.PickNextSpawn(ctx)
		return nil
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.metrics.spawns.WithLabelValues(string(sp.Mode), string(sp.Stage)).Inc()
	s.writeJSON(w, http.StatusOK, SpawnResponse{Spawn: sp, EngineVersion: EngineVersion})
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	var req HitRequest
	if !s.decodeJSON(w, r, &req, false) {
		return
	}
	if err := ValidateHitRequest(&req); err != nil {
		s.validationError(w, r, err)
		return
	}
	s.performance(w, r, session.EventHit, func(sess *session.Session) {
		sess.OnHit(req.ReactionMs, req.TsMs)
	})
}

func (s *Server) handleMiss(w http.ResponseWriter, r *http.Request) {
	var req MissRequest
	if !s.decodeJSON(w, r, &req, true) {
		return
	}
	if err := ValidateMissRequest(&req); err != nil {
		s.validationError(w, r, err)
		return
	}
	s.performance(w, r, session.EventMiss, func(sess *session.Session) {
		sess.OnMiss(req.TsMs)
	})
}

func (s *Server) performance(w http.ResponseWriter, r *http.Request, kind string, feed func(*session.Session)) {
	var resp PacingResponse
	err := s.mgr.Do(chi.URLParam(r, "id"), func(sess *session.Session) error {
		feed(sess)
		resp = PacingResponse{
			Multipliers:   sess.Multipliers(),
			Risk:          sess.Diagnostics().Pacing.RiskEstimate,
			EngineVersion: EngineVersion,
		}
		return nil
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.metrics.events.WithLabelValues(kind).Inc()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req TickRequest
	if !s.decodeJSON(w, r, &req, true) {
		return
	}
	if err := ValidateTickRequest(&req); err != nil {
		s.validationError(w, r, err)
		return
	}

	var resp TickResponse
	err := s.mgr.Do(chi.URLParam(r, "id"), func(sess *session.Session) error {
		v := sess.Tick(director.Signals(req))
		resp = TickResponse{Tuning: v, Trace: sess.Trace(), EngineVersion: EngineVersion}
		return nil
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	for _, g := range resp.Trace.Fired {
		s.metrics.ticks.WithLabelValues(g).Inc()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if !s.decodeJSON(w, r, &req, false) {
		return
	}
	if err := ValidateLayoutRequest(&req); err != nil {
		s.validationError(w, r, err)
		return
	}

	var resp LayoutResponse
	err := s.mgr.Do(chi.URLParam(r, "id"), func(sess *session.Session) error {
		sess.SetLayout(req.Playfield, req.Exclusions)
		pf, excl := sess.Layout()
		resp = LayoutResponse{Playfield: pf, Exclusions: excl, EngineVersion: EngineVersion}
		return nil
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetPattern(w http.ResponseWriter, r *http.Request) {
	err := s.mgr.Do(chi.URLParam(r, "id"), func(sess *session.Session) error {
		sess.ResetPattern()
		return nil
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	var resp DiagnosticsResponse
	err := s.mgr.Do(chi.URLParam(r, "id"), func(sess *session.Session) error {
		resp = DiagnosticsResponse{
			Snapshot:      sess.Diagnostics(),
			History:       sess.History(),
			EngineVersion: EngineVersion,
		}
		return nil
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleListModes returns the run modes, difficulties and pattern modes.
func (s *Server) handleListModes(w http.ResponseWriter, r *http.Request) {
	resp := ModesResponse{Patterns: pattern.Modes, EngineVersion: EngineVersion}
	for _, m := range []config.RunMode{config.RunModePlay, config.RunModeResearch, config.RunModePractice} {
		resp.RunModes = append(resp.RunModes, RunModeInfo{Name: m, Capabilities: m.Capabilities()})
	}
	for _, d := range []config.Difficulty{config.DifficultyEasy, config.DifficultyNormal, config.DifficultyHard} {
		resp.Difficulties = append(resp.Difficulties, DifficultyInfo{Name: d, Level: d.Level(), Base: director.BaseTable(d)})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSeedHash returns the loggable hash of a seed and the stream seed it
// maps to, so a study log can be matched to a replay without the raw seed.
func (s *Server) handleSeedHash(w http.ResponseWriter, r *http.Request) {
	var req SeedHashRequest
	if !s.decodeJSON(w, r, &req, false) {
		return
	}
	if err := ValidateSeedHashRequest(&req); err != nil {
		s.validationError(w, r, err)
		return
	}

	hash := session.HashSeed(req.Seed)
	s.security.LogSeedHashOperation(middleware.GetReqID(r.Context()), hash)
	s.writeJSON(w, http.StatusOK, SeedHashResponse{
		Hash:          hash,
		StreamSeed:    engine.HashSeed(req.Seed),
		EngineVersion: EngineVersion,
	})
}

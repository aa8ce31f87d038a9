package api

import (
	"net/http"
	"time"
)

func (s *Server) health(status string, checks map[string]any) HealthResponse {
	return HealthResponse{
		Status:        status,
		Checks:        checks,
		Sessions:      s.mgr.Len(),
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.health("ok", nil))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.health("alive", nil))
}

// handleReady checks that the journal answers, when one is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]any{"journal": "disabled"}
	if s.journal != nil {
		if _, err := s.journal.ListSessions(readinessQuery); err != nil {
			checks["journal"] = err.Error()
			s.writeJSON(w, http.StatusServiceUnavailable, s.health("unavailable", checks))
			return
		}
		checks["journal"] = "ok"
	}
	s.writeJSON(w, http.StatusOK, s.health("ready", checks))
}

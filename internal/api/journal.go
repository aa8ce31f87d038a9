package api

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MJE43/fairpace/internal/store"
)

var readinessQuery = store.SessionsQuery{Page: 1, PerPage: 1}

func (s *Server) handleJournalSessions(w http.ResponseWriter, r *http.Request) {
	q := store.SessionsQuery{
		RunMode: r.URL.Query().Get("runMode"),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "perPage", 50),
	}
	list, err := s.journal.ListSessions(q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleJournalSession(w http.ResponseWriter, r *http.Request) {
	row, err := s.journal.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleJournalSpawns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.journal.GetSession(id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	spawns, err := s.journal.ListSpawns(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if spawns == nil {
		spawns = []store.SpawnRow{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessionId": id, "spawns": spawns})
}

func (s *Server) handleJournalEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.journal.GetSession(id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	events, err := s.journal.ListEvents(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if events == nil {
		events = []store.EventRow{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessionId": id, "events": events})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// handleJournalExport writes a session's spawns and events as one CSV, ordered
// by kind then sequence.
func (s *Server) handleJournalExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.journal.GetSession(id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	spawns, err := s.journal.ListSpawns(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	events, err := s.journal.ListEvents(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="session_`+id+`.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"kind", "seq", "mode", "step_index", "x_pct", "y_pct", "stage",
		"spawn_mul", "life_mul", "reaction_ms", "ts_ms"})
	for _, sp := range spawns {
		_ = cw.Write([]string{
			"spawn",
			strconv.Itoa(sp.Seq),
			sp.Mode,
			strconv.Itoa(sp.StepIndex),
			strconv.FormatFloat(sp.XPct, 'f', 4, 64),
			strconv.FormatFloat(sp.YPct, 'f', 4, 64),
			sp.Stage,
			sp.SpawnMul.StringFixed(3),
			sp.LifeMul.StringFixed(3),
			"", "",
		})
	}
	for _, ev := range events {
		_ = cw.Write([]string{
			ev.Kind,
			strconv.Itoa(ev.Seq),
			"", "", "", "", "", "", "",
			strconv.FormatFloat(ev.ReactionMs, 'f', 1, 64),
			strconv.FormatInt(ev.TsMs, 10),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Printf("journal_export_error session_id=%s error=%v", id, err)
	}
}

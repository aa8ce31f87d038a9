package api

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/fairpace/internal/session"
	"github.com/MJE43/fairpace/internal/store"
)

// Options configure a Server.
type Options struct {
	// Journal serves the read-only review endpoints. Nil disables them.
	Journal store.DB
	// Token, when set, is required as a bearer token for research session
	// creation and the journal endpoints.
	Token          string
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// Server handles HTTP requests for live sessions.
type Server struct {
	mgr      *session.Manager
	journal  store.DB
	token    string
	timeout  time.Duration
	logger   *log.Logger
	security *SecurityLogger
	metrics  *Metrics
	started  time.Time
}

// NewServer creates a server around a session manager.
func NewServer(mgr *session.Manager, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[API] ", log.LstdFlags|log.LUTC)
	}
	s := &Server{
		mgr:      mgr,
		journal:  opts.Journal,
		token:    strings.TrimSpace(opts.Token),
		timeout:  opts.RequestTimeout,
		logger:   opts.Logger,
		security: NewSecurityLogger(),
		started:  time.Now(),
	}
	s.metrics = newMetrics(func() float64 { return float64(mgr.Len()) })
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Security returns the audit logger.
func (s *Server) Security() *SecurityLogger { return s.security }

// TokenRequired reports whether a bearer token is configured.
func (s *Server) TokenRequired() bool { return s.token != "" }

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.SecurityLoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Get("/modes", s.handleListModes)
		r.Post("/seed/hash", s.handleSeedHash)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/spawn", s.handleSpawn)
				r.Post("/hit", s.handleHit)
				r.Post("/miss", s.handleMiss)
				r.Post("/tick", s.handleTick)
				r.Post("/layout", s.handleLayout)
				r.Post("/reset-pattern", s.handleResetPattern)
				r.Get("/diagnostics", s.handleDiagnostics)
			})
		})

		if s.journal != nil {
			r.Route("/journal", func(r chi.Router) {
				r.Use(s.RequireToken)
				r.Get("/sessions", s.handleJournalSessions)
				r.Get("/sessions/{id}", s.handleJournalSession)
				r.Get("/sessions/{id}/spawns", s.handleJournalSpawns)
				r.Get("/sessions/{id}/events", s.handleJournalEvents)
				r.Get("/sessions/{id}/export.csv", s.handleJournalExport)
			})
		}
	})

	return r
}

// authorized reports whether the request carries the configured token.
func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	h := r.Header.Get("Authorization")
	got, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(s.token)) == 1
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("write_response_error error=%v", err)
	}
}

// writeError writes an ErrorResponse.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, errType ErrorType, message string, ctx map[string]any) {
	s.writeJSON(w, status, ErrorResponse{
		Type:          errType,
		Message:       message,
		Context:       ctx,
		RequestID:     middleware.GetReqID(r.Context()),
		EngineVersion: EngineVersion,
	})
}

// writeDomainError maps a domain error onto the response.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, errType := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Printf("internal_error path=%s error=%v", r.URL.Path, err)
	}
	s.writeError(w, r, status, errType, err.Error(), nil)
}

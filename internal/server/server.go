package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/warmth/internal/engine"
	"github.com/lazypower/warmth/internal/store"
	"github.com/lazypower/warmth/internal/warmth"
)

// Server is the warmth HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over the database and engine.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/modes", s.handleModes)

		r.Post("/contacts", s.handleProvision)
		r.Route("/contacts/{contactID}", func(r chi.Router) {
			r.Delete("/", s.handleDelete)
			r.Post("/interactions", s.handleInteraction)
			r.Get("/warmth", s.handleCurrent)
			r.Put("/warmth/mode", s.handleSwitchMode)
			r.Get("/warmth/history", s.handleHistory)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.engine.Config().StoreTimeout)
	defer cancel()

	dbOK := s.db.PingContext(ctx) == nil
	schema, _ := s.db.SchemaVersion()

	status, code := "ok", http.StatusOK
	if !dbOK {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime":         time.Since(s.started).Seconds(),
		"db":             dbOK,
		"db_driver":      s.db.Driver,
		"db_path":        s.db.Path,
		"schema_version": schema,
	})
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()

	var modes []map[string]any
	for _, m := range warmth.Modes() {
		modes = append(modes, map[string]any{
			"mode":              m.Mode,
			"lambda_per_day":    m.Lambda,
			"period_seconds":    m.Period.Seconds(),
			"half_life_seconds": m.HalfLife().Seconds(),
			"diagnostic":        m.Diagnostic,
			"enabled":           !m.Diagnostic || cfg.AllowTestMode,
			"default":           m.Mode == cfg.DefaultMode,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"modes": modes})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

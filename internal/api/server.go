// Package api provides the HTTP API for the colony.
// GET endpoints are public and read-only. Actions are rate limited per
// client; starting a new game requires the admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/frost-haven/internal/engine"
	"github.com/talgya/frost-haven/internal/persistence"
)

const maxBodyBytes = 4 << 10

// Server serves the colony over HTTP.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB // optional; enables archive and run history
	Hub      *Hub            // optional; enables the websocket stream
	Limiter  *RateLimiter    // optional; guards action endpoints
	Slot     string
	Port     int
	AdminKey string // Bearer token for /new. Empty = disabled.
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("GET /api/v1/log", s.handleLog)
	mux.HandleFunc("GET /api/v1/rates", s.handleRates)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	mux.HandleFunc("POST /api/v1/action", s.limited(s.handleAction))
	mux.HandleFunc("POST /api/v1/event/choice", s.limited(s.handleChoice))
	mux.HandleFunc("POST /api/v1/new", s.adminOnly(s.handleNew))

	return corsMiddleware(mux)
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "stream", s.Hub != nil)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no FROSTHAVEN_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.Limiter == nil {
		return next
	}
	return RateLimitMiddleware(s.Limiter, next)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	view, err := s.Eng.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	n := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil {
		n = v
	}
	n = max(1, min(n, engine.MaxLogEntries))

	if r.URL.Query().Get("source") == "archive" {
		if s.DB == nil {
			writeError(w, http.StatusNotFound, errors.New("no archive configured"))
			return
		}
		events, err := s.DB.RecentLog(r.Context(), s.Slot, n)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, events)
		return
	}

	events, err := s.Eng.Do(r.Context(), func(sim *engine.Simulation) (any, error) {
		return sim.RecentLog(n), nil
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	view, err := s.Eng.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, map[string]any{
		"rates":       view.Rates,
		"idle":        view.Idle,
		"capacity":    view.Capacity,
		"night":       view.Night,
		"temperature": view.State.Temperature,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeJSON(w, []persistence.Run{})
		return
	}
	runs, err := s.DB.BestRuns(r.Context(), 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var a engine.Action
	if err := decodeBody(w, r, &a); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.dispatch(w, r, a)
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Option int `json:"option"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.dispatch(w, r, engine.Action{Kind: engine.ActResolveEvent, Option: body.Option})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, a engine.Action) {
	result, err := s.Eng.Dispatch(r.Context(), a)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	view, err := s.Eng.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, map[string]any{
		"result": result,
		"state":  view,
	})
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	if err := s.Eng.Restart(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	slog.Info("new game started", "remote", clientIP(r))
	s.handleState(w, r)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}
	view, err := s.Eng.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.Hub.serveWs(w, r, view)
}

// statusFor maps dispatcher errors to HTTP statuses: malformed requests
// are 400, rejections by the game rules are 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrUnknown),
		errors.Is(err, engine.ErrBadRole),
		errors.Is(err, engine.ErrBadOption):
		return http.StatusBadRequest
	}
	return http.StatusConflict
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

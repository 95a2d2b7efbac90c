// Package server provides the optional local HTTP surface: health, the
// coordinator state, a websocket event stream, an MJPEG preview and text
// commands.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ayusman/pryvit/internal/interaction"
	plog "github.com/ayusman/pryvit/internal/log"
	"github.com/ayusman/pryvit/internal/store"
)

// StateSource exposes the coordinator state.
type StateSource interface {
	Snapshot() interaction.Snapshot
}

// CommandHandler executes a text command as if it had been spoken.
type CommandHandler interface {
	HandleCommand(now time.Time, text string) interaction.Response
}

// UserLister lists enrolled users.
type UserLister interface {
	List() ([]*store.User, error)
}

// Config holds the server configuration. Nil sources disable their routes.
type Config struct {
	State     StateSource
	Commands  CommandHandler
	Users     UserLister
	Frames    *FrameBuffer
	StaticDir string

	// EventInterval is how often state changes are pushed to websocket
	// clients.
	EventInterval time.Duration
}

// Server is the HTTP handler for the local API.
type Server struct {
	config Config
	router chi.Router
	events *EventsHandler
	start  time.Time
	log    zerolog.Logger
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
		log:    plog.With("server"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	if s.config.State != nil {
		s.events = NewEventsHandler(s.config.State, s.config.EventInterval)
		r.Get("/api/state", s.handleState)
		r.Handle("/api/events", s.events)
	}
	if s.config.Commands != nil {
		r.Post("/api/command", s.handleCommand)
	}
	if s.config.Users != nil {
		r.Get("/api/users", s.handleUsers)
	}
	if s.config.Frames != nil {
		r.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}
	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if s.events != nil {
		s.events.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.State.Snapshot())
}

type commandRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp := s.config.Commands.HandleCommand(time.Now(), req.Text)
	s.log.Info().Str("text", req.Text).Str("kind", string(resp.Kind)).Msg("text command")

	if errors.Is(resp.Err(), interaction.ErrUnknownCommand) {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.config.Users.List()
	if err != nil {
		s.log.Error().Err(err).Msg("list users")
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []*store.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

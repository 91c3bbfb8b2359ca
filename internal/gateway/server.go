// Package gateway is the HTTP surface: routing, auth plumbing, chat turn
// handlers, and the SSE delivery channel for streamed search turns.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ramavio/paperchat/internal/agent"
	"github.com/ramavio/paperchat/internal/config"
	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/logging"
	"github.com/ramavio/paperchat/internal/store"
)

// PaperFetcher fetches a single paper's detail record by repository code.
type PaperFetcher interface {
	ExtractMetadata(ctx context.Context, code string) domain.PaperDetail
}

// Server is the paperchat HTTP server.
type Server struct {
	cfg  config.ServerConfig
	log  *logging.Logger
	mux  *chi.Mux
	http *http.Server

	users  *store.UserStore
	chats  *store.ChatStore
	papers *store.PaperStore

	registry     *agent.Registry
	orchestrator *agent.Orchestrator
	fetcher      PaperFetcher
}

// Deps carries the collaborators the server routes requests to.
type Deps struct {
	Users        *store.UserStore
	Chats        *store.ChatStore
	Papers       *store.PaperStore
	Registry     *agent.Registry
	Orchestrator *agent.Orchestrator
	Fetcher      PaperFetcher
}

// New builds the server and its route table.
func New(cfg config.ServerConfig, deps Deps, log *logging.Logger) *Server {
	s := &Server{
		cfg:          cfg,
		log:          log.Sub("gateway"),
		users:        deps.Users,
		chats:        deps.Chats,
		papers:       deps.Papers,
		registry:     deps.Registry,
		orchestrator: deps.Orchestrator,
		fetcher:      deps.Fetcher,
	}
	s.mux = s.routes()
	return s
}

// routes builds the chi route table.
func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware)
	r.Use(loggingMiddleware(s.log))
	r.Use(s.authMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/me", s.requireUser(s.handleMe))
	})

	r.Route("/search", func(r chi.Router) {
		r.Post("/new_session", s.requireUser(s.handleSearchNewSession))
		r.Post("/chat/{sessionID}", s.requireUser(s.handleSearchChat))
		r.Get("/search_process/{chatID}", s.requireUser(s.handleSearchProcess))
		r.Post("/search_process/{chatID}", s.requireUser(s.handleSearchProcess))
		r.Get("/get_enhanced_response/{chatID}", s.requireUser(s.handleEnhancedResponse))
		r.Get("/sessions", s.requireUser(s.handleSearchSessions))
		r.Get("/sessions/{sessionID}/chats", s.requireUser(s.handleSessionChats))
		r.Post("/delete_session/{sessionID}", s.requireUser(s.handleDeleteSession))
	})

	r.Route("/general", func(r chi.Router) {
		r.Post("/new_session", s.requireUser(s.handleGeneralNewSession))
		r.Post("/chat/{sessionID}", s.requireUser(s.handleGeneralChat))
		r.Get("/sessions", s.requireUser(s.handleGeneralSessions))
		r.Get("/sessions/{sessionID}/chats", s.requireUser(s.handleSessionChats))
		r.Post("/delete_session/{sessionID}", s.requireUser(s.handleDeleteSession))
	})

	r.Route("/paper", func(r chi.Router) {
		r.Get("/{code}", s.requireUser(s.handlePaperDetail))
		r.Post("/save/{code}", s.requireUser(s.handlePaperSave))
		r.Post("/remove/{code}", s.requireUser(s.handlePaperRemove))
	})
	r.Get("/saved", s.requireUser(s.handleSavedPapers))

	return r
}

// Handler exposes the route table, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start serves until ctx is cancelled, then shuts down gracefully. The write
// timeout stays zero: SSE responses are long-lived by design.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	s.http = &http.Server{
		Addr:        addr,
		Handler:     s.mux,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.log.Info().Msg("shutting down http server")
	return s.http.Shutdown(shutdownCtx)
}

// Package server assembles the session gateway: store, authentication
// client, refresh scheduler, route guard, and the HTTP surface the
// frontend talks to.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/authbridge/session-gateway/internal/client"
	"github.com/authbridge/session-gateway/internal/config"
	"github.com/authbridge/session-gateway/internal/events"
	"github.com/authbridge/session-gateway/internal/guard"
	"github.com/authbridge/session-gateway/internal/refresh"
	"github.com/authbridge/session-gateway/internal/session"
)

// Server is the assembled gateway.
type Server struct {
	cfg       *config.Config
	slot      *session.Slot
	store     *session.Store
	auth      *client.Client
	scheduler *refresh.Scheduler
	httpSrv   *http.Server
}

// New builds a gateway from loaded configuration.
func New(cfg *config.Config) (*Server, error) {
	var slot *session.Slot
	if cfg.SlotPath != "" {
		var err error
		slot, err = session.OpenSlot(cfg.SlotPath)
		if err != nil {
			return nil, fmt.Errorf("opening session slot: %w", err)
		}
	}

	store := session.NewStore(slot)
	auth := client.New(cfg, store)
	scheduler := refresh.New(auth, store, cfg.Session)

	s := &Server{
		cfg:       cfg,
		slot:      slot,
		store:     store,
		auth:      auth,
		scheduler: scheduler,
	}

	routes := guard.NewRoutes()
	for _, pattern := range cfg.Routes {
		routes.Register(pattern)
	}
	g := guard.New(store, routes, cfg)

	app, err := s.appHandler()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/logout", s.handleLogout)
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/session", s.handleSession)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/ws/events", events.NewHandler(scheduler))
	mux.Handle("/", g.Wrap(app))

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

// appHandler returns the handler guarded navigations land on: a reverse
// proxy when an upstream is configured, else a placeholder page.
func (s *Server) appHandler() (http.Handler, error) {
	if s.cfg.Server.Upstream == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprintf(w, "session-gateway: no upstream configured (route %s allowed)\n", r.URL.Path)
		}), nil
	}

	target, err := url.Parse(s.cfg.Server.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parsing server.upstream: %w", err)
	}
	return httputil.NewSingleHostReverseProxy(target), nil
}

// Start runs the scheduler and blocks serving HTTP until ctx is canceled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", s.cfg.Server.Port).
			Str("provider", s.cfg.Provider.Kind.String()).
			Msg("server: listening")
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("gateway listener: %w", err)
		}
		return nil
	}
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)
	s.scheduler.Stop()
	if s.slot != nil {
		_ = s.slot.Close()
	}

	log.Info().Msg("server: stopped")
	return err
}

// Copyright (c) 2026 XStream Media. All rights reserved.

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/xstreamhq/xstream/internal/billing/receipt"
	"github.com/xstreamhq/xstream/internal/catalog/video"
	"github.com/xstreamhq/xstream/internal/chat"
	"github.com/xstreamhq/xstream/internal/entitlement"
	"github.com/xstreamhq/xstream/internal/platform/config"
	"github.com/xstreamhq/xstream/internal/platform/constants"
	"github.com/xstreamhq/xstream/internal/platform/middleware"
	"github.com/xstreamhq/xstream/internal/platform/sec"
	"github.com/xstreamhq/xstream/internal/users/account"
	"github.com/xstreamhq/xstream/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles authentication routes (register, login, sessions, resets).
	Auth *auth.Handler

	// Account handles profile, favorites, and age confirmation.
	Account *account.Handler

	// Video handles the catalog, playback counters, and comments.
	Video *video.Handler

	// Receipt handles top-up submission and the review console.
	Receipt *receipt.Handler

	// Entitlement handles the timed-access gate, signals, and live countdown.
	Entitlement *entitlement.Handler

	// Chat handles the site-wide live chat room.
	Chat *chat.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution. The request timeout is
	// applied per group below because websocket routes must not carry one.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {

		// Long-lived websocket endpoints. No request timeout; the handlers
		// manage their own deadlines on the upgraded connection.
		api.Group(func(live chi.Router) {
			live.Use(middleware.RequireAuth)

			live.Get("/entitlement/live", h.Entitlement.Live)
			live.Get("/chat/live", h.Chat.Live)
		})

		api.Group(func(timed chi.Router) {
			timed.Use(chimw.Timeout(constants.GlobalRequestTimeout))

			// Anonymous browsing is allowed; individual handlers demand
			// identity where an operation needs one. The access gate sits on
			// the catalog path but belongs to the entitlement domain; it is
			// public so players can probe before sign-in.
			timed.Mount("/auth", h.Auth.Routes())
			timed.Mount("/videos", h.Video.Routes())
			timed.Get("/videos/{id}/access", h.Entitlement.VideoAccess)

			// Viewer surface. Everything below requires a valid access token.
			timed.Group(func(authenticated chi.Router) {
				authenticated.Use(middleware.RequireAuth)

				authenticated.Mount("/account", h.Account.Routes())
				authenticated.Mount("/entitlement", h.Entitlement.Routes())
				authenticated.Mount("/receipts", h.Receipt.Routes())
				authenticated.Mount("/chat", h.Chat.Routes())
			})

			// Staff surface.
			timed.Route("/admin", func(admin chi.Router) {
				admin.Use(middleware.RequireRole(sec.RoleAdmin))

				admin.Mount("/users", h.Account.AdminRoutes())
				admin.Mount("/videos", h.Video.AdminRoutes())
				admin.Mount("/receipts", h.Receipt.AdminRoutes())
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}

/*
Package handler provides the HTTP handlers and routing setup for the call invite server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"callinvite/internal/pkg/auth/jwt"
	"callinvite/internal/pkg/limiter"
	"callinvite/internal/pkg/logx"
	"callinvite/internal/pkg/req"
	"callinvite/internal/pkg/resp"
)

const (
	JoinRate  = 0.5
	JoinBurst = 10
)

// Router bundles the HTTP handler with the limiters it owns so they can be stopped on shutdown.
type Router struct {
	http.Handler

	inviteLimiter *limiter.IPRateLimiter
	joinLimiter   *limiter.IPRateLimiter
}

// Stop halts the background sweepers of the router's rate limiters.
func (rt *Router) Stop() {
	rt.inviteLimiter.Stop()
	rt.joinLimiter.Stop()
}

// NewRouter sets up the main HTTP routing table (chi.Router) for the application.
// Invite creation is limited per IP using the configured rate; relay joins use a fixed limit.
func NewRouter(deps *AppDeps) *Router {
	inviteLimiter := limiter.NewIPRateLimiter(rate.Limit(deps.Config.InviteRate), deps.Config.InviteBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin header.
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "Call Invite Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Get("/client-config", HandleClientConfig(deps))

	r.With(middleware.RequestSize(req.MaxJSONBodySize), inviteLimiter.Middleware).
		Post("/invite", HandleCreateInvites(deps))
	r.Get("/validate-invite", HandleValidateInvite(deps))

	r.Get("/livekit/token", HandleIssueToken(deps))

	r.With(jwt.RequireAccessToken(deps.Config.LiveKit.APIKey, deps.Config.LiveKit.APISecret)).
		Get("/relay/{room}", HandleRelay(deps, wsUpgrader, joinLimiter))

	return &Router{
		Handler:       r,
		inviteLimiter: inviteLimiter,
		joinLimiter:   joinLimiter,
	}
}

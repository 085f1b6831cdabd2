package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/Cepat-Kilat-Teknologi/device-heartbeat/docs"
)

// newRouter wires middleware and routes. The reset endpoint sits behind API
// key authentication when server.middleware_auth is enabled.
func newRouter(a *app, rl *rateLimiter, tracker *authAttemptTracker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(rateLimitMiddleware(rl))
	r.Use(securityHeadersMiddleware)
	r.Use(timingMiddleware(a.monitor))

	r.Get("/health", a.healthCheckHandler)
	r.Get("/hbd", a.heartbeatHandler)
	r.Get("/stats", a.statsHandler)

	r.Group(func(r chi.Router) {
		if a.cfg.Server.MiddlewareAuth {
			r.Use(apiKeyAuthMiddleware(a.cfg.Server.AuthKey, tracker))
		}
		r.Post("/stats/reset", a.statsResetHandler)
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)
	return r
}

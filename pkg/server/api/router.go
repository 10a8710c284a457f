// Package api wires pkg/server's validator behind an HTTP router: the
// protocol endpoints of §6.1, authenticated per-request by the signed
// envelope every request already carries, plus a small JWT-protected
// operator surface for account/usage inspection (§9).
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lockbookapp/lockbook-core/internal/logger"
	"github.com/lockbookapp/lockbook-core/pkg/server"
)

// NewRouter builds the full server router. admin may be nil, in which case
// the operator surface is not mounted - a deployment without an admin
// secret configured simply doesn't expose it (§9 design notes: "no global
// singletons"; a router without admin wiring is still a complete protocol
// server).
func NewRouter(srv *server.Server, admin *AdminAuth) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := NewHandlers(srv)
	r.Post("/new-account", h.NewAccount)
	r.Post("/get-public-key", h.GetPublicKey)
	r.Post("/get-updates", h.GetUpdates)
	r.Post("/upsert", h.Upsert)
	r.Post("/change-doc", h.ChangeDoc)
	r.Post("/get-doc", h.GetDoc)
	r.Post("/get-usage", h.GetUsage)

	if admin != nil {
		adminHandlers := NewAdminHandlers(srv)
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin.Middleware)
			r.Get("/accounts/{username}/usage", adminHandlers.Usage)
		})
	}

	return r
}

// requestLogger mirrors the teacher's custom request-logging middleware,
// adapted to this package's logger import path.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("server/api: request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(g.config.CORS))
	r.Use(traceContext)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", g.metrics.Handler())

	// WebSocket authenticates during the handshake.
	r.Get("/ws", g.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(g.metrics.instrument)
		r.Use(g.requireUser)
		r.Post("/message", g.handleMessage())
		r.Get("/conversations", g.handleListConversations())
		r.Delete("/conversations/{id}", g.handleDeleteConversation())
	})

	return r
}

// traceContext continues a trace started by the caller, if any.
func traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

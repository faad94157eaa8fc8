package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/earmeout/earmeout/internal/provider"
)

const healthCheckTimeout = 10 * time.Second

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"` // "ok" or "degraded"
	Store    string `json:"store"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Auth     string `json:"auth"`
	Uptime   string `json:"uptime"`
	Error    string `json:"error,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// With ?deep=1 the provider is probed with a minimal completion and a
// failing probe turns the response into 503.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Store:    g.storeKind(),
			Provider: "none",
			Auth:     "anonymous",
			Uptime:   time.Since(g.startedAt).Round(time.Second).String(),
		}
		if g.provider != nil {
			resp.Provider = "configured"
			resp.Model = g.provider.ModelName()
		} else {
			resp.Status = "degraded"
		}
		if m, ok := g.resolver.(interface{ Mode() string }); ok {
			resp.Auth = m.Mode()
		}

		if r.URL.Query().Get("deep") == "1" {
			if hc, ok := g.provider.(provider.HealthChecker); ok {
				ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
				err := hc.HealthCheck(ctx)
				cancel()
				if err != nil {
					resp.Status = "degraded"
					resp.Error = string(provider.Classify(err))
				}
			}
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

// storeKind names the active conversation store for health output.
func (g *Gateway) storeKind() string {
	if !g.persistent() {
		return "memory"
	}
	if d, ok := g.store.(interface{ Dialect() string }); ok {
		return d.Dialect()
	}
	return "persistent"
}

// Package gateway implements the gateway.http module: the public chat API
// (POST /message, conversation listing and deletion, a WebSocket chat
// transport) plus health and Prometheus metrics endpoints.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/core"
	"github.com/earmeout/earmeout/internal/identity"
	"github.com/earmeout/earmeout/internal/provider"
	"github.com/earmeout/earmeout/internal/security"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It is a leaf module: nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	limiter   *security.RateLimiter
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	manager  *conversation.Manager
	store    conversation.Store
	provider provider.Provider
	resolver identity.Resolver
	audit    *security.AuditLogger
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = NewMetrics()
	g.limiter = security.NewRateLimiter(g.config.RateLimit)

	ctx.RegisterService("gateway.metrics", g.metrics)
	ctx.RegisterService("security.ratelimiter", g.limiter)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		errs = append(errs, errors.New("gateway: invalid bind address: "+g.config.Bind))
	}
	if g.config.WriteTimeout > 0 && g.config.TurnTimeout > g.config.WriteTimeout {
		errs = append(errs, fmt.Errorf("gateway: turn_timeout %s exceeds write_timeout %s",
			g.config.TurnTimeout, g.config.WriteTimeout))
	}
	return errors.Join(errs...)
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadHeaderTimeout: g.config.ReadTimeout,
		ReadTimeout:       g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolveServices binds optional services, degrading gracefully when one
// is missing.
func (g *Gateway) resolveServices() {
	if m, ok := core.ServiceAs[*conversation.Manager](g.appCtx, conversation.ManagerService); ok {
		g.manager = m
	} else {
		g.logger.Warn("no conversation manager registered, /message will fail")
	}
	if s, ok := core.ServiceAs[conversation.Store](g.appCtx, conversation.StoreService); ok {
		g.store = s
	}
	if p, ok := core.ServiceAs[provider.Provider](g.appCtx, provider.ActiveService); ok {
		g.provider = p
	}
	if r, ok := core.ServiceAs[identity.Resolver](g.appCtx, identity.ServiceName); ok {
		g.resolver = r
	} else {
		g.resolver = identity.Anonymous{}
	}
	if a, ok := core.ServiceAs[*security.AuditLogger](g.appCtx, "security.audit"); ok {
		g.audit = a
	}
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

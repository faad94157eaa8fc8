package app

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/earmeout/earmeout/internal/config"
	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/core"
	"github.com/earmeout/earmeout/internal/identity"
	"github.com/earmeout/earmeout/internal/prompt"
	"github.com/earmeout/earmeout/internal/provider"
)

const tracerName = "github.com/earmeout/earmeout/internal/conversation"

// wire binds the services modules registered during provisioning into a
// conversation.Manager and publishes it, together with the chosen store
// and provider, for modules resolving them at Start.
// Must be called after LoadModules and before Start.
func wire(appCtx *core.AppContext, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) (*conversation.Manager, error) {
	store, persistent := core.ServiceAs[conversation.Store](appCtx, conversation.StoreService)
	if !persistent {
		logger.Warn("no persistent store configured, conversations are kept in memory")
		store = conversation.NewInMemoryStore()
		appCtx.RegisterService(conversation.StoreService, store)
	}

	active, activeID, err := selectProvider(appCtx, config.ProviderOrder(cfg))
	if err != nil {
		return nil, err
	}
	appCtx.RegisterService(provider.ActiveService, active)
	logger.Info("provider selected", "module", activeID, "model", active.ModelName())

	if _, ok := core.ServiceAs[identity.Resolver](appCtx, identity.ServiceName); !ok {
		if persistent {
			logger.Warn("persistent store without an identity resolver, conversation listing and deletion are refused")
		} else {
			logger.Warn("no identity resolver configured, every request runs as the anonymous user")
		}
	}

	loader := prompt.NewLoader(cfg.Chat.SystemPromptPath, logger.With("component", "prompt"))
	if _, err := loader.Load(); err != nil {
		logger.Warn("system prompt unreadable, using the built-in prompt", "path", loader.Path(), "error", err)
	}

	manager := conversation.NewManager(store, active, conversation.ManagerConfig{
		Window: cfg.Chat.Window,
		Prompt: loader,
		Logger: logger.With("component", "conversation"),
		Tracer: tracer,
	})
	appCtx.RegisterService(conversation.ManagerService, manager)
	return manager, nil
}

// selectProvider returns the first provider in order that registered
// itself, which providers only do when they hold a credential.
func selectProvider(appCtx *core.AppContext, order []string) (provider.Provider, string, error) {
	for _, id := range order {
		if p, ok := core.ServiceAs[provider.Provider](appCtx, id); ok {
			return p, id, nil
		}
	}
	return nil, "", fmt.Errorf("%w: none of %v has an api key", provider.ErrNoProvider, order)
}

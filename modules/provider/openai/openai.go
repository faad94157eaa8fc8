// Package openai implements the provider.openai module, a client for
// OpenAI-compatible Chat Completions APIs (OpenAI itself or a proxy such
// as Hack Club AI).
package openai

import (
	"errors"
	"log/slog"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/core"
	"github.com/earmeout/earmeout/internal/provider"
	"github.com/earmeout/earmeout/internal/security"
)

// ServiceName is the service key the provider registers under.
const ServiceName = "provider.openai"

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
	_ core.Module            = (*Provider)(nil)
	_ core.Configurable      = (*Provider)(nil)
	_ core.Provisioner       = (*Provider)(nil)
	_ core.Validator         = (*Provider)(nil)
)

// Provider implements the Chat Completions API as a provider module.
type Provider struct {
	config Config
	apiKey string
	logger *slog.Logger
	client *http.Client
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner. Without an API key the module
// stays loaded but does not register itself as a provider.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger
	p.config.defaults()
	p.apiKey = p.config.resolveKey()

	if p.apiKey == "" {
		p.logger.Warn("no api key configured, provider disabled")
		return nil
	}

	if creds, ok := core.ServiceAs[*security.CredentialStore](ctx, "security.credentials"); ok {
		creds.Set("openai.api_key", p.apiKey)
	}

	p.client = &http.Client{Timeout: p.config.parsedTimeout()}
	ctx.RegisterService(ServiceName, p)
	p.logger.Info("provider ready", "model", p.config.Model, "base_url", p.config.BaseURL)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	var errs []error
	if p.config.Model == "" {
		errs = append(errs, errors.New("provider.openai: model is required"))
	}
	if p.config.MaxTokens < 0 {
		errs = append(errs, errors.New("provider.openai: max_tokens must not be negative"))
	}
	if t := p.config.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, errors.New("provider.openai: temperature must be within [0, 2]"))
	}
	if err := p.config.validateTimeout(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Enabled reports whether a credential was found at provisioning.
func (p *Provider) Enabled() bool {
	return p.apiKey != ""
}

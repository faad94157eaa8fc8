// Package supabase implements the auth.supabase module: it resolves
// Supabase access tokens to user IDs, either by verifying them locally
// with the project's JWT secret or by asking the Supabase Auth API.
package supabase

import (
	"context"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/core"
	"github.com/earmeout/earmeout/internal/identity"
	"github.com/earmeout/earmeout/internal/security"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ identity.Resolver = (*Module)(nil)
)

// Verification modes reported by Mode.
const (
	ModeDisabled = "disabled"
	ModeJWT      = "jwt"
	ModeRemote   = "remote"
)

// Module selects a verification strategy from its configuration and
// registers itself as the identity resolver when one is available.
type Module struct {
	config   Config
	logger   *slog.Logger
	resolver identity.Resolver
	mode     string
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "auth.supabase",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. Local verification wins over the
// remote lookup when a JWT secret is present. With neither, nothing is
// registered and requests are served as the anonymous user.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.config.defaults()

	switch {
	case m.config.JWTSecret != "":
		m.resolver = newJWTResolver(m.config.JWTSecret, m.config.Audience)
		m.mode = ModeJWT
	case m.config.URL != "" && m.config.apiKey() != "":
		if m.config.AnonKey == "" {
			m.logger.Warn("anon_key not set, using the service role key for token lookups")
		}
		m.resolver = newRemoteResolver(m.config.URL, m.config.apiKey(), m.config.parsedTimeout())
		m.mode = ModeRemote
	default:
		m.mode = ModeDisabled
		m.logger.Warn("supabase credentials not found, requests run as the anonymous user")
		return nil
	}

	if creds, ok := core.ServiceAs[*security.CredentialStore](ctx, "security.credentials"); ok {
		creds.Set("supabase.anon_key", m.config.AnonKey)
		creds.Set("supabase.service_role_key", m.config.ServiceRoleKey)
		creds.Set("supabase.jwt_secret", m.config.JWTSecret)
	}

	ctx.RegisterService(identity.ServiceName, m)
	m.logger.Info("token verification enabled", "mode", m.mode)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Resolve implements identity.Resolver.
func (m *Module) Resolve(ctx context.Context, token string) (string, error) {
	if m.resolver == nil {
		return identity.AnonymousID, nil
	}
	return m.resolver.Resolve(ctx, token)
}

// Mode returns the active verification mode.
func (m *Module) Mode() string {
	if m.mode == "" {
		return ModeDisabled
	}
	return m.mode
}

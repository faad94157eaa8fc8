// Package identity maps bearer credentials to stable user IDs.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// AnonymousID is the fixed user ID used when authentication is not configured.
const AnonymousID = "anonymous"

// ServiceName is the service key under which an auth module registers its Resolver.
const ServiceName = "identity.resolver"

// ErrUnauthorized indicates a missing, malformed or rejected credential.
var ErrUnauthorized = errors.New("identity: unauthorized")

// Resolver turns a bearer token into a user ID.
type Resolver interface {
	// Resolve returns the user ID for token, or an error wrapping
	// ErrUnauthorized. An empty token is always unauthorized for
	// resolvers that verify identities.
	Resolve(ctx context.Context, token string) (string, error)
}

// Anonymous is the Resolver used when authentication is disabled.
// It ignores the token and returns AnonymousID.
type Anonymous struct{}

// Resolve implements Resolver.
func (Anonymous) Resolve(context.Context, string) (string, error) {
	return AnonymousID, nil
}

// Compile-time interface check.
var _ Resolver = Anonymous{}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively. It returns "" when the
// header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type userIDKey struct{}

// WithUserID returns a context carrying the resolved user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the user ID stored by WithUserID.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

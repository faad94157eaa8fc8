package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/earmeout/earmeout/internal/identity"
)

// jwtLeeway tolerates small clock skew between Supabase and this host.
const jwtLeeway = 30 * time.Second

// jwtResolver verifies HS256 access tokens signed with the project secret.
type jwtResolver struct {
	secret []byte
	parser *jwt.Parser
}

func newJWTResolver(secret, audience string) *jwtResolver {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(jwtLeeway),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &jwtResolver{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

// Resolve returns the sub claim of a valid token.
func (r *jwtResolver) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: no token provided", identity.ErrUnauthorized)
	}

	var claims jwt.RegisteredClaims
	_, err := r.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", identity.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", identity.ErrUnauthorized)
	}
	return claims.Subject, nil
}

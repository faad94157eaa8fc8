package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/earmeout/earmeout/internal/identity"
)

// remoteResolver asks the Supabase Auth API who owns a token.
type remoteResolver struct {
	client *resty.Client
	apiKey string
}

type authUser struct {
	ID string `json:"id"`
}

func newRemoteResolver(baseURL, apiKey string, timeout time.Duration) *remoteResolver {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &remoteResolver{client: client, apiKey: apiKey}
}

// Resolve calls GET /auth/v1/user with the caller's token.
func (r *remoteResolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: no token provided", identity.ErrUnauthorized)
	}
	if strings.Count(token, ".") != 2 || strings.ContainsAny(token, " \t\r\n") {
		return "", fmt.Errorf("%w: malformed token", identity.ErrUnauthorized)
	}

	var user authUser
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("apikey", r.apiKey).
		SetAuthToken(token).
		SetResult(&user).
		Get("/auth/v1/user")
	if err != nil {
		return "", fmt.Errorf("%w: token verification failed: %w", identity.ErrUnauthorized, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return "", fmt.Errorf("%w: invalid token", identity.ErrUnauthorized)
	case resp.IsError():
		return "", fmt.Errorf("%w: auth api returned HTTP %d", identity.ErrUnauthorized, resp.StatusCode())
	case user.ID == "":
		return "", fmt.Errorf("%w: user not found", identity.ErrUnauthorized)
	}
	return user.ID, nil
}

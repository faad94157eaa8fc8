package gateway

import (
	"net/http"

	"github.com/earmeout/earmeout/internal/identity"
	"github.com/earmeout/earmeout/internal/security"
)

// authenticate resolves the caller from token. Failures are audited and
// counted; the returned error is always identity.ErrUnauthorized-wrapped.
func (g *Gateway) authenticate(r *http.Request, token string) (string, error) {
	userID, err := g.resolver.Resolve(r.Context(), token)
	if err != nil {
		g.metrics.RecordAuthFailure()
		emitAuthFailure(g.audit, r, err)
		g.logger.Debug("request unauthorized", "path", r.URL.Path, "error", err)
		return "", err
	}
	return userID, nil
}

// requireUser resolves the bearer token of every request and stores the
// user ID in the request context. Unauthorized requests never reach next.
func (g *Gateway) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := g.authenticate(r, identity.BearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithUserID(r.Context(), userID)))
	})
}

// emitAuthFailure logs an auth failure to the audit logger. The cause is
// recorded, the token never is.
func emitAuthFailure(logger *security.AuditLogger, r *http.Request, cause error) {
	logger.Log(security.AuditEvent{
		Type:   security.EventAuthFailure,
		Detail: cause.Error(),
		Metadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	})
}

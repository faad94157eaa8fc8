package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/earmeout/earmeout/internal/provider"
)

var errAuth = errors.New("gemini: authentication failed")

// mapHTTPError maps a status code and error body to a provider sentinel.
// Returns nil for 2xx status codes.
func mapHTTPError(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var msg, status string
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
		status = apiErr.Error.Status
	} else {
		msg = strings.TrimSpace(string(body))
	}

	lower := strings.ToLower(msg)
	switch {
	case statusCode == 429 || status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, msg)
	case statusCode == 401 || statusCode == 403 || strings.Contains(lower, "api key"):
		return fmt.Errorf("%w: %s", errAuth, msg)
	case statusCode == 404 || status == "NOT_FOUND", statusCode < 500 && strings.Contains(lower, "model"):
		return fmt.Errorf("%w: %s", provider.ErrModelUnavailable, msg)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrProviderDown, statusCode, msg)
	default:
		return fmt.Errorf("gemini: HTTP %d: %s", statusCode, msg)
	}
}

// mapConnectionError maps network-level errors to provider sentinel errors.
// Context errors pass through unchanged.
func mapConnectionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	return fmt.Errorf("gemini: %w", err)
}

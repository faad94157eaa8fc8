package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrModelUnavailable indicates the configured model does not exist,
	// is not enabled for the credential, or rejected the request as a model issue.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrProviderDown indicates the provider is temporarily unavailable
	// (network failure or 5xx).
	ErrProviderDown = errors.New("provider unavailable")

	// ErrBadResponse indicates a success status whose body lacked the
	// expected completion structure.
	ErrBadResponse = errors.New("malformed provider response")

	// ErrNoProvider indicates no provider has a usable credential.
	ErrNoProvider = errors.New("no provider configured")
)

// FailureKind buckets provider errors into the classes end users are told about.
type FailureKind string

// FailureKind values. The empty kind means no failure.
const (
	FailureNone      FailureKind = ""
	FailureRateLimit FailureKind = "rate_limit"
	FailureModel     FailureKind = "model"
	FailureGeneric   FailureKind = "generic"
)

// Classify maps err onto a FailureKind. A nil error is FailureNone;
// anything not rate-limit or model related is FailureGeneric.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrRateLimit):
		return FailureRateLimit
	case errors.Is(err, ErrModelUnavailable):
		return FailureModel
	default:
		return FailureGeneric
	}
}

package conversation

import "errors"

// Sentinel errors for conversation operations.
var (
	// ErrInvalidInput indicates the user message was missing or blank.
	ErrInvalidInput = errors.New("conversation: message is required")

	// ErrNotFound indicates no conversation with the given ID exists for
	// the given owner. Conversations of other owners are indistinguishable
	// from missing ones.
	ErrNotFound = errors.New("conversation: not found")
)

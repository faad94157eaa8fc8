package security

import (
	"errors"
	"fmt"
)

// DefaultMaxMessageSize bounds a single chat message.
const DefaultMaxMessageSize = 32 << 10 // 32 KiB

// ErrMessageTooLarge is returned when a message exceeds the size limit.
var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// ValidateMessageSize checks that msg does not exceed limit bytes.
// If limit is <= 0, DefaultMaxMessageSize is used.
func ValidateMessageSize(msg string, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxMessageSize
	}
	if len(msg) > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, len(msg), limit)
	}
	return nil
}

package conversation

import "github.com/earmeout/earmeout/internal/provider"

// Fixed replies shown to the user instead of provider errors.
const (
	// PlaceholderReply replaces an empty completion.
	PlaceholderReply = "(No response)"

	replyRateLimited = "The AI service is currently busy. Please try again in a moment."
	replyModelIssue  = "Sorry, there was an issue with the AI model. Please try again."
	replyGeneric     = "Sorry, I encountered an error. Please try again."
)

// FallbackReply returns the user-facing text for a provider failure kind.
func FallbackReply(kind provider.FailureKind) string {
	switch kind {
	case provider.FailureRateLimit:
		return replyRateLimited
	case provider.FailureModel:
		return replyModelIssue
	default:
		return replyGeneric
	}
}

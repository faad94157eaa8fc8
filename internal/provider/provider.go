// Package provider defines the interface the chat service uses to reach a
// text-completion LLM, the provider-neutral message model, and the error
// taxonomy adapters map their failures onto.
package provider

import "context"

// ActiveService is the service key of the provider selected at startup.
const ActiveService = "provider.active"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live in separate packages (provider.openai,
// provider.gemini) and also implement core.Module for lifecycle management.
// Model and generation parameters are fixed when the adapter is provisioned;
// requests only carry the conversation.
type Provider interface {
	// Complete sends the ordered messages and returns the assistant reply.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// HealthChecker is an optional interface for providers that can verify
// their credentials and model access with a cheap request.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

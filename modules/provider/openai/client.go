package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/earmeout/earmeout/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
const maxResponseSize = 10 * 1024 * 1024

// buildChatRequest creates a chat request from the conversation and the
// generation parameters fixed at startup.
func (p *Provider) buildChatRequest(req provider.CompletionRequest) chatRequest {
	return chatRequest{
		Model:       p.config.Model,
		Messages:    toMessages(req.Messages),
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}
}

// doPost sends an authenticated JSON POST and returns the response body
// and status code. The body is limited to maxResponseSize bytes.
func (p *Provider) doPost(ctx context.Context, path string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: openai: read response: %w", provider.ErrProviderDown, err)
	}
	return respBody, resp.StatusCode, nil
}

// Complete sends the conversation and returns the first choice.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	body, statusCode, err := p.doPost(ctx, "/chat/completions", p.buildChatRequest(req))
	if err != nil {
		return provider.CompletionResponse{}, err
	}

	if httpErr := mapHTTPError(statusCode, body); httpErr != nil {
		return provider.CompletionResponse{}, httpErr
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("%w: openai: %w", provider.ErrBadResponse, err)
	}
	if len(resp.Choices) == 0 {
		return provider.CompletionResponse{}, fmt.Errorf("%w: openai: no choices", provider.ErrBadResponse)
	}

	return fromResponse(&resp), nil
}

// HealthCheck sends a minimal completion. This tests authentication,
// model access and quota in one request.
func (p *Provider) HealthCheck(ctx context.Context) error {
	cr := p.buildChatRequest(provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "hi"}},
	})
	cr.MaxTokens = 1

	body, statusCode, err := p.doPost(ctx, "/chat/completions", cr)
	if err != nil {
		return err
	}
	return mapHTTPError(statusCode, body)
}

// ModelName returns the configured model identifier.
func (p *Provider) ModelName() string {
	return p.config.Model
}

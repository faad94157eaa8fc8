package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/earmeout/earmeout/internal/provider"
)

const maxResponseSize = 10 * 1024 * 1024

// generate posts body to the model's generateContent endpoint.
func (p *Provider) generate(ctx context.Context, body generateRequest) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := p.config.BaseURL + "/models/" + url.PathEscape(p.config.Model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: gemini: read response: %w", provider.ErrProviderDown, err)
	}
	return respBody, resp.StatusCode, nil
}

// Complete sends the conversation and returns the first candidate.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	body, statusCode, err := p.generate(ctx, convertRequest(req, &p.config))
	if err != nil {
		return provider.CompletionResponse{}, err
	}
	if httpErr := mapHTTPError(statusCode, body); httpErr != nil {
		return provider.CompletionResponse{}, httpErr
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("%w: gemini: %w", provider.ErrBadResponse, err)
	}
	if len(resp.Candidates) == 0 {
		return provider.CompletionResponse{}, fmt.Errorf("%w: gemini: no candidates", provider.ErrBadResponse)
	}
	return fromResponse(&resp), nil
}

// HealthCheck sends a one-token generation.
func (p *Provider) HealthCheck(ctx context.Context) error {
	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: "hi"}}}},
		GenerationConfig: &generationConfig{MaxOutputTokens: 1},
	}
	body, statusCode, err := p.generate(ctx, req)
	if err != nil {
		return err
	}
	return mapHTTPError(statusCode, body)
}

// ModelName returns the configured model identifier.
func (p *Provider) ModelName() string {
	return p.config.Model
}

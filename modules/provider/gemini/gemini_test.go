package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/core"
	"github.com/earmeout/earmeout/internal/provider"
)

func yamlNode(t *testing.T, s string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	return doc.Content[0]
}

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	temp := 0.5
	p := &Provider{
		config: Config{APIKey: "AIza-test", BaseURL: srv.URL, MaxTokens: 256, Temperature: &temp},
		client: srv.Client(),
	}
	p.config.defaults()
	return p
}

func TestConfigure_Defaults(t *testing.T) {
	t.Parallel()

	p := &Provider{}
	if err := p.Configure(yamlNode(t, "api_key: k\nmodel: models/gemini-1.5-pro")); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if p.config.Model != "gemini-1.5-pro" {
		t.Errorf("Model = %q, want models/ prefix stripped", p.config.Model)
	}

	p = &Provider{}
	if err := p.Configure(yamlNode(t, "api_key: k")); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if p.config.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q, want gemini-2.0-flash", p.config.Model)
	}
}

func TestProvision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         string
		wantService bool
	}{
		{name: "with key", cfg: "api_key: AIza-x", wantService: true},
		{name: "blank key", cfg: "api_key: '  '", wantService: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &Provider{}
			if err := p.Configure(yamlNode(t, tt.cfg)); err != nil {
				t.Fatalf("Configure: %v", err)
			}
			ctx := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), "")
			if err := p.Provision(ctx); err != nil {
				t.Fatalf("Provision: %v", err)
			}
			_, ok := ctx.Service(ServiceName)
			if ok != tt.wantService {
				t.Errorf("service registered = %v, want %v", ok, tt.wantService)
			}
			if p.Enabled() != tt.wantService {
				t.Errorf("Enabled() = %v, want %v", p.Enabled(), tt.wantService)
			}
		})
	}
}

func TestComplete_RequestShape(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "AIza-test" {
			t.Error("missing api key header")
		}

		var req generateRequest
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("invalid body: %v", err)
			return
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be kind" {
			t.Errorf("systemInstruction = %+v, want be kind", req.SystemInstruction)
		}
		wantRoles := []string{"user", "model", "user"}
		if len(req.Contents) != len(wantRoles) {
			t.Errorf("len(contents) = %d, want %d", len(req.Contents), len(wantRoles))
			return
		}
		for i, role := range wantRoles {
			if req.Contents[i].Role != role {
				t.Errorf("contents[%d].role = %q, want %q", i, req.Contents[i].Role, role)
			}
		}
		if req.GenerationConfig == nil || req.GenerationConfig.MaxOutputTokens != 256 {
			t.Errorf("generationConfig = %+v, want maxOutputTokens 256", req.GenerationConfig)
		}

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "I hear "}, {"text": "you."}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 3, "totalTokenCount": 12}
		}`))
	}))

	resp, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleSystem, Content: "be kind"},
			{Role: provider.MessageRoleUser, Content: "Hi"},
			{Role: provider.MessageRoleAssistant, Content: "Hello"},
			{Role: provider.MessageRoleUser, Content: "How are you?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}
	if resp.Content != "I hear you." {
		t.Errorf("Content = %q, want %q", resp.Content, "I hear you.")
	}
	if resp.FinishReason != provider.FinishReasonStop {
		t.Errorf("FinishReason = %q, want stop", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("TotalTokens = %d, want 12", resp.Usage.TotalTokens)
	}
}

func TestConvertRequest_NoSystemNoConfig(t *testing.T) {
	t.Parallel()

	got := convertRequest(provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "Hi"}},
	}, &Config{})

	if got.SystemInstruction != nil {
		t.Errorf("SystemInstruction = %+v, want nil", got.SystemInstruction)
	}
	if got.GenerationConfig != nil {
		t.Errorf("GenerationConfig = %+v, want nil", got.GenerationConfig)
	}
	if len(got.Contents) != 1 || got.Contents[0].Role != "user" {
		t.Errorf("Contents = %+v", got.Contents)
	}
}

func TestComplete_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantKind provider.FailureKind
	}{
		{
			name:     "quota",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`,
			wantErr:  provider.ErrRateLimit,
			wantKind: provider.FailureRateLimit,
		},
		{
			name:     "unknown model",
			status:   http.StatusNotFound,
			body:     `{"error":{"code":404,"message":"models/nope is not found","status":"NOT_FOUND"}}`,
			wantErr:  provider.ErrModelUnavailable,
			wantKind: provider.FailureModel,
		},
		{
			name:     "invalid key",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantErr:  errAuth,
			wantKind: provider.FailureGeneric,
		},
		{
			name:     "unavailable",
			status:   http.StatusServiceUnavailable,
			body:     `{"error":{"code":503,"message":"The model is overloaded","status":"UNAVAILABLE"}}`,
			wantErr:  provider.ErrProviderDown,
			wantKind: provider.FailureGeneric,
		},
		{
			name:     "no candidates",
			status:   http.StatusOK,
			body:     `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantErr:  provider.ErrBadResponse,
			wantKind: provider.FailureGeneric,
		},
		{
			name:     "garbage",
			status:   http.StatusOK,
			body:     `not json`,
			wantErr:  provider.ErrBadResponse,
			wantKind: provider.FailureGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := p.Complete(context.Background(), provider.CompletionRequest{
				Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "Hi"}},
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if got := provider.Classify(err); got != tt.wantKind {
				t.Errorf("Classify = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestComplete_EmptyCandidateText(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`))
	}))

	resp, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}
	if resp.Content != "" {
		t.Errorf("Content = %q, want empty", resp.Content)
	}
	if resp.FinishReason != provider.FinishReasonFiltering {
		t.Errorf("FinishReason = %q, want filtering", resp.FinishReason)
	}
}

func TestValidate_RejectsPathInModel(t *testing.T) {
	t.Parallel()

	p := &Provider{}
	if err := p.Configure(yamlNode(t, "api_key: k\nmodel: ../evil")); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := p.Validate(); err == nil {
		t.Error("Validate: expected error for model with path separators")
	}
}

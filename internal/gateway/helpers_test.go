package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/conversation/conversationtest"
	"github.com/earmeout/earmeout/internal/identity"
	"github.com/earmeout/earmeout/internal/provider/providertest"
	"github.com/earmeout/earmeout/internal/security"
	"github.com/earmeout/earmeout/internal/security/securitytest"
)

// tokenResolver accepts a fixed set of tokens.
type tokenResolver map[string]string

func (r tokenResolver) Resolve(_ context.Context, token string) (string, error) {
	if id, ok := r[token]; ok && token != "" {
		return id, nil
	}
	return "", identity.ErrUnauthorized
}

func (tokenResolver) Mode() string { return "test" }

type fixtureOpts struct {
	resolver  identity.Resolver
	memory    bool // use the non-persistent in-memory store
	limit     int
	noManager bool
	config    func(*Config)
}

type fixture struct {
	g      *Gateway
	srv    *httptest.Server
	prov   *providertest.MockProvider
	store  *conversationtest.MockStore
	mem    *conversation.InMemoryStore
	events *securitytest.AuditRecorder
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit, events := securitytest.NewTestAuditLogger()
	prov := &providertest.MockProvider{Model: "test-model"}

	f := &fixture{prov: prov, events: events}

	var store conversation.Store
	if opts.memory {
		f.mem = conversation.NewInMemoryStore()
		store = f.mem
	} else {
		f.store = conversationtest.NewMockStore()
		store = f.store
	}

	cfg := Config{}
	cfg.RateLimit.MessagesPerMin = opts.limit
	if opts.limit == 0 {
		cfg.RateLimit.MessagesPerMin = -1
	}
	if opts.config != nil {
		opts.config(&cfg)
	}
	cfg.defaults()

	resolver := opts.resolver
	if resolver == nil {
		resolver = identity.Anonymous{}
	}

	g := &Gateway{
		config:    cfg,
		logger:    logger,
		metrics:   NewMetrics(),
		limiter:   security.NewRateLimiter(cfg.RateLimit),
		startedAt: time.Now(),
		store:     store,
		provider:  prov,
		resolver:  resolver,
		audit:     audit,
	}
	if !opts.noManager {
		g.manager = conversation.NewManager(store, prov, conversation.ManagerConfig{
			Prompt: conversation.StaticPrompt("be kind"),
			Logger: logger,
		})
	}
	f.g = g
	f.srv = httptest.NewServer(g.buildRouter())
	t.Cleanup(f.srv.Close)
	return f
}

// do sends a request with an optional JSON body and bearer token.
func (f *fixture) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// postMessage sends POST /message and decodes a successful reply.
func (f *fixture) postMessage(t *testing.T, token, message, conversationID string) (int, messageResponse, errorResponse) {
	t.Helper()
	payload := map[string]string{"message": message}
	if conversationID != "" {
		payload["conversationId"] = conversationID
	}
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(payload)

	resp := f.do(t, http.MethodPost, "/message", token, buf.String())
	var ok messageResponse
	var fail errorResponse
	if resp.StatusCode == http.StatusOK {
		decodeJSON(t, resp, &ok)
	} else {
		decodeJSON(t, resp, &fail)
	}
	return resp.StatusCode, ok, fail
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}

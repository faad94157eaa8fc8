// Package conversation implements multi-turn chat sessions: a windowed
// message history per conversation, owned by a user, and the turn handler
// that forwards that history to a completion provider.
//
// Turns on the same conversation are not serialized. Two concurrent turns
// both read the stored history, and whichever saves last wins; the other
// turn's messages are lost from the stored history.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/earmeout/earmeout/internal/provider"
)

const tracerName = "github.com/earmeout/earmeout/internal/conversation"

// PromptSource provides the system directive sent ahead of every history.
type PromptSource interface {
	SystemPrompt() string
}

// StaticPrompt is a PromptSource returning a fixed directive.
type StaticPrompt string

// SystemPrompt implements PromptSource.
func (p StaticPrompt) SystemPrompt() string { return string(p) }

// ManagerConfig holds optional Manager settings. Zero values select defaults.
type ManagerConfig struct {
	// Window is the maximum number of stored messages (default DefaultWindow).
	Window int

	// Prompt supplies the system directive. Nil sends none.
	Prompt PromptSource

	Logger *slog.Logger
	Tracer trace.Tracer

	// NewID generates conversation IDs when the store cannot (default uuid).
	NewID func() string

	// Now is the clock used for records built outside the store.
	Now func() time.Time
}

// Turn is the outcome of one user message.
type Turn struct {
	ConversationID string
	Reply          string

	// Created is true when the turn started a new conversation.
	Created bool

	// Failure is the provider failure kind, empty on success.
	Failure provider.FailureKind
}

// Manager resolves conversations, calls the provider and persists the
// windowed result. It is safe for concurrent use.
type Manager struct {
	store    Store
	provider provider.Provider
	window   int
	prompt   PromptSource
	logger   *slog.Logger
	tracer   trace.Tracer
	newID    func() string
	now      func() time.Time
}

// NewManager creates a Manager over the given store and provider.
func NewManager(store Store, p provider.Provider, cfg ManagerConfig) *Manager {
	m := &Manager{
		store:    store,
		provider: p,
		window:   cfg.Window,
		prompt:   cfg.Prompt,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
		newID:    cfg.NewID,
		now:      cfg.Now,
	}
	if m.window <= 0 {
		m.window = DefaultWindow
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// HandleTurn appends text to the conversation identified by conversationID
// (or a new one), obtains the assistant reply and persists both.
//
// Provider failures are not returned: the reply is replaced by a fixed
// apology which is persisted like any other answer, and Turn.Failure is set.
// Storage failures are logged and the turn still completes. The only error
// returned is ErrInvalidInput.
func (m *Manager) HandleTurn(ctx context.Context, userID, conversationID, text string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, ErrInvalidInput
	}

	ctx, span := m.tracer.Start(ctx, "conversation.turn")
	defer span.End()

	rec, created := m.resolve(ctx, userID, conversationID)
	span.SetAttributes(
		attribute.String("conversation.id", rec.ID),
		attribute.Bool("conversation.created", created),
	)

	rec.History = appendWindowed(rec.History, Message{Role: RoleUser, Content: text}, m.window)

	reply, failure := m.complete(ctx, rec.History)
	if failure != provider.FailureNone {
		span.SetStatus(codes.Error, string(failure))
	}

	rec.History = appendWindowed(rec.History, Message{Role: RoleAssistant, Content: reply}, m.window)
	span.SetAttributes(attribute.Int("conversation.history_len", len(rec.History)))

	if err := m.store.Save(ctx, rec); err != nil {
		span.RecordError(err)
		m.logger.Error("failed to save conversation",
			"conversation_id", rec.ID,
			"error", err,
		)
	}

	return Turn{
		ConversationID: rec.ID,
		Reply:          reply,
		Created:        created,
		Failure:        failure,
	}, nil
}

// resolve loads the caller's conversation or creates a new one. Invalid,
// unknown and foreign IDs all start a new conversation.
func (m *Manager) resolve(ctx context.Context, userID, conversationID string) (Record, bool) {
	var abandoned string
	var loadErr error
	if id, ok := normalizeID(conversationID); ok {
		rec, err := m.store.Get(ctx, id, userID)
		if err == nil {
			return rec, false
		}
		if !errors.Is(err, ErrNotFound) {
			abandoned, loadErr = id, err
		}
	}

	rec, err := m.store.Create(ctx, userID)
	if err != nil {
		// The record is still written by the final Save.
		m.logger.Warn("failed to create conversation", "error", err)
		now := m.now()
		rec = Record{
			ID:        m.newID(),
			Owner:     userID,
			History:   History{},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if abandoned != "" {
		// The client continues under the new ID; the old transcript is
		// left in the store untouched.
		m.logger.Warn("conversation could not be loaded, abandoned for a new one",
			"abandoned_conversation_id", abandoned,
			"conversation_id", rec.ID,
			"error", loadErr,
		)
	}
	return rec, true
}

// complete sends the history to the provider and returns the reply text.
func (m *Manager) complete(ctx context.Context, history History) (string, provider.FailureKind) {
	msgs := make([]provider.LLMMessage, 0, len(history)+1)
	if m.prompt != nil {
		if sys := m.prompt.SystemPrompt(); sys != "" {
			msgs = append(msgs, provider.LLMMessage{Role: provider.MessageRoleSystem, Content: sys})
		}
	}
	for _, msg := range history {
		msgs = append(msgs, provider.LLMMessage{Role: toProviderRole(msg.Role), Content: msg.Content})
	}

	resp, err := m.provider.Complete(ctx, provider.CompletionRequest{Messages: msgs})
	if err != nil {
		kind := provider.Classify(err)
		trace.SpanFromContext(ctx).RecordError(err)
		m.logger.Error("completion failed",
			"model", m.provider.ModelName(),
			"failure", string(kind),
			"error", err,
		)
		return FallbackReply(kind), kind
	}

	if strings.TrimSpace(resp.Content) == "" {
		return PlaceholderReply, provider.FailureNone
	}
	return resp.Content, provider.FailureNone
}

// List returns the conversations of userID, newest first.
func (m *Manager) List(ctx context.Context, userID string) ([]Record, error) {
	return m.store.List(ctx, userID)
}

// Delete removes a conversation owned by userID.
func (m *Manager) Delete(ctx context.Context, userID, conversationID string) error {
	id, ok := normalizeID(conversationID)
	if !ok {
		return ErrNotFound
	}
	return m.store.Delete(ctx, id, userID)
}

func toProviderRole(r Role) provider.MessageRole {
	if r == RoleAssistant {
		return provider.MessageRoleAssistant
	}
	return provider.MessageRoleUser
}

// normalizeID returns the canonical form of a UUID conversation ID.
func normalizeID(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

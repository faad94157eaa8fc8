package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/identity"
	"github.com/earmeout/earmeout/internal/security"
)

// messageRequest is the body of POST /message and of a WebSocket frame.
type messageRequest struct {
	Message        *string `json:"message"`
	ConversationID string  `json:"conversationId,omitempty"`
}

// messageResponse is the reply to a chat turn.
type messageResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

// turnError is a client-facing failure of one chat turn.
type turnError struct {
	status  int
	message string
}

func (e *turnError) Error() string { return e.message }

// handleMessage serves POST /message.
func (g *Gateway) handleMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := identity.UserID(r.Context())

		var req messageRequest
		body := http.MaxBytesReader(w, r.Body, int64(g.config.MaxMessageBytes)+4096)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "Message is too long")
				return
			}
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}

		// Turns outlive the client connection.
		ctx := context.WithoutCancel(r.Context())
		resp, terr := g.runTurn(ctx, r, userID, req)
		if terr != nil {
			writeError(w, terr.status, terr.message)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// runTurn validates one chat message, applies the per-user rate limit and
// hands it to the conversation manager. It is shared by HTTP and WebSocket.
func (g *Gateway) runTurn(ctx context.Context, r *http.Request, userID string, req messageRequest) (messageResponse, *turnError) {
	// Blank text is rejected by the manager; only absence is checked here.
	if req.Message == nil {
		return messageResponse{}, &turnError{http.StatusBadRequest, "Message is required"}
	}
	if err := security.ValidateMessageSize(*req.Message, g.config.MaxMessageBytes); err != nil {
		return messageResponse{}, &turnError{http.StatusRequestEntityTooLarge, "Message is too long"}
	}

	if err := g.limiter.Allow(userID); err != nil {
		g.metrics.RecordRateLimited()
		g.audit.Log(security.AuditEvent{
			Type:   security.EventRateLimit,
			UserID: userID,
			Detail: "message rate limit exceeded",
			Metadata: map[string]string{
				"remote_addr": r.RemoteAddr,
			},
		})
		return messageResponse{}, &turnError{http.StatusTooManyRequests, "Too many messages. Please slow down."}
	}

	if g.manager == nil {
		g.logger.Error("message received but no conversation manager is wired")
		return messageResponse{}, &turnError{http.StatusInternalServerError, "Internal server error"}
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.TurnTimeout)
	defer cancel()

	turn, err := g.manager.HandleTurn(ctx, userID, req.ConversationID, *req.Message)
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidInput) {
			return messageResponse{}, &turnError{http.StatusBadRequest, "Message is required"}
		}
		g.logger.Error("turn failed", "error", err)
		return messageResponse{}, &turnError{http.StatusInternalServerError, "Internal server error"}
	}

	g.metrics.RecordTurn(turn)
	if turn.Created {
		g.audit.Log(security.AuditEvent{
			Type:           security.EventConversationCreate,
			UserID:         userID,
			ConversationID: turn.ConversationID,
		})
	}
	if turn.Failure != "" {
		g.audit.Log(security.AuditEvent{
			Type:           security.EventProviderFailure,
			UserID:         userID,
			ConversationID: turn.ConversationID,
			Detail:         string(turn.Failure),
		})
	}

	return messageResponse{Message: turn.Reply, ConversationID: turn.ConversationID}, nil
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

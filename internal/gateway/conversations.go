package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/earmeout/earmeout/internal/conversation"
	"github.com/earmeout/earmeout/internal/identity"
	"github.com/earmeout/earmeout/internal/security"
)

// conversationsResponse is the body of GET /conversations.
type conversationsResponse struct {
	Conversations []conversation.Record `json:"conversations"`
}

// persistent reports whether conversations survive a restart. Listing and
// deleting are only offered when they do.
func (g *Gateway) persistent() bool {
	if g.store == nil {
		return false
	}
	_, inMemory := g.store.(*conversation.InMemoryStore)
	return !inMemory
}

// errAnonymousHistory rejects history access while every caller resolves
// to the shared anonymous user.
var errAnonymousHistory = fmt.Errorf("%w: authentication not configured", identity.ErrUnauthorized)

// historyAccess writes the rejection and returns false unless stored
// conversations can be served to the caller. Without persistence there is
// nothing to serve; without an identity resolver every caller would share
// the anonymous user's transcripts.
func (g *Gateway) historyAccess(w http.ResponseWriter, r *http.Request) bool {
	if !g.persistent() || g.manager == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistent storage not configured")
		return false
	}
	if _, anonymous := g.resolver.(identity.Anonymous); anonymous {
		g.metrics.RecordAuthFailure()
		emitAuthFailure(g.audit, r, errAnonymousHistory)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

// handleListConversations serves GET /conversations.
func (g *Gateway) handleListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.historyAccess(w, r) {
			return
		}
		userID, _ := identity.UserID(r.Context())

		list, err := g.manager.List(r.Context(), userID)
		if err != nil {
			g.logger.Error("failed to list conversations", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch conversations")
			return
		}
		writeJSON(w, http.StatusOK, conversationsResponse{Conversations: list})
	}
}

// handleDeleteConversation serves DELETE /conversations/{id}.
func (g *Gateway) handleDeleteConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.historyAccess(w, r) {
			return
		}
		userID, _ := identity.UserID(r.Context())
		id := chi.URLParam(r, "id")

		err := g.manager.Delete(r.Context(), userID, id)
		switch {
		case errors.Is(err, conversation.ErrNotFound):
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		case err != nil:
			g.logger.Error("failed to delete conversation", "conversation_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to delete conversation")
			return
		}

		g.audit.Log(security.AuditEvent{
			Type:           security.EventConversationDelete,
			UserID:         userID,
			ConversationID: id,
		})
		writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	}
}

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/earmeout/earmeout/internal/identity"
)

// wsError is sent in place of a reply when a frame cannot be answered.
type wsError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// wsToken returns the bearer token of a WebSocket handshake. Browsers
// cannot set headers on WebSocket requests, so ?access_token= is accepted
// as well.
func wsToken(r *http.Request) string {
	if tok := identity.BearerToken(r); tok != "" {
		return tok
	}
	return r.URL.Query().Get("access_token")
}

// handleWebSocket serves GET /ws. The caller is authenticated once during
// the handshake; every text frame is then one chat turn answered in order.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := g.authenticate(r, wsToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// The server's read and write deadlines must not apply to a
	// long-lived connection.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.wsOriginPatterns(),
	})
	if err != nil {
		g.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()
	conn.SetReadLimit(int64(g.config.MaxMessageBytes) + 4096)

	g.metrics.wsOpened()
	defer g.metrics.wsClosed()
	g.logger.Debug("websocket connected", "user_id", userID)

	g.wsLoop(r.Context(), conn, r, userID)
}

// wsLoop answers frames until the client goes away. Frames are decoded by
// hand so a malformed one gets an error reply instead of closing the
// connection.
func (g *Gateway) wsLoop(ctx context.Context, conn *websocket.Conn, r *http.Request, userID string) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				_ = conn.Close(websocket.StatusNormalClosure, "")
			}
			return
		}

		var req messageRequest
		if typ != websocket.MessageText || json.Unmarshal(data, &req) != nil {
			g.wsWrite(ctx, conn, wsError{Error: "Message is required", Status: http.StatusBadRequest})
			continue
		}

		resp, terr := g.runTurn(context.WithoutCancel(ctx), r, userID, req)
		if terr != nil {
			g.wsWrite(ctx, conn, wsError{Error: terr.message, Status: terr.status})
			continue
		}
		g.wsWrite(ctx, conn, resp)
	}
}

func (g *Gateway) wsWrite(ctx context.Context, conn *websocket.Conn, v any) {
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := wsjson.Write(wctx, conn, v); err != nil {
		g.logger.Warn("websocket write failed", "error", err)
	}
}

// wsOriginPatterns maps the CORS allow list onto the origin check done by
// websocket.Accept.
func (g *Gateway) wsOriginPatterns() []string {
	for _, o := range g.config.CORS.AllowedOrigins {
		if o == "*" {
			return []string{"*"}
		}
	}
	patterns := make([]string, 0, len(g.config.CORS.AllowedOrigins))
	for _, o := range g.config.CORS.AllowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

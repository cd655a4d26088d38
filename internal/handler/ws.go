package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Scoutersq/campus-connect-sub001/internal/auth"
	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/ws"
)

// handshakeWait bounds how long a fresh connection may take to present its
// auth frame before the server drops it.
const handshakeWait = 5 * time.Second

type WSHandler struct {
	hub            *ws.Hub
	bridge         *auth.RealtimeAuthBridge
	allowedOrigins string
}

// NewWSHandler creates the WebSocket handler. allowedOrigins matches the
// CORS setting (comma-separated or "*").
func NewWSHandler(hub *ws.Hub, bridge *auth.RealtimeAuthBridge, allowedOrigins string) *WSHandler {
	return &WSHandler{hub: hub, bridge: bridge, allowedOrigins: strings.TrimSpace(allowedOrigins)}
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if h.allowedOrigins == "*" || h.allowedOrigins == "" {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, o := range strings.Split(h.allowedOrigins, ",") {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}

// ServeWS upgrades the connection, then requires the first frame to be an
// auth message carrying a realtime ticket. The ticket is redeemed against
// the session store, so a session invalidated after ticket issue never gets
// a channel. Every failure yields the same generic error frame: this channel
// has a broader audience than the HTTP API and leaks nothing about why.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return h.checkOrigin(r) },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("ws upgrade: %v", err)
		return
	}

	identity, ok := h.handshake(r.Context(), conn)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not authorized"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := ws.NewClient(h.hub, conn, identity.Role, identity.AccountID, identity.SessionID)
	client.Start(ctx, cancel)
	h.hub.Register(client)
	client.Send(ws.OutgoingMessage{Type: ws.EventReady, Payload: ws.ReadyPayload{
		AccountID: identity.AccountID,
		Role:      string(identity.Role),
		Profile:   identity.Profile,
	}})
}

func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (auth.BridgeIdentity, bool) {
	conn.SetReadLimit(4096)
	if err := conn.SetReadDeadline(time.Now().Add(handshakeWait)); err != nil {
		return auth.BridgeIdentity{}, false
	}
	var frame ws.IncomingMessage
	if err := conn.ReadJSON(&frame); err != nil {
		h.writeAuthFailed(conn)
		return auth.BridgeIdentity{}, false
	}
	if frame.Type != ws.EventAuth || frame.Token == "" {
		h.writeAuthFailed(conn)
		return auth.BridgeIdentity{}, false
	}
	identity, err := h.bridge.Redeem(ctx, frame.Token)
	if err != nil {
		var ae *auth.Error
		if errors.As(err, &ae) && ae.Kind == auth.KindDependencyFailure {
			logger.Errorf("ws handshake dependency failure: %v", err)
		}
		h.writeAuthFailed(conn)
		return auth.BridgeIdentity{}, false
	}
	// handshake done; pump deadlines take over from here
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return auth.BridgeIdentity{}, false
	}
	return identity, true
}

func (h *WSHandler) writeAuthFailed(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteJSON(ws.OutgoingMessage{Type: ws.EventError, Payload: "not authorized"})
}

package events

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/CreativeUnicorns/cinehub/auth"
)

// Handler upgrades authenticated requests to websocket clients of a Hub.
type Handler struct {
	hub      *Hub
	tokens   *auth.TokenManager
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. The bearer token is read from the
// Authorization header, or from the token query parameter for browsers.
func NewHandler(hub *Hub, tokens *auth.TokenManager) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("token"); q != "" && r.Header.Get("Authorization") == "" {
		r.Header.Set("Authorization", "Bearer "+q)
	}

	claims, err := h.tokens.Authenticate(r)
	if err != nil {
		h.hub.logger.Info("Rejected events connection", "error", err)
		http.Error(w, "Unauthorized: invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	pseudo := claims.Pseudo
	if pseudo == "" {
		pseudo = fmt.Sprintf("user-%d", claims.UserID)
	}

	c := newClient(h.hub, conn, pseudo)
	if !h.hub.join(c) {
		_ = conn.Close()
		return
	}
	c.enqueue(Message{Event: EventWelcome, Data: "welcome " + pseudo})
	h.hub.broadcastExcept(Message{Event: EventMessage, Data: "New user connected : " + pseudo}, c)
	c.start()
}

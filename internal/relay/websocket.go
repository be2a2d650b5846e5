package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jebdekho/jebdekho-backend/pkg/auth"
	"github.com/jebdekho/jebdekho-backend/pkg/config"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

// Authenticator turns the handshake token into a principal.
type Authenticator func(ctx context.Context, token string) (auth.Principal, error)

// WebSocketHandler serves GET /ws?token=<jwt>.
type WebSocketHandler struct {
	hub          *Hub
	authenticate Authenticator
	actions      Actions
	orders       OrderLookup
	cfg          config.RelayConfig
	logg         *logger.Logger
	upgrader     websocket.Upgrader
}

func NewWebSocketHandler(hub *Hub, authenticate Authenticator, actions Actions, orders OrderLookup, cfg config.RelayConfig, origins []string, logg *logger.Logger) *WebSocketHandler {
	if logg == nil {
		logg = logger.Nop()
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &WebSocketHandler{
		hub:          hub,
		authenticate: authenticate,
		actions:      actions,
		orders:       orders,
		cfg:          cfg,
		logg:         logg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

func handshakeToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := handshakeToken(r)
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	principal, err := h.authenticate(ctx, token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "relay.upgrade_failed")
		return
	}

	// The request context ends with the handler; the connection outlives it.
	connCtx := h.logg.WithFields(context.Background(), map[string]any{
		"user_id": principal.UserID.String(),
		"role":    principal.Role,
	})
	sub := h.hub.Subscribe(DefaultChannels(principal.UserID, principal.Role)...)
	session := NewSession(h.hub, sub, principal, h.actions, h.orders)
	h.logg.Info(connCtx, "relay.connected")

	replies := make(chan *Envelope, 8)
	go h.writePump(conn, sub, replies)
	h.readPump(connCtx, conn, sub, session, replies)
	h.logg.Info(connCtx, "relay.disconnected")
}

func (h *WebSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, sub *Subscriber, session *Session, replies chan<- *Envelope) {
	defer func() {
		h.hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	pongWait := h.cfg.PingPeriod * 10 / 9
	if h.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageSize)
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "relay.read_failed")
			}
			return
		}
		if reply := session.Handle(ctx, frame); reply != nil {
			select {
			case replies <- reply:
			case <-sub.Done():
				return
			}
		}
	}
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, sub *Subscriber, replies <-chan *Envelope) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(env Envelope) error {
		_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		payload, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	for {
		select {
		case <-sub.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case env := <-sub.Events():
			if err := write(env); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		case reply := <-replies:
			if err := write(*reply); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		}
	}
}

package realtime

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/shaiso/Fabrika/internal/domain"
)

// Authenticator проверяет токен в момент handshake и возвращает
// идентификатор пользователя. Та же схема токенов, что и у HTTP
// surface (внешний коллаборатор).
type Authenticator func(r *http.Request) (userID string, err error)

// Handler апгрейдит HTTP-запрос до WebSocket и держит соединение
// в Hub до разрыва.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(hub *Hub, auth Authenticator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// ServeHTTP реализует http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам пишет ответ клиенту.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := h.hub.add(userID, ws)

	if err := c.send(domain.Event{
		Type: domain.EventSubscriptionConfirmed,
		Data: map[string]any{"user_id": userID},
	}); err != nil {
		h.hub.remove(userID, c)
		c.close()
		return
	}

	// Читаем до разрыва: входящие сообщения не используются,
	// чтение нужно для обработки close-фреймов и обнаружения обрыва.
	go func() {
		defer func() {
			h.hub.remove(userID, c)
			c.close()
			h.logger.Debug("connection closed", "user_id", userID)
		}()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

package realtime

import (
	"log/slog"
	"sync"

	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/telemetry"
)

// sender — минимальный контракт живого соединения.
// В продакшене это *websocket.Conn; тесты подставляют фейк.
type sender interface {
	WriteJSON(v any) error
	Close() error
}

// connection — одно живое соединение с сериализацией записи.
type connection struct {
	mu sync.Mutex
	ws sender
}

func (c *connection) send(ev domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(ev)
}

func (c *connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.Close()
}

// Hub — реестр живых соединений по идентификатору пользователя.
//
// События не буферизуются: пользователь без открытых соединений
// ничего не получает, и это не ошибка. Соединение удаляется из
// реестра при разрыве или при первой неудачной отправке.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string][]*connection
	logger *slog.Logger
}

// NewHub создаёт пустой Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[string][]*connection),
		logger: logger,
	}
}

// add регистрирует соединение пользователя.
func (h *Hub) add(userID string, ws sender) *connection {
	c := &connection{ws: ws}
	h.mu.Lock()
	h.conns[userID] = append(h.conns[userID], c)
	h.mu.Unlock()

	h.logger.Debug("connection registered", "user_id", userID)
	return c
}

// remove удаляет соединение из реестра (идемпотентно).
func (h *Hub) remove(userID string, target *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[userID]
	for i, c := range conns {
		if c == target {
			h.conns[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Send рассылает событие всем соединениям пользователя.
//
// Возвращает число успешных доставок; 0 при отсутствии соединений —
// штатная ситуация, не ошибка. Соединения с неудачной отправкой
// закрываются и удаляются из реестра.
func (h *Hub) Send(userID string, ev domain.Event) int {
	h.mu.RLock()
	conns := make([]*connection, len(h.conns[userID]))
	copy(conns, h.conns[userID])
	h.mu.RUnlock()

	if len(conns) == 0 {
		telemetry.RealtimeDeliveries.WithLabelValues("no_connection").Inc()
		return 0
	}

	delivered := 0
	for _, c := range conns {
		if err := c.send(ev); err != nil {
			h.logger.Debug("send failed, dropping connection",
				"user_id", userID,
				"type", string(ev.Type),
				"error", err,
			)
			telemetry.RealtimeDeliveries.WithLabelValues("send_error").Inc()
			h.remove(userID, c)
			c.close()
			continue
		}
		telemetry.RealtimeDeliveries.WithLabelValues("delivered").Inc()
		delivered++
	}
	return delivered
}

// Connections возвращает число живых соединений пользователя.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

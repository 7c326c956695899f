package ws

import (
	"encoding/json"
	"sync"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/logger"
)

// типы событий, которые получает UI
const (
	EventGameView     = "game_view"
	EventNotification = "notification"
	EventChat         = "chat"
	EventWallet       = "wallet"
)

// Event - кадр для UI
type Event struct {
	Type   string        `json:"type"`
	League domain.League `json:"league,omitempty"`
	Data   any           `json:"data"`
}

// Hub рассылает события всем подключенным вкладкам UI
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Debug("ws hub: клиент подключен", "client", c.ID, "clients", n)
}

// Unregister убирает клиента и закрывает его очередь, повторный вызов безопасен
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Debug("ws hub: клиент отключен", "client", c.ID, "clients", n)
}

// Count - число подключенных клиентов
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast отправляет событие всем. Клиент с переполненной очередью отключается.
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		logger.Error("ws hub: не удалось сериализовать событие", "type", ev.Type, "error", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.Send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("ws hub: очередь клиента переполнена, отключаем", "client", c.ID)
		h.Unregister(c)
	}
}

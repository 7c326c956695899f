package ws

import (
	"net/http"

	"talecraft_client/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SnapshotFunc возвращает текущее состояние для только что подключенной вкладки
type SnapshotFunc func() []Event

// содержит зависимости для обработки WebSocket
type WSHandler struct {
	Hub      *Hub
	Snapshot SnapshotFunc
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, snapshot SnapshotFunc, allowedOrigin string) *WSHandler {
	return &WSHandler{
		Hub:      hub,
		Snapshot: snapshot,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

func (h *WSHandler) HandleWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ошибка обновления ws", "error", err)
			return
		}

		var initial []Event
		if h.Snapshot != nil {
			initial = h.Snapshot()
		}

		client := NewClient(conn, h.Hub)
		go client.Run(initial)
	}
}

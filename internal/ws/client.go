package ws

import (
	"encoding/json"
	"time"

	"talecraft_client/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const sendBuffer = 256

// Client - одна вкладка UI, подключенная к /ws
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	hub  *Hub
	Done chan struct{}
}

func NewClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		hub:  hub,
		Done: make(chan struct{}),
	}
}

// Run отправляет начальное состояние, регистрирует клиента и ждет отключения
func (c *Client) Run(initial []Event) {
	// начальные события кладем до регистрации, чтобы они шли первыми
	for _, ev := range initial {
		msg, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		select {
		case c.Send <- msg:
		default:
		}
	}

	c.hub.Register(c)
	go c.writePump()
	c.readPump()
	<-c.Done
}

// read: UI ничего не шлет, читаем только ради pong и закрытия
func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	c.Conn.SetReadLimit(4096)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws client: ошибка чтения", "client", c.ID, "error", err)
			}
			return
		}
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		close(c.Done)
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws client: ошибка записи", "client", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

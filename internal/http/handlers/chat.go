package handlers

import (
	"context"
	"net/http"
	"strings"

	"talecraft_client/internal/ws"

	"github.com/gin-gonic/gin"
)

// ChatJoiner получает токен чата и входит в комнату
type ChatJoiner interface {
	JoinChat(ctx context.Context, chatID string) error
}

// ChatRoom - уже подключенный клиент чата
type ChatRoom interface {
	Leave() error
	SendMessage(text string) error
	State() ws.ChatState
}

type ChatHandler struct {
	joiner ChatJoiner
	room   ChatRoom
}

func NewChatHandler(joiner ChatJoiner, room ChatRoom) *ChatHandler {
	return &ChatHandler{joiner: joiner, room: room}
}

func (h *ChatHandler) Join(c *gin.Context) {
	chatID := strings.TrimSpace(c.Param("chat_id"))
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id required"})
		return
	}
	if err := h.joiner.JoinChat(c.Request.Context(), chatID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.room.State())
}

func (h *ChatHandler) Leave(c *gin.Context) {
	if err := h.room.Leave(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.room.State())
}

type messageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}
	if err := h.room.SendMessage(req.Text); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ChatHandler) Messages(c *gin.Context) {
	c.JSON(http.StatusOK, h.room.State())
}

package handlers

import (
	"context"
	"net/http"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/service"

	"github.com/gin-gonic/gin"
)

// NotificationFeed - разрешение на уведомления и лента последних событий
type NotificationFeed interface {
	SetPermission(ctx context.Context, granted bool) error
	Recent() []domain.Notification
}

type PreferenceHandler struct {
	prefs         service.PreferenceStore
	notifications NotificationFeed
}

func NewPreferenceHandler(prefs service.PreferenceStore, notifications NotificationFeed) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs, notifications: notifications}
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	p, err := h.prefs.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type preferencesRequest struct {
	AudioMuted *bool `json:"audio_muted"`
	DarkTheme  *bool `json:"dark_theme"`
}

// Update меняет только переданные поля. Кошелек и разрешение
// на уведомления меняются своими ручками
func (h *PreferenceHandler) Update(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	p, err := h.prefs.Get(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.AudioMuted != nil {
		p.AudioMuted = *req.AudioMuted
	}
	if req.DarkTheme != nil {
		p.DarkTheme = *req.DarkTheme
	}
	if err := h.prefs.Save(ctx, p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type permissionRequest struct {
	Granted bool `json:"granted"`
}

func (h *PreferenceHandler) Permission(c *gin.Context) {
	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.notifications.SetPermission(c.Request.Context(), req.Granted); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": req.Granted})
}

// последние уведомления, включая локальные ошибки
func (h *PreferenceHandler) Notifications(c *gin.Context) {
	recent := h.notifications.Recent()
	if recent == nil {
		recent = []domain.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": recent})
}

package handlers

import (
	"context"
	"io"
	"net/http"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/service"

	"github.com/gin-gonic/gin"
)

// GameSource - то, что игровым ручкам нужно от приложения
type GameSource interface {
	Watcher(league domain.League) (*service.GameWatcher, error)
	Actions(league domain.League) (*service.ActionService, error)
	History(ctx context.Context, league domain.League, limit int) ([]*domain.GameRecord, error)
}

type GameHandler struct {
	games GameSource
}

func NewGameHandler(games GameSource) *GameHandler {
	return &GameHandler{games: games}
}

func (h *GameHandler) watcher(c *gin.Context) (*service.GameWatcher, bool) {
	league, ok := leagueParam(c)
	if !ok {
		return nil, false
	}
	w, err := h.games.Watcher(league)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return w, true
}

// краткое состояние всех лиг
func (h *GameHandler) Leagues(c *gin.Context) {
	leagues := make([]gin.H, 0, len(domain.Leagues()))
	for _, league := range domain.Leagues() {
		item := gin.H{"league": league, "loading": true}
		if w, err := h.games.Watcher(league); err == nil {
			if v, ok := w.View(); ok {
				item = gin.H{
					"league":  league,
					"loading": false,
					"status":  v.Status,
					"game_id": v.GameID,
					"is_turn": v.IsTurn,
				}
			}
		}
		leagues = append(leagues, item)
	}
	c.JSON(http.StatusOK, gin.H{"leagues": leagues})
}

// текущее представление игры лиги
func (h *GameHandler) Game(c *gin.Context) {
	w, ok := h.watcher(c)
	if !ok {
		return
	}
	v, ok := w.View()
	if !ok {
		// первый опрос еще не завершился
		c.JSON(http.StatusOK, gin.H{"loading": true})
		return
	}
	c.JSON(http.StatusOK, v)
}

// поток представлений игры (server-sent events)
func (h *GameHandler) Events(c *gin.Context) {
	w, ok := h.watcher(c)
	if !ok {
		return
	}
	ch, unsubscribe := w.Subscribe()
	defer unsubscribe()

	if v, ok := w.View(); ok {
		c.SSEvent("view", v)
		c.Writer.Flush()
	}
	c.Stream(func(io.Writer) bool {
		select {
		case v, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("view", v)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// завершенные игры игрока, прочитанные из контракта
func (h *GameHandler) PastGames(c *gin.Context) {
	w, ok := h.watcher(c)
	if !ok {
		return
	}
	views, err := w.PastGames(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": views})
}

// сохраненная локально история игр
func (h *GameHandler) Records(c *gin.Context) {
	league, ok := leagueParam(c)
	if !ok {
		return
	}
	records, err := h.games.History(c.Request.Context(), league, queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []*domain.GameRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

type placeRequest struct {
	TokenID string `json:"token_id" binding:"required"`
}

type powerRequest struct {
	Power string `json:"power" binding:"required"`
}

type spectateRequest struct {
	GameID string `json:"game_id"`
}

// action выполняет действие лиги и отдает результат транзакции
func (h *GameHandler) action(c *gin.Context, run func(ctx context.Context, s *service.ActionService) (*domain.TxResult, error)) {
	league, ok := leagueParam(c)
	if !ok {
		return
	}
	s, err := h.games.Actions(league)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := run(c.Request.Context(), s)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *GameHandler) Join(c *gin.Context) {
	h.action(c, func(ctx context.Context, s *service.ActionService) (*domain.TxResult, error) {
		return s.Join(ctx)
	})
}

func (h *GameHandler) Leave(c *gin.Context) {
	h.action(c, func(ctx context.Context, s *service.ActionService) (*domain.TxResult, error) {
		return s.Leave(ctx)
	})
}

func (h *GameHandler) Place(c *gin.Context) {
	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token_id required"})
		return
	}
	tokenID, err := parseBigID(req.TokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.action(c, func(ctx context.Context, s *service.ActionService) (*domain.TxResult, error) {
		return s.PlaceCard(ctx, tokenID)
	})
}

func (h *GameHandler) Power(c *gin.Context) {
	var req powerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "power required"})
		return
	}
	power, err := domain.ParsePowerType(req.Power)
	if err != nil {
		respondError(c, err)
		return
	}
	h.action(c, func(ctx context.Context, s *service.ActionService) (*domain.TxResult, error) {
		return s.UsePower(ctx, power)
	})
}

func (h *GameHandler) Boost(c *gin.Context) {
	h.action(c, func(ctx context.Context, s *service.ActionService) (*domain.TxResult, error) {
		return s.Boost(ctx)
	})
}

func (h *GameHandler) Abort(c *gin.Context) {
	h.action(c, func(ctx context.Context, s *service.ActionService) (*domain.TxResult, error) {
		return s.Abort(ctx)
	})
}

// Spectate включает наблюдение за игрой, пустой game_id возвращает к своей игре
func (h *GameHandler) Spectate(c *gin.Context) {
	w, ok := h.watcher(c)
	if !ok {
		return
	}
	var req spectateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.GameID == "" {
		w.ClearSpectate()
		c.JSON(http.StatusOK, gin.H{"spectating": false})
		return
	}
	id, err := parseBigID(req.GameID)
	if err != nil || id.Sign() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game_id"})
		return
	}
	w.Spectate(id)
	c.JSON(http.StatusOK, gin.H{"spectating": true, "game_id": id.String()})
}

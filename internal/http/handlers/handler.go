package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"talecraft_client/internal/app"
	"talecraft_client/internal/domain"
	"talecraft_client/internal/indexer"
	"talecraft_client/internal/logger"
	"talecraft_client/internal/service"
	"talecraft_client/internal/ws"

	"github.com/gin-gonic/gin"
)

var errInvalidTokenID = errors.New("неверный token id")

// respondError переводит ошибку сервиса в HTTP-ответ
func respondError(c *gin.Context, err error) {
	var actionErr *service.ActionError
	switch {
	case errors.As(err, &actionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  actionErr.Message,
			"action": actionErr.Action,
		})

	case errors.Is(err, domain.ErrUnknownLeague):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrUnknownPower),
		errors.Is(err, domain.ErrInvalidTier),
		errors.Is(err, domain.ErrInvalidWeightRange),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrInvalidSpecial),
		errors.Is(err, errInvalidTokenID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrNoAccount),
		errors.Is(err, ws.ErrNotJoined),
		errors.Is(err, ws.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, app.ErrNoWallet),
		errors.Is(err, app.ErrHistoryDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	case errors.Is(err, indexer.ErrNoChatToken):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, indexer.ErrGraphQL):
		c.JSON(http.StatusBadGateway, gin.H{"error": "indexer request failed"})

	default:
		logger.Error("api: request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func leagueParam(c *gin.Context) (domain.League, bool) {
	league, err := domain.ParseLeague(c.Param("league"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return league, true
}

func parseTokenID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidTokenID
	}
	return id, nil
}

func parseBigID(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errInvalidTokenID
	}
	return v, nil
}

// queryInt читает положительное число из query, иначе def
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

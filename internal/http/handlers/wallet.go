package handlers

import (
	"context"
	"net/http"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/game"

	"github.com/gin-gonic/gin"
)

// WalletSource - подключение кошелька и его инвентарь
type WalletSource interface {
	WalletStater
	ConnectWallet(ctx context.Context) (domain.WalletState, error)
	DisconnectWallet(ctx context.Context)
	Inventory() ([]domain.InventoryItem, error)
	Transactions(ctx context.Context, limit int) ([]*domain.TxLogEntry, error)
}

type WalletHandler struct {
	wallet WalletSource
}

func NewWalletHandler(wallet WalletSource) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

func (h *WalletHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.wallet.WalletState())
}

func (h *WalletHandler) Connect(c *gin.Context) {
	st, err := h.wallet.ConnectWallet(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *WalletHandler) Disconnect(c *gin.Context) {
	h.wallet.DisconnectWallet(c.Request.Context())
	c.JSON(http.StatusOK, h.wallet.WalletState())
}

// игровые карты кошелька, q фильтрует по имени
func (h *WalletHandler) Inventory(c *gin.Context) {
	items, err := h.wallet.Inventory()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": game.FilterInventory(items, c.Query("q"))})
}

// журнал отправленных транзакций
func (h *WalletHandler) Transactions(c *gin.Context) {
	entries, err := h.wallet.Transactions(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*domain.TxLogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

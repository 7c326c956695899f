package handlers

import (
	"context"
	"net/http"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/service"

	"github.com/gin-gonic/gin"
)

// MarketIndexer - запросы к индексатору маркетплейса
type MarketIndexer interface {
	Listings(ctx context.Context, f domain.ListingFilter) (*domain.ListingPage, error)
	LendingListings(ctx context.Context, f domain.LendingFilter) (*domain.LendingPage, error)
	MarketplaceStats(ctx context.Context) (*domain.MarketplaceStats, error)
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	GameLeaderboard(ctx context.Context, league domain.League) ([]domain.GameLeaderboardEntry, error)
	Resource(ctx context.Context, tokenID int64) (*domain.ResourceInfo, error)
	RecipeTree(ctx context.Context, tokenID int64) ([]domain.RecipeNode, error)
	Settings(ctx context.Context) (*domain.Settings, error)
}

// WalletStater отдает состояние кошелька
type WalletStater interface {
	WalletState() domain.WalletState
}

type MarketHandler struct {
	indexer MarketIndexer
	wallet  WalletStater
}

func NewMarketHandler(indexer MarketIndexer, wallet WalletStater) *MarketHandler {
	return &MarketHandler{indexer: indexer, wallet: wallet}
}

// общие параметры фильтра: q, tier, weight, order, page
func parseCommonFilter(c *gin.Context) (tiers []domain.Tier, weights []domain.WeightRange, order domain.ListingOrder, err error) {
	for _, s := range c.QueryArray("tier") {
		t, err := domain.ParseTier(s)
		if err != nil {
			return nil, nil, "", err
		}
		tiers = append(tiers, t)
	}
	for _, s := range c.QueryArray("weight") {
		w, err := domain.ParseWeightRange(s)
		if err != nil {
			return nil, nil, "", err
		}
		weights = append(weights, w)
	}
	order, err = domain.ParseListingOrder(c.Query("order"))
	return tiers, weights, order, err
}

// Listings - страница листингов маркетплейса
func (h *MarketHandler) Listings(c *gin.Context) {
	tiers, weights, order, err := parseCommonFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.indexer.Listings(c.Request.Context(), domain.ListingFilter{
		Query:   c.Query("q"),
		Tiers:   tiers,
		Weights: weights,
		Seller:  c.Query("seller"),
		Order:   order,
		Page:    queryInt(c, "page", 1),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       page.Items,
		"total_items": page.TotalItems,
		"page":        page.Page,
		"pages":       page.Pages(),
	})
}

// Lending - предложения аренды, special=listed|borrowed|retrievable относится к подключенному кошельку
func (h *MarketHandler) Lending(c *gin.Context) {
	tiers, weights, order, err := parseCommonFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	special, err := domain.ParseLendingSpecial(c.Query("special"))
	if err != nil {
		respondError(c, err)
		return
	}

	f := domain.LendingFilter{
		Query:   c.Query("q"),
		Tiers:   tiers,
		Weights: weights,
		Special: special,
		Order:   order,
		Page:    queryInt(c, "page", 1),
	}
	if special != domain.LendingAll {
		st := h.wallet.WalletState()
		if !st.Connected {
			respondError(c, service.ErrNoAccount)
			return
		}
		f.Address = st.Address
	}

	page, err := h.indexer.LendingListings(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       page.Items,
		"total_items": page.TotalItems,
		"page":        page.Page,
		"pages":       domain.ListingPage{TotalItems: page.TotalItems}.Pages(),
	})
}

func (h *MarketHandler) Stats(c *gin.Context) {
	stats, err := h.indexer.MarketplaceStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// общий рейтинг по весу коллекции
func (h *MarketHandler) Leaderboard(c *gin.Context) {
	top, err := h.indexer.Leaderboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}

// рейтинг побед в лиге
func (h *MarketHandler) GameLeaderboard(c *gin.Context) {
	league, ok := leagueParam(c)
	if !ok {
		return
	}
	top, err := h.indexer.GameLeaderboard(c.Request.Context(), league)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"league": league, "leaderboard": top})
}

// карточка ресурса, 404 если индексатор его не знает
func (h *MarketHandler) Resource(c *gin.Context) {
	id, err := parseTokenID(c.Param("token_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.indexer.Resource(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// дерево рецепта ресурса
func (h *MarketHandler) Recipe(c *gin.Context) {
	id, err := parseTokenID(c.Param("token_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	nodes, err := h.indexer.RecipeTree(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(nodes) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

func (h *MarketHandler) Settings(c *gin.Context) {
	s, err := h.indexer.Settings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/metrics"
)

var (
	ErrGraphQL     = errors.New("ошибка GraphQL")
	ErrNoChatToken = errors.New("индексатор не выдал токен чата")
)

// Client - клиент GraphQL API индексатора TaleCraft
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient создает клиент индексатора
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do выполняет запрос и раскладывает data в out
func (c *Client) do(ctx context.Context, operation, query string, vars map[string]any, out any) error {
	err := c.request(ctx, query, vars, out)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.IndexerRequests.WithLabelValues(operation, result).Inc()
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ошибка API: %s - %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var gr gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	return json.Unmarshal(gr.Data, out)
}

// Listings возвращает страницу листингов маркетплейса
func (c *Client) Listings(ctx context.Context, f domain.ListingFilter) (*domain.ListingPage, error) {
	vars := map[string]any{
		"tiers":   tierStrings(f.Tiers),
		"weights": weightStrings(f.Weights),
		"order":   string(f.Order),
		"page":    f.Page,
	}
	if f.Query != "" {
		vars["q"] = f.Query
	}
	if f.Seller != "" {
		vars["seller"] = f.Seller
	}

	var data struct {
		Listings *struct {
			TotalItems int          `json:"totalItems"`
			Items      []rawListing `json:"items"`
		} `json:"listings"`
	}
	if err := c.do(ctx, "getListings", listingsQuery, vars, &data); err != nil {
		return nil, err
	}

	page := &domain.ListingPage{Page: f.Page, Items: []domain.Listing{}}
	if data.Listings == nil {
		return page, nil
	}
	page.TotalItems = data.Listings.TotalItems
	for _, l := range data.Listings.Items {
		page.Items = append(page.Items, l.toDomain())
	}
	return page, nil
}

// LendingListings возвращает страницу предложений аренды
func (c *Client) LendingListings(ctx context.Context, f domain.LendingFilter) (*domain.LendingPage, error) {
	vars := map[string]any{
		"tiers":   tierStrings(f.Tiers),
		"weights": weightStrings(f.Weights),
		"order":   string(f.Order),
		"page":    f.Page,
	}
	if f.Query != "" {
		vars["q"] = f.Query
	}
	if f.Special != domain.LendingAll {
		vars["special"] = string(f.Special)
		vars["address"] = f.Address
	}

	var data struct {
		BorrowListings *struct {
			TotalItems int          `json:"totalItems"`
			Items      []rawLending `json:"items"`
		} `json:"borrowListings"`
	}
	if err := c.do(ctx, "getBorrowListings", lendingQuery, vars, &data); err != nil {
		return nil, err
	}

	page := &domain.LendingPage{Page: f.Page, Items: []domain.LendingListing{}}
	if data.BorrowListings == nil {
		return page, nil
	}
	page.TotalItems = data.BorrowListings.TotalItems
	for _, l := range data.BorrowListings.Items {
		page.Items = append(page.Items, l.toDomain())
	}
	return page, nil
}

// MarketplaceStats возвращает агрегаты маркетплейса
func (c *Client) MarketplaceStats(ctx context.Context) (*domain.MarketplaceStats, error) {
	var data struct {
		MarketplaceStats *struct {
			MinElementPrice json.RawMessage `json:"minElementPrice"`
		} `json:"marketplaceStats"`
	}
	if err := c.do(ctx, "getMarketplaceStats", statsQuery, nil, &data); err != nil {
		return nil, err
	}
	stats := &domain.MarketplaceStats{}
	if data.MarketplaceStats != nil {
		stats.MinElementPrice = decimal(data.MarketplaceStats.MinElementPrice)
	}
	return stats, nil
}

// Leaderboard возвращает рейтинг коллекционеров по весу
func (c *Client) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var data struct {
		Leaderboard []struct {
			Address string `json:"address"`
			Weight  int64  `json:"weight"`
			MaxTier int    `json:"maxTier"`
			Tier0   int64  `json:"tier0"`
			Tier1   int64  `json:"tier1"`
			Tier2   int64  `json:"tier2"`
			Tier3   int64  `json:"tier3"`
			Tier4   int64  `json:"tier4"`
			Tier5   int64  `json:"tier5"`
		} `json:"leaderboard"`
	}
	if err := c.do(ctx, "leaderboard", leaderboardQuery, nil, &data); err != nil {
		return nil, err
	}

	out := make([]domain.LeaderboardEntry, 0, len(data.Leaderboard))
	for _, r := range data.Leaderboard {
		out = append(out, domain.LeaderboardEntry{
			Address: r.Address,
			Weight:  r.Weight,
			MaxTier: r.MaxTier,
			Tiers:   [6]int64{r.Tier0, r.Tier1, r.Tier2, r.Tier3, r.Tier4, r.Tier5},
		})
	}
	return out, nil
}

// GameLeaderboard возвращает игровой рейтинг одной лиги
func (c *Client) GameLeaderboard(ctx context.Context, league domain.League) ([]domain.GameLeaderboardEntry, error) {
	var data struct {
		GameLeaderboard []struct {
			Address string `json:"address"`
			Wins    *int64 `json:"wins"`
			Played  *int64 `json:"played"`
			League  int    `json:"league"`
		} `json:"gameLeaderboard"`
	}
	if err := c.do(ctx, "gameLeaderboard", gameLeaderboardQuery, nil, &data); err != nil {
		return nil, err
	}

	// индексатор отдает все лиги сразу
	out := make([]domain.GameLeaderboardEntry, 0)
	for _, r := range data.GameLeaderboard {
		if r.League != league.Index() {
			continue
		}
		out = append(out, domain.GameLeaderboardEntry{
			Address: r.Address,
			Wins:    deref(r.Wins),
			Played:  deref(r.Played),
			League:  r.League,
		})
	}
	return out, nil
}

// Resource возвращает ресурс с историей продаж, nil если индексатор его не знает
func (c *Client) Resource(ctx context.Context, tokenID int64) (*domain.ResourceInfo, error) {
	var data struct {
		Resource *rawResource `json:"resource"`
	}
	vars := map[string]any{"tokenId": fmt.Sprint(tokenID)}
	if err := c.do(ctx, "getResource", resourceQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Resource == nil {
		return nil, nil
	}
	return data.Resource.toDomain(), nil
}

// RecipeTree возвращает плоский список узлов дерева крафта, корень первым
func (c *Client) RecipeTree(ctx context.Context, tokenID int64) ([]domain.RecipeNode, error) {
	var data struct {
		TreeChart []struct {
			ID       string `json:"id"`
			ParentID string `json:"parentId"`
			TokenID  int64  `json:"tokenId"`
			Name     string `json:"name"`
			IpfsHash string `json:"ipfsHash"`
			Weight   int64  `json:"weight"`
			Tier     int    `json:"tier"`
		} `json:"treeChart"`
	}
	vars := map[string]any{"tokenId": fmt.Sprint(tokenID)}
	if err := c.do(ctx, "getTreeChart", treeChartQuery, vars, &data); err != nil {
		return nil, err
	}

	out := make([]domain.RecipeNode, 0, len(data.TreeChart))
	for _, n := range data.TreeChart {
		out = append(out, domain.RecipeNode{
			ID:       n.ID,
			ParentID: n.ParentID,
			Name:     n.Name,
			IPFS:     n.IpfsHash,
			Weight:   n.Weight,
			Tier:     n.Tier,
			TokenID:  n.TokenID,
		})
	}
	return out, nil
}

// ChatToken обменивает подпись "JoinChat:<chatId>" на токен чата
func (c *Client) ChatToken(ctx context.Context, chatID, signature string) (string, error) {
	var data struct {
		ChatToken *string `json:"chatToken"`
	}
	vars := map[string]any{"chatId": chatID, "sig": signature}
	if err := c.do(ctx, "chatToken", chatTokenQuery, vars, &data); err != nil {
		return "", err
	}
	if data.ChatToken == nil || *data.ChatToken == "" {
		return "", ErrNoChatToken
	}
	return *data.ChatToken, nil
}

// Settings возвращает глобальные настройки
func (c *Client) Settings(ctx context.Context) (*domain.Settings, error) {
	var data struct {
		Settings *struct {
			ChestSaleActive *bool `json:"chestSaleActive"`
		} `json:"settings"`
	}
	if err := c.do(ctx, "settings", settingsQuery, nil, &data); err != nil {
		return nil, err
	}
	s := &domain.Settings{}
	if data.Settings != nil && data.Settings.ChestSaleActive != nil {
		s.ChestSaleActive = *data.Settings.ChestSaleActive
	}
	return s, nil
}

func tierStrings(tiers []domain.Tier) []string {
	out := make([]string, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, fmt.Sprint(uint8(t)))
	}
	return out
}

func weightStrings(weights []domain.WeightRange) []string {
	out := make([]string, 0, len(weights))
	for _, w := range weights {
		out = append(out, string(w))
	}
	return out
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

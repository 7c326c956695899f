package domain

import (
	"errors"
	"fmt"
	"time"
)

// размер страницы в ответах индексатора
const ListingsPageSize = 16

var (
	ErrInvalidOrder   = errors.New("неверная сортировка")
	ErrInvalidSpecial = errors.New("неверный фильтр аренды")
)

// ListingOrder - допустимые сортировки листингов
type ListingOrder string

const (
	OrderPriceAsc  ListingOrder = "price"
	OrderPriceDesc ListingOrder = "-price"
	OrderNewest    ListingOrder = "-listing_id"
	OrderOldest    ListingOrder = "listing_id"
)

// ParseListingOrder проверяет сортировку, пустая строка - по цене
func ParseListingOrder(s string) (ListingOrder, error) {
	switch o := ListingOrder(s); o {
	case "":
		return OrderPriceAsc, nil
	case OrderPriceAsc, OrderPriceDesc, OrderNewest, OrderOldest:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
}

// ListingFilter - параметры запроса листингов
type ListingFilter struct {
	Query   string
	Tiers   []Tier
	Weights []WeightRange
	Seller  string
	Order   ListingOrder
	Page    int
}

// ResourceSale - одна закрытая сделка по ресурсу
type ResourceSale struct {
	Datetime time.Time `json:"datetime"`
	Amount   int64     `json:"amount"`
	Price    string    `json:"price"`
}

// ResourceInfo - ресурс в представлении индексатора.
// CurrentSales - открытые предложения, Sales - закрытые сделки.
type ResourceInfo struct {
	TokenID      int64          `json:"token_id"`
	Name         string         `json:"name"`
	Tier         int            `json:"tier"`
	IPFSHash     string         `json:"ipfs_hash"`
	Weight       int64          `json:"weight"`
	Ingredients  []int64        `json:"ingredients,omitempty"`
	Sales        []ResourceSale `json:"sales,omitempty"`
	CurrentSales []ResourceSale `json:"current_sales,omitempty"`
}

// Listing - предложение на маркетплейсе
type Listing struct {
	ListingID int64         `json:"listing_id"`
	Amount    int64         `json:"amount"`
	Price     string        `json:"price"`
	Seller    string        `json:"seller"`
	Buyer     string        `json:"buyer,omitempty"`
	Closed    bool          `json:"closed"`
	Resource  *ResourceInfo `json:"resource,omitempty"`
}

// ListingPage - страница листингов и общее количество для пагинации
type ListingPage struct {
	Items      []Listing `json:"items"`
	TotalItems int       `json:"total_items"`
	Page       int       `json:"page"`
}

// Pages возвращает количество страниц
func (p ListingPage) Pages() int {
	return (p.TotalItems + ListingsPageSize - 1) / ListingsPageSize
}

// LendingListing - предложение аренды карты
type LendingListing struct {
	ListingID int64         `json:"listing_id"`
	Lender    string        `json:"lender"`
	Borrower  string        `json:"borrower,omitempty"`
	Price     string        `json:"price"`
	Duration  int64         `json:"duration"`
	Closed    bool          `json:"closed"`
	Resource  *ResourceInfo `json:"resource,omitempty"`
}

// LendingSpecial - фильтр аренды относительно своего кошелька
type LendingSpecial string

const (
	LendingAll         LendingSpecial = ""
	LendingListed      LendingSpecial = "listed"
	LendingBorrowed    LendingSpecial = "borrowed"
	LendingRetrievable LendingSpecial = "retrievable"
)

func ParseLendingSpecial(s string) (LendingSpecial, error) {
	switch v := LendingSpecial(s); v {
	case LendingAll, LendingListed, LendingBorrowed, LendingRetrievable:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpecial, s)
}

// LendingFilter - параметры запроса аренды.
// Address передается только вместе со Special.
type LendingFilter struct {
	Query   string
	Tiers   []Tier
	Weights []WeightRange
	Special LendingSpecial
	Address string
	Order   ListingOrder
	Page    int
}

// LendingPage - страница предложений аренды
type LendingPage struct {
	Items      []LendingListing `json:"items"`
	TotalItems int              `json:"total_items"`
	Page       int              `json:"page"`
}

// MarketplaceStats - агрегаты маркетплейса
type MarketplaceStats struct {
	MinElementPrice string `json:"min_element_price"`
}

// LeaderboardEntry - строка общего рейтинга по весу коллекции
type LeaderboardEntry struct {
	Address string   `json:"address"`
	Weight  int64    `json:"weight"`
	MaxTier int      `json:"max_tier"`
	Tiers   [6]int64 `json:"tiers"`
}

// GameLeaderboardEntry - строка игрового рейтинга лиги
type GameLeaderboardEntry struct {
	Address string `json:"address"`
	Wins    int64  `json:"wins"`
	Played  int64  `json:"played"`
	League  int    `json:"league"`
}

// RecipeNode - узел дерева рецепта
type RecipeNode struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	IPFS     string `json:"ipfs"`
	Weight   int64  `json:"weight"`
	Tier     int    `json:"tier"`
	TokenID  int64  `json:"token_id"`
}

// Settings - глобальные настройки фронта из индексатора
type Settings struct {
	ChestSaleActive bool `json:"chest_sale_active"`
}

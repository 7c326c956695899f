package indexer

import (
	"encoding/json"
	"strings"
	"time"

	"talecraft_client/internal/domain"
)

// сырые ответы индексатора (camelCase, Decimal приходит строкой или числом)

type rawSale struct {
	Datetime string          `json:"datetime"`
	Amount   *int64          `json:"amount"`
	Price    json.RawMessage `json:"price"`
}

type rawResource struct {
	TokenID      int64      `json:"tokenId"`
	Name         string     `json:"name"`
	Tier         int        `json:"tier"`
	IpfsHash     string     `json:"ipfsHash"`
	Weight       int64      `json:"weight"`
	Ingredients  []*int64   `json:"ingredients"`
	Sales        []*rawSale `json:"sales"`
	CurrentSales []*rawSale `json:"currentSales"`
}

type rawListing struct {
	ListingID int64           `json:"listingId"`
	Amount    int64           `json:"amount"`
	Price     json.RawMessage `json:"price"`
	Seller    string          `json:"seller"`
	Buyer     *string         `json:"buyer"`
	Closed    bool            `json:"closed"`
	Resource  *rawResource    `json:"resource"`
}

type rawLending struct {
	ListingID int64           `json:"listingId"`
	Lender    string          `json:"lender"`
	Borrower  *string         `json:"borrower"`
	Price     json.RawMessage `json:"price"`
	Duration  int64           `json:"duration"`
	Closed    bool            `json:"closed"`
	Resource  *rawResource    `json:"resource"`
}

// форматы DateTime, которые отдает бэкенд
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseDatetime(s string) time.Time {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// decimal приводит Decimal к строке без кавычек, null - пустая строка
func decimal(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

func convertSales(in []*rawSale) []domain.ResourceSale {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.ResourceSale, 0, len(in))
	for _, s := range in {
		if s == nil {
			continue
		}
		var amount int64
		if s.Amount != nil {
			amount = *s.Amount
		}
		out = append(out, domain.ResourceSale{
			Datetime: parseDatetime(s.Datetime),
			Amount:   amount,
			Price:    decimal(s.Price),
		})
	}
	return out
}

func (r *rawResource) toDomain() *domain.ResourceInfo {
	if r == nil {
		return nil
	}
	info := &domain.ResourceInfo{
		TokenID:      r.TokenID,
		Name:         r.Name,
		Tier:         r.Tier,
		IPFSHash:     r.IpfsHash,
		Weight:       r.Weight,
		Sales:        convertSales(r.Sales),
		CurrentSales: convertSales(r.CurrentSales),
	}
	for _, id := range r.Ingredients {
		if id != nil {
			info.Ingredients = append(info.Ingredients, *id)
		}
	}
	return info
}

func (l rawListing) toDomain() domain.Listing {
	out := domain.Listing{
		ListingID: l.ListingID,
		Amount:    l.Amount,
		Price:     decimal(l.Price),
		Seller:    l.Seller,
		Closed:    l.Closed,
		Resource:  l.Resource.toDomain(),
	}
	if l.Buyer != nil {
		out.Buyer = *l.Buyer
	}
	return out
}

func (l rawLending) toDomain() domain.LendingListing {
	out := domain.LendingListing{
		ListingID: l.ListingID,
		Lender:    l.Lender,
		Price:     decimal(l.Price),
		Duration:  l.Duration,
		Closed:    l.Closed,
		Resource:  l.Resource.toDomain(),
	}
	if l.Borrower != nil {
		out.Borrower = *l.Borrower
	}
	return out
}

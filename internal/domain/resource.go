package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var (
	ErrInvalidTier        = errors.New("неверный тир")
	ErrInvalidWeightRange = errors.New("неверный диапазон веса")
)

// первые токены - базовые элементы, в игре ими ходить нельзя
const MaxBaseElementID = 4

// Tier - уровень крафта ресурса
type Tier uint8

const MaxTier Tier = 5

// ParseTier разбирает тир из строки запроса
func ParseTier(s string) (Tier, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil || Tier(v) > MaxTier {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return Tier(v), nil
}

// WeightRange - фиксированный диапазон веса для фильтра маркетплейса
type WeightRange string

const (
	Weight0to49    WeightRange = "0-49"
	Weight50to99   WeightRange = "50-99"
	Weight100to199 WeightRange = "100-199"
	Weight200to399 WeightRange = "200-399"
)

// ParseWeightRange принимает только известные диапазоны
func ParseWeightRange(s string) (WeightRange, error) {
	switch w := WeightRange(strings.TrimSpace(s)); w {
	case Weight0to49, Weight50to99, Weight100to199, Weight200to399:
		return w, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWeightRange, s)
}

// ResourceType - метаданные карты из контракта ресурсов
type ResourceType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Weight      int64   `json:"weight"`
	Tier        Tier    `json:"tier"`
	Ingredients []int64 `json:"ingredients,omitempty"`
	IPFSHash    string  `json:"ipfs_hash"`
}

// InventoryItem - баланс токена на кошельке вместе с метаданными.
// Инвентарь всегда заменяется целиком.
type InventoryItem struct {
	TokenID  *big.Int      `json:"token_id"`
	Balance  *big.Int      `json:"balance"`
	Resource *ResourceType `json:"resource,omitempty"`
}

// Playable сообщает, можно ли положить этот токен на стол
func (i InventoryItem) Playable() bool {
	return i.TokenID != nil && i.TokenID.Cmp(big.NewInt(MaxBaseElementID)) > 0
}

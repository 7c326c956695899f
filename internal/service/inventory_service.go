package service

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/logger"

	"github.com/ethereum/go-ethereum/common"
)

// сколько типов ресурсов запрашивать за один вызов
const catalogBatchSize = 200

// ResourceReader - чтения контракта ресурсов
type ResourceReader interface {
	OwnedTokens(ctx context.Context, owner common.Address) ([]*big.Int, error)
	BalanceOfBatch(ctx context.Context, owners []common.Address, tokenIDs []*big.Int) ([]*big.Int, error)
	ResourceCount(ctx context.Context) (*big.Int, error)
	ResourceTypes(ctx context.Context, tokenIDs []*big.Int) ([]domain.ResourceType, error)
}

// InventoryService хранит каталог типов ресурсов и инвентарь кошелька.
// Инвентарь всегда заменяется целиком.
type InventoryService struct {
	resource ResourceReader

	mu      sync.RWMutex
	catalog map[int64]*domain.ResourceType
	items   []domain.InventoryItem
}

func NewInventoryService(resource ResourceReader) *InventoryService {
	return &InventoryService{
		resource: resource,
		catalog:  make(map[int64]*domain.ResourceType),
	}
}

// LoadCatalog загружает все типы ресурсов, вызывается при старте
func (s *InventoryService) LoadCatalog(ctx context.Context) error {
	count, err := s.resource.ResourceCount(ctx)
	if err != nil {
		return fmt.Errorf("resourceCount: %w", err)
	}

	// id от 0 до count включительно
	total := count.Int64() + 1
	catalog := make(map[int64]*domain.ResourceType, total)

	for from := int64(0); from < total; from += catalogBatchSize {
		to := min(from+catalogBatchSize, total)
		ids := make([]*big.Int, 0, to-from)
		for id := from; id < to; id++ {
			ids = append(ids, big.NewInt(id))
		}

		types, err := s.resource.ResourceTypes(ctx, ids)
		if err != nil {
			return fmt.Errorf("getResourceTypes: %w", err)
		}
		for i := range types {
			t := types[i]
			catalog[t.ID] = &t
		}
	}

	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()

	logger.Info("inventory: каталог ресурсов загружен", "count", len(catalog))
	return nil
}

// Lookup возвращает тип ресурса или nil
func (s *InventoryService) Lookup(tokenID int64) *domain.ResourceType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog[tokenID]
}

// Catalog возвращает все типы ресурсов по возрастанию id
func (s *InventoryService) Catalog() []domain.ResourceType {
	s.mu.RLock()
	out := make([]domain.ResourceType, 0, len(s.catalog))
	for _, t := range s.catalog {
		out = append(out, *t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Refresh перечитывает инвентарь кошелька и заменяет его целиком
func (s *InventoryService) Refresh(ctx context.Context, owner common.Address) ([]domain.InventoryItem, error) {
	owned, err := s.resource.OwnedTokens(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("ownedTokens: %w", err)
	}

	var items []domain.InventoryItem
	if len(owned) > 0 {
		owners := make([]common.Address, len(owned))
		for i := range owners {
			owners[i] = owner
		}
		balances, err := s.resource.BalanceOfBatch(ctx, owners, owned)
		if err != nil {
			return nil, fmt.Errorf("balanceOfBatch: %w", err)
		}
		if len(balances) != len(owned) {
			return nil, fmt.Errorf("balanceOfBatch: ожидалось %d балансов, получено %d", len(owned), len(balances))
		}

		missing := s.missingTypes(owned)
		if len(missing) > 0 {
			types, err := s.resource.ResourceTypes(ctx, missing)
			if err != nil {
				return nil, fmt.Errorf("getResourceTypes: %w", err)
			}
			s.mu.Lock()
			for i := range types {
				t := types[i]
				s.catalog[t.ID] = &t
			}
			s.mu.Unlock()
		}

		for i, id := range owned {
			if balances[i] == nil || balances[i].Sign() <= 0 {
				continue
			}
			items = append(items, domain.InventoryItem{
				TokenID:  id,
				Balance:  balances[i],
				Resource: s.Lookup(id.Int64()),
			})
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return items, nil
}

func (s *InventoryService) missingTypes(ids []*big.Int) []*big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*big.Int
	for _, id := range ids {
		if _, ok := s.catalog[id.Int64()]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Items возвращает последний прочитанный инвентарь
func (s *InventoryService) Items() []domain.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// Clear очищает инвентарь при отключении кошелька
func (s *InventoryService) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

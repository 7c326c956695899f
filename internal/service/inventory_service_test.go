package service

import (
	"context"
	"math/big"
	"testing"

	"talecraft_client/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

type fakeResourceReader struct {
	owned    []*big.Int
	balances []*big.Int
	count    int64
	typeRead int
}

func (f *fakeResourceReader) OwnedTokens(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	return f.owned, nil
}

func (f *fakeResourceReader) BalanceOfBatch(ctx context.Context, owners []common.Address, ids []*big.Int) ([]*big.Int, error) {
	return f.balances, nil
}

func (f *fakeResourceReader) ResourceCount(ctx context.Context) (*big.Int, error) {
	return big.NewInt(f.count), nil
}

func (f *fakeResourceReader) ResourceTypes(ctx context.Context, ids []*big.Int) ([]domain.ResourceType, error) {
	f.typeRead++
	out := make([]domain.ResourceType, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.ResourceType{ID: id.Int64(), Name: "card-" + id.String(), Weight: id.Int64() * 10})
	}
	return out, nil
}

func TestLoadCatalogIncludesLastID(t *testing.T) {
	reader := &fakeResourceReader{count: 450}
	svc := NewInventoryService(reader)

	if err := svc.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if got := len(svc.Catalog()); got != 451 {
		t.Fatalf("ожидалось 451 тип (0..450), получено %d", got)
	}
	if reader.typeRead != 3 {
		t.Fatalf("ожидалось 3 пакета чтения, получено %d", reader.typeRead)
	}
	if rt := svc.Lookup(450); rt == nil || rt.Name != "card-450" {
		t.Fatalf("последний тип не загружен: %+v", rt)
	}
}

func TestRefreshReplacesInventory(t *testing.T) {
	reader := &fakeResourceReader{
		owned:    []*big.Int{big.NewInt(2), big.NewInt(7), big.NewInt(9)},
		balances: []*big.Int{big.NewInt(4), big.NewInt(0), big.NewInt(1)},
	}
	svc := NewInventoryService(reader)

	items, err := svc.Refresh(context.Background(), common.HexToAddress("0x01"))
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(items) != 2 || items[0].TokenID.Int64() != 2 || items[1].TokenID.Int64() != 9 {
		t.Fatalf("нулевые балансы должны отбрасываться: %+v", items)
	}
	if items[1].Resource == nil || items[1].Resource.Name != "card-9" {
		t.Fatalf("метаданные не подставлены: %+v", items[1])
	}

	reader.owned = nil
	reader.balances = nil
	if _, err := svc.Refresh(context.Background(), common.HexToAddress("0x01")); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(svc.Items()) != 0 {
		t.Fatal("инвентарь должен заменяться целиком")
	}
}

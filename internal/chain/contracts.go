package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"talecraft_client/internal/domain"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// bound - общий вызов view методов контракта
type bound struct {
	address  common.Address
	contract *bind.BoundContract
}

func newBound(address common.Address, abiJSON string, backend bind.ContractBackend) (bound, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return bound{}, fmt.Errorf("failed to parse abi: %w", err)
	}
	return bound{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (b bound) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (b bound) callBig(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	out, err := b.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (b bound) callBigs(ctx context.Context, method string, params ...interface{}) ([]*big.Int, error) {
	out, err := b.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (b bound) Address() common.Address {
	return b.address
}

// структуры повторяют порядок полей в ABI
type rawUsedPower struct {
	Used      bool
	PowerType uint8
	Value     *big.Int
}

type rawPlayer struct {
	Addr        common.Address
	PlacedCards [4]*big.Int
	UsedPowers  [4]rawUsedPower
	Lent        [4]bool
}

type rawGameInfo struct {
	GameId     *big.Int
	Player     [2]rawPlayer
	Started    bool
	Finished   bool
	Turn       *big.Int
	Winner     common.Address
	Round      *big.Int
	LastAction *big.Int
	Bank       *big.Int
}

type rawInventoryItem struct {
	TokenId *big.Int
	Balance *big.Int
}

type rawResourceType struct {
	Name        string
	Weight      *big.Int
	Tier        *big.Int
	Ingredients []*big.Int
	IpfsHash    string
}

// GameContract - игровой контракт одной лиги
type GameContract struct {
	bound
}

func NewGameContract(address common.Address, backend bind.ContractBackend) (*GameContract, error) {
	b, err := newBound(address, gameABI, backend)
	if err != nil {
		return nil, err
	}
	return &GameContract{bound: b}, nil
}

// CurrentGame возвращает id текущей игры игрока, 0 если игры нет
func (g *GameContract) CurrentGame(ctx context.Context, player common.Address) (*big.Int, error) {
	return g.callBig(ctx, "currentGames", player)
}

// Game читает игру и проверяет перечисления на границе
func (g *GameContract) Game(ctx context.Context, gameID *big.Int) (*domain.GameSnapshot, error) {
	out, err := g.call(ctx, "game", gameID)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new(rawGameInfo)).(*rawGameInfo)
	return raw.toSnapshot()
}

func (r rawGameInfo) toSnapshot() (*domain.GameSnapshot, error) {
	turn, err := domain.ParsePlayerIndex(r.Turn)
	if err != nil {
		return nil, err
	}
	if r.Round == nil || !r.Round.IsUint64() || r.Round.Uint64() >= domain.CardSlots {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRound, r.Round)
	}

	s := &domain.GameSnapshot{
		GameID:   r.GameId,
		Started:  r.Started,
		Finished: r.Finished,
		Turn:     turn,
		Winner:   r.Winner,
		Round:    int(r.Round.Uint64()),
		Bank:     r.Bank,
	}
	if r.LastAction != nil {
		s.LastAction = time.Unix(r.LastAction.Int64(), 0)
	}

	for i, p := range r.Player {
		ps := domain.PlayerState{
			Address:     p.Addr,
			PlacedCards: p.PlacedCards,
			Lent:        p.Lent,
		}
		for j, up := range p.UsedPowers {
			pt, err := domain.PowerTypeFromCode(up.PowerType)
			if err != nil {
				return nil, err
			}
			ps.UsedPowers[j] = domain.UsedPower{Used: up.Used, PowerType: pt, Value: up.Value}
		}
		s.Players[i] = ps
	}
	return s, nil
}

// PlayerInventory возвращает карты игрока, доступные в этой игре
func (g *GameContract) PlayerInventory(ctx context.Context, gameID *big.Int, player common.Address) ([]domain.InventoryItem, error) {
	out, err := g.call(ctx, "getPlayerInventory", gameID, player)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]rawInventoryItem)).(*[]rawInventoryItem)

	items := make([]domain.InventoryItem, 0, len(raw))
	for _, it := range raw {
		items = append(items, domain.InventoryItem{TokenID: it.TokenId, Balance: it.Balance})
	}
	return items, nil
}

// PlayerGames возвращает id всех игр игрока
func (g *GameContract) PlayerGames(ctx context.Context, player common.Address) ([]*big.Int, error) {
	return g.callBigs(ctx, "playerGames", player)
}

// RoundWinner: >0 выиграл игрок 0, <0 игрок 1, 0 ничья
func (g *GameContract) RoundWinner(ctx context.Context, gameID *big.Int, round int) (*big.Int, error) {
	return g.callBig(ctx, "getRoundWinner", gameID, big.NewInt(int64(round)))
}

func (g *GameContract) JoinPrice(ctx context.Context) (*big.Int, error) {
	return g.callBig(ctx, "joinPrice")
}

func (g *GameContract) BoostPrice(ctx context.Context) (*big.Int, error) {
	return g.callBig(ctx, "boostPrice")
}

func (g *GameContract) PowerPrice(ctx context.Context, p domain.PowerType) (*big.Int, error) {
	return g.callBig(ctx, "powerPrices", big.NewInt(int64(p)))
}

// AbortTimeout возвращает таймаут бездействия из контракта
func (g *GameContract) AbortTimeout(ctx context.Context) (time.Duration, error) {
	v, err := g.callBig(ctx, "abortTimeout")
	if err != nil {
		return 0, err
	}
	return time.Duration(v.Int64()) * time.Second, nil
}

func (g *GameContract) JoinGame(opts *bind.TransactOpts) (*types.Transaction, error) {
	return g.contract.Transact(opts, "joinGame")
}

func (g *GameContract) LeaveGame(opts *bind.TransactOpts) (*types.Transaction, error) {
	return g.contract.Transact(opts, "leaveGame")
}

func (g *GameContract) PlaceCard(opts *bind.TransactOpts, tokenID *big.Int) (*types.Transaction, error) {
	return g.contract.Transact(opts, "placeCard", tokenID)
}

func (g *GameContract) UsePower(opts *bind.TransactOpts, p domain.PowerType) (*types.Transaction, error) {
	return g.contract.Transact(opts, "usePower", uint8(p))
}

func (g *GameContract) Boost(opts *bind.TransactOpts) (*types.Transaction, error) {
	return g.contract.Transact(opts, "boost")
}

func (g *GameContract) Abort(opts *bind.TransactOpts) (*types.Transaction, error) {
	return g.contract.Transact(opts, "abort")
}

// TokenContract - ERC-20 токен, которым оплачивается вход и силы
type TokenContract struct {
	bound
}

func NewTokenContract(address common.Address, backend bind.ContractBackend) (*TokenContract, error) {
	b, err := newBound(address, tokenABI, backend)
	if err != nil {
		return nil, err
	}
	return &TokenContract{bound: b}, nil
}

func (t *TokenContract) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.callBig(ctx, "allowance", owner, spender)
}

func (t *TokenContract) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return t.callBig(ctx, "balanceOf", owner)
}

func (t *TokenContract) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "approve", spender, amount)
}

// ResourceContract - ERC-1155 контракт карт
type ResourceContract struct {
	bound
}

func NewResourceContract(address common.Address, backend bind.ContractBackend) (*ResourceContract, error) {
	b, err := newBound(address, resourceABI, backend)
	if err != nil {
		return nil, err
	}
	return &ResourceContract{bound: b}, nil
}

func (r *ResourceContract) IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error) {
	out, err := r.call(ctx, "isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (r *ResourceContract) SetApprovalForAll(opts *bind.TransactOpts, operator common.Address, approved bool) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setApprovalForAll", operator, approved)
}

func (r *ResourceContract) BalanceOf(ctx context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error) {
	return r.callBig(ctx, "balanceOf", owner, tokenID)
}

func (r *ResourceContract) BalanceOfBatch(ctx context.Context, owners []common.Address, tokenIDs []*big.Int) ([]*big.Int, error) {
	return r.callBigs(ctx, "balanceOfBatch", owners, tokenIDs)
}

func (r *ResourceContract) OwnedTokens(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	return r.callBigs(ctx, "ownedTokens", owner)
}

func (r *ResourceContract) ResourceCount(ctx context.Context) (*big.Int, error) {
	return r.callBig(ctx, "resourceCount")
}

// ResourceTypes возвращает метаданные для списка токенов
func (r *ResourceContract) ResourceTypes(ctx context.Context, tokenIDs []*big.Int) ([]domain.ResourceType, error) {
	out, err := r.call(ctx, "getResourceTypes", tokenIDs)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]rawResourceType)).(*[]rawResourceType)
	if len(raw) != len(tokenIDs) {
		return nil, fmt.Errorf("getResourceTypes: ожидалось %d записей, получено %d", len(tokenIDs), len(raw))
	}

	result := make([]domain.ResourceType, 0, len(raw))
	for i, rt := range raw {
		t := domain.ResourceType{
			ID:       tokenIDs[i].Int64(),
			Name:     rt.Name,
			IPFSHash: rt.IpfsHash,
		}
		if rt.Weight != nil {
			t.Weight = rt.Weight.Int64()
		}
		if rt.Tier != nil {
			t.Tier = domain.Tier(rt.Tier.Uint64())
		}
		for _, ing := range rt.Ingredients {
			t.Ingredients = append(t.Ingredients, ing.Int64())
		}
		result = append(result, t)
	}
	return result, nil
}

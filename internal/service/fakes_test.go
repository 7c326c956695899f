package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"talecraft_client/internal/chain"
	"talecraft_client/internal/domain"
	"talecraft_client/internal/game"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	gameAddr = common.HexToAddress("0x000000000000000000000000000000000000ca7e")
)

func newSnapshot(id int64, mod func(s *domain.GameSnapshot)) *domain.GameSnapshot {
	s := &domain.GameSnapshot{
		GameID:     big.NewInt(id),
		LastAction: time.Unix(1_700_000_000, 0),
	}
	s.Players[0].Address = alice
	s.Players[1].Address = bob
	for r := 0; r < domain.CardSlots; r++ {
		s.Players[0].PlacedCards[r] = big.NewInt(0)
		s.Players[1].PlacedCards[r] = big.NewInt(0)
	}
	if mod != nil {
		mod(s)
	}
	return s
}

// fakeGame - игровой контракт в памяти
type fakeGame struct {
	mu        sync.Mutex
	current   *big.Int
	snapshot  *domain.GameSnapshot
	games     map[int64]*domain.GameSnapshot
	inventory []domain.InventoryItem
	gameErr   error
	prices    map[string]*big.Int

	roundReads int
	submitted  []string
}

func newFakeGame() *fakeGame {
	return &fakeGame{
		current: big.NewInt(0),
		games:   make(map[int64]*domain.GameSnapshot),
		prices: map[string]*big.Int{
			"join":  big.NewInt(100),
			"boost": big.NewInt(10),
			"power": big.NewInt(5),
		},
	}
}

func (f *fakeGame) set(s *domain.GameSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = s
	f.current = s.GameID
}

// setCurrent меняет только ответ currentGame, снапшот остается прежним
func (f *fakeGame) setCurrent(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = big.NewInt(id)
}

func (f *fakeGame) reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roundReads
}

func (f *fakeGame) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gameErr = err
}

func (f *fakeGame) Address() common.Address { return gameAddr }

func (f *fakeGame) CurrentGame(ctx context.Context, player common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeGame) Game(ctx context.Context, gameID *big.Int) (*domain.GameSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gameErr != nil {
		return nil, f.gameErr
	}
	if g, ok := f.games[gameID.Int64()]; ok {
		return g, nil
	}
	if f.snapshot == nil {
		return nil, errors.New("no game")
	}
	return f.snapshot, nil
}

func (f *fakeGame) PlayerInventory(ctx context.Context, gameID *big.Int, player common.Address) ([]domain.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inventory, nil
}

func (f *fakeGame) PlayerGames(ctx context.Context, player common.Address) ([]*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []*big.Int
	for id := range f.games {
		ids = append(ids, big.NewInt(id))
	}
	return ids, nil
}

func (f *fakeGame) RoundWinner(ctx context.Context, gameID *big.Int, round int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roundReads++
	return big.NewInt(1), nil
}

func (f *fakeGame) AbortTimeout(ctx context.Context) (time.Duration, error) {
	return 5 * time.Minute, nil
}

func (f *fakeGame) JoinPrice(ctx context.Context) (*big.Int, error)  { return f.prices["join"], nil }
func (f *fakeGame) BoostPrice(ctx context.Context) (*big.Int, error) { return f.prices["boost"], nil }
func (f *fakeGame) PowerPrice(ctx context.Context, p domain.PowerType) (*big.Int, error) {
	return f.prices["power"], nil
}

func (f *fakeGame) tx(name string) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, name)
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(f.submitted))}), nil
}

func (f *fakeGame) JoinGame(opts *bind.TransactOpts) (*types.Transaction, error)  { return f.tx("joinGame") }
func (f *fakeGame) LeaveGame(opts *bind.TransactOpts) (*types.Transaction, error) { return f.tx("leaveGame") }
func (f *fakeGame) PlaceCard(opts *bind.TransactOpts, tokenID *big.Int) (*types.Transaction, error) {
	return f.tx("placeCard")
}
func (f *fakeGame) UsePower(opts *bind.TransactOpts, p domain.PowerType) (*types.Transaction, error) {
	return f.tx("usePower")
}
func (f *fakeGame) Boost(opts *bind.TransactOpts) (*types.Transaction, error) { return f.tx("boost") }
func (f *fakeGame) Abort(opts *bind.TransactOpts) (*types.Transaction, error) { return f.tx("abort") }

// fakeToken - ERC-20 с allowance, который растет после approve
type fakeToken struct {
	game      *fakeGame
	allowance *big.Int
}

func (f *fakeToken) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return f.allowance, nil
}

func (f *fakeToken) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	f.allowance = amount
	return f.game.tx("approve")
}

// fakeResource - ERC-1155 approval и балансы
type fakeResource struct {
	game     *fakeGame
	approved bool
	balances map[int64]*big.Int
}

func (f *fakeResource) IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error) {
	return f.approved, nil
}

func (f *fakeResource) SetApprovalForAll(opts *bind.TransactOpts, operator common.Address, approved bool) (*types.Transaction, error) {
	f.approved = approved
	return f.game.tx("setApprovalForAll")
}

func (f *fakeResource) BalanceOf(ctx context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error) {
	if b, ok := f.balances[tokenID.Int64()]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

// fakeSender подписывает "транзакции" без сети
type fakeSender struct {
	addr    common.Address
	failOn  string
	actions []string
}

func (f *fakeSender) Address() common.Address { return f.addr }

func (f *fakeSender) Send(ctx context.Context, action string, submit chain.SubmitFunc) (*types.Receipt, error) {
	f.actions = append(f.actions, action)
	if action == f.failOn {
		return nil, chain.ErrTxReverted
	}
	tx, err := submit(&bind.TransactOpts{From: f.addr, Context: ctx})
	if err != nil {
		return nil, err
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(101),
	}, nil
}

// fakeView - заранее заданное представление игры
type fakeView struct {
	view game.GameView
	ok   bool
}

func (f *fakeView) View() (game.GameView, bool) { return f.view, f.ok }

// recordingNotifier запоминает уведомления
type recordingNotifier struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) kinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, n.Kind)
	}
	return out
}

// memoryHistory - история игр в памяти
type memoryHistory struct {
	mu      sync.Mutex
	records []*domain.GameRecord
}

func (m *memoryHistory) SaveGame(ctx context.Context, rec *domain.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// memoryPrefs - настройки в памяти
type memoryPrefs struct {
	mu    sync.Mutex
	prefs domain.Preferences
	reads int
}

func (m *memoryPrefs) Get(ctx context.Context) (domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.prefs, nil
}

func (m *memoryPrefs) Save(ctx context.Context, p domain.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = p
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"talecraft_client/internal/chain"
	"talecraft_client/internal/domain"
	"talecraft_client/internal/game"
	"talecraft_client/internal/logger"
	"talecraft_client/internal/metrics"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrActionUnavailable = errors.New("действие сейчас недоступно")
	ErrNotOwner          = errors.New("нет токенов с таким id")
)

// ActionError - ошибка действия пользователя с сообщением для UI.
// Состояние игры при такой ошибке не меняется.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Action, e.Message, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// TxSender подписывает и отправляет транзакции (chain.Wallet)
type TxSender interface {
	Address() common.Address
	Send(ctx context.Context, action string, submit chain.SubmitFunc) (*types.Receipt, error)
}

// GameWriter - цены и записи игрового контракта
type GameWriter interface {
	Address() common.Address
	JoinPrice(ctx context.Context) (*big.Int, error)
	BoostPrice(ctx context.Context) (*big.Int, error)
	PowerPrice(ctx context.Context, p domain.PowerType) (*big.Int, error)
	JoinGame(opts *bind.TransactOpts) (*types.Transaction, error)
	LeaveGame(opts *bind.TransactOpts) (*types.Transaction, error)
	PlaceCard(opts *bind.TransactOpts, tokenID *big.Int) (*types.Transaction, error)
	UsePower(opts *bind.TransactOpts, p domain.PowerType) (*types.Transaction, error)
	Boost(opts *bind.TransactOpts) (*types.Transaction, error)
	Abort(opts *bind.TransactOpts) (*types.Transaction, error)
}

// TokenApprover - ERC-20 allowance
type TokenApprover interface {
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error)
}

// ResourceApprover - ERC-1155 approval и баланс карт
type ResourceApprover interface {
	IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error)
	SetApprovalForAll(opts *bind.TransactOpts, operator common.Address, approved bool) (*types.Transaction, error)
	BalanceOf(ctx context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error)
}

// TxJournal сохраняет отправленные транзакции (TxLogRepository)
type TxJournal interface {
	Record(ctx context.Context, e *domain.TxLogEntry) error
}

// ViewSource - текущее представление игры лиги (GameWatcher)
type ViewSource interface {
	View() (game.GameView, bool)
}

// ActionService отправляет действия игрока в одной лиге.
// Перед защищенной записью проверяет allowance/approval и при необходимости
// сначала отправляет approve и ждет его включения в блок.
type ActionService struct {
	league   domain.League
	game     GameWriter
	token    TokenApprover
	resource ResourceApprover
	sender   TxSender
	views    ViewSource
	blocks   *BlockNotifier
	journal  TxJournal
}

func NewActionService(
	league domain.League,
	contract GameWriter,
	token TokenApprover,
	resource ResourceApprover,
	sender TxSender,
	views ViewSource,
	blocks *BlockNotifier,
) *ActionService {
	return &ActionService{
		league:   league,
		game:     contract,
		token:    token,
		resource: resource,
		sender:   sender,
		views:    views,
		blocks:   blocks,
	}
}

// SetJournal включает журнал транзакций, вызывается до первого действия
func (s *ActionService) SetJournal(j TxJournal) {
	s.journal = j
}

// Join входит в игру: allowance на вход и буст, approval карт, затем joinGame
func (s *ActionService) Join(ctx context.Context) (*domain.TxResult, error) {
	const action = "join"

	if v, ok := s.views.View(); ok && !v.Spectating &&
		(v.Status == domain.StatusWaiting || v.Status == domain.StatusInProgress) {
		return nil, s.unavailable(action, "You are already in a game")
	}

	join, err := s.game.JoinPrice(ctx)
	if err != nil {
		return nil, s.readFailed(action, err)
	}
	boost, err := s.game.BoostPrice(ctx)
	if err != nil {
		return nil, s.readFailed(action, err)
	}

	if err := s.ensureAllowance(ctx, action, new(big.Int).Add(join, boost)); err != nil {
		return nil, err
	}
	if err := s.ensureResourceApproval(ctx, action); err != nil {
		return nil, err
	}

	return s.run(ctx, action, s.game.JoinGame)
}

// Leave покидает игру без соперника после таймаута ожидания
func (s *ActionService) Leave(ctx context.Context) (*domain.TxResult, error) {
	const action = "leave"

	v, err := s.currentView(action)
	if err != nil {
		return nil, err
	}
	if !v.CanLeave {
		return nil, s.unavailable(action, "You can leave only before the game starts, 7 minutes after joining")
	}

	return s.run(ctx, action, s.game.LeaveGame)
}

// PlaceCard кладет карту в текущий раунд
func (s *ActionService) PlaceCard(ctx context.Context, tokenID *big.Int) (*domain.TxResult, error) {
	const action = "place_card"

	v, err := s.currentView(action)
	if err != nil {
		return nil, err
	}
	if !v.CanPlace {
		return nil, s.unavailable(action, "It is not your turn")
	}

	balance, err := s.resource.BalanceOf(ctx, s.sender.Address(), tokenID)
	if err != nil {
		return nil, s.readFailed(action, err)
	}
	if balance == nil || balance.Sign() == 0 {
		return nil, &ActionError{Action: action, Message: "You do not own tokens with this ID", Err: ErrNotOwner}
	}

	if err := s.ensureResourceApproval(ctx, action); err != nil {
		return nil, err
	}

	return s.run(ctx, action, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.game.PlaceCard(opts, tokenID)
	})
}

// UsePower применяет силу, если она еще доступна
func (s *ActionService) UsePower(ctx context.Context, p domain.PowerType) (*domain.TxResult, error) {
	const action = "use_power"

	v, err := s.currentView(action)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(v.AvailablePowers, p) {
		return nil, s.unavailable(action, fmt.Sprintf("Power of %s is not available", p))
	}

	price, err := s.game.PowerPrice(ctx, p)
	if err != nil {
		return nil, s.readFailed(action, err)
	}
	if err := s.ensureAllowance(ctx, action, price); err != nil {
		return nil, err
	}

	return s.run(ctx, action, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.game.UsePower(opts, p)
	})
}

// Boost увеличивает банк текущей игры
func (s *ActionService) Boost(ctx context.Context) (*domain.TxResult, error) {
	const action = "boost"

	v, err := s.currentView(action)
	if err != nil {
		return nil, err
	}
	if v.Spectating || (v.Status != domain.StatusWaiting && v.Status != domain.StatusInProgress) {
		return nil, s.unavailable(action, "No active game to boost")
	}

	price, err := s.game.BoostPrice(ctx)
	if err != nil {
		return nil, s.readFailed(action, err)
	}
	if err := s.ensureAllowance(ctx, action, price); err != nil {
		return nil, err
	}

	return s.run(ctx, action, s.game.Boost)
}

// Abort прерывает игру, в которой соперник не ходит дольше таймаута
func (s *ActionService) Abort(ctx context.Context) (*domain.TxResult, error) {
	const action = "abort"

	v, err := s.currentView(action)
	if err != nil {
		return nil, err
	}
	if !v.CanAbort {
		return nil, s.unavailable(action, "The game cannot be aborted yet")
	}

	return s.run(ctx, action, s.game.Abort)
}

func (s *ActionService) currentView(action string) (game.GameView, error) {
	v, ok := s.views.View()
	if !ok {
		return v, s.unavailable(action, "Game state is not loaded yet")
	}
	return v, nil
}

// ensureAllowance отправляет approve на максимум, если allowance меньше need
func (s *ActionService) ensureAllowance(ctx context.Context, action string, need *big.Int) error {
	allowance, err := s.token.Allowance(ctx, s.sender.Address(), s.game.Address())
	if err != nil {
		return s.readFailed(action, err)
	}
	if allowance.Cmp(need) >= 0 {
		return nil
	}

	logger.Info("action: недостаточный allowance, отправляем approve",
		"league", s.league, "action", action, "allowance", allowance, "need", need)

	_, err = s.send(ctx, "approve", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.token.Approve(opts, s.game.Address(), chain.MaxUint256)
	})
	if err != nil {
		return s.txFailed(action, "Token approval failed", err)
	}
	return nil
}

// ensureResourceApproval разрешает игровому контракту переводить карты
func (s *ActionService) ensureResourceApproval(ctx context.Context, action string) error {
	approved, err := s.resource.IsApprovedForAll(ctx, s.sender.Address(), s.game.Address())
	if err != nil {
		return s.readFailed(action, err)
	}
	if approved {
		return nil
	}

	_, err = s.send(ctx, "set_approval_for_all", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.resource.SetApprovalForAll(opts, s.game.Address(), true)
	})
	if err != nil {
		return s.txFailed(action, "Cards approval failed", err)
	}
	return nil
}

// run отправляет основное действие и после включения в блок запрашивает обновление
func (s *ActionService) run(ctx context.Context, action string, submit chain.SubmitFunc) (*domain.TxResult, error) {
	receipt, err := s.send(ctx, action, submit)
	if err != nil {
		return nil, s.txFailed(action, "Transaction failed", err)
	}

	s.blocks.Trigger()

	res := &domain.TxResult{Action: action, TxHash: receipt.TxHash.Hex()}
	if receipt.BlockNumber != nil {
		res.Block = receipt.BlockNumber.Uint64()
	}
	return res, nil
}

func (s *ActionService) send(ctx context.Context, action string, submit chain.SubmitFunc) (*types.Receipt, error) {
	receipt, err := s.sender.Send(ctx, action, submit)
	if err != nil {
		metrics.Transactions.WithLabelValues(action, domain.TxStatusFailed).Inc()
		s.record(ctx, action, nil, err)
		return nil, err
	}
	metrics.Transactions.WithLabelValues(action, domain.TxStatusOK).Inc()
	s.record(ctx, action, receipt, nil)
	return receipt, nil
}

// record пишет транзакцию в журнал, ошибка журнала действие не прерывает
func (s *ActionService) record(ctx context.Context, action string, receipt *types.Receipt, txErr error) {
	if s.journal == nil {
		return
	}
	e := &domain.TxLogEntry{
		League: s.league,
		Action: action,
		Player: s.sender.Address().Hex(),
		Status: domain.TxStatusOK,
	}
	if receipt != nil {
		e.TxHash = receipt.TxHash.Hex()
		if receipt.BlockNumber != nil {
			e.Block = receipt.BlockNumber.Uint64()
		}
	}
	if txErr != nil {
		e.Status = domain.TxStatusFailed
		e.Error = txErr.Error()
	}

	// запись не должна зависеть от отмены запроса пользователем
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.journal.Record(rctx, e); err != nil {
		logger.Error("не удалось записать транзакцию в журнал", "error", err, "action", action, "league", s.league)
	}
}

func (s *ActionService) unavailable(action, msg string) error {
	return &ActionError{Action: action, Message: msg, Err: ErrActionUnavailable}
}

func (s *ActionService) readFailed(action string, err error) error {
	return &ActionError{Action: action, Message: "Failed to read contract state", Err: err}
}

func (s *ActionService) txFailed(action, msg string, err error) error {
	switch {
	case errors.Is(err, chain.ErrTxReverted):
		msg += ": transaction reverted"
	case errors.Is(err, chain.ErrTxRejected):
		msg += ": transaction rejected"
	}
	logger.Warn("action failed", "league", s.league, "action", action, "error", err)
	return &ActionError{Action: action, Message: msg, Err: err}
}

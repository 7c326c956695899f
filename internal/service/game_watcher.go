package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"talecraft_client/internal/chain"
	"talecraft_client/internal/domain"
	"talecraft_client/internal/game"
	"talecraft_client/internal/logger"
	"talecraft_client/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// сколько опросов одной лиги может выполняться одновременно
const maxInflightPolls = 4

var ErrNoAccount = errors.New("кошелек не подключен")

// GameReader - чтения игрового контракта, которые нужны watcher'у
type GameReader interface {
	CurrentGame(ctx context.Context, player common.Address) (*big.Int, error)
	Game(ctx context.Context, gameID *big.Int) (*domain.GameSnapshot, error)
	PlayerInventory(ctx context.Context, gameID *big.Int, player common.Address) ([]domain.InventoryItem, error)
	PlayerGames(ctx context.Context, player common.Address) ([]*big.Int, error)
	RoundWinner(ctx context.Context, gameID *big.Int, round int) (*big.Int, error)
	AbortTimeout(ctx context.Context) (time.Duration, error)
}

// ResourceCatalog возвращает метаданные карты по id токена
type ResourceCatalog interface {
	Lookup(tokenID int64) *domain.ResourceType
}

// Notifier доставляет уведомления пользователю
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// GameHistoryStore сохраняет завершенные игры
type GameHistoryStore interface {
	SaveGame(ctx context.Context, rec *domain.GameRecord) error
}

// результат одного опроса
type pollResult struct {
	seq       uint64
	epoch     uint64
	account   common.Address
	snapshot  *domain.GameSnapshot
	inventory []domain.InventoryItem
	outcomes  [domain.RoundCount]domain.RoundOutcome
}

// GameWatcher следит за игрой локального игрока в одной лиге.
// На каждое изменение маркера блоков запускается опрос с номером
// последовательности; опрос, завершившийся позже более нового, отбрасывается.
type GameWatcher struct {
	league   domain.League
	contract GameReader
	resolver *game.RoundResolver
	blocks   *BlockNotifier
	catalog  ResourceCatalog
	notifier Notifier
	history  GameHistoryStore
	now      func() time.Time

	mu           sync.Mutex
	account      common.Address
	spectate     *big.Int
	epoch        uint64 // меняется при смене аккаунта или наблюдаемой игры
	published    uint64
	current      *domain.GameSnapshot
	view         game.GameView
	hasView      bool
	failing      bool
	abortTimeout time.Duration

	subs    map[int]chan game.GameView
	nextSub int

	sem     chan struct{}
	stop    chan struct{}
	running bool
	stopped bool
}

// NewGameWatcher создает watcher лиги
func NewGameWatcher(
	league domain.League,
	contract GameReader,
	blocks *BlockNotifier,
	catalog ResourceCatalog,
	notifier Notifier,
	history GameHistoryStore,
) *GameWatcher {
	return &GameWatcher{
		league:   league,
		contract: contract,
		resolver: game.NewRoundResolver(contract),
		blocks:   blocks,
		catalog:  catalog,
		notifier: notifier,
		history:  history,
		now:      time.Now,
		subs:     make(map[int]chan game.GameView),
		sem:      make(chan struct{}, maxInflightPolls),
		stop:     make(chan struct{}),
	}
}

func (w *GameWatcher) League() domain.League {
	return w.league
}

// Start запускает цикл опросов, блокируется до Stop
func (w *GameWatcher) Start() {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	log := logger.With("component", "game_watcher", "league", w.league)
	log.Info("запуск game watcher")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-w.stop
		cancel()
	}()

	seen := w.blocks.Seq()
	w.launch(ctx, seen)

	for {
		seq, err := w.blocks.Wait(ctx, seen)
		if err != nil {
			log.Info("остановка game watcher")
			return
		}
		seen = seq
		w.launch(ctx, seq)
	}
}

// Stop останавливает watcher, Start после Stop сразу возвращается
func (w *GameWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		close(w.stop)
		w.stopped = true
	}
}

func (w *GameWatcher) launch(ctx context.Context, seq uint64) {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	go func() {
		defer func() { <-w.sem }()
		w.Poll(ctx, seq)
	}()
}

// SetAccount меняет локального игрока, текущее состояние сбрасывается
func (w *GameWatcher) SetAccount(addr common.Address) {
	w.mu.Lock()
	if w.account == addr {
		w.mu.Unlock()
		return
	}
	w.account = addr
	w.resetLocked()
	w.mu.Unlock()

	w.blocks.Trigger()
}

// Spectate переключает watcher на наблюдение за чужой игрой
func (w *GameWatcher) Spectate(gameID *big.Int) {
	w.mu.Lock()
	w.spectate = new(big.Int).Set(gameID)
	w.resetLocked()
	w.mu.Unlock()

	w.blocks.Trigger()
}

// ClearSpectate возвращает watcher к собственной игре
func (w *GameWatcher) ClearSpectate() {
	w.mu.Lock()
	if w.spectate == nil {
		w.mu.Unlock()
		return
	}
	w.spectate = nil
	w.resetLocked()
	w.mu.Unlock()

	w.blocks.Trigger()
}

func (w *GameWatcher) resetLocked() {
	if w.current != nil && w.current.GameID != nil {
		w.resolver.Forget(w.current.GameID)
	}
	w.epoch++
	w.current = nil
	w.hasView = false
	w.failing = false
}

// Current возвращает последний опубликованный снапшот
func (w *GameWatcher) Current() *domain.GameSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// View возвращает последнее опубликованное представление
func (w *GameWatcher) View() (game.GameView, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasView {
		return game.GameView{}, false
	}
	return w.refreshLocked(), true
}

// таймеры зависят от текущего времени, поэтому пересчитываются при чтении
func (w *GameWatcher) refreshLocked() game.GameView {
	v := w.view
	if v.Timer != nil {
		t := game.NewCountdown(v.Timer.Deadline, w.now())
		v.Timer = &t
	}
	return v
}

// Subscribe возвращает канал представлений и функцию отписки.
// Последнее представление сразу отправляется новому подписчику.
func (w *GameWatcher) Subscribe() (<-chan game.GameView, func()) {
	ch := make(chan game.GameView, 1)

	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	if w.hasView {
		ch <- w.refreshLocked()
	}
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			close(ch)
			w.mu.Unlock()
		})
	}
}

// Poll выполняет один опрос с номером последовательности seq
func (w *GameWatcher) Poll(ctx context.Context, seq uint64) {
	log := logger.With("component", "game_watcher", "league", w.league, "seq", seq)
	start := time.Now()
	defer func() {
		metrics.PollDuration.WithLabelValues(string(w.league)).Observe(time.Since(start).Seconds())
	}()

	w.mu.Lock()
	res := pollResult{seq: seq, epoch: w.epoch, account: w.account}
	var spectate *big.Int
	if w.spectate != nil {
		spectate = new(big.Int).Set(w.spectate)
	}
	// после завершения контракт сбрасывает текущую игру в 0, финальный снапшот читаем по прежнему id
	var last *big.Int
	if spectate == nil && w.current != nil && w.current.Started && w.current.GameID != nil {
		last = new(big.Int).Set(w.current.GameID)
	}
	w.mu.Unlock()

	if err := w.fetch(ctx, &res, spectate, last); err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.Polls.WithLabelValues(string(w.league), "failed").Inc()
		log.Warn("game watcher: опрос не удался, оставляем предыдущее состояние", "error", err)
		w.reportFailure(ctx, err)
		return
	}

	if !w.publish(res) {
		metrics.Polls.WithLabelValues(string(w.league), "stale").Inc()
		log.Debug("game watcher: устаревший опрос отброшен")
		return
	}
	metrics.Polls.WithLabelValues(string(w.league), "published").Inc()
}

func (w *GameWatcher) fetch(ctx context.Context, res *pollResult, spectate, last *big.Int) error {
	gameID := spectate
	if gameID == nil {
		if res.account == (common.Address{}) {
			return nil
		}
		id, err := w.contract.CurrentGame(ctx, res.account)
		if err != nil {
			return err
		}
		gameID = id
		if (gameID == nil || gameID.Sign() == 0) && last != nil {
			gameID = last
		}
	}
	if gameID == nil || gameID.Sign() == 0 {
		return nil
	}

	// чтения одного опроса идут параллельно, публикация только после всех
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := w.contract.Game(gctx, gameID)
		if err != nil {
			return err
		}
		res.snapshot = snap
		return nil
	})
	if spectate == nil {
		g.Go(func() error {
			items, err := w.contract.PlayerInventory(gctx, gameID, res.account)
			if err != nil {
				return err
			}
			res.inventory = w.enrich(items)
			return nil
		})
	}
	g.Go(func() error {
		w.loadAbortTimeout(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	self, ok := res.snapshot.IndexOf(res.account)
	if !ok {
		self = domain.Player0
	}
	outcomes, err := w.resolver.ResolveAll(ctx, res.snapshot, self)
	if err != nil {
		return err
	}
	res.outcomes = outcomes
	return nil
}

func (w *GameWatcher) enrich(items []domain.InventoryItem) []domain.InventoryItem {
	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		if it.Balance == nil || it.Balance.Sign() == 0 {
			continue
		}
		if w.catalog != nil && it.TokenID != nil {
			it.Resource = w.catalog.Lookup(it.TokenID.Int64())
		}
		out = append(out, it)
	}
	return out
}

// таймаут читается из контракта один раз, при ошибке используется значение по умолчанию
func (w *GameWatcher) loadAbortTimeout(ctx context.Context) {
	w.mu.Lock()
	loaded := w.abortTimeout > 0
	w.mu.Unlock()
	if loaded {
		return
	}

	d, err := w.contract.AbortTimeout(ctx)
	if err != nil || d <= 0 {
		logger.Debug("game watcher: abortTimeout недоступен, используем значение по умолчанию",
			"league", w.league, "error", err)
		return
	}

	w.mu.Lock()
	w.abortTimeout = d
	w.mu.Unlock()
}

// AbortTimeout возвращает таймаут бездействия лиги
func (w *GameWatcher) AbortTimeout() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.abortTimeoutLocked()
}

func (w *GameWatcher) abortTimeoutLocked() time.Duration {
	if w.abortTimeout > 0 {
		return w.abortTimeout
	}
	return chain.DefaultAbortTimeout
}

// publish атомарно заменяет состояние, если результат не устарел
func (w *GameWatcher) publish(res pollResult) bool {
	w.mu.Lock()
	if res.epoch != w.epoch || res.seq < w.published {
		w.mu.Unlock()
		return false
	}

	prev := w.current
	spectating := w.spectate != nil
	if prev != nil && prev.GameID != nil && !prev.SameGame(res.snapshot) {
		w.resolver.Forget(prev.GameID)
	}
	w.current = res.snapshot
	w.published = res.seq
	w.failing = false
	w.view = game.BuildView(game.ViewInput{
		League:       w.league,
		Snapshot:     res.snapshot,
		Self:         res.account,
		Outcomes:     res.outcomes,
		Inventory:    res.inventory,
		AbortTimeout: w.abortTimeoutLocked(),
		LeaveTimeout: chain.LeaveTimeout,
		Now:          w.now(),
	})
	w.hasView = true

	for _, ch := range w.subs {
		deliver(ch, w.view)
	}
	view := w.view
	w.mu.Unlock()

	if spectating {
		return true
	}

	transitions := game.Diff(prev, res.snapshot, res.account)
	if len(transitions) == 0 {
		return true
	}

	ctx := context.Background()
	if w.notifier != nil {
		for _, n := range game.NotificationsFor(w.league, transitions, w.now()) {
			w.notifier.Notify(ctx, n)
		}
	}
	for _, t := range transitions {
		if t.Kind == domain.TransitionGameFinished {
			w.saveHistory(ctx, res, view, t.Outcome)
		}
	}
	return true
}

// в канале держится только последнее представление
func deliver(ch chan game.GameView, v game.GameView) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func (w *GameWatcher) saveHistory(ctx context.Context, res pollResult, view game.GameView, outcome domain.GameOutcome) {
	if w.history == nil {
		return
	}
	rec := &domain.GameRecord{
		League:     w.league,
		GameID:     res.snapshot.GameID.String(),
		Player:     res.account.Hex(),
		Rival:      view.Rival,
		Winner:     view.Winner,
		Outcome:    outcome,
		Aborted:    view.Status == domain.StatusAborted,
		FinishedAt: res.snapshot.LastAction,
	}
	if err := w.history.SaveGame(ctx, rec); err != nil {
		logger.Error("game watcher: не удалось сохранить историю", "league", w.league, "game_id", rec.GameID, "error", err)
	}
}

// одна ошибка на серию неудачных опросов
func (w *GameWatcher) reportFailure(ctx context.Context, err error) {
	w.mu.Lock()
	already := w.failing
	w.failing = true
	w.mu.Unlock()

	if already || w.notifier == nil {
		return
	}
	w.notifier.Notify(ctx, domain.Notification{
		Kind:      domain.NotifyError,
		Title:     "TaleCraft",
		Body:      fmt.Sprintf("Failed to refresh %s game state, retrying", w.league),
		League:    w.league,
		CreatedAt: w.now(),
	})
}

// PastGames возвращает завершенные игры локального игрока, новые первыми
func (w *GameWatcher) PastGames(ctx context.Context) ([]game.GameView, error) {
	w.mu.Lock()
	account := w.account
	w.mu.Unlock()
	if account == (common.Address{}) {
		return nil, ErrNoAccount
	}

	ids, err := w.contract.PlayerGames(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("playerGames: %w", err)
	}

	snaps := make([]*domain.GameSnapshot, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflightPolls)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			s, err := w.contract.Game(gctx, id)
			if err != nil {
				return err
			}
			snaps[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	timeout := w.AbortTimeout()
	views := make([]game.GameView, 0, len(snaps))
	for _, s := range snaps {
		if s == nil || !s.Finished {
			continue
		}
		views = append(views, game.BuildView(game.ViewInput{
			League:       w.league,
			Snapshot:     s,
			Self:         account,
			AbortTimeout: timeout,
			LeaveTimeout: chain.LeaveTimeout,
			Now:          w.now(),
		}))
	}
	sort.Slice(views, func(i, j int) bool {
		a, _ := new(big.Int).SetString(views[i].GameID, 10)
		b, _ := new(big.Int).SetString(views[j].GameID, 10)
		return a.Cmp(b) > 0
	})
	return views, nil
}

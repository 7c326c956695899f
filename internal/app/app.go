package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"talecraft_client/internal/bot"
	"talecraft_client/internal/chain"
	"talecraft_client/internal/config"
	"talecraft_client/internal/db"
	"talecraft_client/internal/domain"
	"talecraft_client/internal/game"
	"talecraft_client/internal/indexer"
	"talecraft_client/internal/logger"
	"talecraft_client/internal/repository"
	"talecraft_client/internal/service"
	"talecraft_client/internal/ws"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNoWallet        = errors.New("приватный ключ кошелька не настроен")
	ErrHistoryDisabled = errors.New("история игр отключена")
)

// App - контекст приложения: создается при старте, закрывается при остановке.
// Все компоненты получают зависимости отсюда, глобальным остается только логгер.
type App struct {
	cfg     *config.Config
	version string

	chain    *chain.Client
	blocks   *service.BlockNotifier
	token    *chain.TokenContract
	resource *chain.ResourceContract
	games    map[domain.League]*chain.GameContract
	watchers map[domain.League]*service.GameWatcher

	inventory     *service.InventoryService
	notifications *service.NotificationService
	prefs         service.PreferenceStore
	history       *repository.GameHistoryRepository
	txlog         *repository.TxLogRepository
	indexer       *indexer.Client
	chat          *ws.ChatClient
	hub           *ws.Hub
	bot           *bot.NotifyBot

	pool *pgxpool.Pool
	rdb  *redis.Client

	mu      sync.RWMutex
	wallet  *chain.Wallet
	actions map[domain.League]*service.ActionService

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New подключается к RPC и хранилищам и собирает все компоненты
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	a := &App{
		cfg:      cfg,
		version:  version,
		games:    make(map[domain.League]*chain.GameContract),
		watchers: make(map[domain.League]*service.GameWatcher),
		actions:  make(map[domain.League]*service.ActionService),
		hub:      ws.NewHub(),
		indexer:  indexer.NewClient(cfg.IndexerURL),
	}

	client, err := chain.Dial(ctx, cfg.RPCURL, cfg.ChainNetwork())
	if err != nil {
		return nil, err
	}
	a.chain = client
	backend := client.Backend()

	phi, err := cfg.Phi()
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.token, err = chain.NewTokenContract(phi, backend); err != nil {
		a.Close()
		return nil, err
	}
	resourceAddr, err := cfg.Resource()
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.resource, err = chain.NewResourceContract(resourceAddr, backend); err != nil {
		a.Close()
		return nil, err
	}

	a.prefs = a.openPreferences(ctx)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		a.pool = pool
		a.history = repository.NewGameHistoryRepository(pool)
		a.txlog = repository.NewTxLogRepository(pool)
	}

	var sinks []service.NotificationSink
	if cfg.BotToken != "" && cfg.NotifyChatID != 0 {
		b, err := bot.NewNotifyBot(cfg.BotToken, cfg.NotifyChatID)
		if err != nil {
			logger.Warn("telegram bot disabled", "error", err)
		} else {
			a.bot = b
			sinks = append(sinks, b)
		}
	}
	a.notifications = service.NewNotificationService(a.prefs, sinks...)
	if a.bot != nil {
		a.bot.SetHandlers(a.StatusSummary, a.notifications)
	}

	a.blocks = service.NewBlockNotifier(cfg.PollInterval)
	a.inventory = service.NewInventoryService(a.resource)

	var history service.GameHistoryStore
	if a.history != nil {
		history = a.history
	}
	for _, league := range domain.Leagues() {
		addr, err := cfg.GameAddress(league)
		if err != nil {
			a.Close()
			return nil, err
		}
		contract, err := chain.NewGameContract(addr, backend)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.games[league] = contract
		a.watchers[league] = service.NewGameWatcher(league, contract, a.blocks, a.inventory, a.notifications, history)
	}

	a.chat = ws.NewChatClient(cfg.ChatURL, a.notifications)
	a.chat.OnChange(func(st ws.ChatState) {
		a.hub.Broadcast(ws.Event{Type: ws.EventChat, Data: st})
	})

	return a, nil
}

// openPreferences возвращает Redis-хранилище или, если Redis недоступен, хранилище в памяти
func (a *App) openPreferences(ctx context.Context) service.PreferenceStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		logger.Warn("redis недоступен, настройки хранятся в памяти", "addr", a.cfg.RedisAddr, "error", err)
		_ = rdb.Close()
		return repository.NewMemoryPreferenceStore()
	}
	a.rdb = rdb
	return repository.NewPreferenceRepository(rdb)
}

// Start запускает фоновые компоненты и восстанавливает кошелек прошлой сессии
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.inventory.LoadCatalog(ctx); err != nil {
		logger.Warn("каталог ресурсов не загружен", "error", err)
	}

	a.goRun(func() { a.blocks.Run(ctx, a.chain) })
	for _, w := range a.watchers {
		w := w
		a.goRun(w.Start)
		a.goRun(func() { a.forwardViews(ctx, w) })
	}
	a.goRun(func() { a.forwardNotifications(ctx) })
	a.goRun(func() { a.refreshInventory(ctx) })

	a.chat.Start()
	if a.bot != nil {
		a.goRun(a.bot.Start)
	}

	prefs, err := a.prefs.Get(ctx)
	if err != nil {
		logger.Warn("не удалось прочитать настройки", "error", err)
		return
	}
	if prefs.WalletConnected && a.cfg.PrivateKey != "" {
		if _, err := a.ConnectWallet(ctx); err != nil {
			logger.Warn("не удалось восстановить кошелек", "error", err)
		}
	}
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) forwardViews(ctx context.Context, w *service.GameWatcher) {
	ch, unsubscribe := w.Subscribe()
	defer unsubscribe()
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			a.hub.Broadcast(ws.Event{Type: ws.EventGameView, League: w.League(), Data: v})
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) forwardNotifications(ctx context.Context) {
	ch, unsubscribe := a.notifications.Subscribe()
	defer unsubscribe()
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return
			}
			a.hub.Broadcast(ws.Event{Type: ws.EventNotification, League: n.League, Data: n})
		case <-ctx.Done():
			return
		}
	}
}

// инвентарь кошелька перечитывается на каждое изменение блока
func (a *App) refreshInventory(ctx context.Context) {
	seen := a.blocks.Seq()
	for {
		seq, err := a.blocks.Wait(ctx, seen)
		if err != nil {
			return
		}
		seen = seq

		w := a.currentWallet()
		if w == nil {
			continue
		}
		if _, err := a.inventory.Refresh(ctx, w.Address()); err != nil && ctx.Err() == nil {
			logger.Warn("inventory: не удалось обновить инвентарь", "error", err)
		}
	}
}

// Close останавливает фоновые компоненты и освобождает соединения
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, w := range a.watchers {
		w.Stop()
	}
	if a.chat != nil {
		a.chat.Close()
	}
	if a.bot != nil && a.cancel != nil {
		a.bot.Stop()
	}
	a.wg.Wait()

	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.chain != nil {
		a.chain.Close()
	}
}

// ConnectWallet активирует настроенный ключ и переключает watcher'ы на этот адрес
func (a *App) ConnectWallet(ctx context.Context) (domain.WalletState, error) {
	if a.cfg.PrivateKey == "" {
		return domain.WalletState{}, ErrNoWallet
	}
	w, err := chain.NewWallet(a.chain, a.cfg.PrivateKey)
	if err != nil {
		return domain.WalletState{}, err
	}

	actions := make(map[domain.League]*service.ActionService, len(a.games))
	for league, contract := range a.games {
		s := service.NewActionService(league, contract, a.token, a.resource, w, a.watchers[league], a.blocks)
		if a.txlog != nil {
			s.SetJournal(a.txlog)
		}
		actions[league] = s
	}

	a.mu.Lock()
	a.wallet = w
	a.actions = actions
	a.mu.Unlock()

	for _, watcher := range a.watchers {
		watcher.SetAccount(w.Address())
	}
	if _, err := a.inventory.Refresh(ctx, w.Address()); err != nil {
		logger.Warn("inventory: не удалось загрузить инвентарь", "error", err)
	}
	a.setWalletPreference(ctx, true)

	logger.Info("wallet connected", "address", w.Address().Hex())
	state := a.WalletState()
	a.hub.Broadcast(ws.Event{Type: ws.EventWallet, Data: state})
	return state, nil
}

// DisconnectWallet забывает кошелек, watcher'ы остаются без игрока
func (a *App) DisconnectWallet(ctx context.Context) {
	a.mu.Lock()
	a.wallet = nil
	a.actions = make(map[domain.League]*service.ActionService)
	a.mu.Unlock()

	for _, watcher := range a.watchers {
		watcher.SetAccount(common.Address{})
	}
	a.inventory.Clear()
	if err := a.chat.Leave(); err != nil && !errors.Is(err, ws.ErrNotJoined) {
		logger.Debug("chat leave on disconnect", "error", err)
	}
	a.setWalletPreference(ctx, false)

	logger.Info("wallet disconnected")
	a.hub.Broadcast(ws.Event{Type: ws.EventWallet, Data: a.WalletState()})
}

func (a *App) setWalletPreference(ctx context.Context, connected bool) {
	p, err := a.prefs.Get(ctx)
	if err != nil {
		logger.Warn("не удалось прочитать настройки", "error", err)
		return
	}
	p.WalletConnected = connected
	if err := a.prefs.Save(ctx, p); err != nil {
		logger.Warn("не удалось сохранить настройки", "error", err)
	}
}

func (a *App) currentWallet() *chain.Wallet {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wallet
}

// WalletState возвращает состояние подключения
func (a *App) WalletState() domain.WalletState {
	st := domain.WalletState{
		ChainID:   a.chain.Network().ChainID(),
		LastBlock: a.blocks.LastBlock(),
	}
	if w := a.currentWallet(); w != nil {
		st.Connected = true
		st.Address = w.Address().Hex()
	}
	return st
}

// Watcher возвращает watcher лиги
func (a *App) Watcher(league domain.League) (*service.GameWatcher, error) {
	w, ok := a.watchers[league]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLeague, league)
	}
	return w, nil
}

// Actions возвращает сервис действий лиги, нужен подключенный кошелек
func (a *App) Actions(league domain.League) (*service.ActionService, error) {
	if _, ok := a.watchers[league]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLeague, league)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.actions[league]
	if !ok {
		return nil, service.ErrNoAccount
	}
	return s, nil
}

// Inventory возвращает инвентарь кошелька
func (a *App) Inventory() ([]domain.InventoryItem, error) {
	if a.currentWallet() == nil {
		return nil, service.ErrNoAccount
	}
	return a.inventory.Items(), nil
}

// History возвращает сохраненные игры кошелька в лиге
func (a *App) History(ctx context.Context, league domain.League, limit int) ([]*domain.GameRecord, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	w := a.currentWallet()
	if w == nil {
		return nil, service.ErrNoAccount
	}
	return a.history.List(ctx, league, w.Address().Hex(), limit)
}

// Transactions возвращает журнал транзакций подключенного кошелька
func (a *App) Transactions(ctx context.Context, limit int) ([]*domain.TxLogEntry, error) {
	if a.txlog == nil {
		return nil, ErrHistoryDisabled
	}
	w := a.currentWallet()
	if w == nil {
		return nil, service.ErrNoAccount
	}
	return a.txlog.Recent(ctx, w.Address().Hex(), limit)
}

// JoinChat подписывает "JoinChat:<chatId>", получает токен у индексатора и входит в чат
func (a *App) JoinChat(ctx context.Context, chatID string) error {
	w := a.currentWallet()
	if w == nil {
		return service.ErrNoAccount
	}
	sig, err := w.SignMessage("JoinChat:" + chatID)
	if err != nil {
		return err
	}
	token, err := a.indexer.ChatToken(ctx, chatID, sig)
	if err != nil {
		return err
	}
	return a.chat.Join(w.Address().Hex(), chatID, token)
}

func (a *App) Indexer() *indexer.Client {
	return a.indexer
}

func (a *App) Notifications() *service.NotificationService {
	return a.notifications
}

func (a *App) Preferences() service.PreferenceStore {
	return a.prefs
}

func (a *App) Chat() *ws.ChatClient {
	return a.chat
}

func (a *App) Hub() *ws.Hub {
	return a.hub
}

func (a *App) Catalog() *service.InventoryService {
	return a.inventory
}

func (a *App) Version() string {
	return a.version
}

// Snapshot - начальное состояние для только что подключенной вкладки UI
func (a *App) Snapshot() []ws.Event {
	events := []ws.Event{{Type: ws.EventWallet, Data: a.WalletState()}}
	for _, league := range domain.Leagues() {
		if v, ok := a.watchers[league].View(); ok {
			events = append(events, ws.Event{Type: ws.EventGameView, League: league, Data: v})
		}
	}
	events = append(events, ws.Event{Type: ws.EventChat, Data: a.chat.State()})
	return events
}

// StatusSummary - короткая сводка по лигам для Telegram
func (a *App) StatusSummary(ctx context.Context) string {
	lines := make([]string, 0, len(a.watchers))
	for _, league := range domain.Leagues() {
		v, ok := a.watchers[league].View()
		if !ok {
			lines = append(lines, fmt.Sprintf("%s: загрузка", league))
			continue
		}
		lines = append(lines, summaryLine(v))
	}
	return strings.Join(lines, "\n")
}

func summaryLine(v game.GameView) string {
	line := fmt.Sprintf("%s: %s", v.League, v.Status)
	if v.GameID != "" {
		line += " #" + v.GameID
	}
	if v.Status == domain.StatusInProgress {
		line += fmt.Sprintf(", раунд %d", v.Round+1)
		if v.IsTurn {
			line += ", ваш ход"
		}
		if v.Timer != nil {
			line += ", " + v.Timer.Text
		}
	}
	if v.Outcome != "" {
		line += ", " + string(v.Outcome)
	}
	return line
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/logger"
	"talecraft_client/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	// пауза перед переподключением к чату
	ReconnectDelay = 500 * time.Millisecond

	chatReadLimit = 64 * 1024
)

var (
	ErrNotConnected = errors.New("нет соединения с чатом")
	ErrNotJoined    = errors.New("вы не в чате")
	ErrChatClosed   = errors.New("чат закрыт")
)

// Notifier получает уведомления о новых сообщениях и ошибках чата
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// исходящий кадр
type chatRequest struct {
	Action  string `json:"action"`
	ChatID  string `json:"chatId,omitempty"`
	Token   string `json:"token,omitempty"`
	Address string `json:"address,omitempty"`
	TabID   string `json:"tabId,omitempty"`
	Text    string `json:"text,omitempty"`
}

// входящий кадр, сервер рассылает их всем вкладкам
type chatEvent struct {
	Action    string               `json:"action"`
	TabID     string               `json:"tabId"`
	User      string               `json:"user"`
	UserTabID string               `json:"userTabId"`
	ChatID    string               `json:"chatId"`
	Msgs      []domain.ChatMessage `json:"msgs"`
	Message   string               `json:"message"`
}

// ChatState - состояние чата для UI
type ChatState struct {
	Connected bool                 `json:"connected"`
	Joined    bool                 `json:"joined"`
	ChatID    string               `json:"chat_id,omitempty"`
	Messages  []domain.ChatMessage `json:"messages"`
}

// ChatClient - клиент realtime-чата.
// Держит одно соединение, переподключается после обрыва и повторяет последний join.
type ChatClient struct {
	url      string
	tabID    string
	dialer   *websocket.Dialer
	notifier Notifier
	delay    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	joined   bool
	chatID   string
	address  string
	lastJoin *chatRequest
	messages map[int64]domain.ChatMessage

	// колбэки вызываются под cbMu, после Close не вызываются
	cbMu     sync.Mutex
	closed   bool
	onChange func(ChatState)
}

// NewChatClient создает клиент, соединение открывает Start
func NewChatClient(url string, notifier Notifier) *ChatClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatClient{
		url:      url,
		tabID:    uuid.NewString(),
		dialer:   websocket.DefaultDialer,
		notifier: notifier,
		delay:    ReconnectDelay,
		ctx:      ctx,
		cancel:   cancel,
		messages: make(map[int64]domain.ChatMessage),
	}
}

// TabID - идентификатор этого процесса в кадрах чата
func (c *ChatClient) TabID() string { return c.tabID }

// OnChange задает колбэк изменения состояния.
// Колбэк не должен вызывать Close.
func (c *ChatClient) OnChange(fn func(ChatState)) {
	c.cbMu.Lock()
	c.onChange = fn
	c.cbMu.Unlock()
}

// Start запускает цикл соединения
func (c *ChatClient) Start() {
	c.wg.Add(1)
	go c.loop()
}

// Close рвет соединение и останавливает переподключения.
// После возврата колбэки больше не вызываются.
func (c *ChatClient) Close() {
	c.cbMu.Lock()
	c.closed = true
	c.cbMu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *ChatClient) loop() {
	defer c.wg.Done()
	log := logger.With("component", "chat")

	for {
		err := c.session()
		if c.ctx.Err() != nil {
			log.Info("chat: клиент остановлен")
			return
		}
		log.Warn("chat: соединение потеряно, переподключение", "error", err, "delay", c.delay)
		metrics.ChatReconnects.Inc()

		select {
		case <-time.After(c.delay):
		case <-c.ctx.Done():
			return
		}
	}
}

// session держит одно соединение до ошибки чтения
func (c *ChatClient) session() error {
	conn, _, err := c.dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		return err
	}
	// Close должен прервать блокирующее чтение
	stop := context.AfterFunc(c.ctx, func() { _ = conn.Close() })
	defer stop()

	c.mu.Lock()
	c.conn = conn
	rejoin := c.lastJoin
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.joined = false
		c.mu.Unlock()
		_ = conn.Close()
		c.changed()
	}()

	c.changed()
	if rejoin != nil {
		if err := c.write(*rejoin); err != nil {
			return err
		}
	}

	pingDone := make(chan struct{})
	defer close(pingDone)
	go pingLoop(conn, pingDone)

	conn.SetReadLimit(chatReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var ev chatEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Debug("chat: некорректный кадр", "error", err)
			continue
		}
		c.handle(ev)
	}
}

func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (c *ChatClient) handle(ev chatEvent) {
	// кадры для других вкладок
	if ev.TabID != c.tabID {
		return
	}

	switch ev.Action {
	case "connected":
		c.mu.Lock()
		// подтверждение входа в чат, из которого уже ушли, не считается
		own := c.isSelf(ev) && c.lastJoin != nil && ev.ChatID == c.lastJoin.ChatID
		if own {
			c.joined = true
			c.chatID = ev.ChatID
		}
		c.mu.Unlock()
		if own {
			if err := c.write(chatRequest{Action: "get_history", ChatID: ev.ChatID}); err != nil {
				logger.Warn("chat: не удалось запросить историю", "error", err)
			}
			c.changed()
		}

	case "disconnected":
		c.mu.Lock()
		own := c.isSelf(ev) && ev.ChatID == c.chatID
		if own {
			c.joined = false
		}
		c.mu.Unlock()
		if own {
			c.changed()
		}

	case "new_messages", "history_messages":
		added, self := c.merge(ev.Msgs)
		if ev.Action == "new_messages" {
			for _, m := range added {
				if strings.EqualFold(m.From, self) {
					continue
				}
				c.notify(domain.Notification{
					Kind:  domain.NotifyChatMessage,
					Title: "TaleCraft: in-game chat",
					Body:  m.Text,
				})
			}
		}
		if len(added) > 0 {
			c.changed()
		}

	case "error":
		c.notify(domain.Notification{Kind: domain.NotifyError, Title: "TaleCraft", Body: ev.Message})
	}
}

// isSelf вызывается под mu
func (c *ChatClient) isSelf(ev chatEvent) bool {
	return c.address != "" && strings.EqualFold(ev.User, c.address) && ev.UserTabID == c.tabID
}

// merge добавляет сообщения текущего чата, дубликаты по id отбрасываются
func (c *ChatClient) merge(msgs []domain.ChatMessage) ([]domain.ChatMessage, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var added []domain.ChatMessage
	for _, m := range msgs {
		if m.ChatID != c.chatID {
			continue
		}
		if _, ok := c.messages[m.ID]; ok {
			continue
		}
		c.messages[m.ID] = m
		added = append(added, m)
	}
	return added, c.address
}

// Join входит в чат с токеном, полученным у индексатора.
// Если соединения сейчас нет, запрос уйдет после подключения.
func (c *ChatClient) Join(address, chatID, token string) error {
	req := &chatRequest{
		Action:  "join_chat",
		ChatID:  chatID,
		Token:   token,
		Address: address,
		TabID:   c.tabID,
	}

	// до connected новый чат не активен, сообщения прежнего отбрасываются
	c.mu.Lock()
	c.address = address
	c.lastJoin = req
	c.joined = false
	c.chatID = ""
	c.messages = make(map[int64]domain.ChatMessage)
	c.mu.Unlock()
	c.changed()

	err := c.write(*req)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Leave выходит из текущего чата, после переподключения вход не повторяется
func (c *ChatClient) Leave() error {
	c.mu.Lock()
	chatID := c.chatID
	if chatID == "" && c.lastJoin != nil {
		chatID = c.lastJoin.ChatID
	}
	c.lastJoin = nil
	c.joined = false
	c.chatID = ""
	c.messages = make(map[int64]domain.ChatMessage)
	c.mu.Unlock()

	if chatID == "" {
		return ErrNotJoined
	}
	c.changed()

	err := c.write(chatRequest{Action: "leave_chat", ChatID: chatID})
	if errors.Is(err, ErrNotConnected) {
		// без соединения сервер сам забудет вкладку
		return nil
	}
	return err
}

// SendMessage отправляет текст в текущий чат
func (c *ChatClient) SendMessage(text string) error {
	c.mu.Lock()
	joined, chatID := c.joined, c.chatID
	c.mu.Unlock()

	if !joined {
		return ErrNotJoined
	}
	return c.write(chatRequest{Action: "send_message", ChatID: chatID, Text: text})
}

// State возвращает копию состояния, сообщения по возрастанию id
func (c *ChatClient) State() ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]domain.ChatMessage, 0, len(c.messages))
	for _, m := range c.messages {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	return ChatState{
		Connected: c.conn != nil,
		Joined:    c.joined,
		ChatID:    c.chatID,
		Messages:  msgs,
	}
}

func (c *ChatClient) write(req chatRequest) error {
	if c.ctx.Err() != nil {
		return ErrChatClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(req)
}

func (c *ChatClient) changed() {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.closed || c.onChange == nil {
		return
	}
	c.onChange(c.State())
}

func (c *ChatClient) notify(n domain.Notification) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.closed || c.notifier == nil {
		return
	}
	c.notifier.Notify(c.ctx, n)
}

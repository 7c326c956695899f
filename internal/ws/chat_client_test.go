package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"talecraft_client/internal/domain"

	"github.com/gorilla/websocket"
)

// fakeChatServer отвечает на join_chat и get_history как настоящий сервер чата
type fakeChatServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu      sync.Mutex
	joins   int
	conns   []*websocket.Conn
	history []domain.ChatMessage
	// закрыть соединение сразу после первого join
	dropFirst bool
}

func (s *fakeChatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.t.Errorf("upgrade: %v", err)
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		switch req.Action {
		case "join_chat":
			s.mu.Lock()
			s.joins++
			drop := s.dropFirst && s.joins == 1
			s.mu.Unlock()
			if drop {
				_ = conn.Close()
				return
			}
			// кадр для чужой вкладки должен игнорироваться
			_ = conn.WriteJSON(chatEvent{Action: "connected", TabID: "other", User: req.Address, UserTabID: "other", ChatID: req.ChatID})
			_ = conn.WriteJSON(chatEvent{Action: "connected", TabID: req.TabID, User: req.Address, UserTabID: req.TabID, ChatID: req.ChatID})
		case "get_history":
			s.mu.Lock()
			msgs := s.history
			s.mu.Unlock()
			_ = conn.WriteJSON(chatEvent{Action: "history_messages", TabID: tabOf(r), ChatID: req.ChatID, Msgs: msgs})
		}
	}
}

// tabOf - id вкладки передается тестом через query
func tabOf(r *http.Request) string { return r.URL.Query().Get("tab") }

func (s *fakeChatServer) push(ev chatEvent) {
	s.mu.Lock()
	conn := s.conns[len(s.conns)-1]
	s.mu.Unlock()
	_ = conn.WriteJSON(ev)
}

func (s *fakeChatServer) joinCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joins
}

type chanNotifier struct {
	ch chan domain.Notification
}

func (n *chanNotifier) Notify(ctx context.Context, note domain.Notification) {
	n.ch <- note
}

func startChat(t *testing.T, srv *fakeChatServer) (*ChatClient, *chanNotifier) {
	t.Helper()
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	notes := &chanNotifier{ch: make(chan domain.Notification, 16)}
	c := NewChatClient("", notes)
	c.url = "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws/chat/?tab=" + c.TabID()
	c.delay = 10 * time.Millisecond
	t.Cleanup(c.Close)
	c.Start()
	return c, notes
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("не дождались: %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

const player = "0x00000000000000000000000000000000000A11cE"

func TestChatJoinLoadsHistorySorted(t *testing.T) {
	srv := &fakeChatServer{t: t, history: []domain.ChatMessage{
		{ID: 3, From: "0xb0b", ChatID: "game-7", Text: "gg"},
		{ID: 1, From: player, ChatID: "game-7", Text: "hi"},
		{ID: 2, From: "0xb0b", ChatID: "other", Text: "не наш чат"},
	}}
	c, notes := startChat(t, srv)

	waitFor(t, "соединение", func() bool { return c.State().Connected })
	if err := c.Join(player, "game-7", "token"); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "история", func() bool { return len(c.State().Messages) == 2 })

	st := c.State()
	if !st.Joined || st.ChatID != "game-7" {
		t.Fatalf("ожидался вход в game-7: %+v", st)
	}
	if st.Messages[0].ID != 1 || st.Messages[1].ID != 3 {
		t.Fatalf("сообщения должны быть отсортированы по id: %+v", st.Messages)
	}
	select {
	case n := <-notes.ch:
		t.Fatalf("история не должна вызывать уведомлений: %+v", n)
	default:
	}

	// новые сообщения: дубликат отбрасывается, свое не уведомляет
	srv.push(chatEvent{Action: "new_messages", TabID: c.TabID(), Msgs: []domain.ChatMessage{
		{ID: 3, From: "0xb0b", ChatID: "game-7", Text: "gg"},
		{ID: 4, From: strings.ToLower(player), ChatID: "game-7", Text: "mine"},
		{ID: 5, From: "0xb0b", ChatID: "game-7", Text: "your move"},
	}})
	waitFor(t, "новые сообщения", func() bool { return len(c.State().Messages) == 4 })

	select {
	case n := <-notes.ch:
		if n.Kind != domain.NotifyChatMessage || n.Body != "your move" {
			t.Fatalf("неверное уведомление: %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("ожидалось уведомление о сообщении соперника")
	}
	select {
	case n := <-notes.ch:
		t.Fatalf("лишнее уведомление: %+v", n)
	default:
	}
}

func TestChatRejoinsAfterReconnect(t *testing.T) {
	srv := &fakeChatServer{t: t, dropFirst: true}
	c, _ := startChat(t, srv)

	waitFor(t, "соединение", func() bool { return c.State().Connected })
	if err := c.Join(player, "global", "token"); err != nil {
		t.Fatalf("join: %v", err)
	}

	waitFor(t, "повторный join", func() bool { return srv.joinCount() >= 2 })
	waitFor(t, "вход после переподключения", func() bool { return c.State().Joined })
}

func TestChatSendRequiresJoin(t *testing.T) {
	srv := &fakeChatServer{t: t}
	c, _ := startChat(t, srv)

	if err := c.SendMessage("hello"); err != ErrNotJoined {
		t.Fatalf("ожидалась ErrNotJoined, получено %v", err)
	}
}

func TestChatNoCallbacksAfterClose(t *testing.T) {
	srv := &fakeChatServer{t: t}
	c, _ := startChat(t, srv)

	var mu sync.Mutex
	calls := 0
	c.OnChange(func(ChatState) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	waitFor(t, "соединение", func() bool { return c.State().Connected })
	c.Close()

	mu.Lock()
	before := calls
	mu.Unlock()

	c.changed()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != before {
		t.Fatal("после Close колбэки вызываться не должны")
	}
	if err := c.SendMessage("x"); err == nil {
		t.Fatal("после Close отправка невозможна")
	}
}

func TestChatJoinDropsPreviousRoom(t *testing.T) {
	// без Start: записи уходят в ErrNotConnected, кадры подаются напрямую
	c := NewChatClient("", nil)
	connected := func(chatID string) chatEvent {
		return chatEvent{Action: "connected", TabID: c.TabID(), User: player, UserTabID: c.TabID(), ChatID: chatID}
	}

	if err := c.Join(player, "game-7", "token"); err != nil {
		t.Fatalf("join: %v", err)
	}
	c.handle(connected("game-7"))
	if st := c.State(); !st.Joined || st.ChatID != "game-7" {
		t.Fatalf("ожидался вход в game-7: %+v", st)
	}

	if err := c.Join(player, "game-8", "token"); err != nil {
		t.Fatalf("join: %v", err)
	}
	c.handle(chatEvent{Action: "new_messages", TabID: c.TabID(), Msgs: []domain.ChatMessage{
		{ID: 1, From: "0xb0b", ChatID: "game-7", Text: "old room"},
	}})
	c.handle(connected("game-7"))
	if st := c.State(); st.Joined || st.ChatID != "" || len(st.Messages) != 0 {
		t.Fatalf("до подтверждения нового чата прежний не должен попадать в состояние: %+v", st)
	}

	c.handle(connected("game-8"))
	c.handle(chatEvent{Action: "new_messages", TabID: c.TabID(), Msgs: []domain.ChatMessage{
		{ID: 2, From: "0xb0b", ChatID: "game-8", Text: "hi"},
	}})
	if st := c.State(); !st.Joined || st.ChatID != "game-8" || len(st.Messages) != 1 {
		t.Fatalf("ожидался вход в game-8 с одним сообщением: %+v", st)
	}

	if err := c.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if st := c.State(); st.Joined || st.ChatID != "" || len(st.Messages) != 0 {
		t.Fatalf("после выхода чат должен быть пуст: %+v", st)
	}
	if err := c.Leave(); err != ErrNotJoined {
		t.Fatalf("повторный выход: ожидалась ErrNotJoined, получено %v", err)
	}
}

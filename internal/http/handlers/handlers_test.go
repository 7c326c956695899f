package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"talecraft_client/internal/app"
	"talecraft_client/internal/domain"
	"talecraft_client/internal/indexer"
	"talecraft_client/internal/repository"
	"talecraft_client/internal/service"
	"talecraft_client/internal/ws"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIndexer struct {
	listing  domain.ListingFilter
	lending  domain.LendingFilter
	calls    int
	resource *domain.ResourceInfo
	err      error
}

func (f *fakeIndexer) Listings(ctx context.Context, filter domain.ListingFilter) (*domain.ListingPage, error) {
	f.calls++
	f.listing = filter
	return &domain.ListingPage{Items: []domain.Listing{}, TotalItems: 40, Page: filter.Page}, f.err
}

func (f *fakeIndexer) LendingListings(ctx context.Context, filter domain.LendingFilter) (*domain.LendingPage, error) {
	f.calls++
	f.lending = filter
	return &domain.LendingPage{Items: []domain.LendingListing{}, Page: filter.Page}, f.err
}

func (f *fakeIndexer) MarketplaceStats(ctx context.Context) (*domain.MarketplaceStats, error) {
	return &domain.MarketplaceStats{MinElementPrice: "1.5"}, f.err
}

func (f *fakeIndexer) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return nil, f.err
}

func (f *fakeIndexer) GameLeaderboard(ctx context.Context, league domain.League) ([]domain.GameLeaderboardEntry, error) {
	return nil, f.err
}

func (f *fakeIndexer) Resource(ctx context.Context, tokenID int64) (*domain.ResourceInfo, error) {
	f.calls++
	return f.resource, f.err
}

func (f *fakeIndexer) RecipeTree(ctx context.Context, tokenID int64) ([]domain.RecipeNode, error) {
	return nil, f.err
}

func (f *fakeIndexer) Settings(ctx context.Context) (*domain.Settings, error) {
	return &domain.Settings{}, f.err
}

type fakeWallet struct {
	state domain.WalletState
}

func (f *fakeWallet) WalletState() domain.WalletState { return f.state }

type fakeGames struct {
	historyErr error
}

func (f *fakeGames) Watcher(league domain.League) (*service.GameWatcher, error) {
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLeague, league)
}

func (f *fakeGames) Actions(league domain.League) (*service.ActionService, error) {
	return nil, service.ErrNoAccount
}

func (f *fakeGames) History(ctx context.Context, league domain.League, limit int) ([]*domain.GameRecord, error) {
	return nil, f.historyErr
}

type fakeRoom struct {
	joined bool
	sent   []string
}

func (f *fakeRoom) Leave() error {
	if !f.joined {
		return ws.ErrNotJoined
	}
	f.joined = false
	return nil
}

func (f *fakeRoom) SendMessage(text string) error {
	if !f.joined {
		return ws.ErrNotJoined
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeRoom) State() ws.ChatState {
	return ws.ChatState{Connected: true, Joined: f.joined}
}

type fakeFeed struct {
	granted *bool
}

func (f *fakeFeed) SetPermission(ctx context.Context, granted bool) error {
	f.granted = &granted
	return nil
}

func (f *fakeFeed) Recent() []domain.Notification { return nil }

func perform(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("ответ не JSON: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&service.ActionError{Action: "join", Message: "not enough PHI", Err: service.ErrActionUnavailable}, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %q", domain.ErrUnknownLeague, "pro"), http.StatusNotFound},
		{domain.ErrInvalidTier, http.StatusBadRequest},
		{service.ErrNoAccount, http.StatusConflict},
		{ws.ErrNotJoined, http.StatusConflict},
		{app.ErrHistoryDisabled, http.StatusServiceUnavailable},
		{indexer.ErrNoChatToken, http.StatusForbidden},
		{fmt.Errorf("wrap: %w", indexer.ErrGraphQL), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		if w.Code != tc.code {
			t.Fatalf("%v: ожидался код %d, получен %d", tc.err, tc.code, w.Code)
		}
	}
}

func TestActionErrorCarriesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, &service.ActionError{Action: "place", Message: "it is not your turn", Err: service.ErrActionUnavailable})

	body := decode(t, w)
	if body["error"] != "it is not your turn" || body["action"] != "place" {
		t.Fatalf("неверное тело ответа: %v", body)
	}
}

func newMarketRouter(idx *fakeIndexer, wallet *fakeWallet) *gin.Engine {
	h := NewMarketHandler(idx, wallet)
	r := gin.New()
	r.GET("/market/listings", h.Listings)
	r.GET("/lending/listings", h.Lending)
	r.GET("/resources/:token_id", h.Resource)
	r.GET("/leagues/:league/leaderboard", h.GameLeaderboard)
	return r
}

func TestListingsFilterFromQuery(t *testing.T) {
	idx := &fakeIndexer{}
	r := newMarketRouter(idx, &fakeWallet{})

	w := perform(r, http.MethodGet, "/market/listings?q=fire&tier=1&tier=3&weight=50-99&order=-price&page=2&seller=0xabc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", w.Code, w.Body.String())
	}

	f := idx.listing
	if f.Query != "fire" || f.Seller != "0xabc" || f.Page != 2 || f.Order != domain.OrderPriceDesc {
		t.Fatalf("неверный фильтр: %+v", f)
	}
	if len(f.Tiers) != 2 || f.Tiers[1] != 3 || len(f.Weights) != 1 || f.Weights[0] != domain.Weight50to99 {
		t.Fatalf("неверные тиры или веса: %+v", f)
	}
	if pages := decode(t, w)["pages"]; pages != float64(3) {
		t.Fatalf("ожидалось 3 страницы, получено %v", pages)
	}
}

func TestListingsDefaults(t *testing.T) {
	idx := &fakeIndexer{}
	r := newMarketRouter(idx, &fakeWallet{})

	perform(r, http.MethodGet, "/market/listings?page=-4", "")
	if idx.listing.Page != 1 || idx.listing.Order != domain.OrderPriceAsc {
		t.Fatalf("неверные значения по умолчанию: %+v", idx.listing)
	}
}

func TestListingsRejectsBadParams(t *testing.T) {
	idx := &fakeIndexer{}
	r := newMarketRouter(idx, &fakeWallet{})

	for _, q := range []string{"tier=9", "weight=1-2", "order=random"} {
		w := perform(r, http.MethodGet, "/market/listings?"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: ожидался 400, получен %d", q, w.Code)
		}
	}
	if idx.calls != 0 {
		t.Fatal("индексатор не должен вызываться при неверных параметрах")
	}
}

func TestLendingSpecialNeedsWallet(t *testing.T) {
	idx := &fakeIndexer{}
	wallet := &fakeWallet{}
	r := newMarketRouter(idx, wallet)

	if w := perform(r, http.MethodGet, "/lending/listings?special=listed", ""); w.Code != http.StatusConflict {
		t.Fatalf("без кошелька ожидался 409, получен %d", w.Code)
	}

	wallet.state = domain.WalletState{Connected: true, Address: "0x00000000000000000000000000000000000000aa"}
	if w := perform(r, http.MethodGet, "/lending/listings?special=listed", ""); w.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", w.Code)
	}
	if idx.lending.Special != domain.LendingListed || idx.lending.Address != wallet.state.Address {
		t.Fatalf("неверный фильтр аренды: %+v", idx.lending)
	}

	perform(r, http.MethodGet, "/lending/listings", "")
	if idx.lending.Address != "" {
		t.Fatalf("без special адрес не передается: %+v", idx.lending)
	}
}

func TestResourceNotFound(t *testing.T) {
	idx := &fakeIndexer{}
	r := newMarketRouter(idx, &fakeWallet{})

	if w := perform(r, http.MethodGet, "/resources/77", ""); w.Code != http.StatusNotFound {
		t.Fatalf("ожидался 404, получен %d", w.Code)
	}
	if w := perform(r, http.MethodGet, "/resources/abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400, получен %d", w.Code)
	}

	idx.resource = &domain.ResourceInfo{TokenID: 77, Name: "Dragon"}
	w := perform(r, http.MethodGet, "/resources/77", "")
	if w.Code != http.StatusOK || decode(t, w)["name"] != "Dragon" {
		t.Fatalf("неверный ответ: %d %s", w.Code, w.Body.String())
	}
}

func TestUnknownLeague(t *testing.T) {
	r := newMarketRouter(&fakeIndexer{}, &fakeWallet{})
	if w := perform(r, http.MethodGet, "/leagues/pro/leaderboard", ""); w.Code != http.StatusNotFound {
		t.Fatalf("ожидался 404, получен %d", w.Code)
	}
}

func TestGameActionsNeedWallet(t *testing.T) {
	games := &fakeGames{historyErr: app.ErrHistoryDisabled}
	h := NewGameHandler(games)
	r := gin.New()
	r.POST("/leagues/:league/join", h.Join)
	r.POST("/leagues/:league/place", h.Place)
	r.GET("/leagues/:league/records", h.Records)

	if w := perform(r, http.MethodPost, "/leagues/junior/join", ""); w.Code != http.StatusConflict {
		t.Fatalf("без кошелька ожидался 409, получен %d", w.Code)
	}
	if w := perform(r, http.MethodPost, "/leagues/junior/place", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("без token_id ожидался 400, получен %d", w.Code)
	}
	if w := perform(r, http.MethodPost, "/leagues/junior/place", `{"token_id":"x1"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("неверный token_id: ожидался 400, получен %d", w.Code)
	}
	if w := perform(r, http.MethodGet, "/leagues/junior/records", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ожидался 503, получен %d", w.Code)
	}
}

func TestPreferencesPartialUpdate(t *testing.T) {
	store := repository.NewMemoryPreferenceStore()
	ctx := context.Background()
	_ = store.Save(ctx, domain.Preferences{DarkTheme: true, WalletConnected: true})

	feed := &fakeFeed{}
	h := NewPreferenceHandler(store, feed)
	r := gin.New()
	r.PUT("/preferences", h.Update)
	r.POST("/notifications/permission", h.Permission)

	if w := perform(r, http.MethodPut, "/preferences", `{"audio_muted":true}`); w.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", w.Code)
	}
	p, _ := store.Get(ctx)
	if !p.AudioMuted || !p.DarkTheme || !p.WalletConnected {
		t.Fatalf("непереданные поля не должны меняться: %+v", p)
	}

	perform(r, http.MethodPost, "/notifications/permission", `{"granted":true}`)
	if feed.granted == nil || !*feed.granted {
		t.Fatal("разрешение не передано в сервис уведомлений")
	}
}

func TestChatSendRequiresJoin(t *testing.T) {
	room := &fakeRoom{}
	h := NewChatHandler(nil, room)
	r := gin.New()
	r.POST("/chat/messages", h.Send)
	r.POST("/chat/leave", h.Leave)

	if w := perform(r, http.MethodPost, "/chat/messages", `{"text":"  "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("пустой текст: ожидался 400, получен %d", w.Code)
	}
	if w := perform(r, http.MethodPost, "/chat/messages", `{"text":"gg"}`); w.Code != http.StatusConflict {
		t.Fatalf("без входа в чат ожидался 409, получен %d", w.Code)
	}

	room.joined = true
	if w := perform(r, http.MethodPost, "/chat/messages", `{"text":"gg"}`); w.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", w.Code)
	}
	if len(room.sent) != 1 || room.sent[0] != "gg" {
		t.Fatalf("сообщение не отправлено: %v", room.sent)
	}
	if w := perform(r, http.MethodPost, "/chat/leave", ""); w.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", w.Code)
	}
}

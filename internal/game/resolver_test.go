package game

import (
	"context"
	"errors"
	"math/big"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"talecraft_client/internal/domain"
)

type fakeWinnerReader struct {
	calls  atomic.Int32
	result *big.Int
	err    error
	gate   chan struct{}
}

func (f *fakeWinnerReader) RoundWinner(ctx context.Context, gameID *big.Int, round int) (*big.Int, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func placed(round int, c0, c1 int64) func(s *domain.GameSnapshot) {
	return func(s *domain.GameSnapshot) {
		s.Started = true
		s.Players[0].PlacedCards[round] = big.NewInt(c0)
		s.Players[1].PlacedCards[round] = big.NewInt(c1)
	}
}

func TestResolvePendingWithoutRead(t *testing.T) {
	reader := &fakeWinnerReader{result: big.NewInt(1)}
	r := NewRoundResolver(reader)

	s := snapshot(placed(0, 10, 0))
	got, err := r.Resolve(context.Background(), s, 0, domain.Player0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != domain.RoundPending {
		t.Fatalf("ожидался pending, получено %s", got)
	}
	if reader.calls.Load() != 0 {
		t.Fatalf("для неполного раунда чтения быть не должно")
	}
}

func TestResolveSettledRoundIsMemoized(t *testing.T) {
	reader := &fakeWinnerReader{result: big.NewInt(42)}
	r := NewRoundResolver(reader)
	s := snapshot(placed(1, 10, 11))

	first, err := r.Resolve(context.Background(), s, 1, domain.Player0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i := 0; i < 5; i++ {
		// новый снапшот той же игры, как после очередного опроса
		again, err := r.Resolve(context.Background(), snapshot(placed(1, 10, 11)), 1, domain.Player0)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if again != first {
			t.Fatalf("результат изменился: %s -> %s", first, again)
		}
	}
	if n := reader.calls.Load(); n != 1 {
		t.Fatalf("ожидалось одно чтение, получено %d", n)
	}
}

func TestResolveSignPerspective(t *testing.T) {
	cases := []struct {
		sign int64
		self domain.PlayerIndex
		want domain.RoundOutcome
	}{
		{1, domain.Player0, domain.RoundSelfWin},
		{1, domain.Player1, domain.RoundRivalWin},
		{-3, domain.Player0, domain.RoundRivalWin},
		{-3, domain.Player1, domain.RoundSelfWin},
		{0, domain.Player0, domain.RoundDraw},
		{0, domain.Player1, domain.RoundDraw},
	}

	for _, tc := range cases {
		r := NewRoundResolver(&fakeWinnerReader{result: big.NewInt(tc.sign)})
		got, err := r.Resolve(context.Background(), snapshot(placed(0, 5, 6)), 0, tc.self)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got != tc.want {
			t.Fatalf("знак %d для %s: ожидалось %s, получено %s", tc.sign, tc.self, tc.want, got)
		}
	}
}

func TestResolveConcurrentCallsShareRead(t *testing.T) {
	reader := &fakeWinnerReader{result: big.NewInt(1), gate: make(chan struct{})}
	r := NewRoundResolver(reader)
	s := snapshot(placed(2, 7, 8))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), s, 2, domain.Player1); err != nil {
				t.Errorf("resolve: %v", err)
			}
		}()
	}

	// ждем пока первый вызов дойдет до чтения
	for reader.calls.Load() == 0 {
		runtime.Gosched()
	}
	close(reader.gate)
	wg.Wait()

	if n := reader.calls.Load(); n != 1 {
		t.Fatalf("ожидалось одно чтение, получено %d", n)
	}
}

func TestResolveErrorIsNotCached(t *testing.T) {
	reader := &fakeWinnerReader{err: errors.New("rpc down")}
	r := NewRoundResolver(reader)
	s := snapshot(placed(0, 5, 6))

	if _, err := r.Resolve(context.Background(), s, 0, domain.Player0); err == nil {
		t.Fatal("ожидалась ошибка")
	}

	reader.err = nil
	reader.result = big.NewInt(-1)
	got, err := r.Resolve(context.Background(), s, 0, domain.Player0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != domain.RoundRivalWin {
		t.Fatalf("ожидалось rival_win, получено %s", got)
	}
	if n := reader.calls.Load(); n != 2 {
		t.Fatalf("после ошибки чтение должно повториться, получено %d", n)
	}
}

func TestResolveRejectsInvalidRound(t *testing.T) {
	r := NewRoundResolver(&fakeWinnerReader{})
	if _, err := r.Resolve(context.Background(), snapshot(nil), 3, domain.Player0); !errors.Is(err, domain.ErrInvalidRound) {
		t.Fatalf("ожидалась ErrInvalidRound, получено %v", err)
	}
}

func TestForgetDropsOnlyThatGame(t *testing.T) {
	reader := &fakeWinnerReader{result: big.NewInt(1)}
	r := NewRoundResolver(reader)
	ctx := context.Background()

	seven := snapshot(placed(0, 10, 11))
	seventy := snapshot(placed(0, 10, 11))
	seventy.GameID = big.NewInt(70)

	for _, s := range []*domain.GameSnapshot{seven, seventy} {
		if _, err := r.Resolve(ctx, s, 0, domain.Player0); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	r.Forget(big.NewInt(7))

	for _, s := range []*domain.GameSnapshot{seven, seventy} {
		if _, err := r.Resolve(ctx, s, 0, domain.Player0); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	// повторно читается только забытая игра 7, ключ 70/... не задет
	if n := reader.calls.Load(); n != 3 {
		t.Fatalf("ожидалось три чтения, получено %d", n)
	}
}

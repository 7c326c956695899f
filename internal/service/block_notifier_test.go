package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

type fakeSub struct {
	errc chan error
}

func (s *fakeSub) Unsubscribe()      {}
func (s *fakeSub) Err() <-chan error { return s.errc }

type fakeHeads struct {
	ch  chan<- *types.Header
	sub *fakeSub
	err error
	got chan struct{}
}

func (f *fakeHeads) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	defer close(f.got)
	if f.err != nil {
		return nil, f.err
	}
	f.ch = ch
	return f.sub, nil
}

func TestWaitResolvesOnTrigger(t *testing.T) {
	n := NewBlockNotifier(time.Hour)
	start := n.Seq()

	done := make(chan uint64, 1)
	go func() {
		seq, err := n.Wait(context.Background(), start)
		if err != nil {
			t.Errorf("wait: %v", err)
		}
		done <- seq
	}()

	n.Trigger()

	select {
	case seq := <-done:
		if seq <= start {
			t.Fatalf("номер должен вырасти: %d -> %d", start, seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait не завершился после Trigger")
	}
}

func TestWaitReturnsImmediatelyWhenAlreadyChanged(t *testing.T) {
	n := NewBlockNotifier(time.Hour)
	n.Trigger()
	n.Trigger()

	seq, err := n.Wait(context.Background(), 0)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	// два изменения сливаются в одно наблюдение
	if seq != 2 {
		t.Fatalf("ожидался номер 2, получено %d", seq)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	n := NewBlockNotifier(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := n.Wait(ctx, n.Seq()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ожидалась DeadlineExceeded, получено %v", err)
	}
}

func TestRunFollowsNewHeads(t *testing.T) {
	n := NewBlockNotifier(time.Hour)
	heads := &fakeHeads{sub: &fakeSub{errc: make(chan error, 1)}, got: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx, heads)

	<-heads.got
	heads.ch <- &types.Header{Number: big.NewInt(500)}

	if _, err := n.Wait(ctx, 0); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if n.LastBlock() != 500 {
		t.Fatalf("ожидался блок 500, получено %d", n.LastBlock())
	}
}

func TestRunFallsBackToTickerWithoutSubscription(t *testing.T) {
	n := NewBlockNotifier(10 * time.Millisecond)
	heads := &fakeHeads{err: errors.New("http rpc: notifications not supported"), got: make(chan struct{})}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go n.Run(ctx, heads)

	if _, err := n.Wait(ctx, 0); err != nil {
		t.Fatalf("фоновый таймер должен обновлять маркер: %v", err)
	}
}

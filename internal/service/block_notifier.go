package service

import (
	"context"
	"sync"
	"time"

	"talecraft_client/internal/logger"
	"talecraft_client/internal/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// HeadSubscriber - источник новых блоков (chain.Client)
type HeadSubscriber interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// BlockNotifier - маркер "что-то изменилось, перечитай".
// Данных не несет, только монотонный номер последовательности.
// Несколько изменений подряд могут слиться в одно.
type BlockNotifier struct {
	mu        sync.Mutex
	seq       uint64
	lastBlock uint64
	changed   chan struct{} // закрывается при каждом изменении
	interval  time.Duration
}

// NewBlockNotifier создает notifier с периодом фонового обновления
func NewBlockNotifier(interval time.Duration) *BlockNotifier {
	return &BlockNotifier{
		changed:  make(chan struct{}),
		interval: interval,
	}
}

// Seq возвращает текущий номер последовательности
func (n *BlockNotifier) Seq() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seq
}

// LastBlock возвращает номер последнего увиденного блока
func (n *BlockNotifier) LastBlock() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastBlock
}

// Wait ждет, пока номер последовательности станет больше since.
// Возвращает новый номер или ошибку контекста.
func (n *BlockNotifier) Wait(ctx context.Context, since uint64) (uint64, error) {
	for {
		n.mu.Lock()
		seq, ch := n.seq, n.changed
		n.mu.Unlock()

		if seq > since {
			return seq, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Trigger сообщает об изменении без нового блока (после транзакции)
func (n *BlockNotifier) Trigger() {
	n.bump(0, "action")
}

func (n *BlockNotifier) bump(block uint64, source string) {
	n.mu.Lock()
	n.seq++
	if block > n.lastBlock {
		n.lastBlock = block
	}
	close(n.changed)
	n.changed = make(chan struct{})
	n.mu.Unlock()

	metrics.BlockChanges.WithLabelValues(source).Inc()
}

// Run подписывается на новые блоки и дополнительно обновляет маркер по таймеру.
// Если подписка обрывается, новые блоки перестают приходить, остается только таймер.
func (n *BlockNotifier) Run(ctx context.Context, heads HeadSubscriber) {
	log := logger.With("component", "block_notifier")

	var errc <-chan error
	headc := make(chan *types.Header, 16)

	if heads != nil {
		sub, err := heads.SubscribeNewHead(ctx, headc)
		if err != nil {
			log.Warn("block notifier: подписка на блоки недоступна", "error", err)
		} else {
			defer sub.Unsubscribe()
			errc = sub.Err()
		}
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Info("block notifier started", "interval", n.interval)

	for {
		select {
		case h := <-headc:
			var num uint64
			if h != nil && h.Number != nil {
				num = h.Number.Uint64()
			}
			n.bump(num, "head")
		case err := <-errc:
			log.Warn("block notifier: подписка оборвалась", "error", err)
			errc = nil
		case <-ticker.C:
			n.bump(0, "ambient")
		case <-ctx.Done():
			log.Info("block notifier stopped")
			return
		}
	}
}

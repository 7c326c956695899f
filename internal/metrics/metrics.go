package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// опросы состояния игры по лигам и результату (published, stale, failed)
	Polls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talecraft_game_polls_total",
		Help: "Game snapshot polls by league and result.",
	}, []string{"league", "result"})

	PollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "talecraft_game_poll_duration_seconds",
		Help:    "Duration of a full snapshot poll.",
		Buckets: prometheus.DefBuckets,
	}, []string{"league"})

	RoundReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talecraft_round_winner_reads_total",
		Help: "getRoundWinner calls that reached the ledger.",
	})

	BlockChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talecraft_block_changes_total",
		Help: "Block change marker bumps by source (head, ambient, action).",
	}, []string{"source"})

	Transactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talecraft_transactions_total",
		Help: "Submitted transactions by action and result.",
	}, []string{"action", "result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talecraft_notifications_total",
		Help: "Notifications by kind and delivery result.",
	}, []string{"kind", "result"})

	ChatReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talecraft_chat_reconnects_total",
		Help: "Realtime chat reconnect attempts.",
	})

	IndexerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talecraft_indexer_requests_total",
		Help: "Indexer GraphQL requests by operation and result.",
	}, []string{"operation", "result"})
)

package db

import (
	"context"
	"fmt"
	"time"

	"talecraft_client/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_history (
	id          BIGSERIAL PRIMARY KEY,
	league      TEXT        NOT NULL,
	game_id     TEXT        NOT NULL,
	player      TEXT        NOT NULL,
	rival       TEXT        NOT NULL DEFAULT '',
	winner      TEXT        NOT NULL DEFAULT '',
	outcome     TEXT        NOT NULL,
	aborted     BOOLEAN     NOT NULL DEFAULT FALSE,
	finished_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (league, game_id)
);
CREATE INDEX IF NOT EXISTS game_history_player_idx ON game_history (player, finished_at DESC);

CREATE TABLE IF NOT EXISTS tx_log (
	id         BIGSERIAL PRIMARY KEY,
	league     TEXT        NOT NULL,
	action     TEXT        NOT NULL,
	player     TEXT        NOT NULL,
	tx_hash    TEXT        NOT NULL DEFAULT '',
	block      BIGINT      NOT NULL DEFAULT 0,
	status     TEXT        NOT NULL,
	error      TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS tx_log_player_idx ON tx_log (player, created_at DESC);
`

// Connect открывает пул и создает схему, при ошибке возвращает ее вызывающему
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("database connected", "max_conns", cfg.MaxConns)
	return pool, nil
}

package repository

import (
	"context"

	"talecraft_client/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTxLogLimit = 100

// журнал отправленных транзакций кошелька
type TxLogRepository struct {
	db *pgxpool.Pool
}

func NewTxLogRepository(db *pgxpool.Pool) *TxLogRepository {
	return &TxLogRepository{db: db}
}

// Record добавляет запись в журнал
func (r *TxLogRepository) Record(ctx context.Context, e *domain.TxLogEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tx_log (league, action, player, tx_hash, block, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, string(e.League), e.Action, e.Player, e.TxHash, int64(e.Block), e.Status, e.Error)
	return err
}

// Recent возвращает последние транзакции игрока, новые первыми
func (r *TxLogRepository) Recent(ctx context.Context, player string, limit int) ([]*domain.TxLogEntry, error) {
	if limit <= 0 || limit > defaultTxLogLimit {
		limit = defaultTxLogLimit
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, league, action, player, tx_hash, block, status, error, created_at
		FROM tx_log
		WHERE LOWER(player) = LOWER($1)
		ORDER BY created_at DESC
		LIMIT $2
	`, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTxLog(rows)
}

func scanTxLog(rows pgx.Rows) ([]*domain.TxLogEntry, error) {
	var entries []*domain.TxLogEntry
	for rows.Next() {
		var e domain.TxLogEntry
		var league string
		var block int64
		if err := rows.Scan(&e.ID, &league, &e.Action, &e.Player, &e.TxHash, &block, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.League = domain.League(league)
		e.Block = uint64(block)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

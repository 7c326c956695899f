package repository

import (
	"context"
	"errors"

	"talecraft_client/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultHistoryLimit = 50

type GameHistoryRepository struct {
	db *pgxpool.Pool
}

func NewGameHistoryRepository(db *pgxpool.Pool) *GameHistoryRepository {
	return &GameHistoryRepository{db: db}
}

// SaveGame сохраняет завершенную игру, повторная запись той же игры игнорируется
func (r *GameHistoryRepository) SaveGame(ctx context.Context, rec *domain.GameRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO game_history (league, game_id, player, rival, winner, outcome, aborted, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (league, game_id) DO NOTHING
	`, string(rec.League), rec.GameID, rec.Player, rec.Rival, rec.Winner, string(rec.Outcome), rec.Aborted, rec.FinishedAt)
	return err
}

// получает запись по лиге и id игры
func (r *GameHistoryRepository) GetByGameID(ctx context.Context, league domain.League, gameID string) (*domain.GameRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, league, game_id, player, rival, winner, outcome, aborted, finished_at, created_at
		FROM game_history
		WHERE league = $1 AND game_id = $2
	`, string(league), gameID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// List возвращает последние игры игрока в лиге, новые первыми
func (r *GameHistoryRepository) List(ctx context.Context, league domain.League, player string, limit int) ([]*domain.GameRecord, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, league, game_id, player, rival, winner, outcome, aborted, finished_at, created_at
		FROM game_history
		WHERE league = $1 AND LOWER(player) = LOWER($2)
		ORDER BY finished_at DESC
		LIMIT $3
	`, string(league), player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.GameRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.GameRecord, error) {
	var rec domain.GameRecord
	var league, outcome string
	if err := row.Scan(
		&rec.ID, &league, &rec.GameID, &rec.Player, &rec.Rival, &rec.Winner,
		&outcome, &rec.Aborted, &rec.FinishedAt, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.League = domain.League(league)
	rec.Outcome = domain.GameOutcome(outcome)
	return &rec, nil
}

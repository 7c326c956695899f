package game

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// RoundWinnerReader читает знак победителя раунда из контракта
type RoundWinnerReader interface {
	RoundWinner(ctx context.Context, gameID *big.Int, round int) (*big.Int, error)
}

// RoundResolver определяет итоги раундов.
// Сыгранный раунд неизменен (карты нельзя забрать), поэтому результат
// запоминается по (игра, раунд, карта P0, карта P1) и повторно не читается.
type RoundResolver struct {
	reader RoundWinnerReader

	mu    sync.RWMutex
	cache map[string]int // знак с точки зрения P0

	group singleflight.Group
}

func NewRoundResolver(reader RoundWinnerReader) *RoundResolver {
	return &RoundResolver{
		reader: reader,
		cache:  make(map[string]int),
	}
}

func roundKey(s *domain.GameSnapshot, round int) string {
	return fmt.Sprintf("%s/%d/%s/%s",
		s.GameID, round, s.Players[0].PlacedCards[round], s.Players[1].PlacedCards[round])
}

// Resolve возвращает итог раунда для игрока self.
// Пока хотя бы один слот пуст, возвращает pending без чтения.
func (r *RoundResolver) Resolve(ctx context.Context, s *domain.GameSnapshot, round int, self domain.PlayerIndex) (domain.RoundOutcome, error) {
	if round < 0 || round >= domain.RoundCount {
		return "", fmt.Errorf("%w: %d", domain.ErrInvalidRound, round)
	}
	if s == nil || !s.Players[0].HasCard(round) || !s.Players[1].HasCard(round) {
		return domain.RoundPending, nil
	}

	key := roundKey(s, round)

	r.mu.RLock()
	sign, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return outcomeFor(sign, self), nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.RLock()
		cached, ok := r.cache[key]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		metrics.RoundReads.Inc()
		res, err := r.reader.RoundWinner(ctx, s.GameID, round)
		if err != nil {
			return 0, err
		}

		r.mu.Lock()
		r.cache[key] = res.Sign()
		r.mu.Unlock()
		return res.Sign(), nil
	})
	if err != nil {
		return "", fmt.Errorf("round %d: %w", round, err)
	}

	return outcomeFor(v.(int), self), nil
}

// ResolveAll определяет итоги всех трех раундов
func (r *RoundResolver) ResolveAll(ctx context.Context, s *domain.GameSnapshot, self domain.PlayerIndex) ([domain.RoundCount]domain.RoundOutcome, error) {
	var out [domain.RoundCount]domain.RoundOutcome
	for i := range out {
		o, err := r.Resolve(ctx, s, i, self)
		if err != nil {
			return out, err
		}
		out[i] = o
	}
	return out, nil
}

// Forget удаляет запомненные раунды игры (после ее завершения и выхода)
func (r *RoundResolver) Forget(gameID *big.Int) {
	prefix := gameID.String() + "/"

	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.cache {
		if strings.HasPrefix(k, prefix) {
			delete(r.cache, k)
		}
	}
}

// положительный знак - победа P0
func outcomeFor(sign int, self domain.PlayerIndex) domain.RoundOutcome {
	if sign == 0 {
		return domain.RoundDraw
	}
	if self == domain.Player1 {
		sign = -sign
	}
	if sign > 0 {
		return domain.RoundSelfWin
	}
	return domain.RoundRivalWin
}

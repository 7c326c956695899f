package game

import (
	"fmt"
	"time"

	"talecraft_client/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// ClassifyWinner определяет итог игры для локального игрока
func ClassifyWinner(winner, self common.Address) domain.GameOutcome {
	switch winner {
	case common.Address{}:
		return domain.OutcomeDraw
	case self:
		return domain.OutcomeWin
	}
	return domain.OutcomeLoss
}

// Diff сравнивает два соседних снапшота одной игры.
// Первый снапшот и смена игры переходов не дают.
func Diff(prev, cur *domain.GameSnapshot, self common.Address) []domain.Transition {
	if prev == nil || cur == nil || !prev.SameGame(cur) {
		return nil
	}

	var out []domain.Transition

	if !prev.Started && cur.Started {
		out = append(out, domain.Transition{
			Kind:   domain.TransitionGameStarted,
			GameID: cur.GameID,
		})
	}

	if prev.Turn != cur.Turn && cur.Active() {
		idx, ok := cur.IndexOf(self)
		out = append(out, domain.Transition{
			Kind:     domain.TransitionTurnChanged,
			GameID:   cur.GameID,
			Turn:     cur.Turn,
			YourTurn: ok && idx == cur.Turn,
		})
	}

	if !prev.Finished && cur.Finished {
		out = append(out, domain.Transition{
			Kind:    domain.TransitionGameFinished,
			GameID:  cur.GameID,
			Outcome: ClassifyWinner(cur.Winner, self),
		})
	}

	return out
}

var outcomeText = map[domain.GameOutcome]string{
	domain.OutcomeDraw: "draw",
	domain.OutcomeWin:  "you won",
	domain.OutcomeLoss: "you lost",
}

// NotificationsFor превращает переходы в уведомления для пользователя.
// Смена хода уведомляет только когда ход перешел к локальному игроку.
func NotificationsFor(league domain.League, transitions []domain.Transition, now time.Time) []domain.Notification {
	var out []domain.Notification
	for _, t := range transitions {
		n := domain.Notification{
			Title:     "TaleCraft",
			League:    league,
			CreatedAt: now,
		}
		switch t.Kind {
		case domain.TransitionGameStarted:
			n.Kind = domain.NotifyGameStarted
			n.Body = "A game has started"
		case domain.TransitionTurnChanged:
			if !t.YourTurn {
				continue
			}
			n.Kind = domain.NotifyYourTurn
			n.Body = "Your turn"
		case domain.TransitionGameFinished:
			n.Kind = domain.NotifyGameFinished
			n.Body = fmt.Sprintf("A game has finished, %s", outcomeText[t.Outcome])
		default:
			continue
		}
		out = append(out, n)
	}
	return out
}

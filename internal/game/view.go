package game

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"talecraft_client/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// меньше этого времени до дедлайна таймер подсвечивается
const HurryThreshold = 30 * time.Second

// RoundView - раунд так, как его видит локальный игрок
type RoundView struct {
	Round       int                 `json:"round"`
	SelfCard    string              `json:"self_card,omitempty"`
	RivalCard   string              `json:"rival_card,omitempty"`
	RivalHidden bool                `json:"rival_hidden"`
	SelfEffect  string              `json:"self_effect,omitempty"`
	RivalEffect string              `json:"rival_effect,omitempty"`
	Outcome     domain.RoundOutcome `json:"outcome"`
}

// Countdown - таймер до дедлайна в формате m:ss
type Countdown struct {
	Deadline time.Time `json:"deadline"`
	Text     string    `json:"text"`
	Hurry    bool      `json:"hurry"`
}

// GameView - производное состояние игры для UI
type GameView struct {
	League     domain.League     `json:"league"`
	GameID     string            `json:"game_id,omitempty"`
	Status     domain.GameStatus `json:"status"`
	Spectating bool              `json:"spectating"`

	SelfIndex domain.PlayerIndex `json:"self_index"`
	Self      string             `json:"self,omitempty"`
	Rival     string             `json:"rival,omitempty"`
	Turn      domain.PlayerIndex `json:"turn"`
	IsTurn    bool               `json:"is_turn"`
	Round     int                `json:"round"`
	Bank      string             `json:"bank,omitempty"`

	Rounds          [domain.RoundCount]RoundView `json:"rounds"`
	AvailablePowers []domain.PowerType           `json:"available_powers"`
	CanPlace        bool                         `json:"can_place"`

	Timer    *Countdown `json:"timer,omitempty"`
	CanAbort bool       `json:"can_abort"`
	CanLeave bool       `json:"can_leave"`
	LeaveAt  time.Time  `json:"leave_at,omitempty"`

	Winner  string             `json:"winner,omitempty"`
	Outcome domain.GameOutcome `json:"outcome,omitempty"`

	Inventory []domain.InventoryItem `json:"inventory,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ViewInput - все, что нужно для построения представления
type ViewInput struct {
	League       domain.League
	Snapshot     *domain.GameSnapshot
	Self         common.Address
	Outcomes     [domain.RoundCount]domain.RoundOutcome
	Inventory    []domain.InventoryItem
	AbortTimeout time.Duration
	LeaveTimeout time.Duration
	Now          time.Time
}

// Status выводит состояние игры из снапшота.
// Завершенная игра, в которой не все раунды сыграны, считается прерванной.
func Status(s *domain.GameSnapshot) domain.GameStatus {
	switch {
	case s == nil || s.GameID == nil || s.GameID.Sign() == 0:
		return domain.StatusNoGame
	case !s.Started:
		return domain.StatusWaiting
	case !s.Finished:
		return domain.StatusInProgress
	}
	for r := 0; r < domain.RoundCount; r++ {
		if !s.Players[0].HasCard(r) || !s.Players[1].HasCard(r) {
			return domain.StatusAborted
		}
	}
	return domain.StatusFinished
}

// BuildView строит представление игры для локального игрока.
// Если локальный игрок не участвует в игре, она показывается со стороны P0.
func BuildView(in ViewInput) GameView {
	v := GameView{
		League:          in.League,
		Status:          Status(in.Snapshot),
		UpdatedAt:       in.Now,
		AvailablePowers: []domain.PowerType{},
	}
	s := in.Snapshot
	if v.Status == domain.StatusNoGame {
		return v
	}

	selfIdx, ok := s.IndexOf(in.Self)
	if !ok {
		v.Spectating = true
		selfIdx = domain.Player0
	}
	self := s.Players[selfIdx]
	rival := s.Players[selfIdx.Other()]

	v.GameID = s.GameID.String()
	v.SelfIndex = selfIdx
	v.Self = addrString(self.Address)
	v.Rival = addrString(rival.Address)
	v.Turn = s.Turn
	v.Round = s.Round
	v.IsTurn = !v.Spectating && s.Active() && s.Turn == selfIdx
	if s.Bank != nil {
		v.Bank = s.Bank.String()
	}
	v.Inventory = in.Inventory

	for r := 0; r < domain.RoundCount; r++ {
		v.Rounds[r] = RoundView{
			Round:       r,
			SelfCard:    cardString(self.Card(r)),
			RivalCard:   cardString(rival.Card(r)),
			SelfEffect:  PowerEffect(self, rival, r),
			RivalEffect: PowerEffect(rival, self, r),
			Outcome:     in.Outcomes[r],
		}
		if v.Rounds[r].Outcome == "" {
			v.Rounds[r].Outcome = domain.RoundPending
		}
		if v.Rounds[r].RivalCard != "" && !RivalCardVisible(s, self, r) {
			v.Rounds[r].RivalCard = ""
			v.Rounds[r].RivalHidden = true
		}
	}

	switch v.Status {
	case domain.StatusWaiting:
		v.LeaveAt = s.LastAction.Add(in.LeaveTimeout)
		v.CanLeave = !v.Spectating && !in.Now.Before(v.LeaveAt)

	case domain.StatusInProgress:
		deadline := s.LastAction.Add(in.AbortTimeout)
		t := NewCountdown(deadline, in.Now)
		v.Timer = &t
		if !v.Spectating {
			// прервать может только тот, кто ждет хода соперника
			v.CanAbort = !v.IsTurn && !in.Now.Before(deadline)
			v.CanPlace = v.IsTurn && !self.HasCard(s.Round)
			v.AvailablePowers = AvailablePowers(s, selfIdx)
		}

	case domain.StatusFinished, domain.StatusAborted:
		v.Winner = addrString(s.Winner)
		if !v.Spectating {
			v.Outcome = ClassifyWinner(s.Winner, in.Self)
		}
	}

	return v
}

// RivalCardVisible: карта соперника видна после окончания раунда,
// по окончании игры или если в этом раунде применена сила воздуха
func RivalCardVisible(s *domain.GameSnapshot, self domain.PlayerState, round int) bool {
	if s.Finished || s.Round > round {
		return true
	}
	up := self.UsedPowers[round]
	return up.Used && up.PowerType == domain.PowerAir
}

// PowerEffect возвращает подпись к карте игрока owner в раунде.
// Вода соперника уменьшает вес карты owner, огонь и земля усиливают ее.
func PowerEffect(owner, opponent domain.PlayerState, round int) string {
	var labels []string

	if up := owner.UsedPowers[round]; up.Used {
		switch up.PowerType {
		case domain.PowerFire:
			labels = append(labels, fmt.Sprintf("%sx", bigString(up.Value)))
		case domain.PowerEarth:
			labels = append(labels, "+5")
		}
	}
	if up := opponent.UsedPowers[round]; up.Used && up.PowerType == domain.PowerWater {
		labels = append(labels, "-25%")
	}

	return strings.Join(labels, " ")
}

// AvailablePowers - силы, которые игрок может применить прямо сейчас:
// только в свой ход, не больше одной за раунд, каждая один раз за игру
func AvailablePowers(s *domain.GameSnapshot, idx domain.PlayerIndex) []domain.PowerType {
	out := []domain.PowerType{}
	if !s.Active() || s.Turn != idx || s.Round >= domain.RoundCount {
		return out
	}
	p := s.Players[idx]
	if p.UsedPowers[s.Round].Used {
		return out
	}
	for _, t := range domain.PowerTypes() {
		if !p.PowerUsed(t) {
			out = append(out, t)
		}
	}
	return out
}

// NewCountdown считает оставшееся время, после дедлайна показывает 0:00
func NewCountdown(deadline, now time.Time) Countdown {
	left := deadline.Sub(now)
	return Countdown{
		Deadline: deadline,
		Text:     FormatCountdown(left),
		Hurry:    left < HurryThreshold,
	}
}

// FormatCountdown форматирует длительность как m:ss
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FilterInventory убирает базовые элементы и фильтрует по имени без учета регистра
func FilterInventory(items []domain.InventoryItem, q string) []domain.InventoryItem {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		if !it.Playable() {
			continue
		}
		if q != "" && (it.Resource == nil || !strings.Contains(strings.ToLower(it.Resource.Name), q)) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func addrString(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

func cardString(c *big.Int) string {
	if c == nil {
		return ""
	}
	return c.String()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

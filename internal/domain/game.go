package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// количество раундов в одной игре
const RoundCount = 3

// количество слотов под карты у игрока (последний слот контрактом не используется)
const CardSlots = 4

var (
	ErrUnknownLeague    = errors.New("неизвестная лига")
	ErrUnknownPower     = errors.New("неизвестный тип силы")
	ErrInvalidPlayerIdx = errors.New("неверный индекс игрока")
	ErrInvalidRound     = errors.New("неверный номер раунда")
)

// Лига - отдельный игровой контракт со своими ценами и ограничениями по весу
type League string

const (
	LeagueJunior League = "junior"
	LeagueSenior League = "senior"
	LeagueMaster League = "master"
)

// Leagues возвращает все лиги в порядке их номеров в контракте
func Leagues() []League {
	return []League{LeagueJunior, LeagueSenior, LeagueMaster}
}

// ParseLeague разбирает название лиги, неизвестные значения отклоняются
func ParseLeague(s string) (League, error) {
	switch l := League(strings.ToLower(strings.TrimSpace(s))); l {
	case LeagueJunior, LeagueSenior, LeagueMaster:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLeague, s)
}

// Index возвращает номер лиги, который использует индексатор
func (l League) Index() int {
	switch l {
	case LeagueSenior:
		return 1
	case LeagueMaster:
		return 2
	}
	return 0
}

// PlayerIndex - позиция игрока в контракте (0 или 1)
type PlayerIndex uint8

const (
	Player0 PlayerIndex = 0
	Player1 PlayerIndex = 1
)

// ParsePlayerIndex проверяет значение turn из контракта
func ParsePlayerIndex(v *big.Int) (PlayerIndex, error) {
	if v == nil || !v.IsUint64() || v.Uint64() > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPlayerIdx, v)
	}
	return PlayerIndex(v.Uint64()), nil
}

// Other возвращает индекс соперника
func (p PlayerIndex) Other() PlayerIndex {
	return 1 - p
}

func (p PlayerIndex) String() string {
	return "P" + strconv.Itoa(int(p))
}

// PowerType - одноразовая сила, которую игрок может применить в свой ход
type PowerType uint8

const (
	PowerWater PowerType = 0 // -25% к весу карты соперника в текущем раунде
	PowerFire  PowerType = 1 // умножает вес следующей карты на случайный множитель
	PowerAir   PowerType = 2 // позволяет увидеть карту соперника
	PowerEarth PowerType = 3 // +5 к весу следующей карты
)

var powerNames = map[PowerType]string{
	PowerWater: "water",
	PowerFire:  "fire",
	PowerAir:   "air",
	PowerEarth: "earth",
}

// PowerTypes возвращает все силы в порядке их кодов
func PowerTypes() []PowerType {
	return []PowerType{PowerWater, PowerFire, PowerAir, PowerEarth}
}

// ParsePowerType принимает как числовой код, так и название силы
func ParsePowerType(s string) (PowerType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range powerNames {
		if s == name || s == strconv.Itoa(int(p)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPower, s)
}

// PowerTypeFromCode проверяет код силы, пришедший из контракта
func PowerTypeFromCode(code uint8) (PowerType, error) {
	p := PowerType(code)
	if _, ok := powerNames[p]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPower, code)
	}
	return p, nil
}

func (p PowerType) String() string {
	if name, ok := powerNames[p]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(p)) + ")"
}

func (p PowerType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PowerType) UnmarshalText(b []byte) error {
	v, err := ParsePowerType(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// UsedPower - запись о силе, привязанная к раунду
type UsedPower struct {
	Used      bool      `json:"used"`
	PowerType PowerType `json:"power_type"`
	Value     *big.Int  `json:"value"`
}

// PlayerState - состояние одного игрока внутри снапшота
type PlayerState struct {
	Address     common.Address       `json:"address"`
	PlacedCards [CardSlots]*big.Int  `json:"placed_cards"`
	UsedPowers  [CardSlots]UsedPower `json:"used_powers"`
	Lent        [CardSlots]bool      `json:"lent"`
}

// HasCard сообщает, положена ли карта в слот раунда
func (p PlayerState) HasCard(round int) bool {
	if round < 0 || round >= CardSlots {
		return false
	}
	c := p.PlacedCards[round]
	return c != nil && c.Sign() != 0
}

// Card возвращает id карты в слоте или nil для пустого слота
func (p PlayerState) Card(round int) *big.Int {
	if !p.HasCard(round) {
		return nil
	}
	return p.PlacedCards[round]
}

// PowerUsed сообщает, применялась ли сила данного типа за игру
func (p PlayerState) PowerUsed(t PowerType) bool {
	for _, up := range p.UsedPowers {
		if up.Used && up.PowerType == t {
			return true
		}
	}
	return false
}

// GameSnapshot - неизменяемый результат одного опроса состояния игры.
// Каждый опрос создает новый снапшот, существующие никогда не изменяются.
type GameSnapshot struct {
	GameID     *big.Int       `json:"game_id"`
	Players    [2]PlayerState `json:"players"`
	Started    bool           `json:"started"`
	Finished   bool           `json:"finished"`
	Turn       PlayerIndex    `json:"turn"`
	Winner     common.Address `json:"winner"`
	Round      int            `json:"round"`
	LastAction time.Time      `json:"last_action"`
	Bank       *big.Int       `json:"bank,omitempty"`
}

// SameGame сообщает, относятся ли два снапшота к одной игре
func (s *GameSnapshot) SameGame(o *GameSnapshot) bool {
	if s == nil || o == nil || s.GameID == nil || o.GameID == nil {
		return false
	}
	return s.GameID.Cmp(o.GameID) == 0
}

// IndexOf возвращает позицию адреса в игре
func (s *GameSnapshot) IndexOf(addr common.Address) (PlayerIndex, bool) {
	for i, p := range s.Players {
		if p.Address == addr {
			return PlayerIndex(i), true
		}
	}
	return 0, false
}

// Active - ход имеет смысл только в начатой и незавершенной игре
func (s *GameSnapshot) Active() bool {
	return s.Started && !s.Finished
}

// RoundOutcome - итог раунда с точки зрения локального игрока
type RoundOutcome string

const (
	RoundPending  RoundOutcome = "pending"
	RoundSelfWin  RoundOutcome = "self_win"
	RoundRivalWin RoundOutcome = "rival_win"
	RoundDraw     RoundOutcome = "draw"
)

// GameOutcome - итог завершенной игры для локального игрока
type GameOutcome string

const (
	OutcomeWin  GameOutcome = "win"
	OutcomeLoss GameOutcome = "loss"
	OutcomeDraw GameOutcome = "draw"
)

// GameStatus - производное состояние игры, клиент его только наблюдает
type GameStatus string

const (
	StatusNoGame     GameStatus = "no_game"
	StatusWaiting    GameStatus = "waiting_for_opponent"
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
	StatusAborted    GameStatus = "aborted"
)

// TransitionKind - тип перехода между соседними снапшотами
type TransitionKind string

const (
	TransitionGameStarted  TransitionKind = "game_started"
	TransitionTurnChanged  TransitionKind = "turn_changed"
	TransitionGameFinished TransitionKind = "game_finished"
)

// Transition - обнаруженное изменение состояния игры
type Transition struct {
	Kind     TransitionKind `json:"kind"`
	GameID   *big.Int       `json:"game_id"`
	Turn     PlayerIndex    `json:"turn,omitempty"`
	YourTurn bool           `json:"your_turn,omitempty"`
	Outcome  GameOutcome    `json:"outcome,omitempty"`
}

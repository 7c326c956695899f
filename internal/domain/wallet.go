package domain

import "time"

// Состояние подключения кошелька (один на процесс)
type WalletState struct {
	Address   string `json:"address,omitempty"`
	Connected bool   `json:"connected"`
	ChainID   int64  `json:"chain_id"`
	LastBlock uint64 `json:"last_block"`
}

// Запись о завершенной игре локального игрока
type GameRecord struct {
	ID         int64       `db:"id" json:"id"`
	League     League      `db:"league" json:"league"`
	GameID     string      `db:"game_id" json:"game_id"`
	Player     string      `db:"player" json:"player"`
	Rival      string      `db:"rival" json:"rival"`
	Winner     string      `db:"winner" json:"winner"`
	Outcome    GameOutcome `db:"outcome" json:"outcome"`
	Aborted    bool        `db:"aborted" json:"aborted"`
	FinishedAt time.Time   `db:"finished_at" json:"finished_at"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// Результат отправленной транзакции
type TxResult struct {
	Action string `json:"action"`
	TxHash string `json:"tx_hash"`
	Block  uint64 `json:"block"`
}

// Запись журнала транзакций кошелька
type TxLogEntry struct {
	ID        int64     `db:"id" json:"id"`
	League    League    `db:"league" json:"league"`
	Action    string    `db:"action" json:"action"`
	Player    string    `db:"player" json:"player"`
	TxHash    string    `db:"tx_hash" json:"tx_hash,omitempty"`
	Block     uint64    `db:"block" json:"block,omitempty"`
	Status    string    `db:"status" json:"status"`
	Error     string    `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	TxStatusOK     = "ok"
	TxStatusFailed = "failed"
)

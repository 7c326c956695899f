package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"talecraft_client/internal/chain"
	"talecraft_client/internal/domain"
	"talecraft_client/internal/logger"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

var ErrInvalidAddress = errors.New("неверный адрес контракта")

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	// пустая строка разрешает любой Origin для /ws
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`

	Network    string `env:"NETWORK" envDefault:"mainnet"`
	RPCURL     string `env:"RPC_URL"`
	PrivateKey string `env:"WALLET_PRIVATE_KEY"`

	// адреса игровых контрактов по лигам
	GameJunior      string `env:"GAME_JUNIOR_ADDRESS"`
	GameSenior      string `env:"GAME_SENIOR_ADDRESS"`
	GameMaster      string `env:"GAME_MASTER_ADDRESS"`
	PhiAddress      string `env:"PHI_ADDRESS"`
	ResourceAddress string `env:"RESOURCE_ADDRESS"`

	IndexerURL string `env:"INDEXER_URL" envDefault:"https://api.talecraft.io/graphql"`
	ChatURL    string `env:"CHAT_URL" envDefault:"wss://api.talecraft.io/ws/chat/"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// пустая строка отключает историю игр
	DatabaseURL string `env:"DATABASE_URL"`

	BotToken     string `env:"BOT_TOKEN"`
	NotifyChatID int64  `env:"NOTIFY_CHAT_ID"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"LOG_FORMAT" envDefault:"text"`
}

// Load читает .env и окружение, при ошибке завершает процесс
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug(".env not loaded", "error", err)
	}

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	return cfg
}

// Parse разбирает только переменные окружения
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = chain.AmbientRefreshInterval
	}
	return cfg, nil
}

// ChainNetwork возвращает сеть, testnet включается явно
func (c *Config) ChainNetwork() chain.Network {
	if strings.EqualFold(c.Network, string(chain.NetworkTestnet)) {
		return chain.NetworkTestnet
	}
	return chain.NetworkMainnet
}

// JSONLogs сообщает, нужен ли JSON формат логов
func (c *Config) JSONLogs() bool {
	return strings.EqualFold(c.LogFormat, "json")
}

// GameAddress возвращает адрес игрового контракта лиги
func (c *Config) GameAddress(l domain.League) (common.Address, error) {
	var raw string
	switch l {
	case domain.LeagueJunior:
		raw = c.GameJunior
	case domain.LeagueSenior:
		raw = c.GameSenior
	case domain.LeagueMaster:
		raw = c.GameMaster
	default:
		return common.Address{}, fmt.Errorf("%w: %q", domain.ErrUnknownLeague, l)
	}
	return parseAddress(string(l), raw)
}

func (c *Config) Phi() (common.Address, error) {
	return parseAddress("phi", c.PhiAddress)
}

func (c *Config) Resource() (common.Address, error) {
	return parseAddress("resource", c.ResourceAddress)
}

func parseAddress(name, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %s=%q", ErrInvalidAddress, name, raw)
	}
	return common.HexToAddress(raw), nil
}

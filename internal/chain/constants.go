package chain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// через сколько после последнего действия можно прервать зависшую игру,
	// если контракт не ответил на abortTimeout()
	DefaultAbortTimeout = 5 * time.Minute

	// через сколько после входа можно покинуть игру без соперника
	LeaveTimeout = 7 * time.Minute

	// принудительное обновление состояния, даже если новых блоков нет
	AmbientRefreshInterval = 10 * time.Second

	// сколько ждать включения транзакции в блок
	TxMineTimeout = 2 * time.Minute
)

// представляет сеть Avalanche C-Chain
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

const (
	ChainIDMainnet int64 = 43114
	ChainIDTestnet int64 = 43113
)

// конечные точки RPC по умолчанию
const (
	DefaultRPCMainnet = "wss://api.avax.network/ext/bc/C/ws"
	DefaultRPCTestnet = "wss://api.avax-test.network/ext/bc/C/ws"

	BlockExplorerMainnet = "https://snowtrace.io"
	BlockExplorerTestnet = "https://testnet.snowtrace.io"
)

// ZeroAddress - победитель при ничьей
var ZeroAddress = common.Address{}

// MaxUint256 - бесконечный allowance при approve
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ChainID возвращает id сети
func (n Network) ChainID() int64 {
	if n == NetworkTestnet {
		return ChainIDTestnet
	}
	return ChainIDMainnet
}

// DefaultRPC возвращает websocket RPC сети
func (n Network) DefaultRPC() string {
	if n == NetworkTestnet {
		return DefaultRPCTestnet
	}
	return DefaultRPCMainnet
}

// TxURL возвращает ссылку на транзакцию в обозревателе
func (n Network) TxURL(hash string) string {
	base := BlockExplorerMainnet
	if n == NetworkTestnet {
		base = BlockExplorerTestnet
	}
	return base + "/tx/" + hash
}

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrWrongChain = errors.New("неверная сеть")

// клиент RPC блокчейна
type Client struct {
	eth     *ethclient.Client
	network Network
	chainID *big.Int
}

// Dial подключается к RPC и проверяет, что это нужная сеть
func Dial(ctx context.Context, rawURL string, network Network) (*Client, error) {
	if rawURL == "" {
		rawURL = network.DefaultRPC()
	}

	eth, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	if chainID.Int64() != network.ChainID() {
		eth.Close()
		return nil, fmt.Errorf("%w: ожидалась %d, получена %s", ErrWrongChain, network.ChainID(), chainID)
	}

	return &Client{
		eth:     eth,
		network: network,
		chainID: chainID,
	}, nil
}

// Backend возвращает клиент для привязки контрактов
func (c *Client) Backend() *ethclient.Client {
	return c.eth
}

func (c *Client) Network() Network {
	return c.network
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// BlockNumber возвращает номер последнего блока
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// SubscribeNewHead подписывается на новые блоки (только для websocket RPC)
func (c *Client) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	return c.eth.SubscribeNewHead(ctx, ch)
}

func (c *Client) Close() {
	c.eth.Close()
}

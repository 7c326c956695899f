package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"talecraft_client/internal/logger"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrTxRejected = errors.New("транзакция отклонена")
	ErrTxReverted = errors.New("транзакция откатилась")
)

// SubmitFunc отправляет одну транзакцию с подготовленными опциями
type SubmitFunc func(opts *bind.TransactOpts) (*types.Transaction, error)

// Wallet представляет подписывающий кошелек игрока
type Wallet struct {
	client  *Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int

	// транзакции уходят по одной, чтобы не конфликтовать по nonce
	mu sync.Mutex
}

// NewWallet создает кошелек из приватного ключа в hex
func NewWallet(client *Client, privateKeyHex string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Wallet{
		client:  client,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: client.ChainID(),
	}, nil
}

// Address возвращает адрес кошелька
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignMessage подписывает текст как personal_sign (EIP-191)
func (w *Wallet) SignMessage(message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// Send отправляет транзакцию и ждет ее включения в блок.
// Ошибка оценки газа или отказ узла возвращаются как ErrTxRejected,
// неуспешный receipt - как ErrTxReverted.
func (w *Wallet) Send(ctx context.Context, action string, submit SubmitFunc) (*types.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := logger.With("component", "wallet", "action", action)

	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := submit(opts)
	if err != nil {
		log.Warn("transaction rejected", "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrTxRejected, action, err)
	}

	log.Info("transaction submitted", "hash", tx.Hash().Hex())

	waitCtx, cancel := context.WithTimeout(ctx, TxMineTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, w.client.Backend(), tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %s: %w", action, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		log.Warn("transaction reverted", "hash", tx.Hash().Hex(), "block", receipt.BlockNumber)
		return receipt, fmt.Errorf("%w: %s (%s)", ErrTxReverted, action, tx.Hash().Hex())
	}

	log.Info("transaction mined", "hash", tx.Hash().Hex(), "block", receipt.BlockNumber)
	return receipt, nil
}

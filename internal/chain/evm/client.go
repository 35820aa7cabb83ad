package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"blueprint-runner/internal/keystore"
	"blueprint-runner/pkg/logger"
)

// Backend is the node API RPCClient needs. *ethclient.Client and the
// simulated backend client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// RPCClient signs transactions with the operator's ECDSA key and submits
// them to a node.
type RPCClient struct {
	backend Backend
	signer  keystore.ECDSASigner
	log     *zap.SugaredLogger
	close   func()

	// serialises nonce selection
	mu sync.Mutex
}

// Dial connects to endpoint over HTTP or websocket.
func Dial(ctx context.Context, endpoint string, signer keystore.ECDSASigner, log *zap.SugaredLogger) (*RPCClient, error) {
	eth, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	c := NewRPCClient(eth, signer, log)
	c.close = eth.Close
	return c, nil
}

func NewRPCClient(backend Backend, signer keystore.ECDSASigner, log *zap.SugaredLogger) *RPCClient {
	return &RPCClient{
		backend: backend,
		signer:  signer,
		log:     logger.OrNop(log).With("component", "evm_client", "from", signer.Address().Hex()),
	}
}

func (c *RPCClient) Close() {
	if c.close != nil {
		c.close()
	}
}

func (c *RPCClient) From() common.Address {
	return c.signer.Address()
}

func (c *RPCClient) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.backend.CallContract(ctx, ethereum.CallMsg{From: c.From(), To: &to, Data: data}, nil)
}

func (c *RPCClient) Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	signed, err := c.send(ctx, to, data)
	if err != nil {
		return nil, err
	}

	c.log.Debugw("transaction sent, waiting to be mined", "tx", signed.Hash().Hex(), "to", to.Hex())
	receipt, err := bind.WaitMined(ctx, c.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", signed.Hash().Hex(), err)
	}
	c.log.Infow("transaction mined",
		"tx", signed.Hash().Hex(),
		"block", receipt.BlockNumber,
		"status", receipt.Status,
		"gas_used", receipt.GasUsed,
	)
	return receipt, nil
}

func (c *RPCClient) send(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.From()
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gas + gas/5,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := c.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	return signed, nil
}

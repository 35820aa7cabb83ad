// Package evm talks to EVM contracts for the registration adapters: ABI
// packing, read calls and signed, mined transactions.
package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Client executes raw contract calls on behalf of one operator account.
type Client interface {
	// From is the account transactions are sent from.
	From() common.Address
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	// Transact sends a signed transaction and waits until it is mined. A
	// reverted transaction is returned with its receipt and no error.
	Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
}

// ReceiptError reports a transaction that was mined but reverted.
type ReceiptError struct {
	Method string
	TxHash common.Hash
	Status uint64
}

func (e *ReceiptError) Error() string {
	return fmt.Sprintf("transaction %s (%s) failed with status %d", e.TxHash.Hex(), e.Method, e.Status)
}

// Contract binds an ABI to a deployed address.
type Contract struct {
	Address common.Address
	abi     abi.ABI
	client  Client
}

func NewContract(address common.Address, contractABI abi.ABI, client Client) *Contract {
	return &Contract{Address: address, abi: contractABI, client: client}
}

// Call runs a read-only method and returns its unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.client.Call(ctx, c.Address, data)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, c.Address.Hex(), err)
	}
	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// Transact sends method with args and returns the receipt of the mined
// transaction. A reverted transaction yields a *ReceiptError.
func (c *Contract) Transact(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	receipt, err := c.client.Transact(ctx, c.Address, data)
	if err != nil {
		return nil, fmt.Errorf("transact %s on %s: %w", method, c.Address.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &ReceiptError{Method: method, TxHash: receipt.TxHash, Status: receipt.Status}
	}
	return receipt, nil
}

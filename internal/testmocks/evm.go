package testmocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"blueprint-runner/internal/keystore"
)

// --- Fake EVM ---
// Decodes calldata against the registered ABIs and answers reads from
// per-method handlers. Transactions are recorded and succeed unless the
// method is listed in Reverts.

type ReadFunc func(args []interface{}) ([]interface{}, error)

type SentTx struct {
	To     common.Address
	Method string
	Args   []interface{}
}

type FakeEVM struct {
	mu      sync.Mutex
	Account common.Address
	abis    map[common.Address]abi.ABI
	Reads   map[string]ReadFunc
	Reverts map[string]bool
	SendErr error

	CallLog []string
	Sent    []SentTx
}

func NewFakeEVM(account common.Address) *FakeEVM {
	return &FakeEVM{
		Account: account,
		abis:    make(map[common.Address]abi.ABI),
		Reads:   make(map[string]ReadFunc),
		Reverts: make(map[string]bool),
	}
}

// Deploy makes address answer calls according to contractABI.
func (f *FakeEVM) Deploy(address common.Address, contractABI abi.ABI) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abis[address] = contractABI
}

// Returns sets a fixed result for a read method.
func (f *FakeEVM) Returns(method string, outs ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads[method] = func([]interface{}) ([]interface{}, error) { return outs, nil }
}

func (f *FakeEVM) From() common.Address {
	return f.Account
}

func (f *FakeEVM) Call(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	method, args, err := f.decode(to, data)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.CallLog = append(f.CallLog, "call:"+method.Name)
	read, ok := f.Reads[method.Name]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no read handler for %s", method.Name)
	}

	outs, err := read(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(outs...)
}

func (f *FakeEVM) Transact(_ context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	method, args, err := f.decode(to, data)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.CallLog = append(f.CallLog, "tx:"+method.Name)
	if f.SendErr != nil {
		return nil, f.SendErr
	}
	f.Sent = append(f.Sent, SentTx{To: to, Method: method.Name, Args: args})

	status := types.ReceiptStatusSuccessful
	if f.Reverts[method.Name] {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, TxHash: crypto.Keccak256Hash(data)}, nil
}

// Log returns the calls seen so far, in order.
func (f *FakeEVM) Log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.CallLog))
	copy(out, f.CallLog)
	return out
}

func (f *FakeEVM) decode(to common.Address, data []byte) (*abi.Method, []interface{}, error) {
	f.mu.Lock()
	contractABI, ok := f.abis[to]
	f.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("no contract at %s", to.Hex())
	}
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("calldata too short")
	}
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

// --- Fake BLS ---
// Returns Signature for every message and remembers what it signed.
type FakeBLS struct {
	mu        sync.Mutex
	G1        keystore.G1Point
	G2        keystore.G2Point
	Signature keystore.G1Point
	Signed    []keystore.G1Point
}

func (b *FakeBLS) PublicKeyG1() keystore.G1Point { return b.G1 }
func (b *FakeBLS) PublicKeyG2() keystore.G2Point { return b.G2 }

func (b *FakeBLS) SignHashedToCurveMessage(msg keystore.G1Point) (keystore.G1Point, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Signed = append(b.Signed, msg)
	return b.Signature, nil
}

// --- Fake sr25519 account ---
type FakeAccount [32]byte

func (a FakeAccount) AccountID() [32]byte { return a }

package keystore

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ECDSAKeyFile is the file Open reads from a keystore directory: the hex
// encoded secp256k1 secret.
const ECDSAKeyFile = "ecdsa.key"

// MemoryURI selects an empty in-memory keystore in Open.
const MemoryURI = "memory"

// Memory keeps keys in process memory.
type Memory struct {
	mu      sync.RWMutex
	ecdsa   *ecdsaSigner
	bls     BLSSigner
	sr25519 SubstrateSigner
}

func NewMemory() *Memory {
	return &Memory{}
}

// Open returns a keystore for uri. "memory" (or an empty uri) yields an empty
// in-memory keystore; otherwise uri is a directory and its ECDSA key file is
// loaded when present.
func Open(uri string) (*Memory, error) {
	m := NewMemory()
	if uri == "" || uri == MemoryURI {
		return m, nil
	}

	raw, err := os.ReadFile(filepath.Join(uri, ECDSAKeyFile))
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore %s: %w", uri, err)
	}
	if err := m.ImportECDSAHex(string(raw)); err != nil {
		return nil, fmt.Errorf("keystore %s: %w", uri, err)
	}
	return m, nil
}

// ImportECDSAHex loads a hex encoded secp256k1 secret, with or without 0x.
func (m *Memory) ImportECDSAHex(secret string) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(secret), "0x"))
	if err != nil {
		return fmt.Errorf("invalid ECDSA secret: %w", err)
	}
	m.SetECDSA(key)
	return nil
}

// GenerateECDSA creates a fresh secp256k1 key and stores it.
func (m *Memory) GenerateECDSA() (ECDSASigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	m.SetECDSA(key)
	return m.ECDSA()
}

func (m *Memory) SetECDSA(key *ecdsa.PrivateKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ecdsa = &ecdsaSigner{key: key}
}

func (m *Memory) SetBLS(s BLSSigner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bls = s
}

func (m *Memory) SetSr25519(s SubstrateSigner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sr25519 = s
}

func (m *Memory) ECDSA() (ECDSASigner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ecdsa == nil {
		return nil, ErrNoECDSAKey
	}
	return m.ecdsa, nil
}

func (m *Memory) BLS() (BLSSigner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.bls == nil {
		return nil, ErrNoBLSKey
	}
	return m.bls, nil
}

func (m *Memory) Sr25519() (SubstrateSigner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sr25519 == nil {
		return nil, ErrNoSr25519Key
	}
	return m.sr25519, nil
}

type ecdsaSigner struct {
	key *ecdsa.PrivateKey
}

func (s *ecdsaSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *ecdsaSigner) CompressedPublicKey() []byte {
	return crypto.CompressPubkey(&s.key.PublicKey)
}

func (s *ecdsaSigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

func (s *ecdsaSigner) SignDigest(digest common.Hash) ([]byte, error) {
	return crypto.Sign(digest.Bytes(), s.key)
}

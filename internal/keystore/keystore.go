// Package keystore defines the signing operations the runner needs from an
// operator's key material. Key storage backends live outside this module;
// Memory is an in-process implementation for local runs and tests.
package keystore

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrNoECDSAKey   = errors.New("no ECDSA key in keystore")
	ErrNoBLSKey     = errors.New("no BLS BN254 key in keystore")
	ErrNoSr25519Key = errors.New("no sr25519 key in keystore")
)

// ECDSASigner signs on behalf of the operator's EVM account.
type ECDSASigner interface {
	Address() common.Address
	// CompressedPublicKey is the 33 byte SEC1 compressed public key.
	CompressedPublicKey() []byte
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	// SignDigest returns a 65 byte [R || S || V] signature with V in {0, 1}.
	SignDigest(digest common.Hash) ([]byte, error)
}

// G1Point is a BN254 G1 point in affine coordinates.
type G1Point struct {
	X *big.Int
	Y *big.Int
}

// G2Point is a BN254 G2 point; each coordinate is an Fp2 element [A1, A0].
type G2Point struct {
	X [2]*big.Int
	Y [2]*big.Int
}

// BLSSigner exposes the operator's BN254 BLS key.
type BLSSigner interface {
	PublicKeyG1() G1Point
	PublicKeyG2() G2Point
	// SignHashedToCurveMessage signs a message already hashed onto G1.
	SignHashedToCurveMessage(msg G1Point) (G1Point, error)
}

// SubstrateSigner is the operator's sr25519 account on a substrate chain.
// Extrinsic signing is done by the chain client holding this signer.
type SubstrateSigner interface {
	AccountID() [32]byte
}

// Keystore hands out the operator's signers.
type Keystore interface {
	ECDSA() (ECDSASigner, error)
	BLS() (BLSSigner, error)
	Sr25519() (SubstrateSigner, error)
}

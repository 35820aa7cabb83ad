// Package substrate describes the chain queries and extrinsics the tangle
// registration adapter needs, and encodes its calls with SCALE.
package substrate

import (
	"context"
	"errors"
	"math/big"

	"github.com/ChainSafe/gossamer/lib/common"
)

var ErrNoClient = errors.New("no substrate client configured")

// AccountID is a 32 byte sr25519 account.
type AccountID [32]byte

// OperatorProfile is the services pallet record of an operator.
type OperatorProfile struct {
	Services   []uint64
	Blueprints []uint64
}

// HasBlueprint reports whether the operator is registered for id.
func (p *OperatorProfile) HasBlueprint(id uint64) bool {
	if p == nil {
		return false
	}
	for _, b := range p.Blueprints {
		if b == id {
			return true
		}
	}
	return false
}

// OperatorStatus is the delegation pallet status of an operator.
type OperatorStatus uint8

const (
	OperatorActive OperatorStatus = iota
	OperatorInactive
	OperatorLeaving
)

func (s OperatorStatus) String() string {
	switch s {
	case OperatorActive:
		return "active"
	case OperatorInactive:
		return "inactive"
	case OperatorLeaving:
		return "leaving"
	default:
		return "unknown"
	}
}

// DelegationOperator is the delegation pallet record of an operator.
type DelegationOperator struct {
	Stake  *big.Int
	Status OperatorStatus
}

// Client reads pallet storage and submits extrinsics signed by the
// operator's sr25519 account.
type Client interface {
	// OperatorProfile returns nil and no error when the account has no profile.
	OperatorProfile(ctx context.Context, account AccountID) (*OperatorProfile, error)
	// DelegationOperator returns nil and no error when the account is not an operator.
	DelegationOperator(ctx context.Context, account AccountID) (*DelegationOperator, error)
	// SubmitAndWatch submits an encoded call and returns its extrinsic hash
	// once the including block is finalised.
	SubmitAndWatch(ctx context.Context, call []byte) (common.Hash, error)
}

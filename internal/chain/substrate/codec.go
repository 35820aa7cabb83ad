package substrate

import (
	"fmt"
	"math/big"

	"github.com/ChainSafe/gossamer/pkg/scale"
)

// CallIndex locates a dispatchable: the pallet index in the runtime and the
// call index within the pallet.
type CallIndex struct {
	Pallet uint8
	Call   uint8
}

// ServicesRegister is services.register on the tangle testnet runtime.
var ServicesRegister = CallIndex{Pallet: 51, Call: 2}

// PriceTargets are the operator's advertised resource prices.
type PriceTargets struct {
	CPU         uint64
	Mem         uint64
	StorageHDD  uint64
	StorageSSD  uint64
	StorageNVMe uint64
}

// OperatorPreferences carries the operator's compressed ECDSA key and prices.
type OperatorPreferences struct {
	Key          [33]byte
	PriceTargets PriceTargets
}

// RegisterCall registers the operator for a blueprint.
type RegisterCall struct {
	BlueprintID uint64
	Preferences OperatorPreferences
	// RegistrationArgs is the complete SCALE encoding of the blueprint's
	// registration arguments, length prefix included. It is copied into the
	// call as is; nil encodes as an empty list.
	RegistrationArgs []byte
	Value            *big.Int
}

type registerHead struct {
	BlueprintID uint64
	Preferences OperatorPreferences
}

type registerTail struct {
	Value *scale.Uint128
}

// EncodeCall prefixes the SCALE encoding of c with its call index.
func EncodeCall(idx CallIndex, c RegisterCall) ([]byte, error) {
	value := c.Value
	if value == nil {
		value = new(big.Int)
	}
	u128, err := scale.NewUint128(value)
	if err != nil {
		return nil, fmt.Errorf("register value: %w", err)
	}

	head, err := scale.Marshal(registerHead{BlueprintID: c.BlueprintID, Preferences: c.Preferences})
	if err != nil {
		return nil, fmt.Errorf("encode register call: %w", err)
	}
	tail, err := scale.Marshal(registerTail{Value: u128})
	if err != nil {
		return nil, fmt.Errorf("encode register value: %w", err)
	}

	args := c.RegistrationArgs
	if len(args) == 0 {
		args = []byte{0x00}
	}

	call := make([]byte, 0, 2+len(head)+len(args)+len(tail))
	call = append(call, idx.Pallet, idx.Call)
	call = append(call, head...)
	call = append(call, args...)
	return append(call, tail...), nil
}

// DecodeOperatorProfile decodes a services pallet OperatorsProfile value.
func DecodeOperatorProfile(raw []byte) (*OperatorProfile, error) {
	var p OperatorProfile
	if err := scale.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode operator profile: %w", err)
	}
	return &p, nil
}

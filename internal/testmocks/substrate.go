package testmocks

import (
	"context"
	"sync"

	"github.com/ChainSafe/gossamer/lib/common"

	"blueprint-runner/internal/chain/substrate"
)

// --- Fake substrate chain ---
// Serves fixed storage values and records submitted calls.
type FakeSubstrate struct {
	mu        sync.Mutex
	Profile   *substrate.OperatorProfile
	Operator  *substrate.DelegationOperator
	QueryErr  error
	SubmitErr error

	Queried   []substrate.AccountID
	Submitted [][]byte
}

func (f *FakeSubstrate) OperatorProfile(_ context.Context, account substrate.AccountID) (*substrate.OperatorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queried = append(f.Queried, account)
	return f.Profile, f.QueryErr
}

func (f *FakeSubstrate) DelegationOperator(_ context.Context, account substrate.AccountID) (*substrate.DelegationOperator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queried = append(f.Queried, account)
	return f.Operator, f.QueryErr
}

func (f *FakeSubstrate) SubmitAndWatch(_ context.Context, call []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return common.Hash{}, f.SubmitErr
	}
	f.Submitted = append(f.Submitted, call)
	return common.BytesToHash(call), nil
}

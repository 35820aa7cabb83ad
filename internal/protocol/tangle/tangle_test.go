package tangle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"blueprint-runner/internal/chain/substrate"
	"blueprint-runner/internal/config"
	"blueprint-runner/internal/keystore"
	"blueprint-runner/internal/protocol/tangle"
	"blueprint-runner/internal/runner"
	"blueprint-runner/internal/testmocks"
)

var account = testmocks.FakeAccount{0x01, 0x02}

func tangleEnv(t *testing.T) (*config.Environment, keystore.ECDSASigner) {
	t.Helper()
	ks := keystore.NewMemory()
	signer, err := ks.GenerateECDSA()
	require.NoError(t, err)
	ks.SetSr25519(account)
	return &config.Environment{
		Protocol: config.ProtocolTangle,
		Settings: config.TangleSettings{BlueprintID: 42},
		Keystore: ks,
	}, signer
}

func TestRequiresRegistration(t *testing.T) {
	tests := []struct {
		name    string
		profile *substrate.OperatorProfile
		want    bool
	}{
		{name: "no profile", profile: nil, want: true},
		{name: "other blueprints", profile: &substrate.OperatorProfile{Blueprints: []uint64{1, 2}}, want: true},
		{name: "registered", profile: &substrate.OperatorProfile{Blueprints: []uint64{1, 42}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := tangleEnv(t)
			chain := &testmocks.FakeSubstrate{Profile: tt.profile}

			got, err := tangle.New(chain).RequiresRegistration(context.Background(), env)

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, []substrate.AccountID{substrate.AccountID(account)}, chain.Queried)
		})
	}
}

func TestRequiresRegistrationQueryError(t *testing.T) {
	env, _ := tangleEnv(t)
	chain := &testmocks.FakeSubstrate{QueryErr: errors.New("ws closed")}

	_, err := tangle.New(chain).RequiresRegistration(context.Background(), env)
	require.ErrorIs(t, err, chain.QueryErr)
}

func TestSkipAndTestModeNeedNoClient(t *testing.T) {
	env, _ := tangleEnv(t)
	env.SkipRegistration = true
	env.TestMode = true
	cfg := tangle.New(nil)

	got, err := cfg.RequiresRegistration(context.Background(), env)
	require.NoError(t, err)
	require.False(t, got)
	require.NoError(t, cfg.Register(context.Background(), env))
}

func TestNilClient(t *testing.T) {
	env, _ := tangleEnv(t)

	_, err := tangle.New(nil).RequiresRegistration(context.Background(), env)
	require.ErrorIs(t, err, substrate.ErrNoClient)
}

func TestRegisterRequiresActiveOperator(t *testing.T) {
	tests := []struct {
		name     string
		operator *substrate.DelegationOperator
	}{
		{name: "not an operator", operator: nil},
		{name: "leaving", operator: &substrate.DelegationOperator{Status: substrate.OperatorLeaving}},
		{name: "inactive", operator: &substrate.DelegationOperator{Status: substrate.OperatorInactive}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := tangleEnv(t)
			chain := &testmocks.FakeSubstrate{Operator: tt.operator}

			err := tangle.New(chain).Register(context.Background(), env)

			require.ErrorIs(t, err, runner.ErrNotActiveOperator)
			require.Empty(t, chain.Submitted)
		})
	}
}

func TestRegisterSubmitsEncodedCall(t *testing.T) {
	env, signer := tangleEnv(t)
	chain := &testmocks.FakeSubstrate{Operator: &substrate.DelegationOperator{Status: substrate.OperatorActive}}
	prices := substrate.PriceTargets{CPU: 10, Mem: 20}

	err := tangle.New(chain, tangle.WithPriceTargets(prices)).Register(context.Background(), env)
	require.NoError(t, err)

	var key [33]byte
	copy(key[:], signer.CompressedPublicKey())
	want, err := substrate.EncodeCall(substrate.ServicesRegister, substrate.RegisterCall{
		BlueprintID: 42,
		Preferences: substrate.OperatorPreferences{Key: key, PriceTargets: prices},
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{want}, chain.Submitted)
}

func TestRegisterCopiesRegistrationArgs(t *testing.T) {
	env, _ := tangleEnv(t)
	chain := &testmocks.FakeSubstrate{Operator: &substrate.DelegationOperator{Status: substrate.OperatorActive}}
	args := []byte{0x08, 0x01, 0x02}

	err := tangle.New(chain, tangle.WithRegistrationArgs(args)).Register(context.Background(), env)
	require.NoError(t, err)

	require.Len(t, chain.Submitted, 1)
	call := chain.Submitted[0]
	headLen := 2 + 8 + 33 + 5*8
	require.Equal(t, args, call[headLen:len(call)-16])
}

func TestRegisterSubmitError(t *testing.T) {
	env, _ := tangleEnv(t)
	chain := &testmocks.FakeSubstrate{
		Operator:  &substrate.DelegationOperator{Status: substrate.OperatorActive},
		SubmitErr: errors.New("extrinsic failed"),
	}

	err := tangle.New(chain).Register(context.Background(), env)
	require.ErrorIs(t, err, chain.SubmitErr)
}

func TestRegisterWrongProtocol(t *testing.T) {
	env, _ := tangleEnv(t)
	env.Protocol = config.ProtocolSymbiotic
	env.Settings = config.SymbioticSettings{}
	chain := &testmocks.FakeSubstrate{}

	err := tangle.New(chain).Register(context.Background(), env)
	require.ErrorIs(t, err, runner.ErrInvalidProtocol)
	require.Empty(t, chain.Queried)
}

// Package protocol holds what the registration adapters share: key lookup
// and EVM client construction.
package protocol

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"blueprint-runner/internal/chain/evm"
	"blueprint-runner/internal/config"
	"blueprint-runner/internal/keystore"
)

var ErrNoKeystore = errors.New("environment has no keystore")

// Dialer opens an EVM client that transacts as signer.
type Dialer func(ctx context.Context, env *config.Environment, signer keystore.ECDSASigner) (evm.Client, error)

// DialHTTP connects to the environment's HTTP RPC endpoint.
func DialHTTP(log *zap.SugaredLogger) Dialer {
	return func(ctx context.Context, env *config.Environment, signer keystore.ECDSASigner) (evm.Client, error) {
		return evm.Dial(ctx, env.HTTPRPCEndpoint, signer, log)
	}
}

// Keys returns the environment's keystore.
func Keys(env *config.Environment) (keystore.Keystore, error) {
	if env.Keystore == nil {
		return nil, ErrNoKeystore
	}
	return env.Keystore, nil
}

// ECDSA returns the operator's EVM signer.
func ECDSA(env *config.Environment) (keystore.ECDSASigner, error) {
	ks, err := Keys(env)
	if err != nil {
		return nil, err
	}
	signer, err := ks.ECDSA()
	if err != nil {
		return nil, fmt.Errorf("operator key: %w", err)
	}
	return signer, nil
}

// Connect resolves the operator's EVM signer and dials a client for it.
// The returned release func closes the client when it holds a connection.
func Connect(ctx context.Context, env *config.Environment, dial Dialer) (evm.Client, keystore.ECDSASigner, func(), error) {
	signer, err := ECDSA(env)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := dial(ctx, env, signer)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to %s: %w", env.HTTPRPCEndpoint, err)
	}
	release := func() {}
	if c, ok := client.(interface{ Close() }); ok {
		release = c.Close
	}
	return client, signer, release, nil
}

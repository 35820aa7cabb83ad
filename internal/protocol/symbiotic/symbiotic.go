// Package symbiotic registers an operator in the Symbiotic operator
// registry.
package symbiotic

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"

	"blueprint-runner/internal/chain/evm"
	"blueprint-runner/internal/config"
	"blueprint-runner/internal/protocol"
	"blueprint-runner/internal/runner"
	"blueprint-runner/pkg/logger"
)

type Config struct {
	dial protocol.Dialer
	log  *zap.SugaredLogger
}

type Option func(*Config)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Config) { c.log = log }
}

func WithDialer(d protocol.Dialer) Option {
	return func(c *Config) { c.dial = d }
}

func New(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log).With("protocol", config.ProtocolSymbiotic.String())
	if c.dial == nil {
		c.dial = protocol.DialHTTP(c.log)
	}
	return c
}

// RequiresRegistration reports whether the operator registry does not know
// the operator yet.
func (c *Config) RequiresRegistration(ctx context.Context, env *config.Environment) (bool, error) {
	if env.SkipRegistration {
		return false, nil
	}
	settings, err := runner.ExpectProtocol[config.SymbioticSettings](env)
	if err != nil {
		return false, err
	}

	client, signer, release, err := protocol.Connect(ctx, env, c.dial)
	if err != nil {
		return false, err
	}
	defer release()

	registry := evm.NewContract(settings.OperatorRegistry, evm.OperatorRegistryABI, client)
	out, err := registry.Call(ctx, "isEntity", signer.Address())
	if err != nil {
		return false, err
	}
	registered := *abi.ConvertType(out[0], new(bool)).(*bool)
	return !registered, nil
}

func (c *Config) Register(ctx context.Context, env *config.Environment) error {
	if env.TestMode {
		c.log.Infow("skipping registration in test mode")
		return nil
	}
	settings, err := runner.ExpectProtocol[config.SymbioticSettings](env)
	if err != nil {
		return err
	}

	client, signer, release, err := protocol.Connect(ctx, env, c.dial)
	if err != nil {
		return err
	}
	defer release()

	registry := evm.NewContract(settings.OperatorRegistry, evm.OperatorRegistryABI, client)
	receipt, err := registry.Transact(ctx, "registerOperator")
	if err != nil {
		return fmt.Errorf("register operator: %w", err)
	}
	c.log.Infow("registered operator", "operator", signer.Address().Hex(), "tx", receipt.TxHash.Hex())
	return nil
}

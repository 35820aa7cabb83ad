// Package tangle registers an operator for a blueprint on the tangle
// services pallet.
package tangle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"blueprint-runner/internal/chain/substrate"
	"blueprint-runner/internal/config"
	"blueprint-runner/internal/protocol"
	"blueprint-runner/internal/runner"
	"blueprint-runner/pkg/logger"
)

type Config struct {
	client           substrate.Client
	priceTargets     substrate.PriceTargets
	registrationArgs []byte
	callIndex        substrate.CallIndex
	log              *zap.SugaredLogger
}

type Option func(*Config)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Config) { c.log = log }
}

// WithPriceTargets sets the prices advertised on registration. They are
// zero by default.
func WithPriceTargets(p substrate.PriceTargets) Option {
	return func(c *Config) { c.priceTargets = p }
}

// WithRegistrationArgs sets the blueprint's registration arguments, given as
// their complete SCALE encoding. They are copied into the register call
// unchanged.
func WithRegistrationArgs(args []byte) Option {
	return func(c *Config) { c.registrationArgs = args }
}

func WithCallIndex(idx substrate.CallIndex) Option {
	return func(c *Config) { c.callIndex = idx }
}

// New returns a tangle BlueprintConfig. client may be nil when the runner
// only ever runs with SkipRegistration or TestMode set.
func New(client substrate.Client, opts ...Option) *Config {
	c := &Config{client: client, callIndex: substrate.ServicesRegister}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log).With("protocol", config.ProtocolTangle.String())
	return c
}

// RequiresRegistration reports whether the operator profile lacks the
// configured blueprint.
func (c *Config) RequiresRegistration(ctx context.Context, env *config.Environment) (bool, error) {
	if env.SkipRegistration {
		return false, nil
	}
	settings, err := runner.ExpectProtocol[config.TangleSettings](env)
	if err != nil {
		return false, err
	}
	account, err := c.account(env)
	if err != nil {
		return false, err
	}

	profile, err := c.client.OperatorProfile(ctx, account)
	if err != nil {
		return false, fmt.Errorf("fetch operator profile: %w", err)
	}
	return !profile.HasBlueprint(settings.BlueprintID), nil
}

// Register registers an active operator for the blueprint and waits for the
// extrinsic to be finalised.
func (c *Config) Register(ctx context.Context, env *config.Environment) error {
	if env.TestMode {
		c.log.Infow("skipping registration in test mode")
		return nil
	}
	settings, err := runner.ExpectProtocol[config.TangleSettings](env)
	if err != nil {
		return err
	}
	account, err := c.account(env)
	if err != nil {
		return err
	}
	signer, err := protocol.ECDSA(env)
	if err != nil {
		return err
	}

	op, err := c.client.DelegationOperator(ctx, account)
	if err != nil {
		return fmt.Errorf("fetch delegation operator: %w", err)
	}
	if op == nil {
		return fmt.Errorf("%w: account has no operator record", runner.ErrNotActiveOperator)
	}
	if op.Status != substrate.OperatorActive {
		return fmt.Errorf("%w: operator is %s", runner.ErrNotActiveOperator, op.Status)
	}

	var key [33]byte
	if n := copy(key[:], signer.CompressedPublicKey()); n != len(key) {
		return fmt.Errorf("compressed ECDSA key has %d bytes", n)
	}
	call, err := substrate.EncodeCall(c.callIndex, substrate.RegisterCall{
		BlueprintID: settings.BlueprintID,
		Preferences: substrate.OperatorPreferences{
			Key:          key,
			PriceTargets: c.priceTargets,
		},
		RegistrationArgs: c.registrationArgs,
	})
	if err != nil {
		return err
	}

	hash, err := c.client.SubmitAndWatch(ctx, call)
	if err != nil {
		return fmt.Errorf("submit register: %w", err)
	}
	c.log.Infow("registered operator for blueprint",
		"blueprint_id", settings.BlueprintID,
		"extrinsic", hash.String(),
	)
	return nil
}

func (c *Config) account(env *config.Environment) (substrate.AccountID, error) {
	if c.client == nil {
		return substrate.AccountID{}, substrate.ErrNoClient
	}
	ks, err := protocol.Keys(env)
	if err != nil {
		return substrate.AccountID{}, err
	}
	sr, err := ks.Sr25519()
	if err != nil {
		return substrate.AccountID{}, fmt.Errorf("operator account: %w", err)
	}
	return substrate.AccountID(sr.AccountID()), nil
}

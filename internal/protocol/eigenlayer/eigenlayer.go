// Package eigenlayer registers an operator with EigenLayer and with the
// AVS's registry coordinator using its ECDSA and BLS BN254 keys.
package eigenlayer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"blueprint-runner/internal/chain/evm"
	"blueprint-runner/internal/config"
	"blueprint-runner/internal/keystore"
	"blueprint-runner/internal/protocol"
	"blueprint-runner/internal/runner"
	"blueprint-runner/pkg/logger"
)

const (
	StakerOptOutWindowBlocks uint32 = 50400
	DefaultSignatureValidity        = 24 * time.Hour

	// RegistryCoordinator OperatorStatus enum
	statusRegistered uint8 = 1
)

// registrationSalt salts the operator's AVS registration signature.
var registrationSalt = [32]byte{
	0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02,
	0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02,
	0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02,
	0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02,
}

type operatorDetails struct {
	EarningsReceiver         common.Address
	DelegationApprover       common.Address
	StakerOptOutWindowBlocks uint32
}

type pubkeyRegistrationParams struct {
	PubkeyRegistrationSignature keystore.G1Point
	PubkeyG1                    keystore.G1Point
	PubkeyG2                    keystore.G2Point
}

type signatureWithSaltAndExpiry struct {
	Signature []byte
	Salt      [32]byte
	Expiry    *big.Int
}

// Config is the BLS flavoured EigenLayer BlueprintConfig.
type Config struct {
	earningsReceiver   common.Address
	delegationApprover common.Address
	metadataURI        string
	socket             string
	quorums            []byte
	validity           time.Duration

	dial protocol.Dialer
	now  func() time.Time
	log  *zap.SugaredLogger
}

type Option func(*Config)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Config) { c.log = log }
}

// WithDialer replaces the HTTP RPC client.
func WithDialer(d protocol.Dialer) Option {
	return func(c *Config) { c.dial = d }
}

func WithMetadataURI(uri string) Option {
	return func(c *Config) { c.metadataURI = uri }
}

// WithSocket sets the operator socket advertised to the AVS.
func WithSocket(socket string) Option {
	return func(c *Config) { c.socket = socket }
}

func WithQuorums(quorums ...byte) Option {
	return func(c *Config) { c.quorums = quorums }
}

// WithSignatureValidity sets how long the AVS registration signature stays
// valid.
func WithSignatureValidity(d time.Duration) Option {
	return func(c *Config) { c.validity = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Config) { c.now = now }
}

func New(earningsReceiver, delegationApprover common.Address, opts ...Option) *Config {
	c := &Config{
		earningsReceiver:   earningsReceiver,
		delegationApprover: delegationApprover,
		quorums:            []byte{0},
		validity:           DefaultSignatureValidity,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log).With("protocol", config.ProtocolEigenlayer.String())
	if c.dial == nil {
		c.dial = protocol.DialHTTP(c.log)
	}
	return c
}

// RequiresRegistration asks the registry coordinator whether the operator
// is registered with the AVS.
func (c *Config) RequiresRegistration(ctx context.Context, env *config.Environment) (bool, error) {
	if env.SkipRegistration {
		return false, nil
	}
	settings, err := runner.ExpectProtocol[config.EigenlayerSettings](env)
	if err != nil {
		return false, err
	}

	client, signer, release, err := protocol.Connect(ctx, env, c.dial)
	if err != nil {
		return false, err
	}
	defer release()

	coordinator := evm.NewContract(settings.RegistryCoordinator, evm.RegistryCoordinatorABI, client)
	out, err := coordinator.Call(ctx, "getOperatorStatus", signer.Address())
	if err != nil {
		return false, err
	}
	status := *abi.ConvertType(out[0], new(uint8)).(*uint8)

	c.log.Debugw("operator status", "operator", signer.Address().Hex(), "status", status)
	return status != statusRegistered, nil
}

// Register registers the operator with the delegation manager and then with
// the AVS for the configured quorums.
func (c *Config) Register(ctx context.Context, env *config.Environment) error {
	if env.TestMode {
		c.log.Infow("skipping registration in test mode")
		return nil
	}
	settings, err := runner.ExpectProtocol[config.EigenlayerSettings](env)
	if err != nil {
		return err
	}
	ks, err := protocol.Keys(env)
	if err != nil {
		return err
	}
	bls, err := ks.BLS()
	if err != nil {
		return fmt.Errorf("operator BLS key: %w", err)
	}

	client, signer, release, err := protocol.Connect(ctx, env, c.dial)
	if err != nil {
		return err
	}
	defer release()

	operator := signer.Address()
	log := c.log.With("operator", operator.Hex())

	delegation := evm.NewContract(settings.DelegationManager, evm.DelegationManagerABI, client)
	out, err := delegation.Call(ctx, "slasher")
	if err != nil {
		return err
	}
	slasher := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	log.Debugw("resolved slasher", "slasher", slasher.Hex())

	receipt, err := delegation.Transact(ctx, "registerAsOperator",
		operatorDetails{
			EarningsReceiver:         c.earningsReceiver,
			DelegationApprover:       c.delegationApprover,
			StakerOptOutWindowBlocks: StakerOptOutWindowBlocks,
		},
		c.metadataURI,
	)
	if err != nil {
		return fmt.Errorf("register as operator: %w", err)
	}
	log.Infow("registered as eigenlayer operator", "tx", receipt.TxHash.Hex())

	operatorSig, err := c.signAVSRegistration(ctx, client, settings, signer)
	if err != nil {
		return err
	}

	coordinator := evm.NewContract(settings.RegistryCoordinator, evm.RegistryCoordinatorABI, client)
	out, err = coordinator.Call(ctx, "pubkeyRegistrationMessageHash", operator)
	if err != nil {
		return err
	}
	msg := *abi.ConvertType(out[0], new(keystore.G1Point)).(*keystore.G1Point)
	blsSig, err := bls.SignHashedToCurveMessage(msg)
	if err != nil {
		return fmt.Errorf("sign pubkey registration: %w", err)
	}

	receipt, err = coordinator.Transact(ctx, "registerOperator",
		c.quorums,
		c.socket,
		pubkeyRegistrationParams{
			PubkeyRegistrationSignature: blsSig,
			PubkeyG1:                    bls.PublicKeyG1(),
			PubkeyG2:                    bls.PublicKeyG2(),
		},
		operatorSig,
	)
	if err != nil {
		return fmt.Errorf("register operator with AVS: %w", err)
	}
	log.Infow("registered operator with AVS", "tx", receipt.TxHash.Hex(), "quorums", c.quorums)
	return nil
}

func (c *Config) signAVSRegistration(ctx context.Context, client evm.Client, settings config.EigenlayerSettings, signer keystore.ECDSASigner) (signatureWithSaltAndExpiry, error) {
	expiry := big.NewInt(c.now().Add(c.validity).Unix())

	directory := evm.NewContract(settings.AVSDirectory, evm.AVSDirectoryABI, client)
	out, err := directory.Call(ctx, "calculateOperatorAVSRegistrationDigestHash",
		signer.Address(), settings.ServiceManager, registrationSalt, expiry)
	if err != nil {
		return signatureWithSaltAndExpiry{}, err
	}
	digest := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)

	sig, err := signer.SignDigest(common.Hash(digest))
	if err != nil {
		return signatureWithSaltAndExpiry{}, fmt.Errorf("sign AVS registration digest: %w", err)
	}
	// contracts expect V in {27, 28}
	sig[64] += 27

	return signatureWithSaltAndExpiry{Signature: sig, Salt: registrationSalt, Expiry: expiry}, nil
}

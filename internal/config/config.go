package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"

	"blueprint-runner/internal/keystore"
	"blueprint-runner/pkg/validator"
)

var (
	ErrUnsupportedProtocol        = errors.New("unsupported protocol")
	ErrMissingRPCEndpoint         = errors.New("missing RPC endpoint")
	ErrMissingKeystoreURI         = errors.New("missing keystore URI")
	ErrMissingBlueprintID         = errors.New("missing blueprint ID")
	ErrMalformedBlueprintID       = errors.New("malformed blueprint ID")
	ErrMalformedServiceID         = errors.New("malformed service ID")
	ErrMissingEigenlayerAddresses = errors.New("missing eigenlayer contract addresses")
	ErrMissingSymbioticAddresses  = errors.New("missing symbiotic contract addresses")
	ErrProtocolSettingsMismatch   = errors.New("protocol settings do not match protocol")
)

// Environment is the read-only configuration shared by every job, service
// and registration adapter of a runner.
type Environment struct {
	HTTPRPCEndpoint string
	WSRPCEndpoint   string
	KeystoreURI     string
	// DataDir is empty when no data directory was provided.
	DataDir string

	Protocol Protocol
	Settings ProtocolSettings

	TestMode         bool
	SkipRegistration bool

	Keystore keystore.Keystore

	Results ResultsConfig
	API     APIConfig
	LogProd bool
}

// ResultsConfig configures the MySQL job-result sink. It is disabled when
// DBHost is empty.
type ResultsConfig struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
}

func (c ResultsConfig) Enabled() bool {
	return c.DBHost != ""
}

func (c ResultsConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// APIConfig configures the health and metrics server.
type APIConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Load reads the environment from process environment variables.
func Load() (*Environment, error) {
	env := &Environment{
		HTTPRPCEndpoint:  getEnv("HTTP_RPC_URL", "http://127.0.0.1:8545"),
		WSRPCEndpoint:    getEnv("WS_RPC_URL", "ws://127.0.0.1:8546"),
		KeystoreURI:      getEnv("KEYSTORE_URI", keystore.MemoryURI),
		DataDir:          getEnv("DATA_DIR", ""),
		TestMode:         getEnvBool("TEST_MODE", false),
		SkipRegistration: getEnvBool("SKIP_REGISTRATION", false),
		Results: ResultsConfig{
			DBUser:     getEnv("MYSQL_USER", "root"),
			DBPassword: getEnv("MYSQL_ROOT_PASSWORD", ""),
			DBHost:     getEnv("MYSQL_HOST", ""),
			DBPort:     getEnv("MYSQL_PORT", "3306"),
			DBName:     getEnv("MYSQL_DATABASE", "blueprint"),
		},
		API: APIConfig{
			Addr:            getEnv("API_ADDR", ":8080"),
			ShutdownTimeout: getEnvDuration("API_SHUTDOWN_TIMEOUT_MS", 5*time.Second),
		},
		LogProd: getEnv("LOG_MODE", "") == "prod",
	}

	protocol, err := ParseProtocol(getEnv("PROTOCOL", string(ProtocolTangle)))
	if err != nil {
		return nil, err
	}
	env.Protocol = protocol

	switch protocol {
	case ProtocolEigenlayer:
		env.Settings, err = loadEigenlayer()
	case ProtocolTangle:
		env.Settings, err = loadTangle()
	case ProtocolSymbiotic:
		env.Settings, err = loadSymbiotic()
	}
	if err != nil {
		return nil, err
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// Validate reports every problem with the environment at once.
func (e *Environment) Validate() error {
	var errs error
	if err := validator.Endpoint(e.HTTPRPCEndpoint, "http", "https"); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: http: %v", ErrMissingRPCEndpoint, err))
	}
	if err := validator.Endpoint(e.WSRPCEndpoint, "ws", "wss"); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: ws: %v", ErrMissingRPCEndpoint, err))
	}
	if e.KeystoreURI == "" {
		errs = multierr.Append(errs, ErrMissingKeystoreURI)
	}
	switch {
	case e.Settings == nil:
		errs = multierr.Append(errs, fmt.Errorf("%w: no settings for %s", ErrProtocolSettingsMismatch, e.Protocol))
	case e.Settings.Protocol() != e.Protocol:
		errs = multierr.Append(errs, fmt.Errorf("%w: %s settings for %s", ErrProtocolSettingsMismatch, e.Settings.Protocol(), e.Protocol))
	}
	return errs
}

func loadEigenlayer() (EigenlayerSettings, error) {
	var errs error
	addr := func(key string) common.Address {
		a, err := validator.Address(os.Getenv(key))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: %v", ErrMissingEigenlayerAddresses, key, err))
		}
		return a
	}
	s := EigenlayerSettings{
		RegistryCoordinator:    addr("REGISTRY_COORDINATOR_ADDRESS"),
		OperatorStateRetriever: addr("OPERATOR_STATE_RETRIEVER_ADDRESS"),
		DelegationManager:      addr("DELEGATION_MANAGER_ADDRESS"),
		ServiceManager:         addr("SERVICE_MANAGER_ADDRESS"),
		StakeRegistry:          addr("STAKE_REGISTRY_ADDRESS"),
		StrategyManager:        addr("STRATEGY_MANAGER_ADDRESS"),
		AVSDirectory:           addr("AVS_DIRECTORY_ADDRESS"),
		RewardsCoordinator:     addr("REWARDS_COORDINATOR_ADDRESS"),
	}
	return s, errs
}

func loadSymbiotic() (SymbioticSettings, error) {
	var errs error
	addr := func(key string) common.Address {
		a, err := validator.Address(os.Getenv(key))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: %v", ErrMissingSymbioticAddresses, key, err))
		}
		return a
	}
	s := SymbioticSettings{
		OperatorRegistry:    addr("OPERATOR_REGISTRY_ADDRESS"),
		NetworkRegistry:     addr("NETWORK_REGISTRY_ADDRESS"),
		BaseDelegator:       addr("BASE_DELEGATOR_ADDRESS"),
		NetworkOptInService: addr("NETWORK_OPT_IN_SERVICE_ADDRESS"),
		VaultOptInService:   addr("VAULT_OPT_IN_SERVICE_ADDRESS"),
		Slasher:             addr("SLASHER_ADDRESS"),
		VetoSlasher:         addr("VETO_SLASHER_ADDRESS"),
	}
	return s, errs
}

func loadTangle() (TangleSettings, error) {
	raw, ok := os.LookupEnv("BLUEPRINT_ID")
	if !ok || raw == "" {
		return TangleSettings{}, ErrMissingBlueprintID
	}
	blueprintID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return TangleSettings{}, fmt.Errorf("%w: %v", ErrMalformedBlueprintID, err)
	}

	s := TangleSettings{BlueprintID: blueprintID}
	if raw, ok := os.LookupEnv("SERVICE_ID"); ok && raw != "" {
		serviceID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return TangleSettings{}, fmt.Errorf("%w: %v", ErrMalformedServiceID, err)
		}
		s.ServiceID = &serviceID
	}
	return s, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return time.Duration(i) * time.Millisecond
		}
	}
	return fallback
}

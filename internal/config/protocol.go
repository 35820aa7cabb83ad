package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Protocol names the restaking network a runner targets.
type Protocol string

const (
	ProtocolEigenlayer Protocol = "eigenlayer"
	ProtocolTangle     Protocol = "tangle"
	ProtocolSymbiotic  Protocol = "symbiotic"
)

func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case ProtocolEigenlayer, ProtocolTangle, ProtocolSymbiotic:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, s)
	}
}

func (p Protocol) String() string {
	return string(p)
}

// ProtocolSettings is the closed set of protocol specific settings. Exactly
// one variant is present in an Environment.
type ProtocolSettings interface {
	Protocol() Protocol
	isProtocolSettings()
}

// EigenlayerSettings holds the EigenLayer core and AVS contract addresses.
type EigenlayerSettings struct {
	RegistryCoordinator    common.Address
	OperatorStateRetriever common.Address
	DelegationManager      common.Address
	ServiceManager         common.Address
	StakeRegistry          common.Address
	StrategyManager        common.Address
	AVSDirectory           common.Address
	RewardsCoordinator     common.Address
}

func (EigenlayerSettings) Protocol() Protocol  { return ProtocolEigenlayer }
func (EigenlayerSettings) isProtocolSettings() {}

// TangleSettings identifies the blueprint, and optionally the service
// instance, the operator serves.
type TangleSettings struct {
	BlueprintID uint64
	ServiceID   *uint64
}

func (TangleSettings) Protocol() Protocol  { return ProtocolTangle }
func (TangleSettings) isProtocolSettings() {}

// SymbioticSettings holds the Symbiotic core contract addresses.
type SymbioticSettings struct {
	OperatorRegistry    common.Address
	NetworkRegistry     common.Address
	BaseDelegator       common.Address
	NetworkOptInService common.Address
	VaultOptInService   common.Address
	Slasher             common.Address
	VetoSlasher         common.Address
}

func (SymbioticSettings) Protocol() Protocol  { return ProtocolSymbiotic }
func (SymbioticSettings) isProtocolSettings() {}

package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Only the methods the registration adapters use are declared.
const (
	registryCoordinatorABI = `[
	{"type":"function","name":"getOperatorStatus","stateMutability":"view",
	 "inputs":[{"name":"operator","type":"address"}],
	 "outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"pubkeyRegistrationMessageHash","stateMutability":"view",
	 "inputs":[{"name":"operator","type":"address"}],
	 "outputs":[{"name":"","type":"tuple","components":[
		{"name":"X","type":"uint256"},{"name":"Y","type":"uint256"}]}]},
	{"type":"function","name":"registerOperator","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"quorumNumbers","type":"bytes"},
		{"name":"socket","type":"string"},
		{"name":"params","type":"tuple","components":[
			{"name":"pubkeyRegistrationSignature","type":"tuple","components":[
				{"name":"X","type":"uint256"},{"name":"Y","type":"uint256"}]},
			{"name":"pubkeyG1","type":"tuple","components":[
				{"name":"X","type":"uint256"},{"name":"Y","type":"uint256"}]},
			{"name":"pubkeyG2","type":"tuple","components":[
				{"name":"X","type":"uint256[2]"},{"name":"Y","type":"uint256[2]"}]}]},
		{"name":"operatorSignature","type":"tuple","components":[
			{"name":"signature","type":"bytes"},
			{"name":"salt","type":"bytes32"},
			{"name":"expiry","type":"uint256"}]}],
	 "outputs":[]}
]`

	delegationManagerABI = `[
	{"type":"function","name":"slasher","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"registerAsOperator","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"registeringOperatorDetails","type":"tuple","components":[
			{"name":"earningsReceiver","type":"address"},
			{"name":"delegationApprover","type":"address"},
			{"name":"stakerOptOutWindowBlocks","type":"uint32"}]},
		{"name":"metadataURI","type":"string"}],
	 "outputs":[]}
]`

	avsDirectoryABI = `[
	{"type":"function","name":"calculateOperatorAVSRegistrationDigestHash","stateMutability":"view",
	 "inputs":[
		{"name":"operator","type":"address"},
		{"name":"avs","type":"address"},
		{"name":"salt","type":"bytes32"},
		{"name":"expiry","type":"uint256"}],
	 "outputs":[{"name":"","type":"bytes32"}]}
]`

	operatorRegistryABI = `[
	{"type":"function","name":"isEntity","stateMutability":"view",
	 "inputs":[{"name":"entity_","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"registerOperator","stateMutability":"nonpayable",
	 "inputs":[],
	 "outputs":[]},
	{"type":"event","name":"AddEntity","anonymous":false,
	 "inputs":[{"name":"entity","type":"address","indexed":true}]}
]`
)

var (
	RegistryCoordinatorABI = mustParse(registryCoordinatorABI)
	DelegationManagerABI   = mustParse(delegationManagerABI)
	AVSDirectoryABI        = mustParse(avsDirectoryABI)
	OperatorRegistryABI    = mustParse(operatorRegistryABI)
)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("evm: invalid contract ABI: " + err.Error())
	}
	return parsed
}

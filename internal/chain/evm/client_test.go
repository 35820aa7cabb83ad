package evm_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"

	"blueprint-runner/internal/chain/evm"
	"blueprint-runner/internal/keystore"
)

func TestRPCClientTransactOnSimulatedChain(t *testing.T) {
	ks := keystore.NewMemory()
	signer, err := ks.GenerateECDSA()
	require.NoError(t, err)

	sim := simulated.NewBackend(types.GenesisAlloc{
		signer.Address(): {Balance: big.NewInt(1_000_000_000_000_000_000)},
	})
	defer sim.Close()

	// mine blocks until the transaction lands
	stop := make(chan struct{})
	mined := make(chan struct{})
	go func() {
		defer close(mined)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				sim.Commit()
			}
		}
	}()
	defer func() {
		close(stop)
		<-mined
	}()

	client := evm.NewRPCClient(sim.Client(), signer, nil)
	require.Equal(t, signer.Address(), client.From())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	to := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	receipt, err := client.Transact(ctx, to, []byte{0x01, 0x02})
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	out, err := client.Call(ctx, to, nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

package helpers

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/require"
)

// first prefunded anvil account
const anvilPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const anvilStartTimeout = 10 * time.Second

// Anvil is a local dev node mining one block per transaction.
type Anvil struct {
	cmd     *exec.Cmd
	URL     string
	Client  *ethclient.Client
	Signer  *bind.TransactOpts
	ChainID *big.Int
}

// SkipIfAnvilNotAvailable skips the test when the anvil binary is not on PATH.
func SkipIfAnvilNotAvailable(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("anvil"); err != nil {
		t.Skip("anvil not found in PATH, skipping integration test")
	}
}

// StartAnvil starts a node on a free port and stops it when the test ends.
func StartAnvil(t *testing.T) *Anvil {
	t.Helper()

	port := freePort(t)
	url := fmt.Sprintf("http://127.0.0.1:%d", port)

	// no --block-time: one block per transaction
	cmd := exec.Command("anvil", "--port", fmt.Sprint(port))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Start(), "failed to start anvil")

	a := &Anvil{cmd: cmd, URL: url}
	t.Cleanup(a.Stop)

	client, err := ethclient.Dial(url)
	require.NoError(t, err, "failed to connect to anvil")
	a.Client = client

	require.Eventually(t, func() bool {
		id, err := client.ChainID(t.Context())
		if err != nil {
			return false
		}
		a.ChainID = id
		return true
	}, anvilStartTimeout, 100*time.Millisecond, "anvil did not become ready")

	key, err := crypto.HexToECDSA(anvilPrivateKey)
	require.NoError(t, err)
	a.Signer = newSigner(t, key, a.ChainID)

	return a
}

// Stop kills the node.
func (a *Anvil) Stop() {
	if a.Client != nil {
		a.Client.Close()
	}
	if a.cmd != nil && a.cmd.Process != nil {
		_ = a.cmd.Process.Kill()
		_ = a.cmd.Wait()
	}
}

// Snapshot saves the current chain state.
func (a *Anvil) Snapshot(t *testing.T) string {
	t.Helper()

	var id string
	require.NoError(t, a.Client.Client().Call(&id, "evm_snapshot"), "failed to create snapshot")
	return id
}

// Revert drops every block mined after the snapshot, so the heights above it can be mined again.
func (a *Anvil) Revert(t *testing.T, snapshotID string) {
	t.Helper()

	var ok bool
	require.NoError(t, a.Client.Client().Call(&ok, "evm_revert", snapshotID), "failed to revert to snapshot")
	require.True(t, ok, "snapshot revert returned false")
}

// Mine mines n empty blocks.
func (a *Anvil) Mine(t *testing.T, n int) {
	t.Helper()

	for range n {
		var hash string
		require.NoError(t, a.Client.Client().Call(&hash, "evm_mine"), "failed to mine block")
	}
}

// Head returns the current block number.
func (a *Anvil) Head(t *testing.T) uint64 {
	t.Helper()

	n, err := a.Client.BlockNumber(t.Context())
	require.NoError(t, err)
	return n
}

// BlockHash returns the canonical hash at n.
func (a *Anvil) BlockHash(t *testing.T, n uint64) common.Hash {
	t.Helper()

	header, err := a.Client.HeaderByNumber(t.Context(), new(big.Int).SetUint64(n))
	require.NoError(t, err)
	return header.Hash()
}

// WaitMined blocks until tx has a successful receipt.
func (a *Anvil) WaitMined(t *testing.T, tx *types.Transaction) *types.Receipt {
	t.Helper()

	receipt, err := bind.WaitMined(t.Context(), a.Client, tx)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	return receipt
}

func newSigner(t *testing.T, key *ecdsa.PrivateKey, chainID *big.Int) *bind.TransactOpts {
	t.Helper()

	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	require.NoError(t, err, "failed to create signer")
	return signer
}

func freePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to get free port")
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ptypes "github.com/goran-ethernal/EventIndexor/pkg/types"
)

// EthClient is the chain log source used by the indexer.
type EthClient interface {
	// Close closes the RPC client connection.
	Close()

	// BlockNumber returns the head height at the given finality.
	BlockNumber(ctx context.Context, finality ptypes.BlockFinality) (uint64, error)

	// GetLogs returns every log emitted by address in the inclusive block range.
	GetLogs(ctx context.Context, address common.Address, fromBlock, toBlock uint64) ([]ptypes.RawLog, error)

	// GetBlockHeader retrieves the header for a specific block number.
	GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error)

	// BatchGetBlockHeaders retrieves headers for multiple block numbers in a single batch call.
	BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error)
}

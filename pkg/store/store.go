package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

// StateStore persists indexer progress and the recent block linkage used for reorg detection.
// Implementations serialise writes; every multi-row mutation is atomic.
type StateStore interface {
	// GetLastBlock returns the persisted checkpoint. An empty state means never indexed.
	GetLastBlock(ctx context.Context) (types.CheckpointState, error)

	// SetLastBlock overwrites the checkpoint.
	SetLastBlock(ctx context.Context, block uint64, hash *common.Hash) error

	// InsertBlockHash records an accepted block, replacing any previous record at the same height.
	InsertBlockHash(ctx context.Context, record types.BlockRecord) error

	// GetBlockHash returns the recorded hash at block, or false when none is recorded.
	GetBlockHash(ctx context.Context, block uint64) (common.Hash, bool, error)

	// GetBlockRecord returns the full record at block, or nil when none is recorded.
	GetBlockRecord(ctx context.Context, block uint64) (*types.BlockRecord, error)

	// LatestBlockRecord returns the highest recorded block, or nil when nothing is recorded.
	LatestBlockRecord(ctx context.Context) (*types.BlockRecord, error)

	// ExecuteReorgRollback deletes every record above forkPoint and, in the same transaction,
	// clamps a checkpoint above forkPoint down to it. It returns the number of deleted records.
	ExecuteReorgRollback(ctx context.Context, forkPoint uint64) (int64, error)

	// PruneOldBlocks deletes records below the given block and returns how many were removed.
	PruneOldBlocks(ctx context.Context, before uint64) (int64, error)

	// Close releases the underlying database.
	Close() error
}

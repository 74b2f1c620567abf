package checkpoint

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

// Manager owns the persisted indexing progress.
// This abstraction allows for easier testing and alternative implementations.
type Manager interface {
	// StartBlock returns the first block the indexer should process.
	StartBlock(ctx context.Context) (uint64, error)

	// Load returns the persisted checkpoint.
	Load(ctx context.Context) (types.CheckpointState, error)

	// Update advances the checkpoint. Moving it backwards is an error.
	Update(ctx context.Context, block uint64, hash common.Hash) error

	// ResetTo moves the checkpoint back to block after a reorg. Moving it forwards is an error.
	ResetTo(ctx context.Context, block uint64, hash common.Hash) error
}

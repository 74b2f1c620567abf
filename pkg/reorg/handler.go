package reorg

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

// Handler validates block linkage and repairs the indexer's own state after a reorg.
type Handler interface {
	// CheckForReorg validates that claimedParent is the recorded hash of block-1.
	CheckForReorg(ctx context.Context, block uint64, claimedParent common.Hash) (types.ReorgCheckResult, error)

	// RecordBlock persists the linkage of an accepted block.
	RecordBlock(ctx context.Context, block uint64, hash, parent common.Hash, timestamp uint64) error

	// ExecuteRollback deletes every record above forkPoint.
	ExecuteRollback(ctx context.Context, forkPoint uint64) (int64, error)

	// HandleReorg rewinds handlers and rolls back to forkPoint. It does not reprocess anything.
	HandleReorg(ctx context.Context, detectedAt, forkPoint uint64, orphanedHash, newHash common.Hash) (types.ReorgStats, error)
}

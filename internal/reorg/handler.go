package reorg

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/internal/metrics"
	"github.com/goran-ethernal/EventIndexor/pkg/handlers"
	pkgreorg "github.com/goran-ethernal/EventIndexor/pkg/reorg"
	pkgstore "github.com/goran-ethernal/EventIndexor/pkg/store"
	ptypes "github.com/goran-ethernal/EventIndexor/pkg/types"
)

var _ pkgreorg.Handler = (*Handler)(nil)

// walkBatch is the number of ancestor headers fetched per round trip during the fork point search.
const walkBatch = 16

// HeaderSource fetches canonical headers by height.
type HeaderSource interface {
	BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error)
}

// Config bounds the reorg handler.
type Config struct {
	// MinBlock is the lowest block the indexer ever processes
	MinBlock uint64
	// MaxReorgDepth is the deepest fork point searched for
	MaxReorgDepth uint64
	// RetainBlocks is the number of block records kept by Prune (0 = all)
	RetainBlocks uint64
}

// Handler keeps the rolling window of block records and repairs it after a reorg.
type Handler struct {
	store     pkgstore.StateStore
	chain     HeaderSource
	cfg       Config
	rewinders []handlers.Rewinder
	log       *logger.Logger
}

// NewHandler creates a reorg handler. Rewinders are invoked on every handled reorg.
func NewHandler(
	store pkgstore.StateStore,
	chain HeaderSource,
	cfg Config,
	log *logger.Logger,
	rewinders ...handlers.Rewinder,
) *Handler {
	h := &Handler{
		store:     store,
		chain:     chain,
		cfg:       cfg,
		rewinders: rewinders,
		log:       log.WithComponent(icommon.ComponentReorg),
	}

	metrics.ComponentHealthSet(icommon.ComponentReorg, true)
	h.log.Infow("reorg handler initialized",
		"min_block", cfg.MinBlock,
		"max_reorg_depth", cfg.MaxReorgDepth,
		"retain_blocks", cfg.RetainBlocks,
		"rewinders", len(rewinders),
	)

	return h
}

// CheckForReorg validates claimedParent against the record of block-1.
// Given the same stored history and canonical chain it always returns the same result.
func (h *Handler) CheckForReorg(
	ctx context.Context,
	block uint64,
	claimedParent common.Hash,
) (ptypes.ReorgCheckResult, error) {
	result, err := h.checkForReorg(ctx, block, claimedParent)
	if err != nil {
		if errors.Is(err, ErrForkPointNotFound) {
			metrics.ComponentHealthSet(icommon.ComponentReorg, false)
		}
		return ptypes.ReorgCheckResult{}, err
	}

	ReorgCheckInc(result.Kind)
	return result, nil
}

func (h *Handler) checkForReorg(
	ctx context.Context,
	block uint64,
	claimedParent common.Hash,
) (ptypes.ReorgCheckResult, error) {
	if block == 0 {
		return ptypes.ReorgCheckResult{Kind: ptypes.FirstBlock}, nil
	}

	parent := block - 1
	stored, ok, err := h.store.GetBlockHash(ctx, parent)
	if err != nil {
		return ptypes.ReorgCheckResult{}, fmt.Errorf("failed to get recorded hash of block %d: %w", parent, err)
	}

	if !ok {
		if parent < h.cfg.MinBlock {
			return ptypes.ReorgCheckResult{Kind: ptypes.FirstBlock}, nil
		}

		latest, err := h.store.LatestBlockRecord(ctx)
		if err != nil {
			return ptypes.ReorgCheckResult{}, fmt.Errorf("failed to get latest block record: %w", err)
		}
		if latest == nil {
			return ptypes.ReorgCheckResult{Kind: ptypes.FirstBlock}, nil
		}

		return ptypes.ReorgCheckResult{Kind: ptypes.ParentNotFound}, nil
	}

	if stored == claimedParent {
		return ptypes.ReorgCheckResult{Kind: ptypes.NoReorg}, nil
	}

	h.log.Warnw("parent hash mismatch",
		"block", block,
		"recorded_parent", stored.Hex(),
		"claimed_parent", claimedParent.Hex(),
	)

	forkPoint, err := h.findForkPoint(ctx, parent)
	if err != nil {
		return ptypes.ReorgCheckResult{}, err
	}

	return ptypes.ReorgCheckResult{
		Kind:           ptypes.ReorgDetected,
		ForkPoint:      forkPoint,
		Depth:          parent - forkPoint,
		RecordedParent: stored,
	}, nil
}

// findForkPoint walks down from the first orphaned height until the recorded hash
// equals the canonical one. It fails closed when the walk leaves the retained
// window or exceeds MaxReorgDepth.
func (h *Handler) findForkPoint(ctx context.Context, from uint64) (uint64, error) {
	floor := from - min(from, h.cfg.MaxReorgDepth)

	for hi := from; ; {
		lo := floor
		if hi-floor >= walkBatch {
			lo = hi - walkBatch + 1
		}

		heights := make([]uint64, 0, hi-lo+1)
		for n := hi; n >= lo && n <= hi; n-- {
			heights = append(heights, n)
		}

		canonical, err := h.chain.BatchGetBlockHeaders(ctx, heights)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch canonical headers %d..%d: %w", lo, hi, err)
		}

		for i, n := range heights {
			stored, ok, err := h.store.GetBlockHash(ctx, n)
			if err != nil {
				return 0, fmt.Errorf("failed to get recorded hash of block %d: %w", n, err)
			}
			if !ok {
				return 0, &ForkPointError{From: from, Lowest: n, Reason: "walk left the retained window"}
			}

			if canonical[i].Hash() == stored {
				h.log.Infow("fork point found", "fork_point", n, "walked", from-n+1)
				return n, nil
			}
		}

		if lo == floor {
			return 0, &ForkPointError{
				From:   from,
				Lowest: lo,
				Reason: fmt.Sprintf("exceeded max reorg depth %d", h.cfg.MaxReorgDepth),
			}
		}
		hi = lo - 1
	}
}

// RecordBlock stores the linkage of a block whose events were fully dispatched.
func (h *Handler) RecordBlock(ctx context.Context, block uint64, hash, parent common.Hash, timestamp uint64) error {
	err := h.store.InsertBlockHash(ctx, ptypes.BlockRecord{
		BlockNumber: block,
		BlockHash:   hash,
		ParentHash:  parent,
		Timestamp:   timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to record block %d: %w", block, err)
	}

	return nil
}

// ExecuteRollback deletes every block record above forkPoint. Repeating it is a no-op.
func (h *Handler) ExecuteRollback(ctx context.Context, forkPoint uint64) (int64, error) {
	deleted, err := h.store.ExecuteReorgRollback(ctx, forkPoint)
	if err != nil {
		return 0, fmt.Errorf("failed to roll back to block %d: %w", forkPoint, err)
	}

	return deleted, nil
}

// HandleReorg rewinds the registered handlers, then rolls the block records back to forkPoint.
// Rewinders run first so that a crash in between is detected again on restart.
func (h *Handler) HandleReorg(
	ctx context.Context,
	detectedAt, forkPoint uint64,
	orphanedHash, newHash common.Hash,
) (ptypes.ReorgStats, error) {
	if forkPoint >= detectedAt {
		return ptypes.ReorgStats{}, fmt.Errorf("fork point %d must be below detection block %d", forkPoint, detectedAt)
	}

	for _, r := range h.rewinders {
		if err := r.Rewind(ctx, forkPoint); err != nil {
			return ptypes.ReorgStats{}, fmt.Errorf("failed to rewind handlers to block %d: %w", forkPoint, err)
		}
	}

	deleted, err := h.ExecuteRollback(ctx, forkPoint)
	if err != nil {
		return ptypes.ReorgStats{}, err
	}

	stats := ptypes.ReorgStats{
		DetectedAt:   detectedAt,
		ForkPoint:    forkPoint,
		Depth:        max(detectedAt-1-forkPoint, uint64(deleted)),
		OrphanedHash: orphanedHash,
		NewHash:      newHash,
	}

	ReorgHandledLog(stats, deleted)
	metrics.ComponentHealthSet(icommon.ComponentReorg, true)

	h.log.Warnw("reorg handled",
		"detected_at", stats.DetectedAt,
		"fork_point", stats.ForkPoint,
		"depth", stats.Depth,
		"orphaned_hash", stats.OrphanedHash.Hex(),
		"new_hash", stats.NewHash.Hex(),
		"records_deleted", deleted,
	)

	return stats, nil
}

// Prune deletes block records older than the retention window.
// It matches db.RetentionFunc so the maintenance coordinator can run it.
func (h *Handler) Prune(ctx context.Context) (int64, error) {
	if h.cfg.RetainBlocks == 0 {
		return 0, nil
	}

	latest, err := h.store.LatestBlockRecord(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block record: %w", err)
	}
	if latest == nil || latest.BlockNumber < h.cfg.RetainBlocks {
		return 0, nil
	}

	before := latest.BlockNumber - h.cfg.RetainBlocks + 1
	pruned, err := h.store.PruneOldBlocks(ctx, before)
	if err != nil {
		return 0, err
	}

	if pruned > 0 {
		h.log.Debugw("pruned block records", "before", before, "count", pruned)
	}
	return pruned, nil
}

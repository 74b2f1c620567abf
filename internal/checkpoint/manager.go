package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/internal/metrics"
	pkgcheckpoint "github.com/goran-ethernal/EventIndexor/pkg/checkpoint"
	"github.com/goran-ethernal/EventIndexor/pkg/config"
	pkgstore "github.com/goran-ethernal/EventIndexor/pkg/store"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

var _ pkgcheckpoint.Manager = (*Manager)(nil)

var (
	// ErrCheckpointRegression is returned when Update would move the checkpoint backwards.
	ErrCheckpointRegression = errors.New("checkpoint regression")
	// ErrCheckpointAdvance is returned when ResetTo would move the checkpoint forwards.
	ErrCheckpointAdvance = errors.New("checkpoint reset must not advance")
)

// Manager persists indexing progress through the state store.
type Manager struct {
	store    pkgstore.StateStore
	minBlock uint64
	recovery config.RecoveryConfig
	log      *logger.Logger
}

// NewManager creates a checkpoint manager for the given indexer configuration.
func NewManager(store pkgstore.StateStore, cfg config.IndexerConfig, log *logger.Logger) *Manager {
	return &Manager{
		store:    store,
		minBlock: cfg.MinBlock,
		recovery: cfg.Recovery,
		log:      log.WithComponent(icommon.ComponentCheckpoint),
	}
}

// StartBlock resolves the resume point. A recovery mode overrides the stored checkpoint
// and the configured minimum block wins whenever it is later.
func (m *Manager) StartBlock(ctx context.Context) (uint64, error) {
	switch icommon.ToLowerWithTrim(m.recovery.Mode) {
	case config.RecoveryGenesis:
		m.log.Warnw("recovery mode ignores stored checkpoint", "mode", config.RecoveryGenesis, "start_block", m.minBlock)
		return m.minBlock, nil

	case config.RecoveryReindexFrom:
		start := max(m.recovery.FromBlock, m.minBlock)
		m.log.Warnw("recovery mode ignores stored checkpoint", "mode", config.RecoveryReindexFrom, "start_block", start)
		return start, nil
	}

	state, err := m.Load(ctx)
	if err != nil {
		return 0, err
	}

	if state.IsEmpty() {
		m.log.Infow("no checkpoint found", "start_block", m.minBlock)
		return m.minBlock, nil
	}

	start := max(state.LastBlock+1, m.minBlock)
	m.log.Infow("resuming from checkpoint", "last_block", state.LastBlock, "start_block", start)

	return start, nil
}

// Load returns the persisted checkpoint.
func (m *Manager) Load(ctx context.Context) (types.CheckpointState, error) {
	state, err := m.store.GetLastBlock(ctx)
	if err != nil {
		return types.CheckpointState{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	return state, nil
}

// Update records block as the last fully processed block.
func (m *Manager) Update(ctx context.Context, block uint64, hash common.Hash) error {
	state, err := m.Load(ctx)
	if err != nil {
		return err
	}

	if !state.IsEmpty() && block < state.LastBlock {
		return fmt.Errorf("%w: %d -> %d", ErrCheckpointRegression, state.LastBlock, block)
	}

	if err := m.store.SetLastBlock(ctx, block, &hash); err != nil {
		return fmt.Errorf("failed to update checkpoint to %d: %w", block, err)
	}

	metrics.LastProcessedBlockSet(block)
	m.log.Debugw("checkpoint updated", "block", block, "hash", hash.Hex())

	return nil
}

// ResetTo moves the checkpoint back to block. Resetting to the current block is a no-op write.
func (m *Manager) ResetTo(ctx context.Context, block uint64, hash common.Hash) error {
	state, err := m.Load(ctx)
	if err != nil {
		return err
	}

	if state.IsEmpty() || block > state.LastBlock {
		return fmt.Errorf("%w: %d -> %d", ErrCheckpointAdvance, state.LastBlock, block)
	}

	if err := m.store.SetLastBlock(ctx, block, &hash); err != nil {
		return fmt.Errorf("failed to reset checkpoint to %d: %w", block, err)
	}

	metrics.LastProcessedBlockSet(block)
	m.log.Warnw("checkpoint reset", "from", state.LastBlock, "to", block, "hash", hash.Hex())

	return nil
}

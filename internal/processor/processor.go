package processor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/checkpoint"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/internal/metadata"
	"github.com/goran-ethernal/EventIndexor/internal/metrics"
	"github.com/goran-ethernal/EventIndexor/internal/reorg"
	"github.com/goran-ethernal/EventIndexor/internal/router"
	pkgcheckpoint "github.com/goran-ethernal/EventIndexor/pkg/checkpoint"
	"github.com/goran-ethernal/EventIndexor/pkg/config"
	pkgreorg "github.com/goran-ethernal/EventIndexor/pkg/reorg"
	pkgrpc "github.com/goran-ethernal/EventIndexor/pkg/rpc"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Mode is the ingestion mode a batch was processed in.
type Mode string

const (
	// ModeBackfill processes a fixed historical range
	ModeBackfill Mode = "backfill"
	// ModeLive follows the chain head
	ModeLive Mode = "live"
)

// maxBatchAttempts bounds how often Backfill retries one batch before reporting it as failed.
const maxBatchAttempts = 3

// BlockRange is an inclusive range of blocks.
type BlockRange struct {
	From uint64
	To   uint64
}

// Progress is the cumulative state of a Backfill or StartPolling run.
type Progress struct {
	Mode            Mode
	From            uint64
	To              uint64 // target block; the last seen head while polling
	LastBlock       uint64
	BlocksProcessed uint64
	LogsDispatched  uint64
	FailedBatches   int
	Reorgs          int
	Elapsed         time.Duration
}

// Percent returns how much of [From, To] is done.
func (p Progress) Percent() float64 {
	if p.To < p.From || p.LastBlock < p.From {
		return 0
	}
	return float64(p.LastBlock-p.From+1) / float64(p.To-p.From+1) * 100 //nolint:mnd
}

// Config configures the block processor.
type Config struct {
	BatchSize    uint64
	PollInterval time.Duration
	Finality     types.BlockFinality
	StrictFetch  bool
	Contracts    []config.ContractConfig

	// OnProgress, if set, is called after every processed batch.
	OnProgress func(Progress)
}

// NewConfig builds the processor configuration from the loaded configuration.
func NewConfig(cfg config.IndexerConfig, contracts []config.ContractConfig) (Config, error) {
	finality, err := types.ParseBlockFinality(cfg.Finality)
	if err != nil {
		return Config{}, fmt.Errorf("invalid finality configuration: %w", err)
	}

	return Config{
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval.Duration,
		Finality:     finality,
		StrictFetch:  cfg.StrictFetch,
		Contracts:    contracts,
	}, nil
}

// Processor pulls logs for the monitored contracts, validates block linkage and
// hands the logs to the event router in chain order.
type Processor struct {
	cfg        Config
	chain      pkgrpc.EthClient
	reorg      pkgreorg.Handler
	checkpoint pkgcheckpoint.Manager
	builder    *metadata.Builder
	dispatch   *Dispatch
	log        *logger.Logger
}

// New creates a block processor.
func New(
	cfg Config,
	chain pkgrpc.EthClient,
	reorgHandler pkgreorg.Handler,
	cp pkgcheckpoint.Manager,
	dispatch *Dispatch,
	log *logger.Logger,
) *Processor {
	p := &Processor{
		cfg:        cfg,
		chain:      chain,
		reorg:      reorgHandler,
		checkpoint: cp,
		builder:    metadata.NewBuilder(chain, log),
		dispatch:   dispatch,
		log:        log.WithComponent(icommon.ComponentProcessor),
	}

	metrics.ComponentHealthSet(icommon.ComponentProcessor, true)
	p.log.Infow("block processor initialized",
		"contracts", len(cfg.Contracts),
		"batch_size", cfg.BatchSize,
		"finality", cfg.Finality,
		"strict_fetch", cfg.StrictFetch,
	)

	return p
}

// Backfill processes the inclusive range [from, to]. Processing stops at the first
// batch that still fails after maxBatchAttempts, or at once on a fatal error; that
// batch is returned with the error and nothing above it is dispatched or recorded.
func (p *Processor) Backfill(ctx context.Context, from, to uint64) ([]BlockRange, error) {
	if from > to {
		return nil, fmt.Errorf("invalid backfill range [%d, %d]", from, to)
	}

	p.log.Infow("starting backfill", "from", from, "to", to)

	start := time.Now()
	progress := Progress{Mode: ModeBackfill, From: from, To: to}

	for cursor := from; cursor <= to; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batchTo := min(to, cursor+p.cfg.BatchSize-1)

		res, err := p.processWithRetry(ctx, cursor, batchTo)
		if err != nil {
			failed := []BlockRange{{From: cursor, To: batchTo}}
			if ctx.Err() != nil {
				return failed, err
			}

			p.log.Errorw("backfill stopped at failed batch", "from", cursor, "to", batchTo, "error", err)
			progress.FailedBatches++
			p.report(&progress, start)

			return failed, fmt.Errorf("batch [%d, %d] failed: %w", cursor, batchTo, err)
		}

		progress.apply(res)
		p.report(&progress, start)
		cursor = res.next
	}

	p.log.Infow("backfill finished",
		"from", from,
		"to", to,
		"blocks", progress.BlocksProcessed,
		"logs", progress.LogsDispatched,
		"elapsed", time.Since(start),
	)

	return nil, nil
}

// processWithRetry retries transient failures of one batch. Fatal errors return at once.
func (p *Processor) processWithRetry(ctx context.Context, from, to uint64) (batchResult, error) {
	var lastErr error

	for attempt := 1; attempt <= maxBatchAttempts; attempt++ {
		res, err := p.processBatch(ctx, from, to, ModeBackfill)
		if err == nil {
			return res, nil
		}
		if p.fatal(ctx, err) {
			return batchResult{}, err
		}

		lastErr = err
		p.cycleFailed(ModeBackfill, from, to, err)

		if attempt < maxBatchAttempts {
			if err := p.sleep(ctx); err != nil {
				return batchResult{}, err
			}
		}
	}

	return batchResult{}, fmt.Errorf("giving up after %d attempts: %w", maxBatchAttempts, lastErr)
}

// StartPolling follows the head from block from until ctx is cancelled or a fatal
// error occurs. The cursor only advances over successfully processed batches.
func (p *Processor) StartPolling(ctx context.Context, from uint64) error {
	p.log.Infow("starting polling", "from", from, "poll_interval", p.cfg.PollInterval)

	start := time.Now()
	progress := Progress{Mode: ModeLive, From: from}

	cursor := from
	for {
		if err := ctx.Err(); err != nil {
			p.log.Infow("polling stopped", "next_block", cursor)
			return err
		}

		head, err := p.chain.BlockNumber(ctx, p.cfg.Finality)
		if err != nil {
			if p.fatal(ctx, err) {
				return err
			}
			p.cycleFailed(ModeLive, cursor, cursor, err)
			if err := p.sleep(ctx); err != nil {
				return err
			}
			continue
		}
		metrics.ChainHeadSet(head)

		if cursor > head {
			p.log.Debugw("waiting for new blocks", "next_block", cursor, "head", head)
			if err := p.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		to := min(head, cursor+p.cfg.BatchSize-1)

		res, err := p.processBatch(ctx, cursor, to, ModeLive)
		if err != nil {
			if p.fatal(ctx, err) {
				metrics.ComponentHealthSet(icommon.ComponentProcessor, false)
				return err
			}
			p.cycleFailed(ModeLive, cursor, to, err)
			if err := p.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		progress.To = head
		progress.apply(res)
		p.report(&progress, start)
		cursor = res.next
	}
}

type batchResult struct {
	next   uint64
	blocks uint64
	logs   uint64
	reorg  bool
}

func (p *Progress) apply(res batchResult) {
	p.LastBlock = res.next - 1
	p.BlocksProcessed += res.blocks
	p.LogsDispatched += res.logs
	if res.reorg {
		p.Reorgs++
	}
}

type logItem struct {
	log  types.RawLog
	meta types.EventMetadata
}

// processBatch runs one fetch, check and dispatch cycle over [from, to].
// On a reorg it stops at the detecting block and resumes from the fork point.
func (p *Processor) processBatch(
	ctx context.Context,
	from, to uint64,
	mode Mode,
) (batchResult, error) {
	start := time.Now()

	logs, err := p.fetchLogs(ctx, from, to)
	if err != nil {
		return batchResult{}, err
	}

	headers, err := p.fetchHeaders(ctx, from, to)
	if err != nil {
		return batchResult{}, err
	}

	p.builder.Reset()
	p.builder.Prime(headers)

	items := make([]logItem, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}

		meta, err := p.builder.Build(ctx, l)
		if err != nil {
			return batchResult{}, fmt.Errorf("failed to build event metadata: %w", err)
		}
		if meta.BlockNumber < from || meta.BlockNumber > to {
			return batchResult{}, fmt.Errorf("%w: log at block %d outside requested range [%d, %d]",
				metadata.ErrDecoding, meta.BlockNumber, from, to)
		}

		items = append(items, logItem{log: l, meta: meta})
	}

	slices.SortStableFunc(items, func(a, b logItem) int {
		return types.CompareOrder(a.meta, b.meta)
	})

	res := batchResult{next: to + 1}

	next := 0
	for _, header := range headers {
		block := header.Number.Uint64()

		check, err := p.reorg.CheckForReorg(ctx, block, header.ParentHash)
		if err != nil {
			return res, fmt.Errorf("failed to check block %d for reorg: %w", block, err)
		}

		switch check.Kind {
		case types.ReorgDetected:
			return p.recoverReorg(ctx, block, check, header, headers, res)
		case types.ParentNotFound:
			p.log.Warnw("parent block not recorded, accepting block", "block", block)
		}

		dispatched := uint64(0)
		for ; next < len(items) && items[next].meta.BlockNumber == block; next++ {
			if err := p.dispatch.Send(ctx, items[next].log, items[next].meta); err != nil {
				return res, fmt.Errorf("failed to dispatch log of block %d: %w", block, err)
			}
			dispatched++
		}

		if dispatched > 0 {
			if err := p.dispatch.Flush(ctx); err != nil {
				return res, fmt.Errorf("failed to route logs of block %d: %w", block, err)
			}
		}

		if err := p.reorg.RecordBlock(ctx, block, header.Hash(), header.ParentHash, header.Time); err != nil {
			return res, err
		}

		res.blocks++
		res.logs += dispatched
	}

	if err := p.updateCheckpoint(ctx, to, headers[len(headers)-1].Hash()); err != nil {
		return res, err
	}

	elapsed := time.Since(start)
	metrics.BlocksProcessedInc(string(mode), res.blocks)
	metrics.BatchProcessingTimeLog(string(mode), elapsed)
	if elapsed > 0 {
		metrics.IndexingRateLog(string(mode), float64(res.blocks)/elapsed.Seconds())
	}

	p.log.Debugw("batch processed",
		"mode", mode,
		"from", from,
		"to", to,
		"logs", res.logs,
		"elapsed", elapsed,
	)

	return res, nil
}

// updateCheckpoint advances the checkpoint. A checkpoint already past the batch is left
// alone: the batch re-processed blocks that were indexed before.
func (p *Processor) updateCheckpoint(ctx context.Context, block uint64, hash common.Hash) error {
	err := p.checkpoint.Update(ctx, block, hash)
	if errors.Is(err, checkpoint.ErrCheckpointRegression) {
		p.log.Debugw("checkpoint ahead of processed batch, keeping it", "block", block)
		return nil
	}

	return err
}

// recoverReorg repairs state after a reorg detected at block and resumes from the fork point.
func (p *Processor) recoverReorg(
	ctx context.Context,
	block uint64,
	check types.ReorgCheckResult,
	header *ethtypes.Header,
	headers []*ethtypes.Header,
	res batchResult,
) (batchResult, error) {
	stats, err := p.reorg.HandleReorg(ctx, block, check.ForkPoint, check.RecordedParent, header.ParentHash)
	if err != nil {
		return res, fmt.Errorf("failed to handle reorg at block %d: %w", block, err)
	}

	forkHash, err := p.blockHash(ctx, check.ForkPoint, headers)
	if err != nil {
		return res, err
	}

	state, err := p.checkpoint.Load(ctx)
	if err != nil {
		return res, err
	}
	if !state.IsEmpty() && state.LastBlock >= check.ForkPoint {
		if err := p.checkpoint.ResetTo(ctx, check.ForkPoint, forkHash); err != nil {
			return res, err
		}
	}

	p.log.Warnw("resuming after reorg",
		"detected_at", stats.DetectedAt,
		"fork_point", stats.ForkPoint,
		"depth", stats.Depth,
		"next_block", check.ForkPoint+1,
	)

	res.next = check.ForkPoint + 1
	res.reorg = true

	return res, nil
}

func (p *Processor) blockHash(ctx context.Context, block uint64, headers []*ethtypes.Header) (common.Hash, error) {
	if first := headers[0].Number.Uint64(); block >= first {
		return headers[block-first].Hash(), nil
	}

	header, err := p.chain.GetBlockHeader(ctx, block)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get fork point header %d: %w", block, err)
	}

	return header.Hash(), nil
}

// fetchLogs pulls the logs of every monitored contract concurrently.
// A failing contract is skipped unless StrictFetch is set.
func (p *Processor) fetchLogs(ctx context.Context, from, to uint64) ([]types.RawLog, error) {
	results := make([][]types.RawLog, len(p.cfg.Contracts))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range p.cfg.Contracts {
		g.Go(func() error {
			logs, err := p.chain.GetLogs(gctx, c.HexAddress(), from, to)
			if err != nil {
				metrics.ContractFetchFailureInc(c.Name)
				if p.cfg.StrictFetch || ctx.Err() != nil {
					return fmt.Errorf("failed to fetch logs of %s: %w", c.Name, err)
				}

				p.log.Warnw("skipping contract for this batch",
					"contract", c.Name,
					"from", from,
					"to", to,
					"error", err,
				)
				return nil
			}

			metrics.LogsFetchedInc(c.Name, len(logs))
			results[i] = logs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, logs := range results {
		total += len(logs)
	}

	merged := make([]types.RawLog, 0, total)
	for _, logs := range results {
		merged = append(merged, logs...)
	}

	return merged, nil
}

func (p *Processor) fetchHeaders(ctx context.Context, from, to uint64) ([]*ethtypes.Header, error) {
	nums := make([]uint64, 0, to-from+1)
	for n := from; n <= to; n++ {
		nums = append(nums, n)
	}

	headers, err := p.chain.BatchGetBlockHeaders(ctx, nums)
	if err != nil {
		return nil, fmt.Errorf("failed to get headers [%d, %d]: %w", from, to, err)
	}

	if len(headers) != len(nums) {
		return nil, fmt.Errorf("expected %d headers for [%d, %d], got %d", len(nums), from, to, len(headers))
	}
	for i, h := range headers {
		if h == nil || h.Number.Uint64() != nums[i] {
			return nil, fmt.Errorf("unexpected header at position %d of [%d, %d]", i, from, to)
		}
	}

	return headers, nil
}

// fatal reports whether err must abort the ingestion loop instead of being retried.
// Malformed logs fail the same way on every attempt.
func (p *Processor) fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, ErrDispatchClosed) ||
		errors.Is(err, reorg.ErrForkPointNotFound) ||
		errors.Is(err, router.ErrDecode) ||
		errors.Is(err, metadata.ErrDecoding)
}

func (p *Processor) cycleFailed(mode Mode, from, to uint64, err error) {
	metrics.CycleFailureInc(string(mode))
	metrics.ErrorInc(icommon.ComponentProcessor, "warning")
	p.log.Warnw("cycle failed, retrying", "mode", mode, "from", from, "to", to, "error", err)
}

func (p *Processor) report(progress *Progress, start time.Time) {
	progress.Elapsed = time.Since(start)

	p.log.Infow("progress",
		"mode", progress.Mode,
		"last_block", progress.LastBlock,
		"target", progress.To,
		"blocks", progress.BlocksProcessed,
		"logs", progress.LogsDispatched,
		"reorgs", progress.Reorgs,
	)

	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(*progress)
	}
}

func (p *Processor) sleep(ctx context.Context) error {
	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

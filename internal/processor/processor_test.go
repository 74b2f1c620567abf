package processor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/EventIndexor/internal/checkpoint"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/internal/metadata"
	"github.com/goran-ethernal/EventIndexor/internal/reorg"
	"github.com/goran-ethernal/EventIndexor/internal/router"
	"github.com/goran-ethernal/EventIndexor/internal/store"
	"github.com/goran-ethernal/EventIndexor/pkg/config"
	"github.com/goran-ethernal/EventIndexor/pkg/events"
	"github.com/goran-ethernal/EventIndexor/pkg/handlers"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
	"github.com/goran-ethernal/EventIndexor/tests/helpers"
	"github.com/stretchr/testify/require"
)

var (
	contractA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	contractB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	holder    = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

// fakeChain is an in-memory chain that can be forked from any height.
type fakeChain struct {
	mu          sync.Mutex
	headers     map[uint64]*ethtypes.Header
	logs        map[common.Address][]types.RawLog
	head        uint64
	failing     map[common.Address]error
	delays      map[common.Address]time.Duration
	headerFails int
	headerCalls int
}

func newFakeChain(to uint64) *fakeChain {
	c := &fakeChain{
		headers: make(map[uint64]*ethtypes.Header),
		logs:    make(map[common.Address][]types.RawLog),
		failing: make(map[common.Address]error),
		delays:  make(map[common.Address]time.Duration),
		head:    to,
	}
	c.extend(0, to, 0)
	return c
}

// extend (re)builds blocks from..to on top of the header at from-1.
func (c *fakeChain) extend(from, to, salt uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var parent common.Hash
	if from > 0 {
		parent = c.headers[from-1].Hash()
	}

	for n := from; n <= to; n++ {
		h := &ethtypes.Header{
			Number:     new(big.Int).SetUint64(n),
			ParentHash: parent,
			Difficulty: big.NewInt(1),
			Time:       1_000 + n,
			Extra:      []byte(fmt.Sprintf("salt-%d", salt)),
		}
		c.headers[n] = h
		parent = h.Hash()
	}

	for addr, logs := range c.logs {
		kept := logs[:0]
		for _, l := range logs {
			if *l.BlockNumber < from {
				kept = append(kept, l)
			}
		}
		c.logs[addr] = kept
	}
}

func (c *fakeChain) header(n uint64) *ethtypes.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers[n]
}

func (c *fakeChain) setHead(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = n
}

// addTransfer emits a token Transfer of value at (block, logIndex).
func (c *fakeChain) addTransfer(t *testing.T, addr common.Address, block uint64, logIndex uint, value int64) {
	t.Helper()

	token, err := events.LoadABI(config.FamilyToken)
	require.NoError(t, err)
	transfer := token.Events["Transfer"]

	data, err := transfer.Inputs.NonIndexed().Pack(big.NewInt(value))
	require.NoError(t, err)
	topics, err := abi.MakeTopics([]any{holder}, []any{addr})
	require.NoError(t, err)

	hash := c.header(block).Hash()
	txHash := common.BigToHash(big.NewInt(int64(block*1000) + int64(logIndex)))
	txIndex := logIndex

	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs[addr] = append(c.logs[addr], types.RawLog{
		Address:     addr,
		Topics:      []common.Hash{transfer.ID, topics[0][0], topics[1][0]},
		Data:        data,
		BlockNumber: &block,
		BlockHash:   &hash,
		TxHash:      &txHash,
		TxIndex:     &txIndex,
		LogIndex:    &logIndex,
	})
}

// truncateData cuts the data of every log of addr at block down to n bytes.
func (c *fakeChain) truncateData(addr common.Address, block uint64, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, l := range c.logs[addr] {
		if *l.BlockNumber == block {
			c.logs[addr][i].Data = l.Data[:n]
		}
	}
}

func (c *fakeChain) Close() {}

func (c *fakeChain) BlockNumber(context.Context, types.BlockFinality) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *fakeChain) GetLogs(ctx context.Context, addr common.Address, from, to uint64) ([]types.RawLog, error) {
	c.mu.Lock()
	delay, err := c.delays[addr], c.failing[addr]
	var out []types.RawLog
	for _, l := range c.logs[addr] {
		if *l.BlockNumber >= from && *l.BlockNumber <= to {
			out = append(out, l)
		}
	}
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fakeChain) GetBlockHeader(_ context.Context, n uint64) (*ethtypes.Header, error) {
	h := c.header(n)
	if h == nil {
		return nil, fmt.Errorf("header %d: not found", n)
	}
	return h, nil
}

func (c *fakeChain) BatchGetBlockHeaders(_ context.Context, nums []uint64) ([]*ethtypes.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.headerCalls++
	if c.headerFails > 0 {
		c.headerFails--
		return nil, errors.New("503 service unavailable")
	}

	out := make([]*ethtypes.Header, len(nums))
	for i, n := range nums {
		h, ok := c.headers[n]
		if !ok {
			return nil, fmt.Errorf("header %d: not found", n)
		}
		out[i] = h
	}
	return out, nil
}

type delivered struct {
	contract common.Address
	block    uint64
	logIndex uint
	value    int64
}

// recordingToken keeps delivered transfers and drops them again on Rewind.
type recordingToken struct {
	mu        sync.Mutex
	transfers []delivered
	rewinds   []uint64
}

func (r *recordingToken) HandleTransfer(_ context.Context, ev *events.Transfer, meta types.EventMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers = append(r.transfers, delivered{
		contract: meta.Contract,
		block:    meta.BlockNumber,
		logIndex: meta.LogIndex,
		value:    ev.Value.Int64(),
	})
	return nil
}

func (r *recordingToken) HandleApproval(context.Context, *events.Approval, types.EventMetadata) error {
	return nil
}

func (r *recordingToken) Rewind(_ context.Context, forkPoint uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rewinds = append(r.rewinds, forkPoint)
	kept := r.transfers[:0]
	for _, d := range r.transfers {
		if d.block <= forkPoint {
			kept = append(kept, d)
		}
	}
	r.transfers = kept
	return nil
}

func (r *recordingToken) snapshot() []delivered {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivered(nil), r.transfers...)
}

type harness struct {
	chain      *fakeChain
	store      *store.SQLiteStore
	token      *recordingToken
	dispatch   *Dispatch
	checkpoint *checkpoint.Manager
	proc       *Processor
}

type harnessOpts struct {
	maxReorgDepth uint64
	mutate        func(cfg *Config)
}

func newHarness(t *testing.T, chain *fakeChain, opts harnessOpts) *harness {
	t.Helper()

	nop := logger.NewNopLogger()
	contracts := []config.ContractConfig{
		{Name: "token-a", Address: contractA.Hex(), Family: config.FamilyToken},
		{Name: "token-b", Address: contractB.Hex(), Family: config.FamilyToken},
	}

	if opts.maxReorgDepth == 0 {
		opts.maxReorgDepth = 64
	}

	s := helpers.NewTestStore(t)
	token := &recordingToken{}
	reorgHandler := reorg.NewHandler(s, chain, reorg.Config{MaxReorgDepth: opts.maxReorgDepth}, nop, token)
	cp := checkpoint.NewManager(s, config.IndexerConfig{}, nop)

	r, err := router.New(handlers.Set{Token: token}, contracts, nop)
	require.NoError(t, err)

	dispatch := NewDispatch(4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer dispatch.Close()
		_ = r.Run(ctx, dispatch.C())
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cfg := Config{
		BatchSize:    10,
		PollInterval: 5 * time.Millisecond,
		Finality:     types.FinalityLatest,
		Contracts:    contracts,
	}
	if opts.mutate != nil {
		opts.mutate(&cfg)
	}

	return &harness{
		chain:      chain,
		store:      s,
		token:      token,
		dispatch:   dispatch,
		checkpoint: cp,
		proc:       New(cfg, chain, reorgHandler, cp, dispatch, nop),
	}
}

func (h *harness) requireCheckpoint(t *testing.T, block uint64) {
	t.Helper()

	state, err := h.store.GetLastBlock(t.Context())
	require.NoError(t, err)
	require.Equal(t, block, state.LastBlock)
	require.Equal(t, h.chain.header(block).Hash(), *state.LastHash)
}

func TestBackfill_DeliversInChainOrder(t *testing.T) {
	chain := newFakeChain(20)
	// contract A answers last, its logs still interleave by position
	chain.delays[contractA] = 30 * time.Millisecond

	chain.addTransfer(t, contractB, 3, 0, 1)
	chain.addTransfer(t, contractA, 3, 1, 2)
	chain.addTransfer(t, contractB, 3, 2, 3)
	chain.addTransfer(t, contractA, 12, 0, 4)
	chain.addTransfer(t, contractB, 12, 5, 5)
	chain.addTransfer(t, contractA, 15, 1, 6)

	var progress []Progress
	h := newHarness(t, chain, harnessOpts{mutate: func(cfg *Config) {
		cfg.OnProgress = func(p Progress) { progress = append(progress, p) }
	}})

	failed, err := h.proc.Backfill(t.Context(), 1, 20)
	require.NoError(t, err)
	require.Empty(t, failed)

	got := h.token.snapshot()
	require.Len(t, got, 6)
	for i, d := range got {
		require.Equal(t, int64(i+1), d.value, "transfer %d delivered out of order", i)
	}
	require.Equal(t, contractB, got[0].contract)
	require.Equal(t, contractA, got[1].contract)

	h.requireCheckpoint(t, 20)
	for n := uint64(1); n <= 20; n++ {
		hash, ok, err := h.store.GetBlockHash(t.Context(), n)
		require.NoError(t, err)
		require.True(t, ok, "block %d not recorded", n)
		require.Equal(t, chain.header(n).Hash(), hash)
	}

	require.Len(t, progress, 2)
	last := progress[1]
	require.Equal(t, uint64(20), last.LastBlock)
	require.Equal(t, uint64(20), last.BlocksProcessed)
	require.Equal(t, uint64(6), last.LogsDispatched)
	require.InDelta(t, 100.0, last.Percent(), 0.001)
}

func TestBackfill_SkipsFailingContract(t *testing.T) {
	chain := newFakeChain(10)
	chain.addTransfer(t, contractA, 2, 0, 1)
	chain.addTransfer(t, contractB, 4, 0, 2)
	chain.failing[contractB] = errors.New("execution timeout")

	h := newHarness(t, chain, harnessOpts{})

	failed, err := h.proc.Backfill(t.Context(), 1, 10)
	require.NoError(t, err)
	require.Empty(t, failed)

	got := h.token.snapshot()
	require.Len(t, got, 1)
	require.Equal(t, contractA, got[0].contract)
	h.requireCheckpoint(t, 10)
}

func TestBackfill_StrictFetchStopsAtFailedBatch(t *testing.T) {
	chain := newFakeChain(25)
	chain.addTransfer(t, contractA, 2, 0, 1)
	chain.failing[contractB] = errors.New("execution timeout")

	h := newHarness(t, chain, harnessOpts{mutate: func(cfg *Config) { cfg.StrictFetch = true }})

	failed, err := h.proc.Backfill(t.Context(), 1, 25)
	require.ErrorContains(t, err, "execution timeout")
	require.Equal(t, []BlockRange{{From: 1, To: 10}}, failed)
	require.Empty(t, h.token.snapshot())

	state, err := h.store.GetLastBlock(t.Context())
	require.NoError(t, err)
	require.True(t, state.IsEmpty())
}

func TestBackfill_StopsAtFailedBatch(t *testing.T) {
	chain := newFakeChain(20)
	chain.addTransfer(t, contractA, 3, 0, 1)
	chain.addTransfer(t, contractA, 15, 0, 2)
	// the first batch and all its retries fail
	chain.headerFails = maxBatchAttempts

	h := newHarness(t, chain, harnessOpts{})

	failed, err := h.proc.Backfill(t.Context(), 1, 20)
	require.ErrorContains(t, err, "503 service unavailable")
	require.Equal(t, []BlockRange{{From: 1, To: 10}}, failed)
	require.Equal(t, maxBatchAttempts, chain.headerCalls, "no batch above the failed one is attempted")

	require.Empty(t, h.token.snapshot())
	state, err := h.store.GetLastBlock(t.Context())
	require.NoError(t, err)
	require.True(t, state.IsEmpty())
	for n := uint64(1); n <= 20; n++ {
		_, ok, err := h.store.GetBlockHash(t.Context(), n)
		require.NoError(t, err)
		require.False(t, ok, "block %d recorded past a failed batch", n)
	}

	// the caller retries from the checkpoint and sees every block in order
	from, err := h.checkpoint.StartBlock(t.Context())
	require.NoError(t, err)
	failed, err = h.proc.Backfill(t.Context(), max(from, 1), 20)
	require.NoError(t, err)
	require.Empty(t, failed)

	got := h.token.snapshot()
	require.Len(t, got, 2)
	require.Equal(t, []uint64{3, 15}, []uint64{got[0].block, got[1].block})
	h.requireCheckpoint(t, 20)
}

func TestBackfill_UndecodableLogIsFatal(t *testing.T) {
	chain := newFakeChain(20)
	chain.addTransfer(t, contractA, 3, 0, 1)
	chain.addTransfer(t, contractA, 15, 0, 2)
	chain.truncateData(contractA, 3, 7)

	h := newHarness(t, chain, harnessOpts{})

	failed, err := h.proc.Backfill(t.Context(), 1, 20)
	require.ErrorIs(t, err, router.ErrDecode)
	require.Equal(t, []BlockRange{{From: 1, To: 10}}, failed)
	require.Equal(t, 1, chain.headerCalls, "a malformed log is not retried")

	require.Empty(t, h.token.snapshot())
	state, err := h.store.GetLastBlock(t.Context())
	require.NoError(t, err)
	require.True(t, state.IsEmpty())
	for n := uint64(3); n <= 20; n++ {
		_, ok, err := h.store.GetBlockHash(t.Context(), n)
		require.NoError(t, err)
		require.False(t, ok, "block %d recorded past an undecodable log", n)
	}
}

func TestBackfill_MissingPositionFieldIsFatal(t *testing.T) {
	chain := newFakeChain(10)
	chain.addTransfer(t, contractA, 4, 0, 1)
	chain.mu.Lock()
	chain.logs[contractA][0].TxHash = nil
	chain.mu.Unlock()

	h := newHarness(t, chain, harnessOpts{})

	_, err := h.proc.Backfill(t.Context(), 1, 10)
	require.ErrorIs(t, err, metadata.ErrDecoding)
	require.Equal(t, 1, chain.headerCalls)
	require.Empty(t, h.token.snapshot())
}

func TestBackfill_DispatchClosedIsFatal(t *testing.T) {
	chain := newFakeChain(10)
	chain.addTransfer(t, contractA, 5, 0, 1)

	h := newHarness(t, chain, harnessOpts{})
	h.dispatch.Close()

	_, err := h.proc.Backfill(t.Context(), 1, 10)
	require.ErrorIs(t, err, ErrDispatchClosed)

	state, err := h.store.GetLastBlock(t.Context())
	require.NoError(t, err)
	require.True(t, state.IsEmpty())
}

func TestBackfill_InvalidRange(t *testing.T) {
	h := newHarness(t, newFakeChain(1), harnessOpts{})

	_, err := h.proc.Backfill(t.Context(), 5, 4)
	require.ErrorContains(t, err, "invalid backfill range [5, 4]")
}

func TestBackfill_RecoversFromReorg(t *testing.T) {
	chain := newFakeChain(12)
	chain.addTransfer(t, contractA, 5, 0, 1)
	chain.addTransfer(t, contractA, 9, 0, 2)

	var reorgs int
	h := newHarness(t, chain, harnessOpts{mutate: func(cfg *Config) {
		cfg.OnProgress = func(p Progress) { reorgs = p.Reorgs }
	}})

	_, err := h.proc.Backfill(t.Context(), 1, 10)
	require.NoError(t, err)
	require.Len(t, h.token.snapshot(), 2)

	// blocks 8 and above are replaced; block 9 now carries a different transfer
	chain.extend(8, 12, 1)
	chain.addTransfer(t, contractA, 9, 0, 3)
	chain.addTransfer(t, contractB, 11, 0, 4)

	_, err = h.proc.Backfill(t.Context(), 11, 12)
	require.NoError(t, err)
	require.Equal(t, 1, reorgs)

	require.Equal(t, []uint64{7}, h.token.rewinds)

	got := h.token.snapshot()
	require.Len(t, got, 3)
	require.Equal(t, []int64{1, 3, 4}, []int64{got[0].value, got[1].value, got[2].value})

	h.requireCheckpoint(t, 12)
	for n := uint64(8); n <= 12; n++ {
		hash, ok, err := h.store.GetBlockHash(t.Context(), n)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, chain.header(n).Hash(), hash, "block %d must carry the canonical hash", n)
	}
}

func TestStartPolling_FollowsHeadAndRetries(t *testing.T) {
	chain := newFakeChain(8)
	chain.setHead(5)
	chain.headerFails = 1
	chain.addTransfer(t, contractA, 4, 0, 1)
	chain.addTransfer(t, contractB, 7, 0, 2)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var lastSeen []uint64
	h := newHarness(t, chain, harnessOpts{mutate: func(cfg *Config) {
		cfg.OnProgress = func(p Progress) {
			lastSeen = append(lastSeen, p.LastBlock)
			switch p.LastBlock {
			case 5:
				chain.setHead(8)
			case 8:
				cancel()
			}
		}
	}})

	err := h.proc.StartPolling(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, []uint64{5, 8}, lastSeen)
	require.Equal(t, 3, chain.headerCalls, "the failed range is retried once")
	require.Len(t, h.token.snapshot(), 2)
	h.requireCheckpoint(t, 8)
}

func TestStartPolling_ForkBeyondMaxDepthIsFatal(t *testing.T) {
	chain := newFakeChain(12)
	h := newHarness(t, chain, harnessOpts{maxReorgDepth: 2})

	_, err := h.proc.Backfill(t.Context(), 1, 10)
	require.NoError(t, err)

	chain.extend(3, 12, 1)

	err = h.proc.StartPolling(t.Context(), 11)
	require.ErrorIs(t, err, reorg.ErrForkPointNotFound)

	// nothing was rolled back
	require.Empty(t, h.token.rewinds)
	h.requireCheckpointBlock(t, 10)
}

func (h *harness) requireCheckpointBlock(t *testing.T, block uint64) {
	t.Helper()

	state, err := h.store.GetLastBlock(t.Context())
	require.NoError(t, err)
	require.Equal(t, block, state.LastBlock)
}

func TestProgress_Percent(t *testing.T) {
	require.Zero(t, Progress{From: 10, To: 20}.Percent())
	require.InDelta(t, 50.0, Progress{From: 1, To: 10, LastBlock: 5}.Percent(), 0.001)
	require.Zero(t, Progress{From: 10, To: 5, LastBlock: 7}.Percent())
}

package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	ptypes "github.com/goran-ethernal/EventIndexor/pkg/types"
)

var (
	// ErrDecoding is returned for a log that lacks a required position field.
	ErrDecoding = errors.New("malformed log")

	// ErrBlockHashMismatch is returned when a log and the header at its height disagree,
	// meaning the chain moved between the two calls.
	ErrBlockHashMismatch = errors.New("log block hash does not match header")
)

// HeaderSource fetches single block headers.
type HeaderSource interface {
	GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error)
}

type blockInfo struct {
	hash      common.Hash
	timestamp uint64
}

// Builder turns raw logs into EventMetadata. Header lookups are memoised
// until the next Reset, so one batch costs at most one header fetch per block.
type Builder struct {
	headers HeaderSource
	log     *logger.Logger

	mu     sync.Mutex
	blocks map[uint64]blockInfo
}

// NewBuilder creates a Builder fetching timestamps from headers.
func NewBuilder(headers HeaderSource, log *logger.Logger) *Builder {
	return &Builder{
		headers: headers,
		log:     log.WithComponent(icommon.ComponentMetadata),
		blocks:  make(map[uint64]blockInfo),
	}
}

// Reset drops the memoised headers. Call it between batches.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.blocks)
}

// Prime seeds the cache with headers the caller already fetched.
func (b *Builder) Prime(headers []*types.Header) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, h := range headers {
		b.blocks[h.Number.Uint64()] = blockInfo{hash: h.Hash(), timestamp: h.Time}
	}
}

// Build validates the position fields of l and attaches the block timestamp.
// A missing field fails with ErrDecoding; nothing is ever defaulted.
func (b *Builder) Build(ctx context.Context, l ptypes.RawLog) (ptypes.EventMetadata, error) {
	if err := requireFields(l); err != nil {
		return ptypes.EventMetadata{}, err
	}

	block, err := b.block(ctx, *l.BlockNumber)
	if err != nil {
		return ptypes.EventMetadata{}, err
	}

	if block.hash != *l.BlockHash {
		return ptypes.EventMetadata{}, fmt.Errorf("%w: block=%d log_hash=%s header_hash=%s",
			ErrBlockHashMismatch, *l.BlockNumber, l.BlockHash.Hex(), block.hash.Hex())
	}

	return ptypes.EventMetadata{
		BlockNumber: *l.BlockNumber,
		BlockHash:   *l.BlockHash,
		TxHash:      *l.TxHash,
		TxIndex:     *l.TxIndex,
		LogIndex:    *l.LogIndex,
		Timestamp:   block.timestamp,
		Contract:    l.Address,
	}, nil
}

func (b *Builder) block(ctx context.Context, number uint64) (blockInfo, error) {
	b.mu.Lock()
	info, ok := b.blocks[number]
	b.mu.Unlock()
	if ok {
		return info, nil
	}

	header, err := b.headers.GetBlockHeader(ctx, number)
	if err != nil {
		return blockInfo{}, fmt.Errorf("failed to get header for block %d: %w", number, err)
	}

	info = blockInfo{hash: header.Hash(), timestamp: header.Time}

	b.mu.Lock()
	b.blocks[number] = info
	b.mu.Unlock()

	b.log.Debugf("fetched header for block %d", number)
	return info, nil
}

func requireFields(l ptypes.RawLog) error {
	var missing string
	switch {
	case l.BlockNumber == nil:
		missing = "blockNumber"
	case l.BlockHash == nil:
		missing = "blockHash"
	case l.TxHash == nil:
		missing = "transactionHash"
	case l.TxIndex == nil:
		missing = "transactionIndex"
	case l.LogIndex == nil:
		missing = "logIndex"
	default:
		return nil
	}

	return fmt.Errorf("%w: missing %s (address=%s)", ErrDecoding, missing, l.Address.Hex())
}

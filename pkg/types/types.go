package types

import (
	"cmp"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// RawLog is a log as returned by eth_getLogs. Position fields are pointers because pending
// or malformed logs omit them, and a missing block number must never read as block 0.
type RawLog struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber *uint64
	BlockHash   *common.Hash
	TxHash      *common.Hash
	TxIndex     *uint
	LogIndex    *uint
	Removed     bool
}

type rawLogJSON struct {
	Address     common.Address  `json:"address"`
	Topics      []common.Hash   `json:"topics"`
	Data        hexutil.Bytes   `json:"data"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
	BlockHash   *common.Hash    `json:"blockHash"`
	TxHash      *common.Hash    `json:"transactionHash"`
	TxIndex     *hexutil.Uint   `json:"transactionIndex"`
	LogIndex    *hexutil.Uint   `json:"logIndex"`
	Removed     bool            `json:"removed"`
}

// UnmarshalJSON decodes an eth_getLogs entry, keeping absent fields nil.
func (l *RawLog) UnmarshalJSON(input []byte) error {
	var dec rawLogJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}

	*l = RawLog{
		Address:   dec.Address,
		Topics:    dec.Topics,
		Data:      dec.Data,
		BlockHash: dec.BlockHash,
		TxHash:    dec.TxHash,
		Removed:   dec.Removed,
	}
	if dec.BlockNumber != nil {
		n := uint64(*dec.BlockNumber)
		l.BlockNumber = &n
	}
	if dec.TxIndex != nil {
		i := uint(*dec.TxIndex)
		l.TxIndex = &i
	}
	if dec.LogIndex != nil {
		i := uint(*dec.LogIndex)
		l.LogIndex = &i
	}

	return nil
}

// FromEthLog converts a fully populated go-ethereum log.
func FromEthLog(log types.Log) RawLog {
	blockNumber, blockHash, txHash := log.BlockNumber, log.BlockHash, log.TxHash
	txIndex, logIndex := log.TxIndex, log.Index

	return RawLog{
		Address:     log.Address,
		Topics:      log.Topics,
		Data:        log.Data,
		BlockNumber: &blockNumber,
		BlockHash:   &blockHash,
		TxHash:      &txHash,
		TxIndex:     &txIndex,
		LogIndex:    &logIndex,
		Removed:     log.Removed,
	}
}

// EventSignature returns topic0, or false when the log carries no topics.
func (l RawLog) EventSignature() (common.Hash, bool) {
	if len(l.Topics) == 0 {
		return common.Hash{}, false
	}
	return l.Topics[0], true
}

// EventMetadata is the chain position and provenance of a single log.
// (BlockNumber, TxIndex, LogIndex) orders logs within one chain state;
// EventID identifies a log independently of reorgs.
type EventMetadata struct {
	BlockNumber uint64
	BlockHash   common.Hash
	TxHash      common.Hash
	TxIndex     uint
	LogIndex    uint
	Timestamp   uint64
	Contract    common.Address
}

// EventID is the reorg-independent identity of a log.
type EventID struct {
	BlockHash common.Hash
	TxHash    common.Hash
	LogIndex  uint
}

// OrderKey is the position of a log within one chain state.
type OrderKey struct {
	BlockNumber uint64
	TxIndex     uint
	LogIndex    uint
}

// OrderKey returns the (block, tx, log) position of the log.
func (m EventMetadata) OrderKey() OrderKey {
	return OrderKey{BlockNumber: m.BlockNumber, TxIndex: m.TxIndex, LogIndex: m.LogIndex}
}

// ID returns the reorg-independent identity of the log.
func (m EventMetadata) ID() EventID {
	return EventID{BlockHash: m.BlockHash, TxHash: m.TxHash, LogIndex: m.LogIndex}
}

// String implements fmt.Stringer.
func (m EventMetadata) String() string {
	return fmt.Sprintf("block=%d tx=%s log_index=%d", m.BlockNumber, m.TxHash.Hex(), m.LogIndex)
}

// CompareOrder orders metadata by block number, then log index.
// Log indexes are unique within a block, so this matches (block, tx, log) ordering.
func CompareOrder(a, b EventMetadata) int {
	if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
		return c
	}
	return cmp.Compare(a.LogIndex, b.LogIndex)
}

// BlockRecord is the persisted linkage of an accepted block.
type BlockRecord struct {
	BlockNumber uint64      `meddler:"block_number"`
	BlockHash   common.Hash `meddler:"block_hash,hash"`
	ParentHash  common.Hash `meddler:"parent_hash,hash"`
	Timestamp   uint64      `meddler:"timestamp"`
}

// CheckpointState is the last fully processed block. The zero value means never indexed.
type CheckpointState struct {
	LastBlock uint64
	LastHash  *common.Hash
}

// IsEmpty reports whether nothing has been indexed yet.
func (c CheckpointState) IsEmpty() bool {
	return c.LastBlock == 0 && c.LastHash == nil
}

// ReorgCheckKind tags the outcome of validating one incoming block.
type ReorgCheckKind uint8

const (
	// NoReorg means the claimed parent matches the recorded block.
	NoReorg ReorgCheckKind = iota
	// ReorgDetected means recorded history diverged from the chain.
	ReorgDetected
	// FirstBlock means the block is the first one this indexer will ever see.
	FirstBlock
	// ParentNotFound means the parent is outside the retained window.
	ParentNotFound
)

// String implements fmt.Stringer.
func (k ReorgCheckKind) String() string {
	switch k {
	case NoReorg:
		return "no_reorg"
	case ReorgDetected:
		return "reorg_detected"
	case FirstBlock:
		return "first_block"
	case ParentNotFound:
		return "parent_not_found"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ReorgCheckResult is the transient result of a reorg check.
// ForkPoint, Depth and RecordedParent are only set for ReorgDetected.
type ReorgCheckResult struct {
	Kind ReorgCheckKind
	// ForkPoint is the highest block at which recorded and canonical history agree.
	ForkPoint uint64
	// Depth is the number of recorded blocks above the fork point that were orphaned.
	Depth uint64
	// RecordedParent is the orphaned hash recorded for block-1.
	RecordedParent common.Hash
}

// IsReorg reports whether the result requires a rollback.
func (r ReorgCheckResult) IsReorg() bool {
	return r.Kind == ReorgDetected
}

// ReorgStats summarises a handled reorg for logs and metrics.
type ReorgStats struct {
	DetectedAt   uint64
	ForkPoint    uint64
	Depth        uint64
	OrphanedHash common.Hash
	NewHash      common.Hash
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/db"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/internal/metrics"
	"github.com/goran-ethernal/EventIndexor/internal/migrations"
	"github.com/goran-ethernal/EventIndexor/pkg/config"
	pkgstore "github.com/goran-ethernal/EventIndexor/pkg/store"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
	"github.com/russross/meddler"
)

var _ pkgstore.StateStore = (*SQLiteStore)(nil)

const (
	stateRowID = 1
	dbLabel    = "state"
)

// stateRow is the singleton indexer_state row.
type stateRow struct {
	ID        int          `meddler:"id,pk"`
	LastBlock uint64       `meddler:"last_block"`
	LastHash  *common.Hash `meddler:"last_hash,hash"`
	UpdatedAt int64        `meddler:"updated_at"`
}

// SQLiteStore is the SQLite implementation of the state store.
// Writes are serialised by mu on top of SQLite's immediate write transactions.
type SQLiteStore struct {
	db          *sql.DB
	log         *logger.Logger
	maintenance db.Maintenance

	mu sync.Mutex
}

// Open opens (and migrates) the state database described by cfg.
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*SQLiteStore, error) {
	sqlDB, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if err := migrations.RunMigrationsDB(log, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return New(sqlDB, log, nil), nil
}

// New wraps an already migrated database. maintenance may be nil.
func New(sqlDB *sql.DB, log *logger.Logger, maintenance db.Maintenance) *SQLiteStore {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	return &SQLiteStore{
		db:          sqlDB,
		log:         log.WithComponent(icommon.ComponentStateStore),
		maintenance: maintenance,
	}
}

// SetMaintenance installs the coordinator whose operation lock guards every store call.
func (s *SQLiteStore) SetMaintenance(m db.Maintenance) {
	s.maintenance = m
}

// DB returns the underlying database for maintenance.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// GetLastBlock returns the persisted checkpoint.
func (s *SQLiteStore) GetLastBlock(ctx context.Context) (_ types.CheckpointState, err error) {
	defer observe("get_last_block", time.Now(), &err)

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	var row stateRow
	if err := meddler.QueryRow(s.db, &row, "SELECT * FROM indexer_state WHERE id = ?", stateRowID); err != nil {
		return types.CheckpointState{}, fmt.Errorf("failed to get indexer state: %w", err)
	}

	return types.CheckpointState{LastBlock: row.LastBlock, LastHash: row.LastHash}, nil
}

// SetLastBlock overwrites the checkpoint.
func (s *SQLiteStore) SetLastBlock(ctx context.Context, block uint64, hash *common.Hash) (err error) {
	defer observe("set_last_block", time.Now(), &err)

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	row := &stateRow{
		ID:        stateRowID,
		LastBlock: block,
		LastHash:  hash,
		UpdatedAt: time.Now().Unix(),
	}
	if err := meddler.Update(s.db, "indexer_state", row); err != nil {
		return fmt.Errorf("failed to set last block %d: %w", block, err)
	}

	s.log.Debugf("checkpoint saved: block=%d", block)
	return nil
}

// InsertBlockHash upserts the record for its block number.
func (s *SQLiteStore) InsertBlockHash(ctx context.Context, record types.BlockRecord) (err error) {
	defer observe("insert_block_hash", time.Now(), &err)

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO block_records (block_number, block_hash, parent_hash, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(block_number) DO UPDATE SET
			block_hash = excluded.block_hash,
			parent_hash = excluded.parent_hash,
			timestamp = excluded.timestamp
	`, record.BlockNumber, record.BlockHash.Hex(), record.ParentHash.Hex(), record.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert block record %d: %w", record.BlockNumber, err)
	}

	return nil
}

// GetBlockHash returns the recorded hash at block.
func (s *SQLiteStore) GetBlockHash(ctx context.Context, block uint64) (common.Hash, bool, error) {
	record, err := s.GetBlockRecord(ctx, block)
	if err != nil || record == nil {
		return common.Hash{}, false, err
	}

	return record.BlockHash, true, nil
}

// GetBlockRecord returns the record at block, or nil.
func (s *SQLiteStore) GetBlockRecord(ctx context.Context, block uint64) (_ *types.BlockRecord, err error) {
	defer observe("get_block_record", time.Now(), &err)

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	return queryRecord(s.db, "SELECT * FROM block_records WHERE block_number = ?", block)
}

// LatestBlockRecord returns the highest recorded block, or nil.
func (s *SQLiteStore) LatestBlockRecord(ctx context.Context) (_ *types.BlockRecord, err error) {
	defer observe("latest_block_record", time.Now(), &err)

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	return queryRecord(s.db, "SELECT * FROM block_records ORDER BY block_number DESC LIMIT 1")
}

// ExecuteReorgRollback deletes records above forkPoint and clamps the checkpoint, atomically.
// Running it twice with the same fork point is a no-op the second time.
func (s *SQLiteStore) ExecuteReorgRollback(ctx context.Context, forkPoint uint64) (_ int64, err error) {
	defer observe("reorg_rollback", time.Now(), &err)

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	res, err := tx.ExecContext(ctx, "DELETE FROM block_records WHERE block_number > ?", forkPoint)
	if err != nil {
		return 0, fmt.Errorf("failed to delete block records above %d: %w", forkPoint, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted block records: %w", err)
	}

	forkRecord, err := queryRecord(tx, "SELECT * FROM block_records WHERE block_number = ?", forkPoint)
	if err != nil {
		return 0, err
	}

	var forkHash any
	if forkRecord != nil {
		forkHash = forkRecord.BlockHash.Hex()
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE indexer_state SET last_block = ?, last_hash = ?, updated_at = ? WHERE id = ? AND last_block > ?",
		forkPoint, forkHash, time.Now().Unix(), stateRowID, forkPoint,
	); err != nil {
		return 0, fmt.Errorf("failed to clamp checkpoint to %d: %w", forkPoint, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rollback to %d: %w", forkPoint, err)
	}

	s.log.Infof("rolled back %d block records above block %d", deleted, forkPoint)
	return deleted, nil
}

// PruneOldBlocks deletes records below before.
func (s *SQLiteStore) PruneOldBlocks(ctx context.Context, before uint64) (_ int64, err error) {
	defer observe("prune_old_blocks", time.Now(), &err)

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM block_records WHERE block_number < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune block records below %d: %w", before, err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned block records: %w", err)
	}

	if pruned > 0 {
		s.log.Debugf("pruned %d block records below block %d", pruned, before)
	}

	return pruned, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func observe(operation string, start time.Time, err *error) {
	metrics.DBQuery(dbLabel, operation, start, *err)
}

func queryRecord(q meddler.DB, query string, args ...any) (*types.BlockRecord, error) {
	var record types.BlockRecord
	if err := meddler.QueryRow(q, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query block record: %w", err)
	}

	return &record, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goran-ethernal/EventIndexor/examples/handlers/erc20"
	"github.com/goran-ethernal/EventIndexor/internal/checkpoint"
	"github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/db"
	"github.com/goran-ethernal/EventIndexor/internal/handlers"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/internal/metrics"
	"github.com/goran-ethernal/EventIndexor/internal/processor"
	"github.com/goran-ethernal/EventIndexor/internal/reorg"
	"github.com/goran-ethernal/EventIndexor/internal/router"
	"github.com/goran-ethernal/EventIndexor/internal/rpc"
	"github.com/goran-ethernal/EventIndexor/internal/store"
	pkgconfig "github.com/goran-ethernal/EventIndexor/pkg/config"
)

// app holds the wired pipeline shared by the run and backfill commands.
type app struct {
	log        *logger.Logger
	checkpoint *checkpoint.Manager
	router     *router.Router
	processor  *processor.Processor
	dispatch   *processor.Dispatch

	closers []func()
}

func openStore(cfg *pkgconfig.Config) (*store.SQLiteStore, error) {
	st, err := store.Open(cfg.DB, logger.NewComponentLoggerFromConfig(common.ComponentStateStore, cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return st, nil
}

func newApp(ctx context.Context, cfg *pkgconfig.Config) (_ *app, err error) {
	log := logger.NewComponentLoggerFromConfig(common.ComponentProcessor, cfg.Logging)
	logger.SetDefaultLogger(log)

	a := &app{log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.Metrics, log)
		if err := server.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
		a.onClose(func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
			defer cancel()
			if err := server.Stop(stopCtx); err != nil {
				log.Warnf("failed to stop metrics server: %v", err)
			}
		})
		log.Infof("metrics server started on %s%s", server.Addr(), cfg.Metrics.Path)
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { st.Close() })

	maintenance := db.NewMaintenanceCoordinator(
		cfg.DB.Path,
		st.DB(),
		cfg.Maintenance,
		logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging),
	)
	st.SetMaintenance(maintenance)

	log.Infof("connecting to %s", cfg.Indexer.RPCURL)
	client, err := rpc.NewClient(ctx, cfg.Indexer.RPCURL, cfg.Retry,
		logger.NewComponentLoggerFromConfig(common.ComponentRPC, cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}
	a.onClose(client.Close)

	handlerLog := logger.NewComponentLoggerFromConfig(common.ComponentHandlers, cfg.Logging)
	set := handlers.NewLoggingHandlers(handlerLog).Set()
	if cfg.TokenStore != nil {
		tokens, err := erc20.Open(*cfg.TokenStore, handlerLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open token store: %w", err)
		}
		a.onClose(func() { tokens.Close() })
		set.Token = tokens
	}

	var retain uint64
	if cfg.Retention.IsEnabled() {
		retain = cfg.Retention.RetainBlocks
	}
	reorgHandler := reorg.NewHandler(
		st,
		client,
		reorg.Config{
			MinBlock:      cfg.Indexer.MinBlock,
			MaxReorgDepth: cfg.Indexer.MaxReorgDepth,
			RetainBlocks:  retain,
		},
		logger.NewComponentLoggerFromConfig(common.ComponentReorg, cfg.Logging),
		set.Rewinders()...,
	)

	if coordinator, ok := maintenance.(*db.MaintenanceCoordinator); ok && retain > 0 {
		coordinator.SetRetention(reorgHandler.Prune)
	}
	if err := maintenance.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start database maintenance: %w", err)
	}
	a.onClose(func() {
		if err := maintenance.Stop(); err != nil {
			log.Warnf("failed to stop database maintenance: %v", err)
		}
	})

	a.checkpoint = checkpoint.NewManager(st, cfg.Indexer,
		logger.NewComponentLoggerFromConfig(common.ComponentCheckpoint, cfg.Logging))

	a.router, err = router.New(set, cfg.Contracts,
		logger.NewComponentLoggerFromConfig(common.ComponentRouter, cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	procCfg, err := processor.NewConfig(cfg.Indexer, cfg.Contracts)
	if err != nil {
		return nil, err
	}
	procCfg.OnProgress = func(p processor.Progress) {
		if p.Mode == processor.ModeBackfill {
			log.Infof("backfill progress: %.1f%% (block %d of %d)", p.Percent(), p.LastBlock, p.To)
		}
	}

	a.dispatch = processor.NewDispatch(cfg.Indexer.DispatchBuffer)
	a.processor = processor.New(procCfg, client, reorgHandler, a.checkpoint, a.dispatch, log)

	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

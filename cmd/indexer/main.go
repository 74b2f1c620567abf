package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goran-ethernal/EventIndexor/internal/config"
	"github.com/goran-ethernal/EventIndexor/internal/db"
	pkgconfig "github.com/goran-ethernal/EventIndexor/pkg/config"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║            EventIndexor v%s            ║
║     Contract Event Ingestion Pipeline     ║
╚═══════════════════════════════════════════╝
`
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "indexer",
		Short: "EventIndexor - contract event ingestion pipeline",
		Long: `EventIndexor follows an EVM chain, decodes the events of the configured
contracts and delivers them in chain order to the handler ports, rolling back
and re-delivering affected blocks when the chain reorganizes.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexer(cmd, configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Follow the chain head from the stored checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexer(cmd, configPath)
		},
	}

	var from, to uint64
	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Process a fixed block range and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd, configPath, from, to)
		},
	}
	backfillCmd.Flags().Uint64Var(&from, "from", 0, "first block of the range")
	backfillCmd.Flags().Uint64Var(&to, "to", 0, "last block of the range")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the checkpoint and the latest block record",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return printStatus(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pkgconfig.GenerateJSONSchema())
		},
	}

	rootCmd.AddCommand(runCmd, backfillCmd, statusCmd, schemaCmd)

	return rootCmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runIndexer(cmd *cobra.Command, configPath string) error {
	fmt.Fprintf(cmd.OutOrStdout(), banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	start, err := a.checkpoint.StartBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve start block: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.router.Run(gctx, a.dispatch.C())
	})
	g.Go(func() error {
		defer a.dispatch.Close()
		return a.processor.StartPolling(gctx, start)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		a.log.Info("EventIndexor stopped")
		return nil
	}
	return err
}

func runBackfill(cmd *cobra.Command, configPath string, from, to uint64) error {
	if from > to {
		return fmt.Errorf("--from (%d) must not exceed --to (%d)", from, to)
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	routerCtx, stopRouter := context.WithCancel(ctx)
	defer stopRouter()

	routerDone := make(chan error, 1)
	go func() {
		routerDone <- a.router.Run(routerCtx, a.dispatch.C())
	}()

	failed, err := a.processor.Backfill(ctx, from, to)
	a.dispatch.Close()
	stopRouter()
	<-routerDone

	for _, r := range failed {
		fmt.Fprintf(cmd.OutOrStdout(), "failed batch: [%d, %d]\n", r.From, r.To)
	}
	if err != nil {
		return fmt.Errorf("backfill [%d, %d] failed: %w", from, to, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "backfill [%d, %d] complete\n", from, to)
	return nil
}

func printStatus(ctx context.Context, w io.Writer, cfg *pkgconfig.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := st.GetLastBlock(ctx)
	if err != nil {
		return err
	}
	latest, err := st.LatestBlockRecord(ctx)
	if err != nil {
		return err
	}
	applied, err := db.AppliedMigrations(st.DB())
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "database:    %s\n", cfg.DB.Path)
	fmt.Fprintf(w, "migrations:  %v\n", applied)
	if state.IsEmpty() {
		fmt.Fprintln(w, "checkpoint:  none")
	} else {
		hash := "unknown"
		if state.LastHash != nil {
			hash = state.LastHash.Hex()
		}
		fmt.Fprintf(w, "checkpoint:  block %d (%s)\n", state.LastBlock, hash)
	}
	if latest == nil {
		fmt.Fprintln(w, "latest:      no block records")
	} else {
		fmt.Fprintf(w, "latest:      block %d (%s) parent %s\n",
			latest.BlockNumber, latest.BlockHash.Hex(), latest.ParentHash.Hex())
	}

	return nil
}

// Package handlers contains the handler ports the CLI wires when no business handlers are linked in.
package handlers

import (
	"context"
	"maps"
	"sync"

	"github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/pkg/events"
	"github.com/goran-ethernal/EventIndexor/pkg/handlers"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

var (
	_ handlers.PositionHandler  = (*LoggingHandlers)(nil)
	_ handlers.ScanHandler      = (*LoggingHandlers)(nil)
	_ handlers.DeathHandler     = (*LoggingHandlers)(nil)
	_ handlers.MarketHandler    = (*LoggingHandlers)(nil)
	_ handlers.TokenHandler     = (*LoggingHandlers)(nil)
	_ handlers.FeeHandler       = (*LoggingHandlers)(nil)
	_ handlers.EmissionsHandler = (*LoggingHandlers)(nil)
	_ handlers.Rewinder         = (*LoggingHandlers)(nil)
)

// LoggingHandlers implements every port by logging the decoded event.
type LoggingHandlers struct {
	log *logger.Logger

	mu     sync.Mutex
	counts map[string]uint64
}

// NewLoggingHandlers creates handlers that log at info level.
func NewLoggingHandlers(log *logger.Logger) *LoggingHandlers {
	return &LoggingHandlers{
		log:    log.WithComponent(common.ComponentHandlers),
		counts: make(map[string]uint64),
	}
}

// Set returns a handler set with every family bound to h.
func (h *LoggingHandlers) Set() handlers.Set {
	return handlers.Set{
		Position:  h,
		Scan:      h,
		Death:     h,
		Market:    h,
		Token:     h,
		Fee:       h,
		Emissions: h,
	}
}

// Counts returns the number of events handled per event name.
func (h *LoggingHandlers) Counts() map[string]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return maps.Clone(h.counts)
}

func (h *LoggingHandlers) handle(ev events.Event, meta types.EventMetadata, fields ...any) error {
	h.mu.Lock()
	h.counts[ev.EventName()]++
	h.mu.Unlock()

	fields = append(fields,
		"block", meta.BlockNumber,
		"tx", meta.TxHash.Hex(),
		"log_index", meta.LogIndex,
		"contract", meta.Contract.Hex(),
	)
	h.log.Infow(ev.EventName(), fields...)

	return nil
}

func (h *LoggingHandlers) HandlePositionOpened(_ context.Context, ev *events.PositionOpened, meta types.EventMetadata) error {
	return h.handle(ev, meta, "owner", ev.Owner.Hex(), "level", ev.Level, "amount", ev.Amount, "total", ev.Total)
}

func (h *LoggingHandlers) HandlePositionIncreased(_ context.Context, ev *events.PositionIncreased, meta types.EventMetadata) error {
	return h.handle(ev, meta, "owner", ev.Owner.Hex(), "amount", ev.Amount, "total", ev.Total)
}

func (h *LoggingHandlers) HandlePositionClosed(_ context.Context, ev *events.PositionClosed, meta types.EventMetadata) error {
	return h.handle(ev, meta, "owner", ev.Owner.Hex(), "principal", ev.Principal, "rewards", ev.Rewards)
}

func (h *LoggingHandlers) HandleScanScheduled(_ context.Context, ev *events.ScanScheduled, meta types.EventMetadata) error {
	return h.handle(ev, meta, "scan_id", ev.ScanID, "level", ev.Level, "execute_at", ev.ExecuteAt)
}

func (h *LoggingHandlers) HandleScanExecuted(_ context.Context, ev *events.ScanExecuted, meta types.EventMetadata) error {
	return h.handle(ev, meta, "scan_id", ev.ScanID, "level", ev.Level, "seed", ev.Seed)
}

func (h *LoggingHandlers) HandleScanFinalized(_ context.Context, ev *events.ScanFinalized, meta types.EventMetadata) error {
	return h.handle(ev, meta, "scan_id", ev.ScanID, "level", ev.Level, "deaths", ev.Deaths, "total_dead", ev.TotalDead)
}

func (h *LoggingHandlers) HandleDeathsProcessed(_ context.Context, ev *events.DeathsProcessed, meta types.EventMetadata) error {
	return h.handle(ev, meta, "level", ev.Level, "count", ev.Count, "burned", ev.Burned, "distributed", ev.Distributed)
}

func (h *LoggingHandlers) HandleCascadeDistributed(_ context.Context, ev *events.CascadeDistributed, meta types.EventMetadata) error {
	return h.handle(ev, meta, "source_level", ev.SourceLevel, "same_level", ev.SameLevelAmount,
		"upstream", ev.UpstreamAmount, "burn", ev.BurnAmount, "protocol", ev.ProtocolAmount)
}

func (h *LoggingHandlers) HandleSurvivorsUpdated(_ context.Context, ev *events.SurvivorsUpdated, meta types.EventMetadata) error {
	return h.handle(ev, meta, "level", ev.Level, "survivors", ev.Survivors)
}

func (h *LoggingHandlers) HandleRoundCreated(_ context.Context, ev *events.RoundCreated, meta types.EventMetadata) error {
	return h.handle(ev, meta, "round_id", ev.RoundID, "level", ev.Level, "deadline", ev.Deadline)
}

func (h *LoggingHandlers) HandleBetPlaced(_ context.Context, ev *events.BetPlaced, meta types.EventMetadata) error {
	return h.handle(ev, meta, "round_id", ev.RoundID, "bettor", ev.Bettor.Hex(), "is_over", ev.IsOver, "amount", ev.Amount)
}

func (h *LoggingHandlers) HandleRoundResolved(_ context.Context, ev *events.RoundResolved, meta types.EventMetadata) error {
	return h.handle(ev, meta, "round_id", ev.RoundID, "outcome", ev.Outcome, "total_pot", ev.TotalPot)
}

func (h *LoggingHandlers) HandleWinningsClaimed(_ context.Context, ev *events.WinningsClaimed, meta types.EventMetadata) error {
	return h.handle(ev, meta, "round_id", ev.RoundID, "bettor", ev.Bettor.Hex(), "amount", ev.Amount)
}

func (h *LoggingHandlers) HandleTransfer(_ context.Context, ev *events.Transfer, meta types.EventMetadata) error {
	return h.handle(ev, meta, "from", ev.From.Hex(), "to", ev.To.Hex(), "value", ev.Value)
}

func (h *LoggingHandlers) HandleApproval(_ context.Context, ev *events.Approval, meta types.EventMetadata) error {
	return h.handle(ev, meta, "owner", ev.Owner.Hex(), "spender", ev.Spender.Hex(), "value", ev.Value)
}

func (h *LoggingHandlers) HandleFeeCollected(_ context.Context, ev *events.FeeCollected, meta types.EventMetadata) error {
	return h.handle(ev, meta, "payer", ev.Payer.Hex(), "kind", ev.Kind, "amount", ev.Amount)
}

func (h *LoggingHandlers) HandleFeesWithdrawn(_ context.Context, ev *events.FeesWithdrawn, meta types.EventMetadata) error {
	return h.handle(ev, meta, "to", ev.To.Hex(), "amount", ev.Amount)
}

func (h *LoggingHandlers) HandleEmissionsDistributed(_ context.Context, ev *events.EmissionsDistributed, meta types.EventMetadata) error {
	return h.handle(ev, meta, "level", ev.Level, "amount", ev.Amount)
}

func (h *LoggingHandlers) HandleVestingClaimed(_ context.Context, ev *events.VestingClaimed, meta types.EventMetadata) error {
	return h.handle(ev, meta, "beneficiary", ev.Beneficiary.Hex(), "amount", ev.Amount)
}

// Rewind only logs; nothing is persisted.
func (h *LoggingHandlers) Rewind(_ context.Context, forkPoint uint64) error {
	h.log.Warnw("rewinding handlers", "fork_point", forkPoint)
	return nil
}

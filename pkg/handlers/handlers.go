// Package handlers defines the ports through which decoded events leave the indexer.
// Implementations own the domain schema; the indexer only guarantees ordered,
// at-least-once delivery.
package handlers

import (
	"context"

	"github.com/goran-ethernal/EventIndexor/pkg/events"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

// PositionHandler consumes the position lifecycle family.
type PositionHandler interface {
	HandlePositionOpened(ctx context.Context, ev *events.PositionOpened, meta types.EventMetadata) error
	HandlePositionIncreased(ctx context.Context, ev *events.PositionIncreased, meta types.EventMetadata) error
	HandlePositionClosed(ctx context.Context, ev *events.PositionClosed, meta types.EventMetadata) error
}

// ScanHandler consumes the scan lifecycle family.
type ScanHandler interface {
	HandleScanScheduled(ctx context.Context, ev *events.ScanScheduled, meta types.EventMetadata) error
	HandleScanExecuted(ctx context.Context, ev *events.ScanExecuted, meta types.EventMetadata) error
	HandleScanFinalized(ctx context.Context, ev *events.ScanFinalized, meta types.EventMetadata) error
}

// DeathHandler consumes the death and distribution family.
type DeathHandler interface {
	HandleDeathsProcessed(ctx context.Context, ev *events.DeathsProcessed, meta types.EventMetadata) error
	HandleCascadeDistributed(ctx context.Context, ev *events.CascadeDistributed, meta types.EventMetadata) error
	HandleSurvivorsUpdated(ctx context.Context, ev *events.SurvivorsUpdated, meta types.EventMetadata) error
}

// MarketHandler consumes the market and betting family.
type MarketHandler interface {
	HandleRoundCreated(ctx context.Context, ev *events.RoundCreated, meta types.EventMetadata) error
	HandleBetPlaced(ctx context.Context, ev *events.BetPlaced, meta types.EventMetadata) error
	HandleRoundResolved(ctx context.Context, ev *events.RoundResolved, meta types.EventMetadata) error
	HandleWinningsClaimed(ctx context.Context, ev *events.WinningsClaimed, meta types.EventMetadata) error
}

// TokenHandler consumes token transfers and approvals.
type TokenHandler interface {
	HandleTransfer(ctx context.Context, ev *events.Transfer, meta types.EventMetadata) error
	HandleApproval(ctx context.Context, ev *events.Approval, meta types.EventMetadata) error
}

// FeeHandler consumes fee events.
type FeeHandler interface {
	HandleFeeCollected(ctx context.Context, ev *events.FeeCollected, meta types.EventMetadata) error
	HandleFeesWithdrawn(ctx context.Context, ev *events.FeesWithdrawn, meta types.EventMetadata) error
}

// EmissionsHandler consumes emissions and vesting events.
type EmissionsHandler interface {
	HandleEmissionsDistributed(ctx context.Context, ev *events.EmissionsDistributed, meta types.EventMetadata) error
	HandleVestingClaimed(ctx context.Context, ev *events.VestingClaimed, meta types.EventMetadata) error
}

// Rewinder is implemented by handlers that can delete rows written for blocks above forkPoint.
// It is called after the indexer's own block records were rolled back and before
// blocks above forkPoint are delivered again.
type Rewinder interface {
	Rewind(ctx context.Context, forkPoint uint64) error
}

// Set binds one handler per family. A nil port means the family is not consumed.
type Set struct {
	Position  PositionHandler
	Scan      ScanHandler
	Death     DeathHandler
	Market    MarketHandler
	Token     TokenHandler
	Fee       FeeHandler
	Emissions EmissionsHandler
}

// Rewinders returns every distinct port in the set that implements Rewinder.
func (s Set) Rewinders() []Rewinder {
	ports := []any{s.Position, s.Scan, s.Death, s.Market, s.Token, s.Fee, s.Emissions}

	var out []Rewinder
	seen := make(map[Rewinder]struct{}, len(ports))
	for _, p := range ports {
		r, ok := p.(Rewinder)
		if !ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	return out
}

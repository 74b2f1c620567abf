package router

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/EventIndexor/pkg/events"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

// dispatch invokes the one handler method bound to the concrete event type.
func (r *Router) dispatch(ctx context.Context, ev events.Event, meta types.EventMetadata) error {
	h := r.handlers

	switch e := ev.(type) {
	case *events.PositionOpened:
		return h.Position.HandlePositionOpened(ctx, e, meta)
	case *events.PositionIncreased:
		return h.Position.HandlePositionIncreased(ctx, e, meta)
	case *events.PositionClosed:
		return h.Position.HandlePositionClosed(ctx, e, meta)

	case *events.ScanScheduled:
		return h.Scan.HandleScanScheduled(ctx, e, meta)
	case *events.ScanExecuted:
		return h.Scan.HandleScanExecuted(ctx, e, meta)
	case *events.ScanFinalized:
		return h.Scan.HandleScanFinalized(ctx, e, meta)

	case *events.DeathsProcessed:
		return h.Death.HandleDeathsProcessed(ctx, e, meta)
	case *events.CascadeDistributed:
		return h.Death.HandleCascadeDistributed(ctx, e, meta)
	case *events.SurvivorsUpdated:
		return h.Death.HandleSurvivorsUpdated(ctx, e, meta)

	case *events.RoundCreated:
		return h.Market.HandleRoundCreated(ctx, e, meta)
	case *events.BetPlaced:
		return h.Market.HandleBetPlaced(ctx, e, meta)
	case *events.RoundResolved:
		return h.Market.HandleRoundResolved(ctx, e, meta)
	case *events.WinningsClaimed:
		return h.Market.HandleWinningsClaimed(ctx, e, meta)

	case *events.Transfer:
		return h.Token.HandleTransfer(ctx, e, meta)
	case *events.Approval:
		return h.Token.HandleApproval(ctx, e, meta)

	case *events.FeeCollected:
		return h.Fee.HandleFeeCollected(ctx, e, meta)
	case *events.FeesWithdrawn:
		return h.Fee.HandleFeesWithdrawn(ctx, e, meta)

	case *events.EmissionsDistributed:
		return h.Emissions.HandleEmissionsDistributed(ctx, e, meta)
	case *events.VestingClaimed:
		return h.Emissions.HandleVestingClaimed(ctx, e, meta)

	default:
		return fmt.Errorf("unhandled event type %T", ev)
	}
}

// Package events holds the decoded form of every event emitted by the monitored contract families.
package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a decoded contract event. The set of implementations is closed.
type Event interface {
	// EventName is the ABI name of the event.
	EventName() string
	isEvent()
}

// Position lifecycle.

// PositionOpened is emitted when an owner opens a position at a level.
type PositionOpened struct {
	Owner  common.Address
	Level  uint8
	Amount *big.Int
	Total  *big.Int
}

// PositionIncreased is emitted when an owner adds to an open position.
type PositionIncreased struct {
	Owner  common.Address
	Amount *big.Int
	Total  *big.Int
}

// PositionClosed is emitted when a position is closed and paid out.
type PositionClosed struct {
	Owner     common.Address
	Principal *big.Int
	Rewards   *big.Int
}

// Scan lifecycle.

// ScanScheduled is emitted when a scan of a level is queued for execution.
type ScanScheduled struct {
	ScanID    *big.Int
	Level     uint8
	ExecuteAt *big.Int
}

// ScanExecuted is emitted when a scheduled scan runs with its random seed.
type ScanExecuted struct {
	ScanID *big.Int
	Level  uint8
	Seed   *big.Int
}

// ScanFinalized is emitted once a scan has settled its death count.
type ScanFinalized struct {
	ScanID    *big.Int
	Level     uint8
	Deaths    *big.Int
	TotalDead *big.Int
}

// Death and distribution.

// DeathsProcessed is emitted after the deaths of a level are burned and distributed.
type DeathsProcessed struct {
	Level       uint8
	Count       *big.Int
	TotalDead   *big.Int
	Burned      *big.Int
	Distributed *big.Int
}

// CascadeDistributed is emitted when the value of dead positions is split across levels.
type CascadeDistributed struct {
	SourceLevel     uint8
	SameLevelAmount *big.Int
	UpstreamAmount  *big.Int
	BurnAmount      *big.Int
	ProtocolAmount  *big.Int
}

// SurvivorsUpdated carries the new survivor count of a level.
type SurvivorsUpdated struct {
	Level     uint8
	Survivors *big.Int
}

// Market and betting.

// RoundCreated is emitted when a betting round opens for a level.
type RoundCreated struct {
	RoundID  *big.Int
	Level    uint8
	Deadline *big.Int
}

// BetPlaced is emitted for every bet on a round.
type BetPlaced struct {
	RoundID *big.Int
	Bettor  common.Address
	IsOver  bool
	Amount  *big.Int
}

// RoundResolved is emitted when a round settles its outcome.
type RoundResolved struct {
	RoundID  *big.Int
	Outcome  bool
	TotalPot *big.Int
}

// WinningsClaimed is emitted when a bettor collects the winnings of a round.
type WinningsClaimed struct {
	RoundID *big.Int
	Bettor  common.Address
	Amount  *big.Int
}

// Token transfers.

// Transfer is the token transfer event.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// Approval is the token allowance event.
type Approval struct {
	Owner   common.Address
	Spender common.Address
	Value   *big.Int
}

// Fees.

// FeeCollected is emitted when the protocol charges a fee.
type FeeCollected struct {
	Payer  common.Address
	Kind   uint8
	Amount *big.Int
}

// FeesWithdrawn is emitted when accumulated fees are withdrawn.
type FeesWithdrawn struct {
	To     common.Address
	Amount *big.Int
}

// Emissions and vesting.

// EmissionsDistributed is emitted when emissions are paid to a level.
type EmissionsDistributed struct {
	Level  uint8
	Amount *big.Int
}

// VestingClaimed is emitted when a beneficiary claims vested tokens.
type VestingClaimed struct {
	Beneficiary common.Address
	Amount      *big.Int
}

func (*PositionOpened) EventName() string       { return "PositionOpened" }
func (*PositionIncreased) EventName() string    { return "PositionIncreased" }
func (*PositionClosed) EventName() string       { return "PositionClosed" }
func (*ScanScheduled) EventName() string        { return "ScanScheduled" }
func (*ScanExecuted) EventName() string         { return "ScanExecuted" }
func (*ScanFinalized) EventName() string        { return "ScanFinalized" }
func (*DeathsProcessed) EventName() string      { return "DeathsProcessed" }
func (*CascadeDistributed) EventName() string   { return "CascadeDistributed" }
func (*SurvivorsUpdated) EventName() string     { return "SurvivorsUpdated" }
func (*RoundCreated) EventName() string         { return "RoundCreated" }
func (*BetPlaced) EventName() string            { return "BetPlaced" }
func (*RoundResolved) EventName() string        { return "RoundResolved" }
func (*WinningsClaimed) EventName() string      { return "WinningsClaimed" }
func (*Transfer) EventName() string             { return "Transfer" }
func (*Approval) EventName() string             { return "Approval" }
func (*FeeCollected) EventName() string         { return "FeeCollected" }
func (*FeesWithdrawn) EventName() string        { return "FeesWithdrawn" }
func (*EmissionsDistributed) EventName() string { return "EmissionsDistributed" }
func (*VestingClaimed) EventName() string       { return "VestingClaimed" }

func (*PositionOpened) isEvent()       {}
func (*PositionIncreased) isEvent()    {}
func (*PositionClosed) isEvent()       {}
func (*ScanScheduled) isEvent()        {}
func (*ScanExecuted) isEvent()         {}
func (*ScanFinalized) isEvent()        {}
func (*DeathsProcessed) isEvent()      {}
func (*CascadeDistributed) isEvent()   {}
func (*SurvivorsUpdated) isEvent()     {}
func (*RoundCreated) isEvent()         {}
func (*BetPlaced) isEvent()            {}
func (*RoundResolved) isEvent()        {}
func (*WinningsClaimed) isEvent()      {}
func (*Transfer) isEvent()             {}
func (*Approval) isEvent()             {}
func (*FeeCollected) isEvent()         {}
func (*FeesWithdrawn) isEvent()        {}
func (*EmissionsDistributed) isEvent() {}
func (*VestingClaimed) isEvent()       {}

// New returns an empty event for the ABI event name, or nil if the name is not part of any family.
func New(name string) Event {
	switch name {
	case "PositionOpened":
		return new(PositionOpened)
	case "PositionIncreased":
		return new(PositionIncreased)
	case "PositionClosed":
		return new(PositionClosed)
	case "ScanScheduled":
		return new(ScanScheduled)
	case "ScanExecuted":
		return new(ScanExecuted)
	case "ScanFinalized":
		return new(ScanFinalized)
	case "DeathsProcessed":
		return new(DeathsProcessed)
	case "CascadeDistributed":
		return new(CascadeDistributed)
	case "SurvivorsUpdated":
		return new(SurvivorsUpdated)
	case "RoundCreated":
		return new(RoundCreated)
	case "BetPlaced":
		return new(BetPlaced)
	case "RoundResolved":
		return new(RoundResolved)
	case "WinningsClaimed":
		return new(WinningsClaimed)
	case "Transfer":
		return new(Transfer)
	case "Approval":
		return new(Approval)
	case "FeeCollected":
		return new(FeeCollected)
	case "FeesWithdrawn":
		return new(FeesWithdrawn)
	case "EmissionsDistributed":
		return new(EmissionsDistributed)
	case "VestingClaimed":
		return new(VestingClaimed)
	default:
		return nil
	}
}

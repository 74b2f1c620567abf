package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/internal/metrics"
	"github.com/goran-ethernal/EventIndexor/pkg/config"
	"github.com/goran-ethernal/EventIndexor/pkg/events"
	"github.com/goran-ethernal/EventIndexor/pkg/handlers"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

var (
	// ErrDecode is returned when a recognised log cannot be decoded into its event.
	ErrDecode = errors.New("failed to decode log")
	// ErrNoHandler is returned when a monitored family has no handler bound.
	ErrNoHandler = errors.New("no handler registered for family")
)

// Envelope carries one log from the processor to the router.
// An envelope with Flush set carries no log: it is a barrier and the first routing
// error since the previous barrier (or nil) is sent on Flush.
type Envelope struct {
	Log      types.RawLog
	Meta     types.EventMetadata
	Enqueued time.Time
	Flush    chan<- error
}

type contractRoute struct {
	name   string
	family string
}

type familyEvents struct {
	abi    abi.ABI
	topics map[common.Hash]*abi.Event
}

// Router decodes logs of the monitored contracts and invokes exactly one handler method per log.
type Router struct {
	handlers  handlers.Set
	contracts map[common.Address]contractRoute
	families  map[string]*familyEvents
	log       *logger.Logger
}

// New builds the routing table. Every configured family must have a handler bound in set.
func New(set handlers.Set, contracts []config.ContractConfig, log *logger.Logger) (*Router, error) {
	r := &Router{
		handlers:  set,
		contracts: make(map[common.Address]contractRoute, len(contracts)),
		families:  make(map[string]*familyEvents),
		log:       log.WithComponent(icommon.ComponentRouter),
	}

	for _, c := range contracts {
		family := icommon.ToLowerWithTrim(c.Family)
		if !r.hasHandler(family) {
			return nil, fmt.Errorf("%w '%s' (contract %s)", ErrNoHandler, family, c.Name)
		}

		if _, ok := r.families[family]; !ok {
			parsed, err := events.LoadABI(family)
			if err != nil {
				return nil, err
			}

			fe := &familyEvents{abi: parsed, topics: make(map[common.Hash]*abi.Event, len(parsed.Events))}
			for name := range parsed.Events {
				ev := parsed.Events[name]
				fe.topics[ev.ID] = &ev
			}
			r.families[family] = fe
		}

		r.contracts[c.HexAddress()] = contractRoute{name: c.Name, family: family}
	}

	metrics.ComponentHealthSet(icommon.ComponentRouter, true)
	r.log.Infow("event router initialized", "contracts", len(r.contracts), "families", len(r.families))

	return r, nil
}

// RouteLog decodes log and hands it to its handler. It returns false for a log
// that is not part of any monitored family.
func (r *Router) RouteLog(ctx context.Context, log types.RawLog, meta types.EventMetadata) (bool, error) {
	route, ok := r.contracts[log.Address]
	if !ok {
		r.unknown(log, log.Address.Hex(), "unmonitored contract")
		return false, nil
	}

	if len(log.Topics) == 0 {
		r.unknown(log, route.name, "no topics")
		return false, nil
	}

	fe := r.families[route.family]
	abiEvent, ok := fe.topics[log.Topics[0]]
	if !ok {
		r.unknown(log, route.name, "unknown topic")
		return false, nil
	}

	if !r.hasHandler(route.family) {
		return false, fmt.Errorf("%w '%s'", ErrNoHandler, route.family)
	}

	ev, err := decode(fe.abi, abiEvent, log)
	if err != nil {
		return false, fmt.Errorf("%w %s from %s at block %d log %d: %w",
			ErrDecode, abiEvent.Name, route.name, meta.BlockNumber, meta.LogIndex, err)
	}

	if err := r.dispatch(ctx, ev, meta); err != nil {
		return true, fmt.Errorf("handler failed for %s at block %d log %d: %w",
			ev.EventName(), meta.BlockNumber, meta.LogIndex, err)
	}

	metrics.LogRoutedInc(route.family, ev.EventName())
	return true, nil
}

// Run consumes envelopes in order until in is closed or ctx is done.
// After a routing error the remaining logs up to the next barrier are dropped.
func (r *Router) Run(ctx context.Context, in <-chan Envelope) error {
	var pending error

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case env, ok := <-in:
			if !ok {
				return nil
			}

			if env.Flush != nil {
				env.Flush <- pending
				pending = nil
				continue
			}
			if pending != nil {
				continue
			}

			if !env.Enqueued.IsZero() {
				metrics.DispatchLatencyLog(time.Since(env.Enqueued))
			}

			if _, err := r.RouteLog(ctx, env.Log, env.Meta); err != nil {
				r.log.Errorw("failed to route log", "block", env.Meta.BlockNumber, "log_index", env.Meta.LogIndex, "error", err)
				pending = err
			}
		}
	}
}

func (r *Router) unknown(log types.RawLog, contract, reason string) {
	metrics.UnknownLogInc(contract)

	var topic0 string
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0].Hex()
	}
	r.log.Debugw("skipping log", "reason", reason, "contract", contract, "topic0", topic0)
}

func (r *Router) hasHandler(family string) bool {
	switch family {
	case config.FamilyPosition:
		return r.handlers.Position != nil
	case config.FamilyScan:
		return r.handlers.Scan != nil
	case config.FamilyDeath:
		return r.handlers.Death != nil
	case config.FamilyMarket:
		return r.handlers.Market != nil
	case config.FamilyToken:
		return r.handlers.Token != nil
	case config.FamilyFee:
		return r.handlers.Fee != nil
	case config.FamilyEmissions:
		return r.handlers.Emissions != nil
	default:
		return false
	}
}

// decode fills the Go event for abiEvent from the log's indexed topics and data.
func decode(contractABI abi.ABI, abiEvent *abi.Event, log types.RawLog) (events.Event, error) {
	ev := events.New(abiEvent.Name)
	if ev == nil {
		return nil, fmt.Errorf("no event type for %s", abiEvent.Name)
	}

	var indexed abi.Arguments
	for _, arg := range abiEvent.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if len(log.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("expected %d indexed topics, got %d", len(indexed), len(log.Topics)-1)
	}

	if err := contractABI.UnpackIntoInterface(ev, abiEvent.Name, log.Data); err != nil {
		return nil, fmt.Errorf("failed to unpack data: %w", err)
	}

	if err := abi.ParseTopics(ev, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse topics: %w", err)
	}

	return ev, nil
}

package router

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ihandlers "github.com/goran-ethernal/EventIndexor/internal/handlers"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/pkg/config"
	"github.com/goran-ethernal/EventIndexor/pkg/events"
	"github.com/goran-ethernal/EventIndexor/pkg/handlers"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddr  = common.HexToAddress("0x1000000000000000000000000000000000000005")
	marketAddr = common.HexToAddress("0x1000000000000000000000000000000000000004")
	posAddr    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice      = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob        = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
)

type recordingToken struct {
	transfers []*events.Transfer
	metas     []types.EventMetadata
	approvals int
	err       error
}

func (r *recordingToken) HandleTransfer(_ context.Context, ev *events.Transfer, meta types.EventMetadata) error {
	if r.err != nil {
		return r.err
	}
	r.transfers = append(r.transfers, ev)
	r.metas = append(r.metas, meta)
	return nil
}

func (r *recordingToken) HandleApproval(context.Context, *events.Approval, types.EventMetadata) error {
	r.approvals++
	return r.err
}

func testContracts() []config.ContractConfig {
	return []config.ContractConfig{
		{Name: "token", Address: tokenAddr.Hex(), Family: config.FamilyToken},
		{Name: "market", Address: marketAddr.Hex(), Family: " Market "},
		{Name: "positions", Address: posAddr.Hex(), Family: config.FamilyPosition},
	}
}

// buildLog ABI-encodes an event the way the contract would emit it.
func buildLog(t *testing.T, family, name string, address common.Address, indexed []any, data ...any) types.RawLog {
	t.Helper()

	parsed, err := events.LoadABI(family)
	require.NoError(t, err)
	ev, ok := parsed.Events[name]
	require.True(t, ok, "event %s not in %s ABI", name, family)

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)

	queries := make([][]any, len(indexed))
	for i, v := range indexed {
		queries[i] = []any{v}
	}
	topicSets, err := abi.MakeTopics(queries...)
	require.NoError(t, err)

	topics := []common.Hash{ev.ID}
	for _, set := range topicSets {
		topics = append(topics, set[0])
	}

	return types.RawLog{Address: address, Topics: topics, Data: packed}
}

func testMeta(block uint64, logIndex uint) types.EventMetadata {
	return types.EventMetadata{
		BlockNumber: block,
		BlockHash:   common.HexToHash("0xb1"),
		TxHash:      common.HexToHash("0x7a"),
		LogIndex:    logIndex,
	}
}

func setupRouter(t *testing.T, token *recordingToken) (*Router, *ihandlers.LoggingHandlers) {
	t.Helper()

	logging := ihandlers.NewLoggingHandlers(logger.NewNopLogger())
	set := logging.Set()
	set.Token = token

	r, err := New(set, testContracts(), logger.NewNopLogger())
	require.NoError(t, err)

	return r, logging
}

func TestNew_MissingHandler(t *testing.T) {
	set := handlers.Set{Token: &recordingToken{}}

	_, err := New(set, testContracts(), logger.NewNopLogger())
	require.ErrorIs(t, err, ErrNoHandler)
	require.ErrorContains(t, err, "'market' (contract market)")
}

func TestRouteLog_Transfer(t *testing.T) {
	token := &recordingToken{}
	r, logging := setupRouter(t, token)

	log := buildLog(t, config.FamilyToken, "Transfer", tokenAddr, []any{alice, bob}, big.NewInt(1_000))
	meta := testMeta(10, 3)

	handled, err := r.RouteLog(t.Context(), log, meta)
	require.NoError(t, err)
	require.True(t, handled)

	require.Len(t, token.transfers, 1)
	require.Equal(t, alice, token.transfers[0].From)
	require.Equal(t, bob, token.transfers[0].To)
	require.Equal(t, big.NewInt(1_000), token.transfers[0].Value)
	require.Equal(t, meta, token.metas[0])
	require.Zero(t, token.approvals)
	require.Empty(t, logging.Counts())
}

func TestRouteLog_FamilyIsCaseInsensitive(t *testing.T) {
	r, logging := setupRouter(t, &recordingToken{})

	log := buildLog(t, config.FamilyMarket, "BetPlaced", marketAddr, []any{big.NewInt(7), alice}, true, big.NewInt(50))

	handled, err := r.RouteLog(t.Context(), log, testMeta(11, 0))
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, map[string]uint64{"BetPlaced": 1}, logging.Counts())
}

func TestDecode(t *testing.T) {
	t.Run("indexed uint8", func(t *testing.T) {
		parsed, err := events.LoadABI(config.FamilyPosition)
		require.NoError(t, err)
		abiEvent := parsed.Events["PositionOpened"]

		log := buildLog(t, config.FamilyPosition, "PositionOpened", posAddr,
			[]any{alice, uint8(3)}, big.NewInt(100), big.NewInt(400))

		ev, err := decode(parsed, &abiEvent, log)
		require.NoError(t, err)
		require.Equal(t, &events.PositionOpened{
			Owner:  alice,
			Level:  3,
			Amount: big.NewInt(100),
			Total:  big.NewInt(400),
		}, ev)
	})

	t.Run("bool data", func(t *testing.T) {
		parsed, err := events.LoadABI(config.FamilyMarket)
		require.NoError(t, err)
		abiEvent := parsed.Events["BetPlaced"]

		log := buildLog(t, config.FamilyMarket, "BetPlaced", marketAddr,
			[]any{big.NewInt(9), bob}, true, big.NewInt(25))

		ev, err := decode(parsed, &abiEvent, log)
		require.NoError(t, err)
		require.Equal(t, &events.BetPlaced{
			RoundID: big.NewInt(9),
			Bettor:  bob,
			IsOver:  true,
			Amount:  big.NewInt(25),
		}, ev)
	})
}

func TestRouteLog_Unrecognised(t *testing.T) {
	token := &recordingToken{}
	r, logging := setupRouter(t, token)

	transfer := buildLog(t, config.FamilyToken, "Transfer", tokenAddr, []any{alice, bob}, big.NewInt(1))

	noTopics := transfer
	noTopics.Topics = nil

	unknownTopic := transfer
	unknownTopic.Topics = append([]common.Hash{common.HexToHash("0xdead")}, transfer.Topics[1:]...)

	otherContract := transfer
	otherContract.Address = common.HexToAddress("0x9999999999999999999999999999999999999999")

	// a market event emitted by the token contract is not part of the token family
	wrongFamily := buildLog(t, config.FamilyMarket, "RoundResolved", tokenAddr, []any{big.NewInt(1)}, true, big.NewInt(2))

	for name, log := range map[string]types.RawLog{
		"no topics":      noTopics,
		"unknown topic":  unknownTopic,
		"other contract": otherContract,
		"wrong family":   wrongFamily,
	} {
		t.Run(name, func(t *testing.T) {
			handled, err := r.RouteLog(t.Context(), log, testMeta(1, 0))
			require.NoError(t, err)
			require.False(t, handled)
		})
	}

	require.Empty(t, token.transfers)
	require.Empty(t, logging.Counts())
}

func TestRouteLog_DecodeErrors(t *testing.T) {
	token := &recordingToken{}
	r, _ := setupRouter(t, token)

	transfer := buildLog(t, config.FamilyToken, "Transfer", tokenAddr, []any{alice, bob}, big.NewInt(1))

	truncated := transfer
	truncated.Data = transfer.Data[:16]

	missingTopic := transfer
	missingTopic.Topics = transfer.Topics[:2]

	for name, log := range map[string]types.RawLog{
		"truncated data": truncated,
		"missing topic":  missingTopic,
	} {
		t.Run(name, func(t *testing.T) {
			handled, err := r.RouteLog(t.Context(), log, testMeta(5, 1))
			require.ErrorIs(t, err, ErrDecode)
			require.ErrorContains(t, err, "Transfer from token at block 5 log 1")
			require.False(t, handled)
		})
	}

	require.Empty(t, token.transfers)
}

func TestRouteLog_HandlerError(t *testing.T) {
	token := &recordingToken{err: errors.New("constraint failed")}
	r, _ := setupRouter(t, token)

	log := buildLog(t, config.FamilyToken, "Approval", tokenAddr, []any{alice, bob}, big.NewInt(1))

	handled, err := r.RouteLog(t.Context(), log, testMeta(8, 0))
	require.True(t, handled)
	require.ErrorContains(t, err, "handler failed for Approval at block 8 log 0: constraint failed")
	require.Equal(t, 1, token.approvals)
}

func TestRun_FlushBarrier(t *testing.T) {
	token := &recordingToken{}
	r, _ := setupRouter(t, token)

	in := make(chan Envelope, 8)
	done := make(chan error, 1)
	go func() { done <- r.Run(t.Context(), in) }()

	flush := func() error {
		ack := make(chan error, 1)
		in <- Envelope{Flush: ack}
		select {
		case err := <-ack:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("flush not acknowledged")
			return nil
		}
	}

	for i := range 3 {
		log := buildLog(t, config.FamilyToken, "Transfer", tokenAddr, []any{alice, bob}, big.NewInt(int64(i)))
		in <- Envelope{Log: log, Meta: testMeta(20, uint(i)), Enqueued: time.Now()}
	}
	require.NoError(t, flush())
	require.Len(t, token.transfers, 3)
	for i, tr := range token.transfers {
		require.Equal(t, big.NewInt(int64(i)), tr.Value, "delivery order")
	}

	// a failure drops the rest of the block and is reported once at the barrier
	bad := buildLog(t, config.FamilyToken, "Transfer", tokenAddr, []any{alice, bob}, big.NewInt(1))
	bad.Data = nil
	good := buildLog(t, config.FamilyToken, "Transfer", tokenAddr, []any{alice, bob}, big.NewInt(99))

	in <- Envelope{Log: bad, Meta: testMeta(21, 0)}
	in <- Envelope{Log: good, Meta: testMeta(21, 1)}
	require.ErrorIs(t, flush(), ErrDecode)
	require.Len(t, token.transfers, 3)

	require.NoError(t, flush())

	close(in)
	require.NoError(t, <-done)
}

func TestRun_ContextCancelled(t *testing.T) {
	r, _ := setupRouter(t, &recordingToken{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, make(chan Envelope))
	require.ErrorIs(t, err, context.Canceled)
}

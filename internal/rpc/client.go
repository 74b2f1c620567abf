package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	icommon "github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/pkg/config"
	pkgrpc "github.com/goran-ethernal/EventIndexor/pkg/rpc"
	ptypes "github.com/goran-ethernal/EventIndexor/pkg/types"
)

var _ pkgrpc.EthClient = (*Client)(nil)

const maxHeaderBatch = 100

// Client wraps the Ethereum RPC client with retries, metrics and range splitting for eth_getLogs.
type Client struct {
	eth   *ethclient.Client
	rpc   *rpc.Client
	retry *config.RetryConfig
	log   *logger.Logger
}

// NewClient creates a new RPC client connected to the given endpoint.
// A nil retry config executes every call once.
func NewClient(ctx context.Context, endpoint string, retry *config.RetryConfig, log *logger.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}

	return newClientFromRPC(rpcClient, retry, log), nil
}

func newClientFromRPC(rpcClient *rpc.Client, retry *config.RetryConfig, log *logger.Logger) *Client {
	return &Client{
		eth:   ethclient.NewClient(rpcClient),
		rpc:   rpcClient,
		retry: retry,
		log:   log.WithComponent(icommon.ComponentRPC),
	}
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.eth.Close()
}

// BlockNumber returns the head height at the given finality.
func (c *Client) BlockNumber(ctx context.Context, finality ptypes.BlockFinality) (uint64, error) {
	var head uint64

	err := c.call(ctx, "eth_blockNumber", func() error {
		if finality == ptypes.FinalityLatest {
			n, err := c.eth.BlockNumber(ctx)
			head = n
			return err
		}

		header, err := c.eth.HeaderByNumber(ctx, big.NewInt(finality.BlockNumber().Int64()))
		if err != nil {
			return err
		}
		head = header.Number.Uint64()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get %s block number: %w", finality, err)
	}

	return head, nil
}

// GetLogs returns every log emitted by address in [fromBlock, toBlock].
// Ranges rejected with "too many results" are split and fetched piecewise.
func (c *Client) GetLogs(
	ctx context.Context,
	address common.Address,
	fromBlock, toBlock uint64,
) ([]ptypes.RawLog, error) {
	var logs []ptypes.RawLog

	err := c.call(ctx, "eth_getLogs", func() error {
		logs = nil
		return c.rpc.CallContext(ctx, &logs, "eth_getLogs", logsFilterArg(address, fromBlock, toBlock))
	})
	if err == nil {
		return logs, nil
	}

	tooMany, errData := IsTooManyResultsError(err)
	if !tooMany || fromBlock == toBlock {
		return nil, fmt.Errorf("failed to get logs for %s in [%d, %d]: %w", address.Hex(), fromBlock, toBlock, err)
	}

	splitAt := fromBlock + (toBlock-fromBlock)/2
	if _, suggestedTo, ok := ParseSuggestedBlockRange(errData); ok && suggestedTo >= fromBlock && suggestedTo < toBlock {
		splitAt = suggestedTo
	}

	c.log.Debugf("splitting eth_getLogs range [%d, %d] at %d", fromBlock, toBlock, splitAt)

	left, err := c.GetLogs(ctx, address, fromBlock, splitAt)
	if err != nil {
		return nil, err
	}
	right, err := c.GetLogs(ctx, address, splitAt+1, toBlock)
	if err != nil {
		return nil, err
	}

	return append(left, right...), nil
}

// GetBlockHeader retrieves the header for a specific block number.
func (c *Client) GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error) {
	var header *types.Header

	err := c.call(ctx, "eth_getBlockByNumber", func() error {
		var err error
		header, err = c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNum))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get header %d: %w", blockNum, err)
	}

	return header, nil
}

// BatchGetBlockHeaders retrieves headers for multiple block numbers, at most maxHeaderBatch per round trip.
// The result is aligned with blockNums; a missing block is an error.
func (c *Client) BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error) {
	all := make([]*types.Header, 0, len(blockNums))

	for i := 0; i < len(blockNums); i += maxHeaderBatch {
		chunk := blockNums[i:min(i+maxHeaderBatch, len(blockNums))]
		results := make([]*types.Header, len(chunk))

		err := c.call(ctx, "batch_eth_getBlockByNumber", func() error {
			batch := make([]rpc.BatchElem, len(chunk))
			for j, blockNum := range chunk {
				results[j] = nil
				batch[j] = rpc.BatchElem{
					Method: "eth_getBlockByNumber",
					Args:   []any{toBlockNumArg(blockNum), false},
					Result: &results[j],
				}
			}

			if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
				return err
			}

			for _, elem := range batch {
				if elem.Error != nil {
					return elem.Error
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to batch get %d headers from %d: %w", len(chunk), chunk[0], err)
		}

		for j, header := range results {
			if header == nil {
				return nil, fmt.Errorf("header %d: %w", chunk[j], ethereum.NotFound)
			}
		}

		all = append(all, results...)
	}

	return all, nil
}

// call runs fn with retries and records request metrics under method.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	return retryWithBackoff(ctx, c.retry, method, func() error {
		start := time.Now()
		RPCMethodInc(method)

		err := fn()
		RPCMethodDuration(method, time.Since(start))
		if err != nil {
			RPCMethodError(method, errorType(err))
		}
		return err
	})
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	case errors.Is(err, ethereum.NotFound):
		return "not_found"
	}

	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return "too_many_results"
	}
	if retryableError(err) {
		return "transient"
	}
	return "other"
}

// logsFilterArg builds the eth_getLogs filter object for one address and block range.
func logsFilterArg(address common.Address, fromBlock, toBlock uint64) map[string]any {
	return map[string]any{
		"address":   address,
		"fromBlock": toBlockNumArg(fromBlock),
		"toBlock":   toBlockNumArg(toBlock),
	}
}

// toBlockNumArg converts a block number to hex format.
func toBlockNumArg(blockNum uint64) string {
	return fmt.Sprintf("0x%x", blockNum)
}

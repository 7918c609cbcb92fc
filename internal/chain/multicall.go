package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultMulticallAddress is the Multicall3 deployment shared by most EVM chains.
var DefaultMulticallAddress = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

var (
	// ErrReverted marks a call that executed and reverted.
	ErrReverted = errors.New("call reverted")
	// ErrMalformed marks return data that does not match the expected outputs.
	ErrMalformed = errors.New("malformed return data")
)

// CallStatus tracks a single read through its lifecycle.
type CallStatus int

const (
	CallPending CallStatus = iota
	CallSucceeded
	CallFailed
)

func (s CallStatus) String() string {
	switch s {
	case CallPending:
		return "pending"
	case CallSucceeded:
		return "succeeded"
	case CallFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Request is one contract read.
type Request struct {
	Target common.Address
	ABI    *abi.ABI
	Method string
	Args   []interface{}
}

// Result is the outcome of a Request. Succeeded with no Values means the
// target returned nothing, which is what a call to an address without code does.
type Result struct {
	Status CallStatus
	Values []interface{}
	Err    error
}

// HasValues reports whether the call produced decoded values.
func (r Result) HasValues() bool {
	return r.Status == CallSucceeded && len(r.Values) > 0
}

// NoData reports whether the chain answered without usable data.
func (r Result) NoData() bool {
	switch r.Status {
	case CallSucceeded:
		return len(r.Values) == 0
	case CallFailed:
		return errors.Is(r.Err, ErrReverted) || errors.Is(r.Err, ErrMalformed)
	default:
		return false
	}
}

// TransportFailed reports whether the read never got an answer from the chain.
func (r Result) TransportFailed() bool {
	return r.Status == CallFailed && !r.NoData()
}

// Reader executes batched reads. It always returns one Result per request, in order.
type Reader interface {
	Read(ctx context.Context, reqs []Request) []Result
}

// Caller performs a single eth_call. *Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

const multicallABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "target", "type": "address"},
          {"internalType": "bool", "name": "allowFailure", "type": "bool"},
          {"internalType": "bytes", "name": "callData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Call3[]",
        "name": "calls",
        "type": "tuple[]"
      }
    ],
    "name": "aggregate3",
    "outputs": [
      {
        "components": [
          {"internalType": "bool", "name": "success", "type": "bool"},
          {"internalType": "bytes", "name": "returnData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Result[]",
        "name": "returnData",
        "type": "tuple[]"
      }
    ],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getBlockNumber",
    "outputs": [{"internalType": "uint256", "name": "blockNumber", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	multicallABI     abi.ABI
	multicallABIOnce sync.Once
	multicallABIErr  error
)

// MulticallABI returns the parsed Multicall3 ABI subset.
func MulticallABI() (*abi.ABI, error) {
	multicallABIOnce.Do(func() {
		multicallABI, multicallABIErr = abi.JSON(strings.NewReader(multicallABIJSON))
	})
	return &multicallABI, multicallABIErr
}

type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type result3 struct {
	Success    bool
	ReturnData []byte
}

// MulticallConfig tunes batching, rate limiting and retries.
type MulticallConfig struct {
	Address       common.Address
	BatchSize     int
	RatePerSecond float64
	Burst         int
	MaxRetries    int
	RetryInterval time.Duration
}

func (c MulticallConfig) withDefaults() MulticallConfig {
	if c.Address == (common.Address{}) {
		c.Address = DefaultMulticallAddress
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	return c
}

// Multicaller implements Reader on top of Multicall3 aggregate3.
type Multicaller struct {
	caller  Caller
	cfg     MulticallConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewMulticaller builds a Multicaller. A zero RatePerSecond disables rate limiting.
func NewMulticaller(caller Caller, cfg MulticallConfig, logger *zap.Logger) *Multicaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Multicaller{
		caller:  caller,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger,
	}
}

// Read packs every request, sends them in chunks and decodes each slot.
func (m *Multicaller) Read(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	parsed, err := MulticallABI()
	if err != nil {
		for i := range results {
			results[i] = Result{Status: CallFailed, Err: fmt.Errorf("parse multicall abi: %w", err)}
		}
		return results
	}

	// Only requests that pack cleanly are sent; index maps batch slots back to reqs.
	calls := make([]call3, 0, len(reqs))
	index := make([]int, 0, len(reqs))
	for i, req := range reqs {
		if req.ABI == nil {
			results[i] = Result{Status: CallFailed, Err: fmt.Errorf("%s: abi is nil", req.Method)}
			continue
		}
		data, err := req.ABI.Pack(req.Method, req.Args...)
		if err != nil {
			results[i] = Result{Status: CallFailed, Err: fmt.Errorf("pack %s: %w", req.Method, err)}
			continue
		}
		calls = append(calls, call3{Target: req.Target, AllowFailure: true, CallData: data})
		index = append(index, i)
	}

	ranges, err := SplitCalls(len(calls), m.cfg.BatchSize)
	if err != nil {
		for _, i := range index {
			results[i] = Result{Status: CallFailed, Err: err}
		}
		return results
	}

	for _, r := range ranges {
		if err := m.limiter.Wait(ctx); err != nil {
			m.logger.Debug("multicall batch not sent", zap.Int("from", r.From), zap.Error(err))
			return results
		}

		batch, err := m.aggregate(ctx, parsed, calls[r.From:r.To])
		if err != nil {
			if ctx.Err() != nil {
				return results
			}
			m.logger.Warn("multicall batch failed",
				zap.Int("from", r.From),
				zap.Int("to", r.To),
				zap.Error(err),
			)
			for _, i := range index[r.From:r.To] {
				results[i] = Result{Status: CallFailed, Err: err}
			}
			continue
		}

		for offset, res := range batch {
			i := index[r.From+offset]
			results[i] = decodeSlot(reqs[i], res)
		}
	}

	return results
}

func (m *Multicaller) aggregate(ctx context.Context, parsed *abi.ABI, calls []call3) ([]result3, error) {
	data, err := parsed.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}
	msg := ethereum.CallMsg{To: &m.cfg.Address, Data: data}

	var out []result3
	operation := func() error {
		resp, err := m.caller.CallContract(ctx, msg, nil)
		if err != nil {
			return fmt.Errorf("call aggregate3: %w", err)
		}
		values, err := parsed.Unpack("aggregate3", resp)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("unpack aggregate3: %w", err))
		}
		if len(values) == 0 {
			return backoff.Permanent(fmt.Errorf("aggregate3: empty result"))
		}
		decoded := *abi.ConvertType(values[0], new([]result3)).(*[]result3)
		if len(decoded) != len(calls) {
			return backoff.Permanent(fmt.Errorf("aggregate3: %d results for %d calls", len(decoded), len(calls)))
		}
		out = decoded
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.cfg.RetryInterval
	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(m.cfg.MaxRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeSlot(req Request, res result3) Result {
	if !res.Success {
		return Result{Status: CallFailed, Err: fmt.Errorf("%s: %w", req.Method, ErrReverted)}
	}
	if len(res.ReturnData) == 0 {
		return Result{Status: CallSucceeded}
	}
	values, err := req.ABI.Unpack(req.Method, res.ReturnData)
	if err != nil {
		return Result{Status: CallFailed, Err: fmt.Errorf("%s: %w: %v", req.Method, ErrMalformed, err)}
	}
	return Result{Status: CallSucceeded, Values: values}
}

// BlockNumber reads the current block number through the multicall contract.
func (m *Multicaller) BlockNumber(ctx context.Context) (uint64, error) {
	parsed, err := MulticallABI()
	if err != nil {
		return 0, fmt.Errorf("parse multicall abi: %w", err)
	}
	data, err := parsed.Pack("getBlockNumber")
	if err != nil {
		return 0, fmt.Errorf("pack getBlockNumber: %w", err)
	}
	resp, err := m.caller.CallContract(ctx, ethereum.CallMsg{To: &m.cfg.Address, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call getBlockNumber: %w", err)
	}
	values, err := parsed.Unpack("getBlockNumber", resp)
	if err != nil {
		return 0, fmt.Errorf("unpack getBlockNumber: %w", err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("getBlockNumber: empty result")
	}
	number, ok := values[0].(*big.Int)
	if !ok || !number.IsUint64() {
		return 0, fmt.Errorf("getBlockNumber: unexpected value %v", values[0])
	}
	return number.Uint64(), nil
}

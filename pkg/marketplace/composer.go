package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/speedrun-hq/starkmarket/pkg/calldata"
	"github.com/speedrun-hq/starkmarket/pkg/logger"
	"github.com/speedrun-hq/starkmarket/pkg/metrics"
)

// Executor signs and submits a list of calls as one atomic multi-call
type Executor interface {
	Execute(ctx context.Context, calls []Call) (*ExecutionResult, error)
}

// SubmissionError wraps a rejection from the execution service
type SubmissionError struct {
	Action ActionKind
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s submission failed: %v", e.Action, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Composer builds marketplace multi-calls and hands them to an Executor
type Composer struct {
	contracts Contracts
	executor  Executor
	logger    logger.Logger
	timeout   time.Duration
	mu        sync.Mutex // one submission in flight at a time
}

// Option configures the Composer.
type Option func(*Composer)

// WithLogger sets the logger used for submission logs
func WithLogger(l logger.Logger) Option {
	return func(c *Composer) {
		c.logger = l
	}
}

// WithTimeout bounds how long a single submission may take. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) {
		c.timeout = d
	}
}

// NewComposer creates a composer for the given contracts
func NewComposer(contracts Contracts, executor Executor, opts ...Option) *Composer {
	c := &Composer{
		contracts: contracts,
		executor:  executor,
		logger:    &logger.EmptyLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Contracts returns the contract addresses the composer targets
func (c *Composer) Contracts() Contracts {
	return c.contracts
}

// Compose returns the calls an action would submit without submitting them
func (c *Composer) Compose(kind ActionKind, params Params) ([]Call, error) {
	calls, err := Compose(c.contracts, kind, params)
	if err != nil {
		var encErr *calldata.EncodingError
		if errors.As(err, &encErr) {
			metrics.EncodingErrors.WithLabelValues(kind.String()).Inc()
		}
		return nil, err
	}
	metrics.CallsComposed.WithLabelValues(kind.String()).Add(float64(len(calls)))
	return calls, nil
}

// Submit composes the action and submits it as a single multi-call.
// Failures of the execution service are returned as *SubmissionError and never retried.
func (c *Composer) Submit(ctx context.Context, kind ActionKind, params Params) (*ExecutionResult, error) {
	calls, err := c.Compose(kind, params)
	if err != nil {
		return nil, err
	}
	if c.executor == nil {
		return nil, &SubmissionError{Action: kind, Err: errors.New("no executor configured")}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	action := kind.String()
	for i, call := range calls {
		c.logger.DebugWithAction(action, "run %s call %d: %s.%s(%v)",
			runID, i, call.ContractAddress, call.Entrypoint, call.CalldataStrings())
	}
	c.logger.InfoWithAction(action, "Submitting multi-call with %d call(s) (run %s)", len(calls), runID)

	start := time.Now()
	result, err := c.executor.Execute(ctx, CloneCalls(calls))
	metrics.SubmissionTime.WithLabelValues(action).Observe(time.Since(start).Seconds())

	if err == nil && (result == nil || result.TransactionHash == "") {
		err = errors.New("execution service returned an empty transaction hash")
	}
	if err != nil {
		metrics.Submissions.WithLabelValues(action, "failed").Inc()
		c.logger.ErrorWithAction(action, "Submission failed (run %s): %v", runID, err)
		return nil, &SubmissionError{Action: kind, Err: err}
	}

	metrics.Submissions.WithLabelValues(action, "accepted").Inc()
	c.logger.NoticeWithAction(action, "Transaction accepted (run %s): %s", runID, result.TransactionHash)
	return result, nil
}

// Mint mints an NFT for the fixed mint price
func (c *Composer) Mint(ctx context.Context) (*ExecutionResult, error) {
	return c.Submit(ctx, ActionMint, Params{})
}

// List lists tokenID on the market at price
func (c *Composer) List(ctx context.Context, tokenID, price *big.Int) (*ExecutionResult, error) {
	return c.Submit(ctx, ActionList, Params{TokenID: tokenID, Price: price})
}

// Cancel cancels the listing of tokenID
func (c *Composer) Cancel(ctx context.Context, tokenID *big.Int) (*ExecutionResult, error) {
	return c.Submit(ctx, ActionCancel, Params{TokenID: tokenID})
}

// Buy buys tokenID paying price
func (c *Composer) Buy(ctx context.Context, tokenID, price *big.Int) (*ExecutionResult, error) {
	return c.Submit(ctx, ActionBuy, Params{TokenID: tokenID, Price: price})
}

package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
)

// MockExecutor records every multi-call it receives and returns a canned result
type MockExecutor struct {
	// Err, when set, is returned instead of a result
	Err error
	// Hash overrides the generated transaction hash
	Hash string

	mu         sync.Mutex
	Executions [][]marketplace.Call
}

var _ marketplace.Executor = (*MockExecutor)(nil)

// NewMockExecutor creates a mock executor that accepts every submission
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// NewFailingExecutor creates a mock executor that rejects every submission with err
func NewFailingExecutor(err error) *MockExecutor {
	return &MockExecutor{Err: err}
}

// Execute simulates submitting the multi-call
func (m *MockExecutor) Execute(ctx context.Context, calls []marketplace.Call) (*marketplace.ExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Executions = append(m.Executions, calls)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	hash := m.Hash
	if hash == "" {
		// each submission is a distinct transaction
		hash = fmt.Sprintf("0x%064x", len(m.Executions))
	}
	return &marketplace.ExecutionResult{TransactionHash: hash}, nil
}

// Count returns how many multi-calls were submitted
func (m *MockExecutor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Executions)
}

// Last returns the most recently submitted multi-call
func (m *MockExecutor) Last() []marketplace.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Executions) == 0 {
		return nil
	}
	return m.Executions[len(m.Executions)-1]
}

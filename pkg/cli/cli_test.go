package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/starkmarket/pkg/calldata"
	"github.com/speedrun-hq/starkmarket/pkg/config"
	"github.com/speedrun-hq/starkmarket/pkg/logger"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace/mocks"
)

type dryRunCall struct {
	ContractAddress string        `json:"contract_address"`
	Entrypoint      string        `json:"entrypoint"`
	Calldata        []json.Number `json:"calldata"`
}

func setEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{"NETWORK", "NETWORKS_FILE", "RPC_URL", "MAX_FEE", "CAIRO_VERSION", "SUBMIT_TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(v, "")
	}
	t.Setenv("ACCOUNT_ADDRESS", "0x0123")
	t.Setenv("PRIVATE_KEY", "0x0abc")
	t.Setenv("ETH_CONTRACT_ADDRESS", "0x0aaa")
	t.Setenv("NFT_CONTRACT_ADDRESS", "0x1111")
	t.Setenv("MARKET_CONTRACT_ADDRESS", "0x2222")
	t.Setenv("LOG_COLORING", "false")
}

func mockFactory(executor marketplace.Executor, err error) ExecutorFactory {
	return func(ctx context.Context, cfg *config.Config, log logger.Logger) (marketplace.Executor, ReadyChecker, string, error) {
		if err != nil {
			return nil, nil, "", err
		}
		return executor, nil, "0xfeed", nil
	}
}

func run(t *testing.T, factory ExecutorFactory, args ...string) (string, error) {
	t.Helper()
	envFile := filepath.Join(t.TempDir(), "absent.env")
	cmd := NewRootCommand(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", envFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func TestDryRunPrintsComposedCalls(t *testing.T) {
	setEnv(t)
	// the private key is never read on a dry run
	t.Setenv("PRIVATE_KEY", "")

	out, err := run(t, mockFactory(nil, errors.New("must not connect")), "--dry-run", "list", "2", "25")
	require.NoError(t, err)

	var calls []dryRunCall
	require.NoError(t, json.Unmarshal([]byte(out), &calls))
	require.Len(t, calls, 2)

	assert.Equal(t, "0x1111", calls[0].ContractAddress)
	assert.Equal(t, marketplace.EntrypointApprove, calls[0].Entrypoint)
	assert.Equal(t, []json.Number{"8738", "2", "0"}, calls[0].Calldata)

	assert.Equal(t, "0x2222", calls[1].ContractAddress)
	assert.Equal(t, marketplace.EntrypointListing, calls[1].Entrypoint)
	assert.Equal(t, []json.Number{"2", "0", "25", "0"}, calls[1].Calldata)
}

func TestSubmitPrintsTransactionHash(t *testing.T) {
	setEnv(t)
	executor := mocks.NewMockExecutor()

	out, err := run(t, mockFactory(executor, nil), "cancel", "7")
	require.NoError(t, err)

	assert.Contains(t, out, "Account connected successfully with public key: 0xfeed")
	assert.Contains(t, out, "Tx Hash: 0x")
	require.Equal(t, 1, executor.Count())

	last := executor.Last()
	require.Len(t, last, 1)
	assert.Equal(t, marketplace.EntrypointCancelListing, last[0].Entrypoint)
	assert.Equal(t, []string{"7", "0"}, last[0].CalldataStrings())
}

func TestMintTakesNoArguments(t *testing.T) {
	setEnv(t)
	executor := mocks.NewMockExecutor()

	_, err := run(t, mockFactory(executor, nil), "mint", "1")
	require.Error(t, err)
	assert.Equal(t, 0, executor.Count())

	out, err := run(t, mockFactory(executor, nil), "mint")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lastLine(out)), "Tx Hash: 0x"))
	assert.Equal(t, 1, executor.Count())
	assert.Len(t, executor.Last(), 2)
}

func TestActionArgumentErrors(t *testing.T) {
	setEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"list missing price", []string{"list", "2"}},
		{"buy too many args", []string{"buy", "2", "25", "3"}},
		{"cancel without token", []string{"cancel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := mocks.NewMockExecutor()
			_, err := run(t, mockFactory(executor, nil), tt.args...)
			require.Error(t, err)
			assert.Equal(t, 0, executor.Count())
		})
	}
}

func TestEncodingErrorStopsBeforeConnecting(t *testing.T) {
	setEnv(t)

	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"negative token", []string{"cancel", "--", "-1"}, "token_id"},
		{"non numeric price", []string{"buy", "2", "abc"}, "price"},
		{"price overflow", []string{"list", "2", "115792089237316195423570985008687907853269984665640564039457584007913129639936"}, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, mockFactory(nil, errors.New("must not connect")), tt.args...)
			var encErr *calldata.EncodingError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, tt.field, encErr.Field)
		})
	}
}

func TestMissingConfigurationIsReported(t *testing.T) {
	setEnv(t)
	t.Setenv("MARKET_CONTRACT_ADDRESS", "")

	_, err := run(t, mockFactory(mocks.NewMockExecutor(), nil), "cancel", "1")
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MARKET_CONTRACT_ADDRESS", cfgErr.Variable)
}

func TestSubmissionFailureIsReturned(t *testing.T) {
	setEnv(t)
	rpcErr := errors.New("nonce too old")

	out, err := run(t, mockFactory(mocks.NewFailingExecutor(rpcErr), nil), "buy", "2", "25")
	var subErr *marketplace.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.ErrorIs(t, err, rpcErr)
	assert.NotContains(t, out, "Tx Hash")
}

func TestServeRejectsDryRun(t *testing.T) {
	setEnv(t)
	_, err := run(t, mockFactory(mocks.NewMockExecutor(), nil), "--dry-run", "serve")
	require.Error(t, err)
}

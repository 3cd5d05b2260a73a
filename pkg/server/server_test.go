package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/speedrun-hq/starkmarket/pkg/circuitbreaker"
	"github.com/speedrun-hq/starkmarket/pkg/config"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContracts = marketplace.Contracts{Token: "0xaa", NFT: "0xbb", Market: "0xcc"}

func newTestServer(t *testing.T, executor marketplace.Executor, ready ReadinessFunc, apiKey string) (*httptest.Server, *circuitbreaker.CircuitBreaker) {
	t.Helper()
	cfg := &config.Config{
		Network:       config.NetworkConfig{Name: "sepolia", ChainID: "SN_SEPOLIA", RPCURL: "http://localhost"},
		ServerPort:    "0",
		MetricsAPIKey: apiKey,
	}
	breaker := circuitbreaker.NewCircuitBreaker(true, 2, time.Minute, time.Minute, nil)
	composer := marketplace.NewComposer(testContracts, executor)
	srv := NewServer(cfg, composer, breaker, ready, nil)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, breaker
}

func post(t *testing.T, url, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]string{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, mocks.NewMockExecutor(), nil, "")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReady(t *testing.T) {
	ts, _ := newTestServer(t, mocks.NewMockExecutor(), func(context.Context) error { return nil }, "")
	resp, err := http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ts, _ = newTestServer(t, mocks.NewMockExecutor(), func(context.Context) error { return errors.New("rpc down") }, "")
	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestListAction(t *testing.T) {
	executor := mocks.NewMockExecutor()
	ts, _ := newTestServer(t, executor, nil, "")

	resp, body := post(t, ts.URL+"/actions/list", `{"token_id":"2","price":"25"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["transaction_hash"])

	calls := executor.Last()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"2", "0", "25", "0"}, calls[1].CalldataStrings())
}

func TestMintWithoutBody(t *testing.T) {
	executor := mocks.NewMockExecutor()
	ts, _ := newTestServer(t, executor, nil, "")

	resp, err := http.Post(ts.URL+"/actions/mint", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, executor.Count())
}

func TestActionErrors(t *testing.T) {
	executor := mocks.NewMockExecutor()
	ts, _ := newTestServer(t, executor, nil, "")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"Unknown action", "/actions/burn", `{}`, http.StatusNotFound},
		{"Malformed body", "/actions/list", `{`, http.StatusBadRequest},
		{"Non numeric token id", "/actions/cancel", `{"token_id":"two"}`, http.StatusBadRequest},
		{"Missing price", "/actions/buy", `{"token_id":"2"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Equal(t, 0, executor.Count(), "invalid requests must not be submitted")
}

// TestCircuitOpensAfterSubmissionFailures checks repeated rejections pause submissions without retrying
func TestCircuitOpensAfterSubmissionFailures(t *testing.T) {
	executor := mocks.NewFailingExecutor(errors.New("insufficient allowance"))
	ts, breaker := newTestServer(t, executor, nil, "")

	for i := 0; i < 2; i++ {
		resp, _ := post(t, ts.URL+"/actions/buy", `{"token_id":"2","price":"25"}`)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}
	assert.True(t, breaker.IsOpen())

	resp, body := post(t, ts.URL+"/actions/buy", `{"token_id":"2","price":"25"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, ErrCircuitOpen.Error(), body["error"])
	assert.Equal(t, 2, executor.Count())

	resetResp, err := http.Post(ts.URL+"/circuit/reset", "", nil)
	require.NoError(t, err)
	resetResp.Body.Close()
	assert.False(t, breaker.IsOpen())
}

func TestCancelledSubmissionsDoNotTripCircuit(t *testing.T) {
	executor := mocks.NewFailingExecutor(context.Canceled)
	ts, breaker := newTestServer(t, executor, nil, "")

	for i := 0; i < 3; i++ {
		resp, _ := post(t, ts.URL+"/actions/cancel", `{"token_id":"2"}`)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}
	assert.False(t, breaker.IsOpen())
	assert.Equal(t, 3, executor.Count())
}

func TestStatus(t *testing.T) {
	ts, _ := newTestServer(t, mocks.NewMockExecutor(), nil, "")

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "sepolia", status["network"])
	contracts := status["contracts"].(map[string]interface{})
	assert.Equal(t, "0xcc", contracts["market"])
	circuit := status["circuit"].(map[string]interface{})
	assert.Equal(t, "closed", circuit["state"])
}

func TestMetricsAuth(t *testing.T) {
	ts, _ := newTestServer(t, mocks.NewMockExecutor(), nil, "secret")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParamsFor(t *testing.T) {
	params, err := ParamsFor(marketplace.ActionMint, "", "")
	require.NoError(t, err)
	assert.Nil(t, params.TokenID)

	params, err = ParamsFor(marketplace.ActionCancel, "0x10", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "16", params.TokenID.String())
	assert.Nil(t, params.Price)
}

package testutil

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/starkmarket/pkg/calldata"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
)

// Constants for testing
const (
	DefaultTestTimeout = 5 * time.Second
)

// GenerateAddress creates a random Starknet address below the field prime
func GenerateAddress(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, calldata.FieldPrime)
	require.NoError(t, err, "Failed to generate address")
	return fmt.Sprintf("0x%064x", n)
}

// GenerateContracts creates a set of distinct random contract addresses
func GenerateContracts(t *testing.T) marketplace.Contracts {
	t.Helper()
	return marketplace.Contracts{
		Token:  GenerateAddress(t),
		NFT:    GenerateAddress(t),
		Market: GenerateAddress(t),
	}
}

// CreateBigInt parses a decimal string into a big.Int
func CreateBigInt(value string) *big.Int {
	result := new(big.Int)
	result.SetString(value, 10)
	return result
}

// AssertBigIntEqual compares two big.Int values for equality in tests
func AssertBigIntEqual(t *testing.T, expected, actual *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	if expected == nil && actual == nil {
		return
	}

	if expected == nil || actual == nil {
		assert.Fail(t, "Values not equal", msgAndArgs...)
		return
	}

	assert.Equal(t, 0, expected.Cmp(actual), msgAndArgs...)
}

// AssertAddressEqual compares a felt calldata element with a hex address
func AssertAddressEqual(t *testing.T, address string, actual *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	expected, ok := new(big.Int).SetString(address, 0)
	require.True(t, ok, "invalid address %q", address)
	AssertBigIntEqual(t, expected, actual, msgAndArgs...)
}

// SetupTestWithTimeout creates a context bounded by DefaultTestTimeout, cancelled on cleanup
func SetupTestWithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	t.Cleanup(cancel)
	return ctx
}

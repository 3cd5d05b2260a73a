package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/speedrun-hq/starkmarket/pkg/calldata"
	"github.com/speedrun-hq/starkmarket/pkg/logger"
)

const (
	mainnet = "mainnet"
	sepolia = "sepolia"

	// DefaultNetwork is the network used when NETWORK is not set
	DefaultNetwork = sepolia

	// DefaultMaxFee is the maximum fee for an invoke transaction in wei (0.01 ETH)
	DefaultMaxFee = "10000000000000000"

	// DefaultCairoVersion is the Cairo version of the account contract
	DefaultCairoVersion = 2

	// DefaultSubmitTimeout bounds a single submission
	DefaultSubmitTimeout = 2 * time.Minute

	// DefaultServerPort defines the default port for the HTTP server
	DefaultServerPort = "8080"

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker
	DefaultCircuitBreakerWindow = 5

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker
	DefaultCircuitBreakerReset = 15

	MainnetChainID       = "SN_MAIN"
	DefaultMainnetRPCURL = "https://starknet-mainnet.public.blastapi.io"

	SepoliaChainID       = "SN_SEPOLIA"
	DefaultSepoliaRPCURL = "https://starknet-sepolia.public.blastapi.io"
)

var builtinNetworks = map[string]NetworkConfig{
	mainnet: {Name: mainnet, RPCURL: DefaultMainnetRPCURL, ChainID: MainnetChainID},
	sepolia: {Name: sepolia, RPCURL: DefaultSepoliaRPCURL, ChainID: SepoliaChainID},
}

// getEnvAddress reads a required Starknet address
func getEnvAddress(variable string) (string, error) {
	value := strings.TrimSpace(os.Getenv(variable))
	if value == "" {
		return "", missing(variable)
	}
	if _, err := calldata.Felt(variable, value); err != nil {
		return "", &ConfigurationError{Variable: variable, Reason: "must be a 0x-prefixed Starknet address", Err: err}
	}
	return value, nil
}

// GetEnvContracts returns the token, NFT and market contract addresses
func GetEnvContracts() (ContractsConfig, error) {
	token, err := getEnvAddress("ETH_CONTRACT_ADDRESS")
	if err != nil {
		return ContractsConfig{}, err
	}
	nft, err := getEnvAddress("NFT_CONTRACT_ADDRESS")
	if err != nil {
		return ContractsConfig{}, err
	}
	market, err := getEnvAddress("MARKET_CONTRACT_ADDRESS")
	if err != nil {
		return ContractsConfig{}, err
	}
	return ContractsConfig{Token: token, NFT: nft, Market: market}, nil
}

// GetEnvAccountAddress returns the address of the signing account
func GetEnvAccountAddress() (string, error) {
	return getEnvAddress("ACCOUNT_ADDRESS")
}

// GetEnvPrivateKey returns the account private key. The key is never echoed in errors.
func GetEnvPrivateKey() (string, error) {
	key := strings.TrimSpace(os.Getenv("PRIVATE_KEY"))
	if key == "" {
		return "", missing("PRIVATE_KEY")
	}
	n, err := calldata.Felt("PRIVATE_KEY", key)
	if err != nil {
		return "", &ConfigurationError{Variable: "PRIVATE_KEY", Reason: "must be a 0x-prefixed hex field element"}
	}
	if n.Sign() == 0 {
		return "", &ConfigurationError{Variable: "PRIVATE_KEY", Reason: "must not be zero"}
	}
	return key, nil
}

// GetEnvNetwork resolves NETWORK, NETWORKS_FILE and RPC_URL into a network configuration
func GetEnvNetwork() (NetworkConfig, error) {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("NETWORK")))
	if name == "" {
		name = DefaultNetwork
	}

	catalogue, err := LoadNetworks(os.Getenv("NETWORKS_FILE"))
	if err != nil {
		return NetworkConfig{}, &ConfigurationError{Variable: "NETWORKS_FILE", Reason: "cannot load network catalogue", Err: err}
	}

	network, ok := catalogue.Lookup(name)
	if !ok {
		network, ok = builtinNetworks[name]
	}
	if !ok {
		return NetworkConfig{}, &ConfigurationError{
			Variable: "NETWORK",
			Reason:   fmt.Sprintf("unknown network %q, must be 'mainnet', 'sepolia' or defined in NETWORKS_FILE", name),
		}
	}

	if rpc := strings.TrimSpace(os.Getenv("RPC_URL")); rpc != "" {
		network.RPCURL = rpc
	}
	if network.RPCURL != "" {
		if _, err := url.ParseRequestURI(network.RPCURL); err != nil {
			return NetworkConfig{}, &ConfigurationError{Variable: "RPC_URL", Reason: "must be a valid URL", Err: err}
		}
	}
	return network, nil
}

// GetEnvMaxFee returns the maximum fee for transactions
func GetEnvMaxFee() (*big.Int, error) {
	maxFee := os.Getenv("MAX_FEE")
	if maxFee == "" {
		maxFee = DefaultMaxFee
	}

	maxFeeBig, ok := new(big.Int).SetString(maxFee, 10)
	if !ok {
		return nil, &ConfigurationError{Variable: "MAX_FEE", Reason: fmt.Sprintf("%s must be a valid integer string", maxFee)}
	}
	if maxFeeBig.Sign() <= 0 {
		return nil, &ConfigurationError{Variable: "MAX_FEE", Reason: "must be greater than 0"}
	}
	return maxFeeBig, nil
}

// GetEnvCairoVersion returns the Cairo version of the account contract
func GetEnvCairoVersion() (int, error) {
	version := os.Getenv("CAIRO_VERSION")
	if version == "" {
		return DefaultCairoVersion, nil
	}

	v, err := strconv.Atoi(version)
	if err != nil || (v != 0 && v != 2) {
		return 0, &ConfigurationError{Variable: "CAIRO_VERSION", Reason: fmt.Sprintf("%s must be 0 or 2", version)}
	}
	return v, nil
}

// GetEnvSubmitTimeout returns how long a submission may take
func GetEnvSubmitTimeout() (time.Duration, error) {
	timeout := os.Getenv("SUBMIT_TIMEOUT")
	if timeout == "" {
		return DefaultSubmitTimeout, nil
	}

	parsed, err := time.ParseDuration(timeout)
	if err != nil {
		return 0, &ConfigurationError{Variable: "SUBMIT_TIMEOUT", Reason: "must be a valid duration string", Err: err}
	}
	if parsed < 0 {
		return 0, &ConfigurationError{Variable: "SUBMIT_TIMEOUT", Reason: "must not be negative"}
	}
	return parsed, nil
}

// GetEnvServerPort returns the HTTP server port
func GetEnvServerPort() (string, error) {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		return DefaultServerPort, nil
	}

	// Validate port format
	if _, err := strconv.Atoi(port); err != nil {
		return "", &ConfigurationError{Variable: "SERVER_PORT", Reason: fmt.Sprintf("%s must be a valid integer", port)}
	}
	return port, nil
}

// GetEnvMetricsAPIKey returns the bearer token protecting /metrics, if any
func GetEnvMetricsAPIKey() string {
	return os.Getenv("METRICS_API_KEY")
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	enabled := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if enabled == "" {
		return DefaultCircuitBreakerEnabled, nil
	}

	if enabled == "true" {
		return true, nil
	} else if enabled == "false" {
		return false, nil
	}

	return false, &ConfigurationError{Variable: "CIRCUIT_BREAKER_ENABLED", Reason: fmt.Sprintf("%s must be 'true' or 'false'", enabled)}
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, &ConfigurationError{Variable: "CIRCUIT_BREAKER_THRESHOLD", Reason: fmt.Sprintf("%s must be an integer", threshold)}
	}
	if thresholdInt <= 0 {
		return 0, &ConfigurationError{Variable: "CIRCUIT_BREAKER_THRESHOLD", Reason: "must be greater than 0"}
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	window := os.Getenv("CIRCUIT_BREAKER_WINDOW")
	if window == "" {
		return DefaultCircuitBreakerWindow * time.Second, nil
	}

	parsed, err := time.ParseDuration(window)
	if err != nil {
		return 0, &ConfigurationError{Variable: "CIRCUIT_BREAKER_WINDOW", Reason: "must be a valid duration string", Err: err}
	}
	return parsed, nil
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	reset := os.Getenv("CIRCUIT_BREAKER_RESET")
	if reset == "" {
		return DefaultCircuitBreakerReset * time.Second, nil
	}

	parsed, err := time.ParseDuration(reset)
	if err != nil {
		return 0, &ConfigurationError{Variable: "CIRCUIT_BREAKER_RESET", Reason: "must be a valid duration string", Err: err}
	}
	return parsed, nil
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logger.InfoLevel, &ConfigurationError{Variable: "LOG_LEVEL", Reason: "must be debug, info, notice or error", Err: err}
	}
	return level, nil
}

// GetEnvLogColoring returns whether log prefixes are colored, defaulting to on for terminals
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	switch coloring {
	case "":
		return logger.IsTerminal(), nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, &ConfigurationError{Variable: "LOG_COLORING", Reason: fmt.Sprintf("%s must be 'true' or 'false'", coloring)}
}

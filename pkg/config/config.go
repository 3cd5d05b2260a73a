package config

import (
	"errors"
	"io/fs"
	"log"
	"math/big"
	"time"

	"github.com/joho/godotenv"
	"github.com/speedrun-hq/starkmarket/pkg/calldata"
	"github.com/speedrun-hq/starkmarket/pkg/logger"
)

// Config holds the configuration for the marketplace runner.
// It is loaded once at startup and not modified afterwards.
type Config struct {
	Network        NetworkConfig
	AccountAddress string
	PrivateKey     string
	Contracts      ContractsConfig
	MaxFee         *big.Int
	CairoVersion   int
	SubmitTimeout  time.Duration
	ServerPort     string
	MetricsAPIKey  string
	CircuitBreaker CircuitBreakerConfig
	LoggerConfig   LoggerConfig
}

// ContractsConfig holds the addresses of the deployed contracts
type ContractsConfig struct {
	Token  string
	NFT    string
	Market string
}

// NetworkConfig describes the Starknet network to submit to
type NetworkConfig struct {
	Name    string
	RPCURL  string
	ChainID string
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from envFile (if present) and environment variables
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, &ConfigurationError{Variable: envFile, Reason: "cannot parse env file", Err: err}
			}
			log.Printf("Warning: %s file not found, using environment variables", envFile)
		}
	}

	contracts, err := GetEnvContracts()
	if err != nil {
		return nil, err
	}

	accountAddress, err := GetEnvAccountAddress()
	if err != nil {
		return nil, err
	}

	privateKey, err := GetEnvPrivateKey()
	if err != nil {
		return nil, err
	}

	network, err := GetEnvNetwork()
	if err != nil {
		return nil, err
	}

	maxFee, err := GetEnvMaxFee()
	if err != nil {
		return nil, err
	}

	cairoVersion, err := GetEnvCairoVersion()
	if err != nil {
		return nil, err
	}

	submitTimeout, err := GetEnvSubmitTimeout()
	if err != nil {
		return nil, err
	}

	serverPort, err := GetEnvServerPort()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Network:        network,
		AccountAddress: accountAddress,
		PrivateKey:     privateKey,
		Contracts:      contracts,
		MaxFee:         maxFee,
		CairoVersion:   cairoVersion,
		SubmitTimeout:  submitTimeout,
		ServerPort:     serverPort,
		MetricsAPIKey:  GetEnvMetricsAPIKey(),
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadContracts loads only the contract addresses, for commands that never sign
func LoadContracts(envFile string) (ContractsConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ContractsConfig{}, &ConfigurationError{Variable: envFile, Reason: "cannot parse env file", Err: err}
		}
	}
	return GetEnvContracts()
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Network.RPCURL == "" {
		return &ConfigurationError{Variable: "RPC_URL", Reason: "no RPC endpoint for network " + cfg.Network.Name}
	}
	if sameAddress(cfg.AccountAddress, cfg.Contracts.Market) || sameAddress(cfg.AccountAddress, cfg.Contracts.NFT) {
		return &ConfigurationError{Variable: "ACCOUNT_ADDRESS", Reason: "must differ from the NFT and market contract addresses"}
	}
	return nil
}

// sameAddress compares two addresses as field elements, so leading zeros and case do not matter
func sameAddress(a, b string) bool {
	x, err := calldata.Felt("address", a)
	if err != nil {
		return false
	}
	y, err := calldata.Felt("address", b)
	if err != nil {
		return false
	}
	return x.Cmp(y) == 0
}

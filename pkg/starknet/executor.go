package starknet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/curve"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"
	"github.com/speedrun-hq/starkmarket/pkg/calldata"
	"github.com/speedrun-hq/starkmarket/pkg/config"
	"github.com/speedrun-hq/starkmarket/pkg/logger"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
)

// Executor signs multi-calls with a local key and broadcasts them as INVOKE transactions
type Executor struct {
	network   config.NetworkConfig
	provider  *rpc.Provider
	account   *account.Account
	publicKey string
	maxFee    *felt.Felt
	logger    logger.Logger
	mu        sync.Mutex // nonce is read per submission
}

var _ marketplace.Executor = (*Executor)(nil)

// NewExecutor connects to the configured RPC endpoint and sets up the signing account
func NewExecutor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Executor, error) {
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	privateKey, err := calldata.Felt("PRIVATE_KEY", cfg.PrivateKey)
	if err != nil {
		return nil, &config.ConfigurationError{Variable: "PRIVATE_KEY", Reason: "must be a 0x-prefixed hex field element"}
	}

	publicKey, err := PublicKey(privateKey)
	if err != nil {
		return nil, &config.ConfigurationError{Variable: "PRIVATE_KEY", Reason: "cannot derive public key", Err: err}
	}

	accountAddress, err := toFelt("ACCOUNT_ADDRESS", cfg.AccountAddress)
	if err != nil {
		return nil, &config.ConfigurationError{Variable: "ACCOUNT_ADDRESS", Reason: "must be a 0x-prefixed Starknet address", Err: err}
	}

	e := &Executor{
		network:   cfg.Network,
		publicKey: publicKey,
		maxFee:    new(felt.Felt).SetBytes(cfg.MaxFee.Bytes()),
		logger:    log,
	}
	if err := e.connect(ctx, accountAddress, privateKey, cfg.CairoVersion); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Network.Name, err)
	}

	return e, nil
}

// connect dials the RPC endpoint and builds the account with an in-memory keystore
func (e *Executor) connect(ctx context.Context, accountAddress *felt.Felt, privateKey *big.Int, cairoVersion int) error {
	provider, err := rpc.NewProvider(e.network.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	if e.network.ChainID != "" {
		chainID, err := provider.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("failed to get chain ID: %w", err)
		}
		if chainID != e.network.ChainID {
			return &config.ConfigurationError{
				Variable: "NETWORK",
				Reason:   fmt.Sprintf("RPC endpoint serves %s, expected %s", chainID, e.network.ChainID),
			}
		}
	}

	ks := account.NewMemKeystore()
	ks.Put(e.publicKey, privateKey)

	acc, err := account.NewAccount(provider, accountAddress, e.publicKey, ks, cairoVersion)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	e.provider = provider
	e.account = acc
	return nil
}

// PublicKey returns the account public key derived from the private key
func (e *Executor) PublicKey() string {
	return e.publicKey
}

// Ready reports whether the RPC endpoint answers.
// The provider caches the chain id, so the probe asks for the latest block number instead.
func (e *Executor) Ready(ctx context.Context) error {
	if e.provider == nil {
		return fmt.Errorf("provider not connected")
	}
	if _, err := e.provider.BlockNumber(ctx); err != nil {
		return fmt.Errorf("failed to get block number: %w", err)
	}
	return nil
}

// Execute signs calls as one INVOKE multi-call and broadcasts it
func (e *Executor) Execute(ctx context.Context, calls []marketplace.Call) (*marketplace.ExecutionResult, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("no calls to execute")
	}

	fnCalls, err := toFunctionCalls(calls)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	nonce, err := e.account.Nonce(ctx, rpc.WithBlockTag("latest"), e.account.AccountAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	// v1 invoke paying MaxFee in wei; nodes that only accept v3 reject it as a submission error
	tx := rpc.BroadcastInvokev1Txn{
		InvokeTxnV1: rpc.InvokeTxnV1{
			MaxFee:        e.maxFee,
			Version:       rpc.TransactionV1,
			Nonce:         nonce,
			Type:          rpc.TransactionType_Invoke,
			SenderAddress: e.account.AccountAddress,
		},
	}

	tx.Calldata, err = e.account.FmtCalldata(fnCalls)
	if err != nil {
		return nil, fmt.Errorf("failed to format calldata: %w", err)
	}

	if err := e.account.SignInvokeTransaction(ctx, &tx.InvokeTxnV1); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	e.logger.Debug("Broadcasting invoke with nonce %s and %d call(s)", nonce.String(), len(fnCalls))

	resp, err := e.account.AddInvokeTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to add invoke transaction: %w", err)
	}
	if resp == nil || resp.TransactionHash == nil {
		return nil, fmt.Errorf("node returned no transaction hash")
	}

	return &marketplace.ExecutionResult{TransactionHash: resp.TransactionHash.String()}, nil
}

// toFunctionCalls converts composed calls into starknet.go function calls
func toFunctionCalls(calls []marketplace.Call) ([]rpc.FunctionCall, error) {
	fnCalls := make([]rpc.FunctionCall, 0, len(calls))
	for _, call := range calls {
		contractAddress, err := toFelt("contract_address", call.ContractAddress)
		if err != nil {
			return nil, err
		}

		data := make([]*felt.Felt, len(call.Calldata))
		for i, v := range call.Calldata {
			if v.Sign() < 0 || v.Cmp(calldata.FieldPrime) >= 0 {
				return nil, &calldata.EncodingError{Field: call.Entrypoint, Value: v.String(), Reason: "calldata element is not a field element"}
			}
			data[i] = new(felt.Felt).SetBytes(v.Bytes())
		}

		fnCalls = append(fnCalls, rpc.FunctionCall{
			ContractAddress:    contractAddress,
			EntryPointSelector: utils.GetSelectorFromNameFelt(call.Entrypoint),
			Calldata:           data,
		})
	}
	return fnCalls, nil
}

func toFelt(field, hex string) (*felt.Felt, error) {
	n, err := calldata.Felt(field, hex)
	if err != nil {
		return nil, err
	}
	return new(felt.Felt).SetBytes(n.Bytes()), nil
}

// PublicKey derives the Stark public key (x coordinate) for privateKey
func PublicKey(privateKey *big.Int) (string, error) {
	if privateKey == nil || privateKey.Sign() == 0 {
		return "", fmt.Errorf("private key is zero")
	}
	x, _, err := curve.Curve.PrivateToPoint(privateKey)
	if err != nil {
		return "", err
	}
	return "0x" + x.Text(16), nil
}

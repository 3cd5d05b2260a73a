package marketplace

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ActionKind names a marketplace action
type ActionKind string

const (
	// ActionMint mints a new NFT paying the fixed mint price
	ActionMint ActionKind = "mint"
	// ActionList lists an owned NFT on the market
	ActionList ActionKind = "list"
	// ActionCancel cancels an active listing
	ActionCancel ActionKind = "cancel"
	// ActionBuy buys a listed NFT
	ActionBuy ActionKind = "buy"
)

// Entrypoints exposed by the deployed contracts
const (
	EntrypointApprove       = "approve"
	EntrypointMint          = "mint_nft"
	EntrypointListing       = "listing_nft"
	EntrypointCancelListing = "cancel_listing"
	EntrypointBuy           = "buy_nft"
)

// PoolMint is the pool identifier passed to mint_nft
const PoolMint = 1

// MintPrice is the fixed amount of the payment token approved for a mint (10 * 10^18)
var MintPrice = new(big.Int).Mul(big.NewInt(10), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// ErrUnknownAction is returned for action names outside mint/list/cancel/buy
var ErrUnknownAction = errors.New("unknown action")

// Actions lists every supported action in a stable order
var Actions = []ActionKind{ActionMint, ActionList, ActionCancel, ActionBuy}

// ParseActionKind resolves an action name, ignoring case
func ParseActionKind(s string) (ActionKind, error) {
	kind := ActionKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Actions {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

func (k ActionKind) String() string {
	return string(k)
}

// NeedsTokenID reports whether the action operates on a specific token
func (k ActionKind) NeedsTokenID() bool {
	return k == ActionList || k == ActionCancel || k == ActionBuy
}

// NeedsPrice reports whether the action takes a price
func (k ActionKind) NeedsPrice() bool {
	return k == ActionList || k == ActionBuy
}

// Params carries the inputs of an action. Fields an action does not use are ignored.
type Params struct {
	TokenID *big.Int
	Price   *big.Int
}

// Contracts holds the addresses of the deployed contracts
type Contracts struct {
	Token  string // fungible payment token
	NFT    string
	Market string
}

// Call describes one contract invocation inside a multi-call
type Call struct {
	ContractAddress string     `json:"contract_address"`
	Entrypoint      string     `json:"entrypoint"`
	Calldata        []*big.Int `json:"calldata"`
}

// CalldataStrings renders the calldata as decimal strings
func (c Call) CalldataStrings() []string {
	out := make([]string, len(c.Calldata))
	for i, v := range c.Calldata {
		out[i] = v.String()
	}
	return out
}

func (c Call) clone() Call {
	data := make([]*big.Int, len(c.Calldata))
	for i, v := range c.Calldata {
		data[i] = new(big.Int).Set(v)
	}
	return Call{ContractAddress: c.ContractAddress, Entrypoint: c.Entrypoint, Calldata: data}
}

// CloneCalls deep-copies a call list so receivers cannot mutate the original
func CloneCalls(calls []Call) []Call {
	out := make([]Call, len(calls))
	for i, c := range calls {
		out[i] = c.clone()
	}
	return out
}

// ExecutionResult is what the execution service returns for an accepted multi-call
type ExecutionResult struct {
	TransactionHash string `json:"transaction_hash"`
}

package marketplace

import (
	"fmt"
	"math/big"

	"github.com/speedrun-hq/starkmarket/pkg/calldata"
)

// Compose turns an action into its ordered list of contract calls.
// It is a pure function of the contracts and params.
func Compose(contracts Contracts, kind ActionKind, params Params) ([]Call, error) {
	switch kind {
	case ActionMint:
		return composeMint(contracts)
	case ActionList:
		return composeList(contracts, params.TokenID, params.Price)
	case ActionCancel:
		return composeCancel(contracts, params.TokenID)
	case ActionBuy:
		return composeBuy(contracts, params.TokenID, params.Price)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, string(kind))
}

// composeMint approves the mint price to the NFT contract, then mints from the pool
func composeMint(c Contracts) ([]Call, error) {
	approve, err := calldata.NewBuilder().
		Address("spender", c.NFT).
		Uint256("amount", MintPrice).
		Build()
	if err != nil {
		return nil, err
	}

	mint, err := calldata.NewBuilder().
		Uint64(PoolMint).
		Build()
	if err != nil {
		return nil, err
	}

	return []Call{
		{ContractAddress: c.Token, Entrypoint: EntrypointApprove, Calldata: approve},
		{ContractAddress: c.NFT, Entrypoint: EntrypointMint, Calldata: mint},
	}, nil
}

// composeList lets the market transfer the token, then lists it at price
func composeList(c Contracts, tokenID, price *big.Int) ([]Call, error) {
	approve, err := calldata.NewBuilder().
		Address("to", c.Market).
		Uint256("token_id", tokenID).
		Build()
	if err != nil {
		return nil, err
	}

	listing, err := calldata.NewBuilder().
		Uint256("token_id", tokenID).
		Uint256("price", price).
		Build()
	if err != nil {
		return nil, err
	}

	return []Call{
		{ContractAddress: c.NFT, Entrypoint: EntrypointApprove, Calldata: approve},
		{ContractAddress: c.Market, Entrypoint: EntrypointListing, Calldata: listing},
	}, nil
}

func composeCancel(c Contracts, tokenID *big.Int) ([]Call, error) {
	cancel, err := calldata.NewBuilder().
		Uint256("token_id", tokenID).
		Build()
	if err != nil {
		return nil, err
	}

	return []Call{
		{ContractAddress: c.Market, Entrypoint: EntrypointCancelListing, Calldata: cancel},
	}, nil
}

// composeBuy approves price to the market, then buys the token
func composeBuy(c Contracts, tokenID, price *big.Int) ([]Call, error) {
	approve, err := calldata.NewBuilder().
		Address("spender", c.Market).
		Uint256("amount", price).
		Build()
	if err != nil {
		return nil, err
	}

	buy, err := calldata.NewBuilder().
		Uint256("token_id", tokenID).
		Build()
	if err != nil {
		return nil, err
	}

	return []Call{
		{ContractAddress: c.Token, Entrypoint: EntrypointApprove, Calldata: approve},
		{ContractAddress: c.Market, Entrypoint: EntrypointBuy, Calldata: buy},
	}, nil
}

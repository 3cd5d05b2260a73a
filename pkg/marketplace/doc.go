// Package marketplace composes the NFT marketplace actions (mint, list,
// cancel, buy) into ordered contract call lists and submits each list as a
// single multi-call through an Executor.
//
// Atomicity of a multi-call is provided by the account contract that
// executes it; nothing here retries or rolls back.
package marketplace

// Package starknet submits marketplace multi-calls to a Starknet node.
//
// Calls are formatted by the account contract's __execute__ convention,
// signed with a key held in memory and broadcast as INVOKE transactions
// through the starknet.go RPC provider.
package starknet

// Package calldata encodes contract call arguments the way Cairo contracts
// expect them: addresses as single felts and u256 values as (low, high) pairs.
package calldata

// Package stake implements stake & reward distribution (spec §4.9) and the
// stake-change Action type original_source's
// core/src/consensus/tendermint/stake/actions.rs models as an on_close_block
// side effect (spec's SUPPLEMENTED FEATURES).
//
// The reference implementation exposes a lazy iterator so callers can peek
// at the remaining fee after enumeration; spec §9 calls this out as a
// pattern requiring re-architecture and asks for a two-phase
// distribute() -> (shares, remainder) call instead, which is what Distribute
// below provides.
package stake

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Distribute splits totalFee across addr -> stake proportionally:
//
//	share(addr) = floor(totalFee * stake(addr) / totalStakes)
//
// and returns the leftover remainder, which the caller credits to the
// block author (spec §4.9). Iteration order does not affect any individual
// share, only map key ordering, so the result is deterministic regardless
// of range order.
func Distribute(totalFee uint64, stakes map[common.Address]uint64) (shares map[common.Address]uint64, remainder uint64) {
	shares = make(map[common.Address]uint64, len(stakes))

	totalStakes := new(big.Int)
	for _, s := range stakes {
		totalStakes.Add(totalStakes, new(big.Int).SetUint64(s))
	}
	if totalStakes.Sign() == 0 {
		return shares, totalFee
	}

	fee := new(big.Int).SetUint64(totalFee)
	distributed := new(big.Int)
	for addr, s := range stakes {
		share := new(big.Int).Mul(fee, new(big.Int).SetUint64(s))
		share.Div(share, totalStakes)
		shares[addr] = share.Uint64()
		distributed.Add(distributed, share)
	}

	remainingBig := new(big.Int).Sub(fee, distributed)
	return shares, remainingBig.Uint64()
}

// Action is a stake-change side effect on_close_block can enqueue into the
// state, grounded on original_source's Action::TransferCCS.
type Action struct {
	Kind ActionKind
	From common.Address
	To   common.Address
	// Amount carries the CCS quantity moved by a TransferCCS action.
	Amount uint64
}

// ActionKind discriminates the (currently single-member) Action sum type.
type ActionKind uint8

const (
	// ActionTransferCCS moves stake from one holder to another, e.g. as a
	// delegation or unbonding side effect of block finalisation.
	ActionTransferCCS ActionKind = iota
)

// Package sortition implements VRF-based leader sortition (spec §4.3): the
// binomial-CDF walk that turns a VRF output into a winning sub-draw count,
// and the VRF proving/verification step that feeds it. The CDF evaluation
// is delegated to gonum's stat/distuv, the arbitrary-precision integer
// conversion to math/big — both chosen so that every node reaches the same
// bit-exact f64 lottery value, the determinism spec §4.3 demands.
package sortition

import (
	"math/big"

	"gonum.org/v1/gonum/stat/distuv"
)

// Draw returns the number of winning sub-draws in [0, votingPower] for a
// validator holding votingPower out of totalPower total stake, given the
// committee's expected seat count and a VRF output (spec §4.3):
//
//  1. p = expectation / totalPower, clamped to [0, 1].
//  2. lottery = int(vrfOutput) / (2^(8*len(vrfOutput)) - 1), as a float64.
//  3. Walk j = 0, 1, ..., votingPower; return the first j with
//     lottery <= BinomialCDF(j; votingPower, p); if none, return votingPower.
func Draw(votingPower, totalPower uint64, expectation float64, vrfOutput []byte) uint64 {
	p := probability(expectation, totalPower)
	lottery := lotteryValue(vrfOutput)
	return walk(votingPower, p, lottery)
}

func probability(expectation float64, totalPower uint64) float64 {
	if totalPower == 0 {
		return 0
	}
	p := expectation / float64(totalPower)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// lotteryValue interprets vrfOutput as a big-endian unsigned integer and
// scales it into [0, 1] against the largest value representable in the
// same byte width, matching the reference's "integer(vrf_output) /
// (2^bitlen - 1) as rational" step exactly (bitlen = 8*len(vrfOutput)).
func lotteryValue(vrfOutput []byte) float64 {
	if len(vrfOutput) == 0 {
		return 0
	}
	numerator := new(big.Int).SetBytes(vrfOutput)
	denominator := new(big.Int).Lsh(big.NewInt(1), uint(8*len(vrfOutput)))
	denominator.Sub(denominator, big.NewInt(1))

	ratio := new(big.Rat).SetFrac(numerator, denominator)
	f, _ := ratio.Float64()
	return f
}

func walk(votingPower uint64, p, lottery float64) uint64 {
	if votingPower == 0 {
		return 0
	}
	binom := distuv.Binomial{N: float64(votingPower), P: p}
	for j := uint64(0); j < votingPower; j++ {
		if lottery <= binom.CDF(float64(j)) {
			return j
		}
	}
	return votingPower
}

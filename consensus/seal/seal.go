// Package seal implements the Tendermint header seal (spec §6.2): a
// bit-exact RLP structure carrying the collected precommits, a compact
// bitset recording which validators they came from, and the VRF seed info
// feeding the next height's leader sortition.
//
// It is a leaf package (no dependency on the tendermint state machine or
// the epoch verifier) so that both can decode/encode seals without an
// import cycle.
package seal

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// VRFSeedInfo is the VRF proof the proposer of the *next* height uses to
// prove its leader draw, carried piggy-backed on the current seal.
type VRFSeedInfo struct {
	SignerIndex uint64
	Seed        common.Hash
	Proof       []byte
}

// Seal is the Tendermint header seal field, RLP-encoded verbatim as
// `[prev_view, cur_view, precommits, precommit_bitset, vrf_seed_info]`
// (spec §6.2).
type Seal struct {
	PrevView         uint64
	CurView          uint64
	Precommits       [][]byte // Schnorr signatures, in bitset-ascending order
	PrecommitBitset  []byte
	VRFSeedInfo      VRFSeedInfo
}

// Seal has no custom EncodeRLP/DecodeRLP methods: go-ethereum/rlp's default
// struct encoding follows Seal's field order above, which already matches
// the wire layout spec §6.2 specifies, as the roundtrip test exercises.

// Bitset returns a bitset.BitSet view of s.PrecommitBitset, with bit i set
// iff validator i's precommit is present — an in-memory representation,
// separate from the on-the-wire byte layout NewPrecommitBitset produces.
func (s *Seal) Bitset(validatorCount int) *bitset.BitSet {
	bs := bitset.New(uint(validatorCount))
	for i := 0; i < validatorCount; i++ {
		if bitIsSet(s.PrecommitBitset, i) {
			bs.Set(uint(i))
		}
	}
	return bs
}

// NewPrecommitBitset packs set (bit i true iff validator i's precommit is
// included) into the exact wire format spec §6.2 demands: ceil(N/8) bytes,
// bit i stored big-endian within byte i/8 (MSB = index 0).
func NewPrecommitBitset(validatorCount int, included []bool) []byte {
	out := make([]byte, (validatorCount+7)/8)
	for i, isIncluded := range included {
		if isIncluded {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

func bitIsSet(b []byte, i int) bool {
	byteIdx := i / 8
	if byteIdx >= len(b) {
		return false
	}
	return b[byteIdx]&(1<<uint(7-i%8)) != 0
}

// Validate checks the popcount(precommit_bitset) == len(precommits)
// invariant (spec §3's Seal invariant and §8's "bitset / precommits
// consistency" universal property).
func (s *Seal) Validate(validatorCount int) error {
	wantLen := (validatorCount + 7) / 8
	if len(s.PrecommitBitset) != wantLen {
		return fmt.Errorf("seal: bitset length %d, want %d for %d validators", len(s.PrecommitBitset), wantLen, validatorCount)
	}
	popcount := 0
	for i := 0; i < validatorCount; i++ {
		if bitIsSet(s.PrecommitBitset, i) {
			popcount++
		}
	}
	if popcount != len(s.Precommits) {
		return fmt.Errorf("seal: popcount(bitset)=%d != len(precommits)=%d", popcount, len(s.Precommits))
	}
	return nil
}

// Encode RLP-encodes the seal for embedding in a header's Extra field.
func Encode(s *Seal) ([]byte, error) {
	return rlp.EncodeToBytes(s)
}

// Decode RLP-decodes a seal previously produced by Encode.
func Decode(data []byte) (*Seal, error) {
	var s Seal
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// IncludedIndices returns, in ascending order, the validator indices whose
// precommit bit is set in the seal's bitset.
func (s *Seal) IncludedIndices(validatorCount int) []int {
	var out []int
	for i := 0; i < validatorCount; i++ {
		if bitIsSet(s.PrecommitBitset, i) {
			out = append(out, i)
		}
	}
	return out
}

// Package epoch implements EpochVerifier (spec §4.4): light and heavy
// header verification, and finality-proof checking, for a validator set
// fixed at one epoch. It is grounded on original_source's
// core/src/consensus/tendermint/epoch_verifier.rs and consensus/src/epoch.rs.
package epoch

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/consensus/seal"
	"github.com/codechain-io/codechain/consensus/signer"
	"github.com/codechain-io/codechain/consensus/validator"
)

// Verifier is the EpochVerifier contract (spec §4.4).
type Verifier interface {
	VerifyLight(header *consensus.Header) error
	VerifyHeavy(header *consensus.Header) error
	CheckFinalityProof(proof []byte) ([]common.Hash, bool)
}

// NoOpVerifier always succeeds. Grounded on original_source's
// consensus/src/epoch.rs `NoOp` verifier, it is the EpochVerifier for
// NullEngine/SoloEngine configurations which have no epoch concept (spec's
// SUPPLEMENTED FEATURES).
type NoOpVerifier struct{}

func (NoOpVerifier) VerifyLight(*consensus.Header) error { return nil }
func (NoOpVerifier) VerifyHeavy(*consensus.Header) error { return nil }
func (NoOpVerifier) CheckFinalityProof(proof []byte) ([]common.Hash, bool) {
	var h common.Hash
	copy(h[:], proof)
	return []common.Hash{h}, true
}

var _ Verifier = NoOpVerifier{}

// Tendermint verifies headers against a validator Set fixed for one epoch.
type Tendermint struct {
	Set       validator.Set
	ParentHash common.Hash // the epoch's defining parent hash, passed to Set lookups
}

// VerifyLight decodes the seal's precommit list, checks each included
// signature against its claimed validator's public key, rejects any
// non-member, and accepts iff the number of distinct valid signers exceeds
// floor(2N/3) (spec §4.4). Schnorr signatures carry no public-key recovery,
// so unlike the reference text's "recovers each signer" this verifies each
// precommit directly against the validator the bitset position names —
// functionally identical: a forged or substituted signer is rejected all
// the same.
func (v *Tendermint) VerifyLight(header *consensus.Header) error {
	s, err := decodeSeal(header)
	if err != nil {
		return err
	}
	n := v.Set.Count(v.ParentHash)
	if n == 0 {
		return consensus.ErrEmptyValidatorSet
	}
	if err := s.Validate(n); err != nil {
		return &consensus.BadSealFieldSizeError{Min: (n + 7) / 8, Found: len(s.PrecommitBitset)}
	}

	// Precommit signatures commit to consensus.VoteSigningHash(blockHash,
	// voteStep), the same digest State.castVote signs when casting them
	// (spec §4.7/§4.4): the header's own signing hash standing in for the
	// blockHash voted for, paired with the VoteStep the seal's CurView
	// names.
	blockHash := header.SigningHash()
	vs := consensus.NewVoteStep(consensus.Height(header.Number.Uint64()), consensus.View(s.CurView), consensus.Precommit)
	hash := consensus.VoteSigningHash(&blockHash, vs)
	distinct := map[common.Address]struct{}{}
	indices := s.IncludedIndices(n)
	if len(indices) != len(s.Precommits) {
		max := len(s.Precommits)
		return &consensus.BadSealFieldSizeError{Min: len(indices), Max: &max, Found: len(s.Precommits)}
	}
	for i, idx := range indices {
		addr, err := v.Set.GetAddress(v.ParentHash, uint64(idx))
		if err != nil {
			return err
		}
		pub, err := v.Set.Get(v.ParentHash, uint64(idx))
		if err != nil {
			return err
		}
		if !signer.Verify(pub, hash, s.Precommits[i]) {
			return consensus.ErrInvalidSeal
		}
		distinct[addr] = struct{}{}
	}
	quorum := 2 * n / 3
	if len(distinct) <= quorum {
		return &consensus.BadSealFieldSizeError{Min: quorum, Found: len(distinct)}
	}
	return nil
}

// VerifyHeavy defaults to VerifyLight (spec §4.4).
func (v *Tendermint) VerifyHeavy(header *consensus.Header) error { return v.VerifyLight(header) }

// CheckFinalityProof decodes proof as a header, runs VerifyLight, and
// returns that header's hash on success (spec §4.4).
func (v *Tendermint) CheckFinalityProof(proof []byte) ([]common.Hash, bool) {
	header, err := consensus.DecodeHeader(proof)
	if err != nil {
		return nil, false
	}
	if err := v.VerifyLight(header); err != nil {
		return nil, false
	}
	return []common.Hash{header.Hash()}, true
}

func decodeSeal(header *consensus.Header) (*seal.Seal, error) {
	s, err := seal.Decode(header.Extra)
	if err != nil {
		return nil, consensus.ErrInvalidSealFields
	}
	return s, nil
}

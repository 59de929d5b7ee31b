// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package consensus defines the pluggable engine contract every CodeChain
// consensus implementation (null, solo, tendermint) satisfies, plus the
// shared height/view/step vocabulary the Tendermint state machine is built
// from.
package consensus

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// Height is a block's sequence number under consensus. It advances on commit.
type Height uint64

// View is the round number within a Height. It advances on timeout or on
// +2/3 non-nil prevote disagreement.
type View uint64

// Step is the phase within a View.
type Step uint8

const (
	Propose Step = iota
	Prevote
	Precommit
	Commit
)

func (s Step) String() string {
	switch s {
	case Propose:
		return "Propose"
	case Prevote:
		return "Prevote"
	case Precommit:
		return "Precommit"
	case Commit:
		return "Commit"
	default:
		return fmt.Sprintf("Step(%d)", uint8(s))
	}
}

// VoteStep identifies a single slot in the Tendermint vote-collection
// keyspace. The zero value is (0, 0, Propose).
type VoteStep struct {
	Height Height
	View   View
	Step   Step
}

// NewVoteStep builds a VoteStep from its three components.
func NewVoteStep(height Height, view View, step Step) VoteStep {
	return VoteStep{Height: height, View: view, Step: step}
}

// Compare orders VoteSteps lexicographically on (Height, View, Step), with
// Propose < Prevote < Precommit < Commit. It returns a negative number, zero
// or a positive number as vs is less than, equal to, or greater than other.
func (vs VoteStep) Compare(other VoteStep) int {
	if vs.Height != other.Height {
		if vs.Height < other.Height {
			return -1
		}
		return 1
	}
	if vs.View != other.View {
		if vs.View < other.View {
			return -1
		}
		return 1
	}
	if vs.Step != other.Step {
		if vs.Step < other.Step {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether vs strictly precedes other in the VoteStep total order.
func (vs VoteStep) Less(other VoteStep) bool { return vs.Compare(other) < 0 }

func (vs VoteStep) String() string {
	return fmt.Sprintf("(h=%d,v=%d,%s)", vs.Height, vs.View, vs.Step)
}

// BlockHash is the 32-byte BLAKE-256 digest of a canonical header encoding.
type BlockHash = common.Hash

// ConsensusMessage is a signed vote or proposal-vote exchanged over the
// Tendermint P2P extension. BlockHash is nil for a nil vote (prevote-nil /
// precommit-nil).
type ConsensusMessage struct {
	Signature []byte
	BlockHash *BlockHash `rlp:"nil"`
	VoteStep  VoteStep
}

// IsNil reports whether this message is a nil vote.
func (m ConsensusMessage) IsNil() bool { return m.BlockHash == nil }

// Header is the minimal header surface the consensus core reads and writes.
// It mirrors the fields of go-ethereum's core/types.Header that the engine
// contract (verification, sealing, reward) actually touches; the full block
// body and transaction model are the block executor's concern, external to
// this package.
type Header struct {
	ParentHash common.Hash
	Number     *big.Int
	Coinbase   common.Address
	Time       uint64
	Extra      []byte // carries the RLP-encoded Seal for internally-sealed engines
}

// Hash returns the BLAKE-256 digest of the header's full canonical RLP
// encoding, Extra (the seal) included. This is the block hash used for
// chain linkage and lookups once a block is sealed.
func (h *Header) Hash() common.Hash {
	return rlpHash(h)
}

// SigningHash returns the digest validators sign when voting for this
// header: the same encoding as Hash but with Extra cleared, since the seal
// embeds the very signatures that authenticate it and cannot be part of
// what they sign over.
func (h *Header) SigningHash() common.Hash {
	stripped := *h
	stripped.Extra = nil
	return rlpHash(&stripped)
}

// VoteTarget is the unsigned content a Tendermint vote's signature commits
// to: the block hash voted for (nil for a nil vote) and its VoteStep.
type VoteTarget struct {
	BlockHash *BlockHash `rlp:"nil"`
	VoteStep  VoteStep
}

// VoteSigningHash derives the digest a precommit/prevote signature commits
// to: the BLAKE-256 of (blockHash, voteStep) RLP-encoded together. Both the
// Tendermint state machine (when casting and recording votes) and the
// EpochVerifier (when checking a seal's precommits) must derive this digest
// identically, since a seal's precommit signatures are exactly the votes
// collected during the Precommit step that produced it.
func VoteSigningHash(blockHash *BlockHash, vs VoteStep) common.Hash {
	blob, err := rlp.EncodeToBytes(&VoteTarget{BlockHash: blockHash, VoteStep: vs})
	if err != nil {
		panic(err) // VoteTarget is always RLP-encodable; a failure here is a programmer error
	}
	return Blake256(blob)
}

// EncodeHeader RLP-encodes a header, e.g. to embed inside an epoch
// finality proof (spec §4.4's check_finality_proof decodes exactly this).
func EncodeHeader(h *Header) ([]byte, error) { return rlp.EncodeToBytes(h) }

// DecodeHeader is EncodeHeader's inverse.
func DecodeHeader(data []byte) (*Header, error) {
	var h Header
	if err := rlp.DecodeBytes(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Block is the minimal live-block surface the engine needs while building or
// closing a block: its header-in-progress, its transaction count and the fee
// total collected from its transactions. The stake table owed a
// proportional share of that fee is passed to OnCloseBlock separately.
type Block struct {
	Header       *Header
	Transactions int    // count, for NullEngine/SoloEngine's "non-empty" check
	Fee          uint64 // total minimum fee collected from Transactions
}

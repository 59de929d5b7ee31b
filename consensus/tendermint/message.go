package tendermint

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/codechain-io/codechain/consensus"
)

// extensionMessageID tags the logical message carried by a single P2P
// extension frame (spec §6.1); the generic framing/session-encryption below
// this tag is the P2P layer's concern, external to this package.
type extensionMessageID uint8

const (
	idConsensusMessage extensionMessageID = iota
	idProposal
	idStepState
)

// Proposal is the full block body gossiped for a proposed (height, view)
// (spec §6.1's "Proposal((h, v), block_bytes)"). BlockBytes is the block's
// external RLP encoding as produced by the block executor; this package
// does not interpret it beyond forwarding it to the client for import.
type Proposal struct {
	Height     consensus.Height
	View       consensus.View
	BlockBytes []byte
}

// EncodeProposal RLP-encodes p with its message tag, ready to hand to the
// P2P extension's send hook.
func EncodeProposal(p *Proposal) ([]byte, error) {
	return encodeTagged(idProposal, p)
}

// StepState is a compact advertisement of which validators' votes the
// sender already holds at (height, view, step), letting a peer skip
// resending votes the sender has (spec §6.1's gossip-suppression hint).
type StepState struct {
	VoteStep consensus.VoteStep
	Bitset   []byte
}

// NewStepState builds a StepState from the set of validator indices the
// sender holds a vote from, encoded with the same bit layout as a seal's
// precommit bitset (seal.NewPrecommitBitset): bit i, MSB-first within byte
// i/8, set iff validator i's vote is held.
func NewStepState(step consensus.VoteStep, validatorCount int, held []int) StepState {
	bs := bitset.New(uint(validatorCount))
	for _, i := range held {
		bs.Set(uint(i))
	}
	byteLen := (validatorCount + 7) / 8
	out := make([]byte, byteLen)
	for i := 0; i < validatorCount; i++ {
		if bs.Test(uint(i)) {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return StepState{VoteStep: step, Bitset: out}
}

// Has reports whether index i is marked held in s.
func (s StepState) Has(i int) bool {
	byteIdx, bitIdx := i/8, i%8
	if byteIdx >= len(s.Bitset) {
		return false
	}
	return s.Bitset[byteIdx]&(1<<(7-uint(bitIdx))) != 0
}

// EncodeStepState RLP-encodes s with its message tag.
func EncodeStepState(s *StepState) ([]byte, error) {
	return encodeTagged(idStepState, s)
}

// EncodeConsensusMessage RLP-encodes msg with its message tag.
func EncodeConsensusMessage(msg *consensus.ConsensusMessage) ([]byte, error) {
	return encodeTagged(idConsensusMessage, msg)
}

func encodeTagged(id extensionMessageID, body interface{}) ([]byte, error) {
	payload, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&taggedFrame{ID: id, Payload: payload})
}

type taggedFrame struct {
	ID      extensionMessageID
	Payload []byte
}

// DecodeExtensionMessage decodes a raw extension frame and dispatches on
// its tag, returning exactly one of *consensus.ConsensusMessage, *Proposal
// or *StepState.
func DecodeExtensionMessage(data []byte) (interface{}, error) {
	var frame taggedFrame
	if err := rlp.DecodeBytes(data, &frame); err != nil {
		return nil, consensus.ErrMalformedMessage
	}
	switch frame.ID {
	case idConsensusMessage:
		var m consensus.ConsensusMessage
		if err := rlp.DecodeBytes(frame.Payload, &m); err != nil {
			return nil, consensus.ErrMalformedMessage
		}
		return &m, nil
	case idProposal:
		var p Proposal
		if err := rlp.DecodeBytes(frame.Payload, &p); err != nil {
			return nil, consensus.ErrMalformedMessage
		}
		return &p, nil
	case idStepState:
		var s StepState
		if err := rlp.DecodeBytes(frame.Payload, &s); err != nil {
			return nil, consensus.ErrMalformedMessage
		}
		return &s, nil
	default:
		return nil, consensus.ErrUnexpectedMessage
	}
}

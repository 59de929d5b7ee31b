package tendermint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codechain-io/codechain/consensus"
)

func TestEncodeDecodeConsensusMessage(t *testing.T) {
	h := hash(7)
	msg := &consensus.ConsensusMessage{
		Signature: []byte{1, 2, 3},
		BlockHash: &h,
		VoteStep:  consensus.NewVoteStep(3, 1, consensus.Prevote),
	}

	blob, err := EncodeConsensusMessage(msg)
	require.NoError(t, err)

	decoded, err := DecodeExtensionMessage(blob)
	require.NoError(t, err)
	got, ok := decoded.(*consensus.ConsensusMessage)
	require.True(t, ok)
	require.Equal(t, msg.VoteStep, got.VoteStep)
	require.Equal(t, *msg.BlockHash, *got.BlockHash)
	require.Equal(t, msg.Signature, got.Signature)
}

func TestEncodeDecodeConsensusMessageNilVote(t *testing.T) {
	msg := &consensus.ConsensusMessage{
		Signature: []byte{9},
		BlockHash: nil,
		VoteStep:  consensus.NewVoteStep(3, 1, consensus.Precommit),
	}

	blob, err := EncodeConsensusMessage(msg)
	require.NoError(t, err)

	decoded, err := DecodeExtensionMessage(blob)
	require.NoError(t, err)
	got := decoded.(*consensus.ConsensusMessage)
	require.Nil(t, got.BlockHash)
}

func TestEncodeDecodeProposal(t *testing.T) {
	p := &Proposal{Height: 5, View: 2, BlockBytes: []byte{0xde, 0xad, 0xbe, 0xef}}
	blob, err := EncodeProposal(p)
	require.NoError(t, err)

	decoded, err := DecodeExtensionMessage(blob)
	require.NoError(t, err)
	got := decoded.(*Proposal)
	require.Equal(t, p.Height, got.Height)
	require.Equal(t, p.View, got.View)
	require.Equal(t, p.BlockBytes, got.BlockBytes)
}

func TestStepStateBitsetLayout(t *testing.T) {
	step := consensus.NewVoteStep(1, 0, consensus.Prevote)
	s := NewStepState(step, 10, []int{0, 3, 9})

	require.True(t, s.Has(0))
	require.True(t, s.Has(3))
	require.True(t, s.Has(9))
	require.False(t, s.Has(1))
	require.False(t, s.Has(8))
	require.Len(t, s.Bitset, 2) // ceil(10/8)
}

func TestEncodeDecodeStepState(t *testing.T) {
	step := consensus.NewVoteStep(4, 0, consensus.Precommit)
	s := NewStepState(step, 4, []int{1, 2})

	blob, err := EncodeStepState(&s)
	require.NoError(t, err)

	decoded, err := DecodeExtensionMessage(blob)
	require.NoError(t, err)
	got := decoded.(*StepState)
	require.Equal(t, step, got.VoteStep)
	require.True(t, got.Has(1))
	require.True(t, got.Has(2))
	require.False(t, got.Has(0))
}

func TestDecodeMalformedMessageErrors(t *testing.T) {
	_, err := DecodeExtensionMessage([]byte{0xff, 0xff})
	require.ErrorIs(t, err, consensus.ErrMalformedMessage)
}

package tendermint

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/codechain-io/codechain/consensus"
)

func addr(b byte) common.Address {
	var a common.Address
	a[0] = b
	return a
}

func hash(b byte) common.Hash {
	var h common.Hash
	h[0] = b
	return h
}

func TestVoteCollectionAccumulatesStakePerBlock(t *testing.T) {
	c := NewVoteCollection()
	step := consensus.NewVoteStep(10, 0, consensus.Prevote)
	h := hash(1)

	require.NoError(t, c.Insert(addr(1), consensus.ConsensusMessage{VoteStep: step, BlockHash: &h}, 30))
	require.NoError(t, c.Insert(addr(2), consensus.ConsensusMessage{VoteStep: step, BlockHash: &h}, 40))

	vs := c.At(step)
	require.NotNil(t, vs)
	require.Equal(t, uint64(70), vs.PowerFor(&h))
	require.Equal(t, uint64(70), vs.TotalPower())

	winner, ok := vs.SupersedingBlock(100)
	require.True(t, ok)
	require.Equal(t, h, winner)
}

func TestVoteCollectionNilVoteSupersedence(t *testing.T) {
	c := NewVoteCollection()
	step := consensus.NewVoteStep(5, 1, consensus.Precommit)

	require.NoError(t, c.Insert(addr(1), consensus.ConsensusMessage{VoteStep: step, BlockHash: nil}, 80))
	vs := c.At(step)
	require.True(t, vs.NilSupersedes(100))
}

func TestVoteCollectionDetectsDoubleVote(t *testing.T) {
	c := NewVoteCollection()
	step := consensus.NewVoteStep(1, 0, consensus.Precommit)
	h1, h2 := hash(1), hash(2)

	require.NoError(t, c.Insert(addr(9), consensus.ConsensusMessage{VoteStep: step, BlockHash: &h1}, 10))

	err := c.Insert(addr(9), consensus.ConsensusMessage{VoteStep: step, BlockHash: &h2}, 10)
	require.Error(t, err)

	var dv *consensus.DoubleVoteError
	require.ErrorAs(t, err, &dv)
	require.Equal(t, addr(9), dv.Voter)
	require.Equal(t, h1, *dv.First.BlockHash)
	require.Equal(t, h2, *dv.Second.BlockHash)

	// The offending second vote must not have moved any stake.
	vs := c.At(step)
	require.Equal(t, uint64(10), vs.PowerFor(&h1))
	require.Equal(t, uint64(0), vs.PowerFor(&h2))
}

func TestVoteCollectionDuplicateDeliveryIsNotADoubleVote(t *testing.T) {
	c := NewVoteCollection()
	step := consensus.NewVoteStep(1, 0, consensus.Prevote)
	h := hash(3)
	msg := consensus.ConsensusMessage{VoteStep: step, BlockHash: &h}

	require.NoError(t, c.Insert(addr(4), msg, 5))
	require.NoError(t, c.Insert(addr(4), msg, 5))

	require.Equal(t, uint64(5), c.At(step).PowerFor(&h))
}

func TestVoteCollectionRetireBelow(t *testing.T) {
	c := NewVoteCollection()
	low := consensus.NewVoteStep(1, 0, consensus.Propose)
	high := consensus.NewVoteStep(10, 0, consensus.Propose)
	h := hash(1)

	require.NoError(t, c.Insert(addr(1), consensus.ConsensusMessage{VoteStep: low, BlockHash: &h}, 1))
	require.NoError(t, c.Insert(addr(1), consensus.ConsensusMessage{VoteStep: high, BlockHash: &h}, 1))

	c.RetireBelow(5)

	require.Nil(t, c.At(low))
	require.NotNil(t, c.At(high))
}

func TestVoteStepTotalOrder(t *testing.T) {
	// spec §8 scenario 2.
	require.True(t, consensus.NewVoteStep(10, 123, consensus.Precommit).Less(consensus.NewVoteStep(11, 123, consensus.Precommit)))
	require.True(t, consensus.NewVoteStep(10, 123, consensus.Propose).Less(consensus.NewVoteStep(11, 123, consensus.Precommit)))
	require.True(t, consensus.NewVoteStep(10, 122, consensus.Propose).Less(consensus.NewVoteStep(11, 123, consensus.Propose)))
}

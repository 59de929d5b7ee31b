package tendermint

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/consensus/signer"
	"github.com/codechain-io/codechain/consensus/validator"
	"github.com/codechain-io/codechain/tosdb/memorydb"
)

// stubBuilder returns a fixed block body for every BuildProposal call.
type stubBuilder struct{ n int }

func (b *stubBuilder) BuildProposal(common.Hash) (consensus.BlockHash, []byte, error) {
	b.n++
	body := []byte{byte(b.n)}
	return consensus.Blake256(body), body, nil
}

var testParams = &Params{
	TimeoutPropose: 100, TimeoutPrevote: 100, TimeoutPrecommit: 100, TimeoutCommit: 100,
}

func newSigners(t *testing.T, n int) []*signer.Signer {
	t.Helper()
	out := make([]*signer.Signer, n)
	for i := 0; i < n; i++ {
		priv, err := crypto.GenerateKey()
		require.NoError(t, err)
		out[i] = signer.FromECDSA(priv)
	}
	return out
}

func stakesFor(signers []*signer.Signer, each uint64) map[common.Address]uint64 {
	m := map[common.Address]uint64{}
	for _, s := range signers {
		m[s.Address()] = each
	}
	return m
}

func signVote(t *testing.T, s *signer.Signer, blockHash *consensus.BlockHash, vs consensus.VoteStep) consensus.ConsensusMessage {
	t.Helper()
	sig, err := s.Sign(consensus.VoteSigningHash(blockHash, vs))
	require.NoError(t, err)
	return consensus.ConsensusMessage{Signature: sig, BlockHash: blockHash, VoteStep: vs}
}

func TestStateSingleValidatorCommitsImmediately(t *testing.T) {
	signers := newSigners(t, 1)
	vs := validator.NewList([]validator.PublicKey{signers[0].PublicKey()})
	stakes := stakesFor(signers, 100)

	st := NewState(vs, signers[0], testParams, NewBackup(memorydb.New()), &stubBuilder{})

	actions, err := st.EnterHeight(1, common.Hash{}, stakes)
	require.NoError(t, err)

	var committed *CommitResult
	for _, a := range actions {
		if a.Commit != nil {
			committed = a.Commit
		}
	}
	require.NotNil(t, committed, "a lone validator's own prevote+precommit should reach quorum immediately")
	require.Equal(t, consensus.Height(1), committed.Height)
	require.Equal(t, consensus.Commit, st.Step())
}

// TestStateThreeOfFourReachesConvergence drives a single local State (the
// leader for (h=1,v=0)) through proposing, then feeds it hand-signed
// prevotes and precommits from the other three validators, checking that
// +2/3 stake (75 of 100) triggers exactly the transitions spec §4.7
// describes: Prevote convergence -> locked/valid set + Precommit cast,
// Precommit convergence -> CommitResult whose seal carries the 3 precommits
// (the local node's own plus two peers') that first crossed +2/3.
func TestStateThreeOfFourReachesConvergence(t *testing.T) {
	signers := newSigners(t, 4)
	pubs := make([]validator.PublicKey, 4)
	for i, s := range signers {
		pubs[i] = s.PublicKey()
	}
	vs := validator.NewList(pubs)
	stakes := stakesFor(signers, 25)

	leaderIdx := LeaderIndex(1, 0, 4)
	local := signers[leaderIdx]
	st := NewState(vs, local, testParams, NewBackup(memorydb.New()), &stubBuilder{})

	actions, err := st.EnterHeight(1, common.Hash{}, stakes)
	require.NoError(t, err)

	var proposedHash consensus.BlockHash
	foundProposal := false
	for _, a := range actions {
		if a.Broadcast == nil {
			continue
		}
		decoded, err := DecodeExtensionMessage(a.Broadcast)
		require.NoError(t, err)
		if p, ok := decoded.(*Proposal); ok {
			proposedHash = consensus.Blake256(p.BlockBytes)
			foundProposal = true
		}
	}
	require.True(t, foundProposal)
	require.Equal(t, st.proposal.Hash, proposedHash)

	prevoteStep := consensus.NewVoteStep(1, 0, consensus.Prevote)
	var prevoteRoundActions []Action
	for i, s := range signers {
		if i == leaderIdx {
			continue
		}
		msg := signVote(t, s, &proposedHash, prevoteStep)
		acts, err := st.HandleVote(s.Address(), msg)
		require.NoError(t, err)
		prevoteRoundActions = append(prevoteRoundActions, acts...)
	}

	require.NotNil(t, st.Locked())
	require.Equal(t, proposedHash, st.Locked().Hash)
	require.Equal(t, consensus.Precommit, st.Step())

	var sawOwnPrecommit bool
	for _, a := range prevoteRoundActions {
		if a.Broadcast == nil {
			continue
		}
		decoded, err := DecodeExtensionMessage(a.Broadcast)
		require.NoError(t, err)
		if cm, ok := decoded.(*consensus.ConsensusMessage); ok && cm.VoteStep.Step == consensus.Precommit {
			sawOwnPrecommit = true
		}
	}
	require.True(t, sawOwnPrecommit, "reaching +2/3 prevotes must cast the local precommit")

	precommitStep := consensus.NewVoteStep(1, 0, consensus.Precommit)
	var committed *CommitResult
	for i, s := range signers {
		if i == leaderIdx {
			continue
		}
		msg := signVote(t, s, &proposedHash, precommitStep)
		acts, err := st.HandleVote(s.Address(), msg)
		require.NoError(t, err)
		for _, a := range acts {
			if a.Commit != nil {
				committed = a.Commit
			}
		}
	}

	require.NotNil(t, committed)
	require.Equal(t, proposedHash, committed.BlockHash)
	// Commit fires as soon as +2/3 stake converges (leader + 2 of 3 peers =
	// 75 of 100), so the assembled seal carries exactly those 3 signatures
	// even though all 4 validators eventually vote.
	require.Len(t, committed.Seal.Precommits, 3)
	require.NoError(t, committed.Seal.Validate(4))
}

func TestStateDoubleVoteIsRejectedAndReported(t *testing.T) {
	signers := newSigners(t, 4)
	pubs := make([]validator.PublicKey, 4)
	for i, s := range signers {
		pubs[i] = s.PublicKey()
	}
	vs := validator.NewList(pubs)
	stakes := stakesFor(signers, 25)

	leaderIdx := LeaderIndex(1, 0, 4)
	local := signers[leaderIdx]
	st := NewState(vs, local, testParams, NewBackup(memorydb.New()), &stubBuilder{})
	_, err := st.EnterHeight(1, common.Hash{}, stakes)
	require.NoError(t, err)

	other := signers[(leaderIdx+1)%4]
	prevoteStep := consensus.NewVoteStep(1, 0, consensus.Prevote)

	h1 := consensus.Blake256([]byte{0xAA})
	h2 := consensus.Blake256([]byte{0xBB})

	_, err = st.HandleVote(other.Address(), signVote(t, other, &h1, prevoteStep))
	require.NoError(t, err)

	_, err = st.HandleVote(other.Address(), signVote(t, other, &h2, prevoteStep))
	require.Error(t, err)
	var dv *consensus.DoubleVoteError
	require.ErrorAs(t, err, &dv)
}

func TestLeaderIndexRoundRobin(t *testing.T) {
	require.Equal(t, 2, LeaderIndex(10, 0, 4)) // (10+0) mod 4 == 2
	require.Equal(t, 3, LeaderIndex(10, 1, 4)) // (10+1) mod 4 == 3
	require.Equal(t, 0, LeaderIndex(11, 1, 4)) // (11+1) mod 4 == 0
}

func TestLeaderIndexVRFTieBreakByAddress(t *testing.T) {
	addrs := []common.Address{{0x02}, {0x01}, {0x03}}
	draws := map[int]uint64{0: 5, 1: 5, 2: 1}
	// indices 0 and 1 tie at draw=5; address[1] < address[0] lexicographically.
	require.Equal(t, 1, LeaderIndexVRF(0, draws, addrs))
}

func TestStateHandleTimeoutIgnoresStaleVoteStep(t *testing.T) {
	signers := newSigners(t, 1)
	vs := validator.NewList([]validator.PublicKey{signers[0].PublicKey()})
	stakes := stakesFor(signers, 100)
	st := NewState(vs, signers[0], testParams, NewBackup(memorydb.New()), &stubBuilder{})

	_, err := st.EnterHeight(5, common.Hash{}, stakes)
	require.NoError(t, err)

	actions, err := st.HandleTimeout(consensus.NewVoteStep(1, 0, consensus.Propose))
	require.NoError(t, err)
	require.Empty(t, actions)
}

package tendermint

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/codechain-io/codechain/consensus"
)

// voteSet is one (height, view, step) slot of the vote collection (spec
// §4.7's VoteCollection): every voter's message, the set of voters behind
// each distinct block hash (nil meaning a nil vote), and each block hash's
// accumulated stake weight. Grounded on the teacher's consensus/bft
// VotePool equivocation-detection pattern, mapped onto the spec's
// per-VoteStep keyspace instead of bft's per-height QC keyspace.
type voteSet struct {
	byVoter map[common.Address]consensus.ConsensusMessage
	byBlock map[blockKey]map[common.Address]struct{}
	power   map[blockKey]uint64
}

// blockKey is a vote target: either a concrete block hash or the nil vote,
// distinguished by isNil since common.Hash{} is itself a valid hash value.
type blockKey struct {
	hash  common.Hash
	isNil bool
}

func nilKey() blockKey                { return blockKey{isNil: true} }
func hashKey(h common.Hash) blockKey  { return blockKey{hash: h} }

func newVoteSet() *voteSet {
	return &voteSet{
		byVoter: make(map[common.Address]consensus.ConsensusMessage),
		byBlock: make(map[blockKey]map[common.Address]struct{}),
		power:   make(map[blockKey]uint64),
	}
}

func keyOf(msg consensus.ConsensusMessage) blockKey {
	if msg.BlockHash == nil {
		return nilKey()
	}
	return hashKey(*msg.BlockHash)
}

// Insert records voter's msg. If voter already has a distinct message at
// this VoteStep, it returns a *consensus.DoubleVoteError (spec §4.7's
// "second distinct vote... constitutes a DoubleVote") and does not count
// the new message's stake; the original vote is kept, matching spec §5's
// "the second is the offender" ordering guarantee.
func (vs *voteSet) Insert(voter common.Address, msg consensus.ConsensusMessage, stake uint64) error {
	if existing, ok := vs.byVoter[voter]; ok {
		if keyOf(existing) == keyOf(msg) {
			return nil // duplicate delivery of the same vote, not a double-vote
		}
		return &consensus.DoubleVoteError{Voter: voter, First: existing, Second: msg}
	}

	vs.byVoter[voter] = msg
	k := keyOf(msg)
	if vs.byBlock[k] == nil {
		vs.byBlock[k] = make(map[common.Address]struct{})
	}
	vs.byBlock[k][voter] = struct{}{}
	vs.power[k] += stake
	return nil
}

// PowerFor returns the accumulated stake behind blockHash (nil for the nil
// vote).
func (vs *voteSet) PowerFor(blockHash *common.Hash) uint64 {
	if blockHash == nil {
		return vs.power[nilKey()]
	}
	return vs.power[hashKey(*blockHash)]
}

// TotalPower returns the accumulated stake across every distinct vote
// target at this VoteStep (used for the "+2/3 any" timeout trigger, spec
// §4.7 step 4/5).
func (vs *voteSet) TotalPower() uint64 {
	var total uint64
	for _, p := range vs.power {
		total += p
	}
	return total
}

// SupersedingBlock returns the block hash with +2/3 support of totalStake,
// if one exists.
func (vs *voteSet) SupersedingBlock(totalStake uint64) (common.Hash, bool) {
	threshold := 2 * totalStake / 3
	for k, p := range vs.power {
		if k.isNil {
			continue
		}
		if p > threshold {
			return k.hash, true
		}
	}
	return common.Hash{}, false
}

// NilSupersedes reports whether the nil vote has +2/3 support of totalStake.
func (vs *voteSet) NilSupersedes(totalStake uint64) bool {
	return vs.power[nilKey()] > 2*totalStake/3
}

// VoteCollection maps (height, view, step) -> voteSet (spec §4.7).
type VoteCollection struct {
	sets map[consensus.VoteStep]*voteSet
}

// NewVoteCollection returns an empty collection.
func NewVoteCollection() *VoteCollection {
	return &VoteCollection{sets: make(map[consensus.VoteStep]*voteSet)}
}

// Insert records voter's msg at its VoteStep, creating the slot on first
// use.
func (c *VoteCollection) Insert(voter common.Address, msg consensus.ConsensusMessage, stake uint64) error {
	vs, ok := c.sets[msg.VoteStep]
	if !ok {
		vs = newVoteSet()
		c.sets[msg.VoteStep] = vs
	}
	return vs.Insert(voter, msg, stake)
}

// At returns the voteSet for step, or nil if nothing has been recorded yet.
func (c *VoteCollection) At(step consensus.VoteStep) *voteSet {
	return c.sets[step]
}

// RetireBelow drops every VoteStep slot at a height strictly less than
// height, matching spec §3's "retired when height commits" lifecycle with a
// small retention window left to the caller (it can choose which height to
// retire up to).
func (c *VoteCollection) RetireBelow(height consensus.Height) {
	for step := range c.sets {
		if step.Height < height {
			delete(c.sets, step)
		}
	}
}

package tendermint

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/consensus/seal"
	"github.com/codechain-io/codechain/consensus/signer"
	"github.com/codechain-io/codechain/consensus/validator"
)

// ProposalBuilder assembles the next block body for a proposer to gossip.
// It is the state machine's only dependency on the block executor, kept
// behind an interface since the executor itself is an external
// collaborator (spec §1).
type ProposalBuilder interface {
	BuildProposal(parentHash common.Hash) (blockHash consensus.BlockHash, blockBytes []byte, err error)
}

// Action is one side effect the state machine asks its worker to carry
// out: a message to gossip, a timer to arm, or a height to finalise. A
// single transition may produce several actions (e.g. persist the backup
// implicitly, then broadcast, then arm a timer); State performs the
// backup write itself before returning any Action so the "written before
// sent" invariant (spec §5) never depends on action ordering.
type Action struct {
	Broadcast []byte
	SetTimer  *TimerRequest
	Commit    *CommitResult
}

// TimerRequest asks the worker to arm a single timer slot for VoteStep,
// replacing whatever timer was previously armed (spec §4.7/§5: "a single
// timer slot is shared; setting a new timeout cancels any previous one").
type TimerRequest struct {
	VoteStep consensus.VoteStep
	Duration time.Duration
}

// CommitResult is emitted once Precommit converges on a single block: the
// finality proof (spec §4.7's "Commit: persist the block with a seal
// embedding the collected precommits").
type CommitResult struct {
	Height    consensus.Height
	BlockHash consensus.BlockHash
	Seal      *seal.Seal
}

type proposalRecord struct {
	Hash  consensus.BlockHash
	Bytes []byte
}

// State is the Tendermint height/view/step state machine (spec §4.7). All
// methods assume single-threaded cooperative access — exactly one worker
// goroutine ever calls into a given State, matching spec §5's concurrency
// model; State itself holds no lock.
type State struct {
	height consensus.Height
	view   consensus.View
	step   consensus.Step

	proposal *proposalRecord
	locked   *LockedValue
	valid    *LockedValue

	votes             *VoteCollection
	lastConfirmedView consensus.View

	// lastSignedVoteStep is the most recent VoteStep castVote signed (or
	// restored from Backup.Load on startup). A restarted node refuses to
	// re-sign at or below it (spec §4.11) rather than relying solely on
	// Worker.Start always entering height+1.
	lastSignedVoteStep consensus.VoteStep

	parentHash  common.Hash
	stakes      map[common.Address]uint64
	totalStake  uint64

	timerArmed bool // guards against repeatedly re-arming the same step's "+2/3 any" timer

	pending *CommitResult // set once Precommit converges, cleared by AdviseEnacted

	validators validator.Set
	signer     *signer.Signer
	params     *Params
	backup     *Backup
	builder    ProposalBuilder
}

// Height, View and Step expose the current VoteStep components for tests
// and diagnostics.
func (s *State) Height() consensus.Height { return s.height }
func (s *State) View() consensus.View     { return s.view }
func (s *State) Step() consensus.Step     { return s.step }

// Locked and Valid expose the state machine's locked/valid value, or nil
// if neither has been set yet this height.
func (s *State) Locked() *LockedValue { return s.locked }
func (s *State) Valid() *LockedValue  { return s.valid }

// NewState builds a fresh state machine at the zero VoteStep. Call
// EnterHeight before driving it, so a restored backup (if any) can veto
// signing at or below the recovered VoteStep.
func NewState(validators validator.Set, signerInst *signer.Signer, params *Params, backup *Backup, builder ProposalBuilder) *State {
	return &State{
		votes:      NewVoteCollection(),
		validators: validators,
		signer:     signerInst,
		params:     params,
		backup:     backup,
		builder:    builder,
	}
}

// LeaderIndex is the round-robin leader formula spec §4.7 specifies:
// validator (h+v) mod count proposes.
func LeaderIndex(height consensus.Height, view consensus.View, validatorCount int) int {
	if validatorCount <= 0 {
		return 0
	}
	return int((uint64(height) + uint64(view)) % uint64(validatorCount))
}

// LeaderIndexVRF overrides the round-robin pick for VRF-enabled variants
// (spec §4.7): the validator with the highest draw proposes, ties broken
// by address ascending. draws maps validator index to its VRF draw count;
// an empty map falls back to the round-robin index.
func LeaderIndexVRF(fallback int, draws map[int]uint64, addresses []common.Address) int {
	if len(draws) == 0 {
		return fallback
	}
	best, bestHasDraw := fallback, false
	var bestDraw uint64
	for idx, draw := range draws {
		if !bestHasDraw || draw > bestDraw || (draw == bestDraw && bytes.Compare(addresses[idx][:], addresses[best][:]) < 0) {
			best, bestDraw, bestHasDraw = idx, draw, true
		}
	}
	return best
}

// EnterHeight starts height at view 0, step Propose, discarding any prior
// height's locked/valid state (spec §4.7's height transition clears them;
// only a view change within a height keeps them). stakes is the stake
// table effective for parentHash (the new height's parent block).
func (s *State) EnterHeight(height consensus.Height, parentHash common.Hash, stakes map[common.Address]uint64) ([]Action, error) {
	s.height = height
	s.parentHash = parentHash
	s.stakes = stakes
	s.totalStake = 0
	for _, v := range stakes {
		s.totalStake += v
	}
	s.locked = nil
	s.valid = nil
	s.pending = nil
	return s.startView(0)
}

// startView begins view at step Propose, reusing locked/valid from a prior
// view within the same height (the "valid round" rule, spec §4.7).
func (s *State) startView(view consensus.View) ([]Action, error) {
	s.view = view
	s.step = consensus.Propose
	s.proposal = nil
	s.timerArmed = false

	var actions []Action

	leaderIdx := LeaderIndex(s.height, s.view, s.validators.Count(s.parentHash))
	leaderAddr, err := s.validators.GetAddress(s.parentHash, uint64(leaderIdx))
	if err != nil {
		return nil, err
	}

	if s.signer != nil && s.signer.Address() == leaderAddr {
		proposeActions, err := s.propose()
		if err != nil {
			return nil, err
		}
		actions = append(actions, proposeActions...)
	}

	actions = append(actions, Action{SetTimer: &TimerRequest{
		VoteStep: consensus.NewVoteStep(s.height, s.view, consensus.Propose),
		Duration: s.params.Timeout(consensus.Propose, s.view),
	}})
	return actions, nil
}

// propose builds (or, under the valid-round rule, reuses) a block and
// broadcasts Proposal + Prevote(block) (spec §4.7 transition 1).
func (s *State) propose() ([]Action, error) {
	var blockHash consensus.BlockHash
	var blockBytes []byte

	if s.valid != nil {
		blockHash = s.valid.Hash
		blockBytes = nil // re-proposal of an already-known value; peers already hold the body
	} else {
		var err error
		blockHash, blockBytes, err = s.builder.BuildProposal(s.parentHash)
		if err != nil {
			return nil, err
		}
	}
	s.proposal = &proposalRecord{Hash: blockHash, Bytes: blockBytes}

	var actions []Action
	if blockBytes != nil {
		p := &Proposal{Height: s.height, View: s.view, BlockBytes: blockBytes}
		blob, err := EncodeProposal(p)
		if err != nil {
			return nil, err
		}
		actions = append(actions, Action{Broadcast: blob})
	}

	prevoteActions, err := s.castVote(consensus.Prevote, &blockHash)
	if err != nil {
		return nil, err
	}
	return append(actions, prevoteActions...), nil
}

// HandleProposal processes a Proposal for the current (height, view) (spec
// §4.7 transition 2). Proposals for any other height/view are ignored.
func (s *State) HandleProposal(p *Proposal) ([]Action, error) {
	if p.Height != s.height || p.View != s.view || s.step != consensus.Propose {
		return nil, nil
	}

	blockHash := consensus.Blake256(p.BlockBytes)
	s.proposal = &proposalRecord{Hash: blockHash, Bytes: p.BlockBytes}

	target := &blockHash
	if s.locked != nil && s.locked.Hash != blockHash {
		target = nil // locked on a different value: prevote nil instead
	}
	return s.castVote(consensus.Prevote, target)
}

// HandleTimeout processes an expired timer. vs must match the current
// VoteStep exactly; a stale expiry for an already-superseded step is
// discarded (spec §5's timeout-discard guarantee).
func (s *State) HandleTimeout(vs consensus.VoteStep) ([]Action, error) {
	if vs != consensus.NewVoteStep(s.height, s.view, s.step) {
		return nil, nil
	}

	switch s.step {
	case consensus.Propose:
		// transition 3: propose timeout -> Prevote(nil).
		return s.castVote(consensus.Prevote, nil)
	case consensus.Prevote:
		// transition 4's "+2/3 any" expiry -> Precommit(nil).
		return s.castVote(consensus.Precommit, nil)
	case consensus.Precommit:
		// transition 5's "+2/3 any" expiry -> increment view, keep locked/valid.
		return s.startView(s.view + 1)
	default:
		return nil, nil
	}
}

// HandleVote records a validator's vote and, once the current step's
// VoteSet converges, advances the state machine (spec §4.7 transitions
// 4-5). voterAddr's signature must already be verified by the caller
// against its claimed public key (Schnorr carries no recovery, so the
// caller — which decoded the P2P frame and knows which peer sent it —
// supplies the address rather than this method recovering it).
func (s *State) HandleVote(voterAddr common.Address, msg consensus.ConsensusMessage) ([]Action, error) {
	if msg.VoteStep.Height != s.height {
		return nil, nil
	}
	if !s.validators.ContainsAddress(s.parentHash, voterAddr) {
		return nil, consensus.ErrUnknownSigner
	}

	if err := s.votes.Insert(voterAddr, msg, s.stakes[voterAddr]); err != nil {
		var dv *consensus.DoubleVoteError
		if errors.As(err, &dv) {
			s.validators.ReportMalicious(voterAddr, uint64(s.height), nil)
		}
		return nil, err
	}

	current := consensus.NewVoteStep(s.height, s.view, s.step)
	if msg.VoteStep != current {
		return nil, nil
	}

	switch s.step {
	case consensus.Prevote:
		return s.checkPrevoteConvergence()
	case consensus.Precommit:
		return s.checkPrecommitConvergence()
	default:
		return nil, nil
	}
}

func (s *State) checkPrevoteConvergence() ([]Action, error) {
	vs := s.votes.At(consensus.NewVoteStep(s.height, s.view, consensus.Prevote))
	if vs == nil {
		return nil, nil
	}

	if winner, ok := vs.SupersedingBlock(s.totalStake); ok {
		s.valid = &LockedValue{Hash: winner, View: s.view}
		s.locked = &LockedValue{Hash: winner, View: s.view}
		return s.castVote(consensus.Precommit, &winner)
	}
	if vs.NilSupersedes(s.totalStake) {
		return s.castVote(consensus.Precommit, nil)
	}
	if !s.timerArmed && vs.TotalPower() > 2*s.totalStake/3 {
		s.timerArmed = true
		return []Action{{SetTimer: &TimerRequest{
			VoteStep: consensus.NewVoteStep(s.height, s.view, consensus.Prevote),
			Duration: s.params.Timeout(consensus.Prevote, s.view),
		}}}, nil
	}
	return nil, nil
}

func (s *State) checkPrecommitConvergence() ([]Action, error) {
	vs := s.votes.At(consensus.NewVoteStep(s.height, s.view, consensus.Precommit))
	if vs == nil {
		return nil, nil
	}

	if winner, ok := vs.SupersedingBlock(s.totalStake); ok {
		return s.commit(winner, vs)
	}
	if !s.timerArmed && vs.TotalPower() > 2*s.totalStake/3 {
		s.timerArmed = true
		return []Action{{SetTimer: &TimerRequest{
			VoteStep: consensus.NewVoteStep(s.height, s.view, consensus.Precommit),
			Duration: s.params.Timeout(consensus.Precommit, s.view),
		}}}, nil
	}
	return nil, nil
}

// commit assembles the finality seal from the collected precommits and
// enters the Commit step (spec §4.7 transition 6).
func (s *State) commit(winner common.Hash, vs *voteSet) ([]Action, error) {
	n := s.validators.Count(s.parentHash)
	included := make([]bool, n)
	sigs := make([][]byte, 0, n)

	for i := 0; i < n; i++ {
		addr, err := s.validators.GetAddress(s.parentHash, uint64(i))
		if err != nil {
			return nil, err
		}
		msg, voted := vs.byVoter[addr]
		if !voted || msg.BlockHash == nil || *msg.BlockHash != winner {
			continue
		}
		included[i] = true
		sigs = append(sigs, msg.Signature)
	}

	sl := &seal.Seal{
		PrevView:        uint64(s.lastConfirmedView),
		CurView:         uint64(s.view),
		Precommits:      sigs,
		PrecommitBitset: seal.NewPrecommitBitset(n, included),
	}
	if err := sl.Validate(n); err != nil {
		return nil, fmt.Errorf("tendermint: assembled seal failed validation: %w", err)
	}

	s.step = consensus.Commit
	s.lastConfirmedView = s.view
	result := &CommitResult{Height: s.height, BlockHash: winner, Seal: sl}
	s.pending = result
	return []Action{{Commit: result}}, nil
}

// AdviseEnacted reports that height/blockHash was enacted by the
// block-import pipeline (spec §4.7 transition 6's "on the next new_blocks
// event with this hash enacted"). It returns ready=true once the pending
// commit is cleared, signalling the worker to EnterHeight(height+1, ...).
func (s *State) AdviseEnacted(height consensus.Height, blockHash consensus.BlockHash) (ready bool) {
	if s.pending == nil || s.pending.Height != height || s.pending.BlockHash != blockHash {
		return false
	}
	s.pending = nil
	s.votes.RetireBelow(height + 1)
	return true
}

// castVote signs and records a vote for step at the current (height, view),
// persisting the backup before returning the broadcast action — the
// "written before sent" invariant (spec §4.7, §5). A State with no signer
// configured is a non-voting observer: it still tracks step/view/locked
// transitions, it just never signs, so castVote is a silent no-op rather
// than an error in that case.
func (s *State) castVote(step consensus.Step, blockHash *consensus.BlockHash) ([]Action, error) {
	if s.step != step {
		s.timerArmed = false
	}
	s.step = step

	var actions []Action
	if s.signer != nil {
		vs := consensus.NewVoteStep(s.height, s.view, step)
		if vs.Compare(s.lastSignedVoteStep) <= 0 {
			return nil, consensus.ErrStaleVoteStep
		}

		sigHash := consensus.VoteSigningHash(blockHash, vs)
		sig, err := s.signer.Sign(sigHash)
		if err != nil {
			return nil, err
		}

		msg := consensus.ConsensusMessage{Signature: sig, BlockHash: blockHash, VoteStep: vs}

		if err := s.backup.Save(vs, s.lastConfirmedView, s.locked); err != nil {
			return nil, err
		}
		s.lastSignedVoteStep = vs
		if err := s.votes.Insert(s.signer.Address(), msg, s.stakes[s.signer.Address()]); err != nil {
			return nil, err
		}

		blob, err := EncodeConsensusMessage(&msg)
		if err != nil {
			return nil, err
		}
		actions = append(actions, Action{Broadcast: blob})
	}

	if step == consensus.Prevote || step == consensus.Precommit {
		if more, err := s.convergenceAfterOwnVote(step); err != nil {
			return nil, err
		} else {
			actions = append(actions, more...)
		}
	}
	return actions, nil
}

// convergenceAfterOwnVote re-runs the convergence check immediately after
// casting our own vote, covering the case where our vote itself supplies
// the deciding stake share.
func (s *State) convergenceAfterOwnVote(step consensus.Step) ([]Action, error) {
	switch step {
	case consensus.Prevote:
		return s.checkPrevoteConvergence()
	case consensus.Precommit:
		return s.checkPrecommitConvergence()
	default:
		return nil, nil
	}
}

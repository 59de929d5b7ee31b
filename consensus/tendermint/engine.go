package tendermint

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/consensus/epoch"
	"github.com/codechain-io/codechain/consensus/signer"
	"github.com/codechain-io/codechain/consensus/stake"
	"github.com/codechain-io/codechain/consensus/validator"
	"github.com/codechain-io/codechain/tosdb"
)

// Engine wires State, Worker, Backup and the EpochVerifier together behind
// the uniform consensus.Engine contract (spec §4.5), playing the role
// original_source's core/src/consensus/tendermint/mod.rs Tendermint struct
// plays for the reference implementation.
type Engine struct {
	params     *Params
	validators validator.Set
	ext        consensus.ExtensionHandle

	worker *Worker
	client consensus.Client
}

// New builds a Tendermint engine from its chain-scheme params, a handle to
// the node's local signing key (nil for an observer node with no validator
// identity) and the proposal builder the block executor supplies. db backs
// the crash-safe vote backup (spec §4.11).
func New(params *Params, db tosdb.KeyValueStore, signerInst *signer.Signer, builder ProposalBuilder, ext consensus.ExtensionHandle) *Engine {
	vs := validator.NewSortedList(params.Validators)
	backup := NewBackup(db)

	state := NewState(vs, signerInst, params, backup, builder)
	if savedVS, lastConfirmed, locked, ok, err := backup.Load(); err == nil && ok {
		// Restore the last voted VoteStep so a restarted node doesn't
		// double-vote at a height/view it already signed (spec §4.11).
		state.height = savedVS.Height
		state.view = savedVS.View
		state.step = savedVS.Step
		state.lastConfirmedView = lastConfirmed
		state.locked = locked
		state.lastSignedVoteStep = savedVS
	}

	e := &Engine{
		params:     params,
		validators: vs,
		ext:        ext,
	}
	e.worker = NewWorker(state, nil, ext, e)
	return e
}

func (e *Engine) Name() string                     { return "tendermint" }
func (e *Engine) EngineType() consensus.EngineType  { return consensus.InternalSealing }
func (e *Engine) SealsInternally() *bool            { t := true; return &t }

// StakesAt and BestBlockHash satisfy HeightSource: the worker asks the
// engine for the stake table and chain head each time it starts a height.
// The validator set is a static genesis list (spec §4.1's "(a) static list
// from genesis" variant), so every parent hash shares the same stakes.
func (e *Engine) StakesAt(common.Hash) (map[common.Address]uint64, error) {
	return e.params.GenesisStakes, nil
}

func (e *Engine) BestBlockHash() common.Hash {
	if e.client == nil {
		return common.Hash{}
	}
	return e.client.BestBlockHeader().Hash()
}

// GenerateSeal always reports SealNone: Tendermint is an internally-sealing
// engine (spec §4.7) whose Worker commits blocks on its own schedule via
// the State/Action pipeline, rather than waiting to be polled by a miner
// loop the way Solo-family engines are.
func (e *Engine) GenerateSeal(*consensus.Block, *consensus.Header) (consensus.Seal, error) {
	return consensus.Seal{Kind: consensus.SealNone}, nil
}

func (e *Engine) OnOpenBlock(*consensus.Block, *consensus.Header) error { return nil }

// OnCloseBlock distributes the collected fee across the parent height's
// stake table proportionally, crediting the block author with the
// remainder plus the fixed per-block reward (spec §4.9).
func (e *Engine) OnCloseBlock(block *consensus.Block, _ *consensus.Header, parentStakes map[common.Address]uint64) (consensus.CloseBlockResult, error) {
	shares, remainder := stake.Distribute(block.Fee, parentStakes)
	credits := make(map[common.Address]uint64, len(shares)+1)
	for addr, share := range shares {
		credits[addr] = share
	}
	credits[block.Header.Coinbase] += remainder + e.params.BlockReward
	return consensus.CloseBlockResult{Credits: credits}, nil
}

func (e *Engine) VerifyLocalSeal(header *consensus.Header) error { return e.VerifyBlockExternal(header) }

// VerifyBlockBasic is a no-op: every Tendermint-specific check needs the
// validator set (parameterised by parent hash), which is unavailable at
// this stateless stage (spec §4.4 reserves those checks for VerifyLight).
func (e *Engine) VerifyBlockBasic(*consensus.Header) error { return nil }

func (e *Engine) VerifyBlockExternal(header *consensus.Header) error {
	return e.epochVerifier(header.ParentHash).VerifyLight(header)
}

// VerifyBlockFamily checks that header's parent linkage and height are
// consistent with parent, beyond what VerifyBlockExternal's seal check
// already covers.
func (e *Engine) VerifyBlockFamily(header, parent *consensus.Header) error {
	if header.ParentHash != parent.Hash() {
		return consensus.ErrInvalidParentHash
	}
	return nil
}

func (e *Engine) epochVerifier(parentHash common.Hash) *epoch.Tendermint {
	return &epoch.Tendermint{Set: e.validators, ParentHash: parentHash}
}

func (e *Engine) BlockReward(uint64) uint64          { return e.params.BlockReward }
func (e *Engine) BlockFee(totalMinFee uint64) uint64 { return totalMinFee }

func (e *Engine) RecommendedConfirmations() uint32 { return 1 }

// PossibleAuthors returns every current validator's address. The Set
// abstraction is keyed by parent hash rather than block number (spec §4.1),
// so this resolves against the current chain head as the practical
// approximation a RegisterClient-bound engine can make. With no client
// registered yet it looks up the zero hash, which the static genesis list
// answers with every genesis validator.
func (e *Engine) PossibleAuthors(uint64) ([]common.Address, error) {
	parent := e.BestBlockHash()
	return e.validators.Addresses(parent), nil
}

// RegisterClient binds the chain reader/writer and, on first call, starts
// the worker event loop (spec §9's "tolerate being called again" note: a
// later call just rebinds client without restarting the loop).
func (e *Engine) RegisterClient(client consensus.Client) {
	e.client = client
	alreadyRunning := e.worker.client != nil
	e.worker.client = client
	if !alreadyRunning {
		if err := e.worker.Start(); err != nil {
			log.Error("tendermint: failed to start worker", "err", err)
		}
	}
}

func (e *Engine) NetworkExtension() consensus.ExtensionHandle { return e.ext }

func (e *Engine) Close() { e.worker.Stop() }

var _ consensus.Engine = (*Engine)(nil)

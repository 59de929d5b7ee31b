package consensus

import "github.com/ethereum/go-ethereum/common"

// EngineType classifies an engine's leader-selection model. It is the only
// capability axis the spec asks callers to branch on besides network
// extension presence (spec §9's "avoid deep inheritance trees" note);
// engines are modelled as a closed set of Go types implementing Engine
// rather than a trait-object hierarchy.
type EngineType uint8

const (
	// Solo engines accept any local author and never gossip consensus
	// messages (NullEngine, SoloEngine).
	Solo EngineType = iota
	// PoW engines select an author by proof-of-work; out of scope for this
	// repository but named for completeness of the enum the spec defines.
	PoW
	// InternalSealing engines (Tendermint) produce their own seals on their
	// own schedule rather than being driven by a miner loop.
	InternalSealing
)

func (t EngineType) String() string {
	switch t {
	case Solo:
		return "Solo"
	case PoW:
		return "PoW"
	case InternalSealing:
		return "InternalSealing"
	default:
		return "Unknown"
	}
}

// SealKind discriminates the three possible generate_seal outcomes.
type SealKind uint8

const (
	// SealNone means the node has nothing to seal right now (e.g. it is not
	// the current proposer).
	SealNone SealKind = iota
	// SealRegular is a finished seal ready to attach to a sealed block.
	SealRegular
	// SealProposal is a tentative seal for a value under active voting
	// (Tendermint proposals before they commit).
	SealProposal
)

// Seal is the result of ConsensusEngine.GenerateSeal.
type Seal struct {
	Kind SealKind
	Data []byte
}

// CloseBlockResult is what OnCloseBlock hands back to the block executor:
// the per-address balance credits to apply (block reward plus the
// stake-proportional fee shares, author remainder included) and any
// engine-internal stake-change actions to enqueue.
type CloseBlockResult struct {
	Credits map[common.Address]uint64
	Actions []StakeAction
}

// StakeAction is the engine-agnostic shape of a stake.Action, duplicated
// here (rather than imported) so this leaf package has no dependency on the
// stake package. None of the engines in this repository (null, solo,
// tendermint) put any StakeAction into CloseBlockResult.Actions.
type StakeAction struct {
	Kind uint8
	From common.Address
	To   common.Address
	Amount uint64
}

// ExtensionHandle is the engine's P2P hook (spec §6.1): the logical surface
// a consensus engine uses to exchange ConsensusMessage/Proposal/StepState
// frames with its peers. The physical framing, handshake and multiplexing
// are external collaborators; this repository only models the logical
// calls an engine issues and receives.
type ExtensionHandle interface {
	// Broadcast gossips a consensus message to every connected peer.
	Broadcast(msg []byte)
	// SendTo gossips a consensus message to a single peer, used for
	// targeted StepState reconciliation.
	SendTo(peer common.Address, msg []byte)
}

// Client is the read/write surface the engine requires from its host chain
// (spec §6.4). A concrete node supplies an implementation; the engine holds
// it behind an updatable reference rather than a hard dependency, mirroring
// the weak-back-reference pattern spec §9 calls for.
type Client interface {
	BlockHeader(hash common.Hash) (*Header, bool)
	BestBlockHeader() *Header
	BlockNumber(hash common.Hash) (uint64, bool)

	UpdateBestAsCommitted(hash common.Hash)
	UpdateSealing(parent common.Hash, allowEmpty bool)
}

// Engine is the uniform contract every CodeChain consensus implementation
// satisfies (spec §4.5, "ConsensusEngine trait"). Go interface dispatch
// replaces the reference implementation's trait objects.
type Engine interface {
	// Name is a short human-readable engine identifier ("null", "solo",
	// "tendermint").
	Name() string
	// EngineType reports the leader-selection model.
	EngineType() EngineType
	// SealsInternally reports, when non-nil, whether the engine (rather
	// than a miner loop) produces seals. Solo-family engines return nil.
	SealsInternally() *bool

	// GenerateSeal is called by the block executor once a candidate block
	// body is assembled. It may return SealNone when the local node has
	// nothing to contribute right now.
	GenerateSeal(live *Block, parent *Header) (Seal, error)

	// OnOpenBlock is called before any transaction is applied to a new
	// block, giving the engine a chance to run per-block setup.
	OnOpenBlock(block *Block, parent *Header) error
	// OnCloseBlock computes the block reward and collected-fee split and
	// any engine-internal state transition (e.g. stake changes), returning
	// them for the block executor to apply — the engine itself never holds
	// a StateDB handle, since the state trie is an external collaborator.
	OnCloseBlock(block *Block, parent *Header, parentStakes map[common.Address]uint64) (CloseBlockResult, error)

	// VerifyLocalSeal checks a seal the local node itself produced.
	VerifyLocalSeal(header *Header) error
	// VerifyBlockBasic performs shallow, stateless checks.
	VerifyBlockBasic(header *Header) error
	// VerifyBlockExternal performs seal verification requiring the
	// validator set and signatures.
	VerifyBlockExternal(header *Header) error
	// VerifyBlockFamily performs checks that need the parent header.
	VerifyBlockFamily(header, parent *Header) error

	// BlockReward is the fixed per-block author credit at blockNumber.
	BlockReward(blockNumber uint64) uint64
	// BlockFee returns the total minimum fee of a transaction set. The
	// caller supplies that total already aggregated (as in Block.Fee), so
	// engines simply echo it back; no per-transaction summing happens here.
	BlockFee(totalMinFee uint64) uint64

	// RecommendedConfirmations is the number of confirmations a client
	// should wait for before treating a block as settled.
	RecommendedConfirmations() uint32

	// PossibleAuthors returns the closed set of addresses allowed to author
	// blockNumber, or (nil, nil) to mean "any address" for stateless
	// engines.
	PossibleAuthors(blockNumber uint64) ([]common.Address, error)

	// RegisterClient binds (or rebinds) the chain reader/writer the engine
	// calls back into. Implementations must tolerate being called again
	// (e.g. after a client restart).
	RegisterClient(client Client)
	// NetworkExtension returns the engine's P2P hook, or nil if networking
	// is disabled for this instance (spec §9 Open Question: a disabled
	// extension is a supported standalone mode, not an error).
	NetworkExtension() ExtensionHandle

	// Close releases any resources (timers, goroutines) the engine holds.
	Close()
}

// Package nullengine implements NullEngine (spec §4.6): no leader
// election, single local author, grounded on original_source's
// core/src/consensus/null_engine.rs and core/src/consensus/null_engine/mod.rs.
package nullengine

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/codechain-io/codechain/consensus"
)

// Engine is NullEngine: generate_seal returns Regular(empty) when the block
// has transactions and None otherwise; on_close_block credits the authoring
// address with block_reward + block_fee; possible_authors is unrestricted.
type Engine struct {
	blockReward uint64
	client      consensus.Client
}

// New builds a NullEngine with a fixed per-block reward.
func New(blockReward uint64) *Engine {
	return &Engine{blockReward: blockReward}
}

func (e *Engine) Name() string                  { return "null" }
func (e *Engine) EngineType() consensus.EngineType { return consensus.Solo }
func (e *Engine) SealsInternally() *bool        { return nil }

func (e *Engine) GenerateSeal(live *consensus.Block, _ *consensus.Header) (consensus.Seal, error) {
	if live.Transactions > 0 {
		return consensus.Seal{Kind: consensus.SealRegular, Data: nil}, nil
	}
	return consensus.Seal{Kind: consensus.SealNone}, nil
}

func (e *Engine) OnOpenBlock(*consensus.Block, *consensus.Header) error { return nil }

func (e *Engine) OnCloseBlock(block *consensus.Block, _ *consensus.Header, _ map[common.Address]uint64) (consensus.CloseBlockResult, error) {
	credit := e.blockReward + block.Fee
	return consensus.CloseBlockResult{
		Credits: map[common.Address]uint64{block.Header.Coinbase: credit},
	}, nil
}

func (e *Engine) VerifyLocalSeal(*consensus.Header) error      { return nil }
func (e *Engine) VerifyBlockBasic(*consensus.Header) error     { return nil }
func (e *Engine) VerifyBlockExternal(*consensus.Header) error  { return nil }
func (e *Engine) VerifyBlockFamily(*consensus.Header, *consensus.Header) error { return nil }

func (e *Engine) BlockReward(uint64) uint64      { return e.blockReward }
func (e *Engine) BlockFee(totalMinFee uint64) uint64 { return totalMinFee }

func (e *Engine) RecommendedConfirmations() uint32 { return 0 }

func (e *Engine) PossibleAuthors(uint64) ([]common.Address, error) { return nil, nil }

func (e *Engine) RegisterClient(client consensus.Client) { e.client = client }
func (e *Engine) NetworkExtension() consensus.ExtensionHandle { return nil }

func (e *Engine) Close() {}

var _ consensus.Engine = (*Engine)(nil)

package tendermint

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/codechain-io/codechain/consensus"
)

// BlockEnactedNotifier is the single method the worker needs to learn about
// newly enacted blocks (spec §4.10's "on the next new_blocks event with
// this hash enacted"), kept narrow so ChainNotify doesn't need the whole
// Worker surface.
type BlockEnactedNotifier interface {
	DeliverNewBlocks(height consensus.Height, hash consensus.BlockHash)
}

// HeaderByHash resolves a header by hash; ChainNotify needs this to learn a
// newly enacted block's height, which the raw new_blocks event (spec §4.10)
// only carries as a hash list.
type HeaderByHash interface {
	BlockHeader(hash common.Hash) (*consensus.Header, bool)
}

// ChainNotify adapts the block-import pipeline's new_blocks(imported,
// invalid, enacted, retracted, sealed) event (spec §4.10) into
// DeliverNewBlocks calls on the worker. Invalid and retracted hashes are
// dropped at this layer: the state machine only needs to learn about
// hashes that became part of the canonical chain.
type ChainNotify struct {
	worker BlockEnactedNotifier
	chain  HeaderByHash
}

// NewChainNotify builds a bridge forwarding enacted blocks from chain into
// worker.
func NewChainNotify(worker BlockEnactedNotifier, chain HeaderByHash) *ChainNotify {
	return &ChainNotify{worker: worker, chain: chain}
}

// NewBlocks is the ChainNotify hook the block-import pipeline calls (spec
// §4.10). Only enacted is consulted; imported/invalid/retracted/sealed are
// the block executor's concern, not the consensus core's.
func (n *ChainNotify) NewBlocks(enacted []common.Hash) {
	for _, hash := range enacted {
		header, ok := n.chain.BlockHeader(hash)
		if !ok {
			continue
		}
		height := consensus.Height(header.Number.Uint64())
		n.worker.DeliverNewBlocks(height, hash)
	}
}

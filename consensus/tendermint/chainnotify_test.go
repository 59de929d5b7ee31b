package tendermint

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/codechain-io/codechain/consensus"
)

type recordingNotifier struct {
	calls []blockEvent
}

func (r *recordingNotifier) DeliverNewBlocks(height consensus.Height, hash consensus.BlockHash) {
	r.calls = append(r.calls, blockEvent{height: height, hash: hash})
}

type mapHeaderSource map[common.Hash]*consensus.Header

func (m mapHeaderSource) BlockHeader(hash common.Hash) (*consensus.Header, bool) {
	h, ok := m[hash]
	return h, ok
}

func TestChainNotifyForwardsOnlyEnactedKnownHeaders(t *testing.T) {
	known := common.Hash{0x01}
	unknown := common.Hash{0x02}
	headers := mapHeaderSource{
		known: {Number: big.NewInt(7)},
	}

	notifier := &recordingNotifier{}
	cn := NewChainNotify(notifier, headers)

	cn.NewBlocks([]common.Hash{known, unknown})

	require.Len(t, notifier.calls, 1)
	require.Equal(t, consensus.Height(7), notifier.calls[0].height)
	require.Equal(t, known, notifier.calls[0].hash)
}

func TestChainNotifyEmptyEnactedIsNoOp(t *testing.T) {
	notifier := &recordingNotifier{}
	cn := NewChainNotify(notifier, mapHeaderSource{})
	cn.NewBlocks(nil)
	require.Empty(t, notifier.calls)
}

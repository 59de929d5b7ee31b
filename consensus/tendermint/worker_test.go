package tendermint

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/consensus/validator"
	"github.com/codechain-io/codechain/tosdb/memorydb"
)

// fakeClient records every UpdateBestAsCommitted call so tests can assert on
// them without a real block executor; UpdateSealing is ignored.
type fakeClient struct {
	mu        chan struct{} // buffered "a commit was signalled" channel, one send per UpdateBestAsCommitted
	committed []common.Hash
}

func newFakeClient() *fakeClient {
	return &fakeClient{mu: make(chan struct{}, 64)}
}

func (c *fakeClient) BlockHeader(common.Hash) (*consensus.Header, bool) { return nil, false }
func (c *fakeClient) BestBlockHeader() *consensus.Header                { return &consensus.Header{} }
func (c *fakeClient) BlockNumber(common.Hash) (uint64, bool)            { return 0, false }
func (c *fakeClient) UpdateBestAsCommitted(hash common.Hash) {
	c.committed = append(c.committed, hash)
	select {
	case c.mu <- struct{}{}:
	default:
	}
}
func (c *fakeClient) UpdateSealing(common.Hash, bool) {}

// fakeExtension records every broadcast frame.
type fakeExtension struct {
	out chan []byte
}

func newFakeExtension() *fakeExtension { return &fakeExtension{out: make(chan []byte, 64)} }

func (e *fakeExtension) Broadcast(msg []byte) { e.out <- msg }
func (e *fakeExtension) SendTo(common.Address, []byte) {}

// fakeHeightSource starts every height at the zero hash with a fixed stake
// table, ignoring the actual chain head.
type fakeHeightSource struct {
	stakes map[common.Address]uint64
}

func (s *fakeHeightSource) StakesAt(common.Hash) (map[common.Address]uint64, error) { return s.stakes, nil }
func (s *fakeHeightSource) BestBlockHash() common.Hash                              { return common.Hash{} }

func TestWorkerSingleValidatorCommitsOnStart(t *testing.T) {
	signers := newSigners(t, 1)
	vs := validator.NewList([]validator.PublicKey{signers[0].PublicKey()})
	stakes := stakesFor(signers, 100)

	st := NewState(vs, signers[0], testParams, NewBackup(memorydb.New()), &stubBuilder{})
	client := newFakeClient()
	ext := newFakeExtension()
	w := NewWorker(st, client, ext, &fakeHeightSource{stakes: stakes})

	require.NoError(t, w.Start())
	defer w.Stop()

	select {
	case <-client.mu:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the lone validator's own votes to commit height 1")
	}
	require.Len(t, client.committed, 1)
}

func TestWorkerAdvancesHeightAfterAdviseEnacted(t *testing.T) {
	signers := newSigners(t, 1)
	vs := validator.NewList([]validator.PublicKey{signers[0].PublicKey()})
	stakes := stakesFor(signers, 100)

	st := NewState(vs, signers[0], testParams, NewBackup(memorydb.New()), &stubBuilder{})
	client := newFakeClient()
	ext := newFakeExtension()
	w := NewWorker(st, client, ext, &fakeHeightSource{stakes: stakes})

	require.NoError(t, w.Start())
	defer w.Stop()

	var committedHash common.Hash
	select {
	case <-client.mu:
		committedHash = client.committed[0]
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for height 1 to commit")
	}

	w.DeliverNewBlocks(1, committedHash)

	select {
	case <-client.mu:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for height 2 to commit after AdviseEnacted")
	}
	require.Equal(t, consensus.Height(2), st.Height())
}

func TestWorkerDeliverNetworkMessageDropsWhenQueueFull(t *testing.T) {
	signers := newSigners(t, 2)
	pubs := []validator.PublicKey{signers[0].PublicKey(), signers[1].PublicKey()}
	vs := validator.NewList(pubs)
	stakes := stakesFor(signers, 50)

	st := NewState(vs, signers[0], testParams, NewBackup(memorydb.New()), &stubBuilder{})
	w := NewWorker(st, newFakeClient(), newFakeExtension(), &fakeHeightSource{stakes: stakes})

	// Do not Start the loop: netC (capacity 256) fills and the next send
	// must not block the caller.
	for i := 0; i < 300; i++ {
		w.DeliverNetworkMessage(signers[1].Address(), []byte{byte(i)})
	}
}

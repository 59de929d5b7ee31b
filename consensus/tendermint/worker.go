package tendermint

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/codechain-io/codechain/consensus"
)

// HeightSource supplies the stake table and parent hash a new height starts
// from; the worker calls it once per height transition (genesis and every
// commit) rather than holding a live chain reference itself.
type HeightSource interface {
	// StakesAt returns the stake table effective after parentHash.
	StakesAt(parentHash common.Hash) (map[common.Address]uint64, error)
	// BestBlockHash returns the current chain head, the parent of the next
	// height to drive.
	BestBlockHash() common.Hash
}

// timerHandle is the single shared timer slot the worker owns (spec §4.7,
// §5: "a single timer slot is shared; setting a new timeout cancels any
// previous one").
type timerHandle struct {
	timer *time.Timer
	step  consensus.VoteStep
}

// Worker is the single-threaded cooperative event loop driving a State
// (spec §4.8). It owns the only timer, the network send path and the
// NewBlocks bridge; once Start has entered the first height, nothing
// outside the worker's run loop touches the State.
type Worker struct {
	state  *State
	client consensus.Client
	ext    consensus.ExtensionHandle
	source HeightSource

	timerC chan consensus.VoteStep
	netC   chan networkEvent
	blockC chan blockEvent
	stopC  chan struct{}

	mu     sync.Mutex
	active *timerHandle

	wg sync.WaitGroup
}

type networkEvent struct {
	voter common.Address
	frame []byte
}

type blockEvent struct {
	height consensus.Height
	hash   consensus.BlockHash
}

// NewWorker builds a Worker around an already-constructed State. Channel
// sizes are bounded (spec §4.8's "bounded inbound channels"): a slow
// consumer sheds new network frames rather than blocking the P2P layer.
func NewWorker(state *State, client consensus.Client, ext consensus.ExtensionHandle, source HeightSource) *Worker {
	return &Worker{
		state:  state,
		client: client,
		ext:    ext,
		source: source,
		timerC: make(chan consensus.VoteStep, 8),
		netC:   make(chan networkEvent, 256),
		blockC: make(chan blockEvent, 64),
		stopC:  make(chan struct{}),
	}
}

// DeliverNetworkMessage is the P2P extension's inbound hook. It never
// blocks: a full queue drops the frame, matching spec §4.8's "non-blocking
// outbound sends" discipline applied symmetrically to inbound delivery
// under backpressure.
func (w *Worker) DeliverNetworkMessage(voter common.Address, frame []byte) {
	select {
	case w.netC <- networkEvent{voter: voter, frame: frame}:
	default:
		log.Warn("tendermint: dropping network message, worker queue full", "voter", voter)
	}
}

// DeliverNewBlocks is the ChainNotify bridge's hook (spec §4.10): it
// forwards one enacted block at a time into the worker's queue.
func (w *Worker) DeliverNewBlocks(height consensus.Height, hash consensus.BlockHash) {
	select {
	case w.blockC <- blockEvent{height: height, hash: hash}:
	default:
		log.Warn("tendermint: dropping NewBlocks event, worker queue full", "height", height)
	}
}

// Start enters height state.Height()+1 on top of the source's best block
// hash and begins the event loop in a background goroutine; call Stop to
// terminate it.
func (w *Worker) Start() error {
	stakes, err := w.source.StakesAt(w.source.BestBlockHash())
	if err != nil {
		return err
	}
	actions, err := w.state.EnterHeight(w.state.Height()+1, w.source.BestBlockHash(), stakes)
	if err != nil {
		return err
	}
	w.dispatch(actions)

	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop terminates the event loop and waits for it to exit.
func (w *Worker) Stop() {
	close(w.stopC)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopC:
			w.mu.Lock()
			if w.active != nil {
				w.active.timer.Stop()
			}
			w.mu.Unlock()
			return
		case vs := <-w.timerC:
			actions, err := w.state.HandleTimeout(vs)
			if err != nil {
				log.Error("tendermint: timeout handling failed", "voteStep", vs, "err", err)
				continue
			}
			w.dispatch(actions)
		case ev := <-w.netC:
			w.handleNetworkEvent(ev)
		case ev := <-w.blockC:
			if w.state.AdviseEnacted(ev.height, ev.hash) {
				stakes, err := w.source.StakesAt(ev.hash)
				if err != nil {
					log.Error("tendermint: failed to load stakes for next height", "err", err)
					continue
				}
				actions, err := w.state.EnterHeight(ev.height+1, ev.hash, stakes)
				if err != nil {
					log.Error("tendermint: failed to enter next height", "err", err)
					continue
				}
				w.dispatch(actions)
			}
		}
	}
}

func (w *Worker) handleNetworkEvent(ev networkEvent) {
	decoded, err := DecodeExtensionMessage(ev.frame)
	if err != nil {
		log.Debug("tendermint: malformed network frame", "voter", ev.voter, "err", err)
		return
	}

	var actions []Action
	switch m := decoded.(type) {
	case *consensus.ConsensusMessage:
		actions, err = w.state.HandleVote(ev.voter, *m)
	case *Proposal:
		actions, err = w.state.HandleProposal(m)
	case *StepState:
		return // gossip-suppression hints are read by the P2P layer itself, not the state machine
	}
	if err != nil {
		log.Debug("tendermint: dropping network event", "voter", ev.voter, "err", err)
		return
	}
	w.dispatch(actions)
}

// dispatch carries out the side effects State returned: arming the shared
// timer, broadcasting a frame, or surfacing a commit.
func (w *Worker) dispatch(actions []Action) {
	for _, a := range actions {
		if a.Broadcast != nil && w.ext != nil {
			w.ext.Broadcast(a.Broadcast)
		}
		if a.SetTimer != nil {
			w.armTimer(*a.SetTimer)
		}
		if a.Commit != nil && w.client != nil {
			w.client.UpdateBestAsCommitted(a.Commit.BlockHash)
		}
	}
}

// armTimer replaces the single shared timer slot unconditionally (spec
// §5's cancellation guarantee): any previously armed timer is stopped
// before the new one starts.
func (w *Worker) armTimer(req TimerRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active != nil {
		w.active.timer.Stop()
	}
	vs := req.VoteStep
	t := time.AfterFunc(req.Duration, func() {
		select {
		case w.timerC <- vs:
		case <-w.stopC:
		}
	})
	w.active = &timerHandle{timer: t, step: vs}
}

package consensus

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors shared by every engine and by the Tendermint state
// machine. Concrete engines wrap these with fmt.Errorf("...: %w", err) at
// call boundaries rather than inventing ad-hoc string errors, matching the
// teacher's consensus/dpos and consensus/bft error style.
var (
	ErrInvalidSignature   = errors.New("consensus: invalid signature")
	ErrUnknownSigner      = errors.New("consensus: unknown signer")
	ErrInvalidSeal        = errors.New("consensus: invalid seal")
	ErrInvalidSealFields  = errors.New("consensus: invalid seal fields")
	ErrFutureBlock        = errors.New("consensus: block timestamp in the future")
	ErrNotProposer        = errors.New("consensus: not the proposer for this view")
	ErrNoSpace            = errors.New("consensus: resource exhausted")
	ErrDuplicatedTimerID  = errors.New("consensus: duplicated timer id")
	ErrUnreadySession     = errors.New("consensus: session not ready")
	ErrUnexpectedMessage  = errors.New("consensus: unexpected message")
	ErrMalformedMessage   = errors.New("consensus: malformed message")
	ErrEmptyValidatorSet  = errors.New("consensus: empty validator set")
	ErrStateNotAvailable  = errors.New("consensus: state not available")
	ErrKeyStoreLocked     = errors.New("consensus: keystore locked")
	ErrNetworkDisabled    = errors.New("consensus: network extension disabled")
	ErrNotUnlocked        = errors.New("consensus: signer account not unlocked")
	ErrSignerNotSet       = errors.New("consensus: no signer configured")
	ErrInvalidParentHash  = errors.New("consensus: header parent hash does not match parent block")
	ErrStaleVoteStep      = errors.New("consensus: refusing to sign a vote at or below the last backed-up vote step")
)

// BlockNotAuthorizedError reports that addr is not permitted to author a
// block at the point it was checked.
type BlockNotAuthorizedError struct {
	Address common.Address
}

func (e *BlockNotAuthorizedError) Error() string {
	return fmt.Sprintf("consensus: %s is not authorized to author a block", e.Address.Hex())
}

// BadSealFieldSizeError reports a seal field whose encoded length fell
// outside [Min, Max]. Max of nil means "no upper bound".
type BadSealFieldSizeError struct {
	Min, Found int
	Max        *int
}

func (e *BadSealFieldSizeError) Error() string {
	if e.Max == nil {
		return fmt.Sprintf("consensus: bad seal field size: want >= %d, found %d", e.Min, e.Found)
	}
	return fmt.Sprintf("consensus: bad seal field size: want [%d,%d], found %d", e.Min, *e.Max, e.Found)
}

// DoubleVoteError reports that voter signed two distinct ConsensusMessages
// at the same VoteStep. It must be surfaced via ValidatorSet.ReportMalicious
// and is otherwise non-fatal: consensus progress is not blocked on it.
type DoubleVoteError struct {
	Voter        common.Address
	First, Second ConsensusMessage
}

func (e *DoubleVoteError) Error() string {
	return fmt.Sprintf("consensus: double vote by %s at %s", e.Voter.Hex(), e.First.VoteStep)
}

// InternalError wraps an I/O failure (KV store, P2P transport) that the
// engine cannot classify more precisely.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("consensus: internal error: %v", e.Err) }
func (e *InternalError) Unwrap() error { return e.Err }

// EngineError is returned by ConsensusEngine operations that need a typed,
// switchable failure (possible_authors, generate_seal internals, ...).
type EngineError struct {
	Kind string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("consensus: engine error: %s", e.Kind)
	}
	return fmt.Sprintf("consensus: engine error: %s: %v", e.Kind, e.Err)
}
func (e *EngineError) Unwrap() error { return e.Err }

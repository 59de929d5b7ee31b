// Package validator implements CodeChain's per-parent-hash validator set
// abstraction (spec §4.1): address/index mapping, membership queries, draws
// by nonce modulo the set size, and per-validator stake lookups (StakeSet). It follows the same determinism discipline as the
// teacher's on-chain DPoS registry (sorted, addressed lists, deterministic
// tie-breaks) but is parameterised purely by parent hash rather than by a
// live state trie, since the trie is an external collaborator here.
package validator

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/codechain-io/codechain/consensus"
)

// PublicKey is a Schnorr (BIP340 x-only) public key: 32 bytes.
type PublicKey []byte

// AddressOf derives the 20-byte address CodeChain uses for a validator's
// public key: the first 20 bytes of its BLAKE-256 digest (spec §4.1).
func AddressOf(pub PublicKey) common.Address {
	h := consensus.Blake256(pub)
	var addr common.Address
	copy(addr[:], h[:20])
	return addr
}

// Set is the per-parent-hash validator set contract (spec §4.1). Every
// method is parameterised by parentHash so that stake-reconfigured sets
// across epoch boundaries can be modelled without mutating a shared
// instance.
type Set interface {
	// Contains reports whether pub is a member of the set effective after
	// parentHash.
	Contains(parentHash common.Hash, pub PublicKey) bool
	// ContainsAddress reports whether addr is a member's derived address.
	ContainsAddress(parentHash common.Hash, addr common.Address) bool
	// Get returns the public key at position nonce mod count(parentHash).
	// It fails with consensus.ErrEmptyValidatorSet when count is 0.
	Get(parentHash common.Hash, nonce uint64) (PublicKey, error)
	// GetIndex returns pub's position in the set, or ok=false if absent.
	GetIndex(parentHash common.Hash, pub PublicKey) (index int, ok bool)
	// GetAddress returns the address at position nonce mod count(parentHash).
	GetAddress(parentHash common.Hash, nonce uint64) (common.Address, error)
	// Count returns the number of validators effective after parentHash.
	Count(parentHash common.Hash) int
	// Addresses returns every validator's derived address, in set order.
	Addresses(parentHash common.Hash) []common.Address

	// ReportMalicious records evidence of provable misbehaviour (e.g. a
	// DoubleVoteError) by addr at blockNumber. The default implementation
	// is a no-op observer; on-chain slashing sets are expected to override
	// it.
	ReportMalicious(addr common.Address, blockNumber uint64, proof []byte)
	// ReportBenign records a validator missing its turn without proof of
	// equivocation (e.g. a skipped proposal). Default is a no-op.
	ReportBenign(addr common.Address, blockNumber uint64)
}

// List is a static validator set fixed at genesis: the same ordered public
// key list applies regardless of parent hash. It is the "(a) static list
// from genesis" implementation spec §4.1 calls for.
type List struct {
	validators []PublicKey
	addresses  []common.Address
	index      map[common.Address]int
}

// NewList builds a List from an ordered set of public keys. Keys are kept in
// the order given — callers that need address-ascending determinism should
// sort before calling NewList, matching the teacher's addressAscending sort.
func NewList(validators []PublicKey) *List {
	addrs := make([]common.Address, len(validators))
	idx := make(map[common.Address]int, len(validators))
	for i, pub := range validators {
		a := AddressOf(pub)
		addrs[i] = a
		idx[a] = i
	}
	return &List{validators: validators, addresses: addrs, index: idx}
}

// NewSortedList builds a List from public keys sorted by derived address
// ascending, the deterministic genesis ordering the teacher's validator
// registry also produces for round-robin leader selection.
func NewSortedList(validators []PublicKey) *List {
	cp := make([]PublicKey, len(validators))
	copy(cp, validators)
	sort.Slice(cp, func(i, j int) bool {
		ai, aj := AddressOf(cp[i]), AddressOf(cp[j])
		return bytes.Compare(ai[:], aj[:]) < 0
	})
	return NewList(cp)
}

func (l *List) Contains(_ common.Hash, pub PublicKey) bool {
	_, ok := l.index[AddressOf(pub)]
	return ok
}

func (l *List) ContainsAddress(_ common.Hash, addr common.Address) bool {
	_, ok := l.index[addr]
	return ok
}

func (l *List) Get(_ common.Hash, nonce uint64) (PublicKey, error) {
	n := len(l.validators)
	if n == 0 {
		return nil, consensus.ErrEmptyValidatorSet
	}
	return l.validators[nonce%uint64(n)], nil
}

func (l *List) GetIndex(_ common.Hash, pub PublicKey) (int, bool) {
	i, ok := l.index[AddressOf(pub)]
	return i, ok
}

func (l *List) GetAddress(_ common.Hash, nonce uint64) (common.Address, error) {
	n := len(l.addresses)
	if n == 0 {
		return common.Address{}, consensus.ErrEmptyValidatorSet
	}
	return l.addresses[nonce%uint64(n)], nil
}

func (l *List) Count(_ common.Hash) int { return len(l.validators) }

func (l *List) Addresses(_ common.Hash) []common.Address {
	out := make([]common.Address, len(l.addresses))
	copy(out, l.addresses)
	return out
}

func (l *List) ReportMalicious(common.Address, uint64, []byte) {}
func (l *List) ReportBenign(common.Address, uint64)            {}

var _ Set = (*List)(nil)

package validator

import (
	"bytes"
	"sort"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ethereum/go-ethereum/common"
	"github.com/codechain-io/codechain/consensus"
)

// Entry is one validator's public key and stake weight as of a given parent
// hash.
type Entry struct {
	PublicKey PublicKey
	Stake     uint64
}

// Provider loads the validator entries effective immediately after
// parentHash from the state trie (an external collaborator). Implementers
// must return identical ordering given identical input state — the
// determinism requirement spec §4.1 places on every ValidatorSet
// implementation.
type Provider interface {
	ValidatorsAt(parentHash common.Hash) ([]Entry, error)
}

// snapshot is the resolved, address-sorted view of a Provider's answer for
// one parent hash.
type snapshot struct {
	entries   []Entry
	addresses []common.Address
	index     map[common.Address]int
}

func newSnapshot(entries []Entry) *snapshot {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	sort.SliceStable(cp, func(i, j int) bool {
		ai, aj := AddressOf(cp[i].PublicKey), AddressOf(cp[j].PublicKey)
		return bytes.Compare(ai[:], aj[:]) < 0
	})
	addrs := make([]common.Address, len(cp))
	idx := make(map[common.Address]int, len(cp))
	for i, e := range cp {
		a := AddressOf(e.PublicKey)
		addrs[i] = a
		idx[a] = i
	}
	return &snapshot{entries: cp, addresses: addrs, index: idx}
}

// StakeSet is the "(b) stake-parameterised set computed from the state trie
// at parent_hash" implementation spec §4.1 calls for. It caches resolved
// snapshots by parent hash in an ARC cache (the same cache discipline the
// teacher's consensus/dpos engine applies to its own validator snapshots),
// since every header verification on a live chain re-derives the same
// parent's set repeatedly.
type StakeSet struct {
	provider Provider
	cache    *lru.ARCCache // common.Hash -> *snapshot
}

// NewStakeSet wraps provider with an ARC cache of the given size.
func NewStakeSet(provider Provider, cacheSize int) (*StakeSet, error) {
	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, err
	}
	return &StakeSet{provider: provider, cache: cache}, nil
}

func (s *StakeSet) snapshotAt(parentHash common.Hash) (*snapshot, error) {
	if v, ok := s.cache.Get(parentHash); ok {
		return v.(*snapshot), nil
	}
	entries, err := s.provider.ValidatorsAt(parentHash)
	if err != nil {
		return nil, err
	}
	snap := newSnapshot(entries)
	s.cache.Add(parentHash, snap)
	return snap, nil
}

func (s *StakeSet) Contains(parentHash common.Hash, pub PublicKey) bool {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return false
	}
	_, ok := snap.index[AddressOf(pub)]
	return ok
}

func (s *StakeSet) ContainsAddress(parentHash common.Hash, addr common.Address) bool {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return false
	}
	_, ok := snap.index[addr]
	return ok
}

func (s *StakeSet) Get(parentHash common.Hash, nonce uint64) (PublicKey, error) {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return nil, err
	}
	if len(snap.entries) == 0 {
		return nil, consensus.ErrEmptyValidatorSet
	}
	return snap.entries[nonce%uint64(len(snap.entries))].PublicKey, nil
}

func (s *StakeSet) GetIndex(parentHash common.Hash, pub PublicKey) (int, bool) {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return 0, false
	}
	i, ok := snap.index[AddressOf(pub)]
	return i, ok
}

func (s *StakeSet) GetAddress(parentHash common.Hash, nonce uint64) (common.Address, error) {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return common.Address{}, err
	}
	if len(snap.addresses) == 0 {
		return common.Address{}, consensus.ErrEmptyValidatorSet
	}
	return snap.addresses[nonce%uint64(len(snap.addresses))], nil
}

func (s *StakeSet) Count(parentHash common.Hash) int {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return 0
	}
	return len(snap.entries)
}

func (s *StakeSet) Addresses(parentHash common.Hash) []common.Address {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return nil
	}
	out := make([]common.Address, len(snap.addresses))
	copy(out, snap.addresses)
	return out
}

// Stake returns addr's stake weight effective after parentHash, or 0 if
// addr is not a member.
func (s *StakeSet) Stake(parentHash common.Hash, addr common.Address) uint64 {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return 0
	}
	i, ok := snap.index[addr]
	if !ok {
		return 0
	}
	return snap.entries[i].Stake
}

// TotalStake returns the sum of every member's stake weight after parentHash.
func (s *StakeSet) TotalStake(parentHash common.Hash) uint64 {
	snap, err := s.snapshotAt(parentHash)
	if err != nil {
		return 0
	}
	var total uint64
	for _, e := range snap.entries {
		total += e.Stake
	}
	return total
}

func (s *StakeSet) ReportMalicious(addr common.Address, blockNumber uint64, proof []byte) {}
func (s *StakeSet) ReportBenign(addr common.Address, blockNumber uint64)                  {}

var _ Set = (*StakeSet)(nil)

package validator

import "github.com/ethereum/go-ethereum/common"

// NullSet is grounded on original_source's
// core/src/consensus/validator_set/null_validator.rs: a validator set that
// accepts any public key or address as a member. It bootstraps NullEngine
// and SoloEngine configurations, which have no real membership concept
// (spec §4.6).
type NullSet struct{}

func (NullSet) Contains(common.Hash, PublicKey) bool             { return true }
func (NullSet) ContainsAddress(common.Hash, common.Address) bool { return true }
func (NullSet) Get(common.Hash, uint64) (PublicKey, error)       { return PublicKey{}, nil }
func (NullSet) GetIndex(common.Hash, PublicKey) (int, bool)      { return 0, true }
func (NullSet) GetAddress(common.Hash, uint64) (common.Address, error) {
	return common.Address{}, nil
}
func (NullSet) Count(common.Hash) int                  { return 1 }
func (NullSet) Addresses(common.Hash) []common.Address { return nil }
func (NullSet) ReportMalicious(common.Address, uint64, []byte) {}
func (NullSet) ReportBenign(common.Address, uint64)            {}

var _ Set = NullSet{}

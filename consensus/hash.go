package consensus

import (
	"github.com/decred/dcrd/crypto/blake256"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// rlpHash RLP-encodes x and returns its BLAKE-256 digest. CodeChain uses
// BLAKE-256 rather than Keccak-256 for every canonical hash (spec §1's
// "all hashes are BLAKE-256" non-goal on rolling new crypto primitives).
func rlpHash(x interface{}) (h common.Hash) {
	enc, err := rlp.EncodeToBytes(x)
	if err != nil {
		// Header encoding cannot fail for Header's fixed field set; a
		// failure here means a caller passed a non-RLP-encodable type.
		panic(err)
	}
	sum := blake256.Sum256(enc)
	copy(h[:], sum[:])
	return h
}

// Blake256 returns the BLAKE-256 digest of data, used wherever the spec
// calls for "blake256(x)" directly (address derivation, vote signing
// digests, proposal block hashes).
func Blake256(data []byte) common.Hash {
	return blake256.Sum256(data)
}

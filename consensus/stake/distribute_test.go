package stake

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func addrN(n byte) common.Address {
	var a common.Address
	a[19] = n
	return a
}

func TestDistributeEvenSplit(t *testing.T) {
	// spec §8 scenario 5.
	s1, s2 := addrN(1), addrN(2)
	shares, remainder := Distribute(100, map[common.Address]uint64{s1: 10, s2: 10})

	require.Equal(t, uint64(50), shares[s1])
	require.Equal(t, uint64(50), shares[s2])
	require.Equal(t, uint64(0), remainder)
}

func TestDistributeAuthorRemainder(t *testing.T) {
	// spec §8 scenario 6: 51 stakeholders, stake 10 each, total_fee 100.
	stakes := make(map[common.Address]uint64, 51)
	for i := byte(1); i <= 51; i++ {
		stakes[addrN(i)] = 10
	}
	shares, remainder := Distribute(100, stakes)

	for addr, share := range shares {
		require.Equalf(t, uint64(1), share, "addr=%x", addr)
	}
	require.Equal(t, uint64(49), remainder)
}

func TestDistributeSumInvariant(t *testing.T) {
	stakes := map[common.Address]uint64{addrN(1): 7, addrN(2): 13, addrN(3): 1}
	const totalFee = 1000
	shares, remainder := Distribute(totalFee, stakes)

	var sum uint64
	for _, s := range shares {
		require.LessOrEqual(t, s, uint64(totalFee))
		sum += s
	}
	require.Equal(t, uint64(totalFee), sum+remainder)
}

func TestDistributeZeroTotalStakesGivesWholeFeeAsRemainder(t *testing.T) {
	shares, remainder := Distribute(42, map[common.Address]uint64{})
	require.Empty(t, shares)
	require.Equal(t, uint64(42), remainder)
}

package sortition

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalkBinomialCDF(t *testing.T) {
	// p=0.5, n=4 (votingPower=4): spec §8 scenario 3.
	cases := []struct {
		lottery float64
		want    uint64
	}{
		{0.06, 0},
		{0.30, 1},
		{0.68, 2},
		{0.93, 3},
		{0.95, 4},
	}
	for _, c := range cases {
		got := walk(4, 0.5, c.lottery)
		require.Equalf(t, c.want, got, "lottery=%v", c.lottery)
	}
}

func TestDrawSeededVRFOutputs(t *testing.T) {
	// votingPower=4, totalPower=16, expectation=8.0: spec §8 scenario 4.
	cases := []struct {
		vrfHex string
		want   uint64
	}{
		{"0f5c", 0},
		{"4ccc", 1},
		{"ae13", 2},
		{"ee13", 3},
		{"f332", 4},
	}
	for _, c := range cases {
		raw, err := hex.DecodeString(c.vrfHex)
		require.NoError(t, err)
		got := Draw(4, 16, 8.0, raw)
		require.Equalf(t, c.want, got, "vrf=%s", c.vrfHex)
	}
}

func TestDrawDeterministicAndMonotone(t *testing.T) {
	a := Draw(10, 100, 30, []byte{0x80, 0x00})
	b := Draw(10, 100, 30, []byte{0x80, 0x00})
	require.Equal(t, a, b)

	low := Draw(10, 100, 30, []byte{0x10})
	high := Draw(10, 100, 30, []byte{0xF0})
	require.LessOrEqual(t, low, high)
}

func TestDrawZeroTotalPowerIsZeroProbability(t *testing.T) {
	require.Equal(t, uint64(0), Draw(4, 0, 8, []byte{0xFF}))
}

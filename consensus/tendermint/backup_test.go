package tendermint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/tosdb/memorydb"
)

func TestBackupFreshStartIsZero(t *testing.T) {
	b := NewBackup(memorydb.New())
	vs, lastConfirmed, locked, ok, err := b.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, consensus.NewVoteStep(0, 0, consensus.Propose), vs)
	require.Equal(t, consensus.View(0), lastConfirmed)
	require.Nil(t, locked)
}

func TestBackupRoundTripWithLockedValue(t *testing.T) {
	b := NewBackup(memorydb.New())
	want := consensus.NewVoteStep(7, 2, consensus.Precommit)
	locked := &LockedValue{Hash: consensus.BlockHash{0xAB}, View: 1}

	require.NoError(t, b.Save(want, 2, locked))

	got, lastConfirmed, gotLocked, ok, err := b.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
	require.Equal(t, consensus.View(2), lastConfirmed)
	require.Equal(t, locked, gotLocked)
}

func TestBackupMonotonicityAfterRestart(t *testing.T) {
	// spec §8: "after a restart, the first vote produced at (h',v',s')
	// satisfies (h',v',s') > restored(h,v,s) under the VoteStep total
	// order."
	db := memorydb.New()
	b := NewBackup(db)
	restored := consensus.NewVoteStep(5, 1, consensus.Prevote)
	require.NoError(t, b.Save(restored, 1, nil))

	// Simulate a restart against the same db.
	restarted := NewBackup(db)
	vs, _, _, ok, err := restarted.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, restored, vs)

	candidate := consensus.NewVoteStep(5, 1, consensus.Precommit)
	require.True(t, vs.Less(candidate))
}

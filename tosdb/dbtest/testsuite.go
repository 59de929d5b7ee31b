// Package dbtest provides a shared KeyValueStore conformance suite run
// against every tosdb backend, mirroring the pattern the teacher's
// tosdb/leveldb and tosdb/memorydb test files call into
// (dbtest.TestDatabaseSuite).
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codechain-io/codechain/tosdb"
)

// TestDatabaseSuite runs a battery of generic KeyValueStore checks against
// a freshly constructed store from newDB.
func TestDatabaseSuite(t *testing.T, newDB func() tosdb.KeyValueStore) {
	t.Run("PutGetDelete", func(t *testing.T) {
		db := newDB()
		defer db.Close()

		key, value := []byte("k"), []byte("v")

		ok, err := db.Has(key)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, db.Put(key, value))

		ok, err = db.Has(key)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := db.Get(key)
		require.NoError(t, err)
		require.Equal(t, value, got)

		require.NoError(t, db.Delete(key))
		ok, err = db.Has(key)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Batch", func(t *testing.T) {
		db := newDB()
		defer db.Close()

		b := db.NewBatch()
		require.NoError(t, b.Put([]byte("a"), []byte("1")))
		require.NoError(t, b.Put([]byte("b"), []byte("2")))
		require.Greater(t, b.ValueSize(), 0)
		require.NoError(t, b.Write())

		got, err := db.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), got)

		got, err = db.Get([]byte("b"))
		require.NoError(t, err)
		require.Equal(t, []byte("2"), got)
	})
}

package memorydb

import (
	"testing"

	"github.com/codechain-io/codechain/tosdb"
	"github.com/codechain-io/codechain/tosdb/dbtest"
)

func TestMemoryDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() tosdb.KeyValueStore {
			return New()
		})
	})
}

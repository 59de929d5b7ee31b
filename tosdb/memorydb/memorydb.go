// Package memorydb implements an in-memory tosdb.KeyValueStore, used by
// tests and by standalone nodes that do not need persistence across
// restarts.
package memorydb

import (
	"errors"
	"sync"

	"github.com/codechain-io/codechain/tosdb"
)

// ErrNotFound is returned by Get when key is absent.
var ErrNotFound = errors.New("memorydb: key not found")

// Database is an in-memory, mutex-guarded KeyValueStore.
type Database struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty Database.
func New() *Database {
	return &Database{data: make(map[string][]byte)}
}

func (db *Database) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (db *Database) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	db.data[string(key)] = cp
	return nil
}

func (db *Database) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

func (db *Database) Close() error { return nil }

func (db *Database) NewBatch() tosdb.Batch {
	return &batch{db: db}
}

type keyValue struct {
	key      []byte
	value    []byte
	isDelete bool
}

type batch struct {
	db   *Database
	ops  []keyValue
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.ops = append(b.ops, keyValue{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, keyValue{key: append([]byte(nil), key...), isDelete: true})
	b.size += len(key)
	return nil
}

func (b *batch) ValueSize() int { return b.size }

func (b *batch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		if op.isDelete {
			delete(b.db.data, string(op.key))
			continue
		}
		b.db.data[string(op.key)] = op.value
	}
	return nil
}

func (b *batch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}

var _ tosdb.KeyValueStore = (*Database)(nil)

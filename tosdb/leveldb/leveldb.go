// Package leveldb implements a disk-backed tosdb.KeyValueStore over
// syndtr/goleveldb, the on-disk KV engine the teacher's own tosdb/leveldb
// package wraps (only its test file survived retrieval in this pack).
package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/codechain-io/codechain/tosdb"
)

// Database wraps a goleveldb handle.
type Database struct {
	db *leveldb.DB
}

// New opens (or creates) a leveldb database at file.
func New(file string) (*Database, error) {
	db, err := leveldb.OpenFile(file, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Has(key []byte) (bool, error) {
	return d.db.Has(key, nil)
}

func (d *Database) Get(key []byte) ([]byte, error) {
	v, err := d.db.Get(key, nil)
	if err == errors.ErrNotFound {
		return nil, err
	}
	return v, err
}

func (d *Database) Put(key, value []byte) error {
	return d.db.Put(key, value, nil)
}

func (d *Database) Delete(key []byte) error {
	return d.db.Delete(key, nil)
}

func (d *Database) Close() error { return d.db.Close() }

func (d *Database) NewBatch() tosdb.Batch {
	return &batch{db: d.db, b: new(leveldb.Batch)}
}

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) ValueSize() int { return b.b.Len() }

func (b *batch) Write() error {
	return b.db.Write(b.b, &opt.WriteOptions{Sync: true})
}

func (b *batch) Reset() { b.b.Reset() }

var _ tosdb.KeyValueStore = (*Database)(nil)

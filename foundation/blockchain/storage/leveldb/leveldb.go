// Package leveldb implements the ability to read and write blocks to a
// leveldb database keyed by the block hash.
package leveldb

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// blockPrefix is the key prefix for every block record.
var blockPrefix = []byte("block:")

// LevelDB represents the serialization implementation for reading and
// storing blocks in leveldb. This implements the database.Storage interface.
type LevelDB struct {
	ldb *leveldb.DB
}

// New opens the database at the specified path, creating it if it doesn't
// exist. A corrupted database is recovered before use.
func New(dbPath string, evHandler func(v string, args ...any)) (*LevelDB, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	ldb, err := leveldb.OpenFile(dbPath, nil)

	var corrupted *lerrors.ErrCorrupted
	if errors.As(err, &corrupted) {
		ev("leveldb: New: corruption detected: path[%s]: %s", dbPath, err)

		ldb, err = leveldb.RecoverFile(dbPath, nil)
		if err != nil {
			return nil, fmt.Errorf("recovering leveldb: %w", err)
		}

		ev("leveldb: New: recovered from corruption: path[%s]", dbPath)
	}

	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close releases the database.
func (db *LevelDB) Close() error {
	return db.ldb.Close()
}

// Write takes the specified block and stores it under its hash.
func (db *LevelDB) Write(blockFS database.BlockFS) error {
	if _, err := signature.HashToBytes(blockFS.Hash); err != nil {
		return err
	}

	data, err := json.Marshal(blockFS)
	if err != nil {
		return err
	}

	return db.ldb.Put(key(blockFS.Hash), data, nil)
}

// GetBlock returns the block stored for the specified hash.
func (db *LevelDB) GetBlock(hash string) (database.BlockFS, error) {
	data, err := db.ldb.Get(key(hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockFS{}, fmt.Errorf("%w: %s", database.ErrNotFound, hash)
		}
		return database.BlockFS{}, err
	}

	var blockFS database.BlockFS
	if err := json.Unmarshal(data, &blockFS); err != nil {
		return database.BlockFS{}, err
	}

	return blockFS, nil
}

// ForEach returns an iterator to walk through all the blocks in key order.
func (db *LevelDB) ForEach() database.Iterator {
	return &levelIterator{iter: db.ldb.NewIterator(util.BytesPrefix(blockPrefix), nil)}
}

// Reset deletes every block from the database.
func (db *LevelDB) Reset() error {
	iter := db.ldb.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	var batch leveldb.Batch
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}

	if err := iter.Error(); err != nil {
		return err
	}

	return db.ldb.Write(&batch, nil)
}

func key(hash string) []byte {
	return append(append([]byte{}, blockPrefix...), hash...)
}

// =============================================================================

// levelIterator walks the block records using a leveldb iterator. The
// underlying iterator is released at the end of the chain.
type levelIterator struct {
	iter iterator.Iterator
	eoc  bool
}

// Next retrieves the next block from the database.
func (li *levelIterator) Next() (database.BlockFS, error) {
	if li.eoc {
		return database.BlockFS{}, errors.New("end of chain")
	}

	if !li.iter.Next() {
		li.eoc = true
		err := li.iter.Error()
		li.iter.Release()
		if err != nil {
			return database.BlockFS{}, err
		}
		return database.BlockFS{}, errors.New("end of chain")
	}

	var blockFS database.BlockFS
	if err := json.Unmarshal(li.iter.Value(), &blockFS); err != nil {
		return database.BlockFS{}, err
	}

	return blockFS, nil
}

// Done returns the end of chain value.
func (li *levelIterator) Done() bool {
	return li.eoc
}

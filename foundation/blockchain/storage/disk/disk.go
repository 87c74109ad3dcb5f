// Package disk implements the ability to read and write blocks to disk
// with each block in its own file named by the block hash.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write takes the specified block and stores it on disk in a file labeled
// with the block hash.
func (d *Disk) Write(blockFS database.BlockFS) error {
	if _, err := signature.HashToBytes(blockFS.Hash); err != nil {
		return err
	}

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(blockFS, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temporary file first so a crash never leaves a partial block.
	tmp := d.getPath(blockFS.Hash) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, d.getPath(blockFS.Hash))
}

// GetBlock searches the blocks on disk to locate and return the contents
// of the specified block by hash.
func (d *Disk) GetBlock(hash string) (database.BlockFS, error) {
	if _, err := signature.HashToBytes(hash); err != nil {
		return database.BlockFS{}, err
	}

	// Open the block file for the specified hash.
	f, err := os.Open(d.getPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.BlockFS{}, fmt.Errorf("%w: %s", database.ErrNotFound, hash)
		}
		return database.BlockFS{}, err
	}
	defer f.Close()

	// Decode the contents of the block.
	var blockFS database.BlockFS
	if err := json.NewDecoder(f).Decode(&blockFS); err != nil {
		return database.BlockFS{}, err
	}

	return blockFS, nil
}

// ForEach returns an iterator to walk through all the blocks on disk in
// hash order.
func (d *Disk) ForEach() database.Iterator {
	entries, err := os.ReadDir(d.dbPath)

	var hashes []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		hashes = append(hashes, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(hashes)

	return &diskIterator{disk: d, hashes: hashes, err: err}
}

// Reset will remove all the blocks held on disk.
func (d *Disk) Reset() error {
	if err := os.RemoveAll(d.dbPath); err != nil {
		return err
	}

	return os.MkdirAll(d.dbPath, 0755)
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(hash string) string {
	return path.Join(d.dbPath, fmt.Sprintf("%s.json", hash))
}

// =============================================================================

// diskIterator represents the iteration implementation for walking
// through and reading blocks on disk. This implements the database
// Iterator interface.
type diskIterator struct {
	disk    *Disk    // Access to the disk storage API.
	hashes  []string // Snapshot of the block files when iteration started.
	current int      // Current position being iterated over.
	err     error    // Error from reading the directory.
	eoc     bool     // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from disk.
func (di *diskIterator) Next() (database.BlockFS, error) {
	if di.eoc {
		return database.BlockFS{}, errors.New("end of chain")
	}

	if di.err != nil {
		err := di.err
		di.err = nil
		return database.BlockFS{}, err
	}

	if di.current >= len(di.hashes) {
		di.eoc = true
		return database.BlockFS{}, errors.New("end of chain")
	}

	blockFS, err := di.disk.GetBlock(di.hashes[di.current])
	di.current++

	return blockFS, err
}

// Done returns the end of chain value.
func (di *diskIterator) Done() bool {
	return di.eoc
}

// Package memory implements the ability to read and write blocks to memory
// using a slice and a hash index.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory using a slice. This implements the database.Storage
// interface.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockFS
	index  map[string]int
}

// New constructs an Memory value for use.
func New() (*Memory, error) {
	m := Memory{
		index: make(map[string]int),
	}

	return &m, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified block and stores it in memory. Writing a block
// that is already stored replaces it.
func (m *Memory) Write(blockFS database.BlockFS) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, exists := m.index[blockFS.Hash]; exists {
		m.blocks[i] = blockFS
		return nil
	}

	m.index[blockFS.Hash] = len(m.blocks)
	m.blocks = append(m.blocks, blockFS)

	return nil
}

// GetBlock searches the blocks to locate and return the contents of
// the specified block by hash.
func (m *Memory) GetBlock(hash string) (database.BlockFS, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, exists := m.index[hash]
	if !exists {
		return database.BlockFS{}, fmt.Errorf("%w: %s", database.ErrNotFound, hash)
	}

	return m.blocks[i], nil
}

// ForEach returns an iterator to walk through all the blocks in the order
// they were written.
func (m *Memory) ForEach() database.Iterator {
	return &memoryIterator{storage: m}
}

// Reset will clear out the blocks held in memory.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	m.index = make(map[string]int)

	return nil
}

// blockAt returns the block at the specified position in write order.
func (m *Memory) blockAt(i int) (database.BlockFS, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i >= len(m.blocks) {
		return database.BlockFS{}, false
	}

	return m.blocks[i], true
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through the blocks in memory. This implements the database Iterator
// interface.
type memoryIterator struct {
	storage *Memory // Access to the storage API.
	current int     // Current block position being iterated over.
	eoc     bool    // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from memory.
func (mi *memoryIterator) Next() (database.BlockFS, error) {
	if mi.eoc {
		return database.BlockFS{}, errors.New("end of chain")
	}

	blockFS, ok := mi.storage.blockAt(mi.current)
	if !ok {
		mi.eoc = true
		return database.BlockFS{}, errors.New("end of chain")
	}

	mi.current++

	return blockFS, nil
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}

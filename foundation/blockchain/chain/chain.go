// Package chain maintains the index over the hash linked block graph and
// selects the canonical tip of the chain.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// Set of error variables for chain selection.
var (
	ErrEmptyChain  = errors.New("chain has no blocks")
	ErrStaleParent = errors.New("block does not extend the chain tip")
)

// Index maintains an in memory adjacency index from a block's previous hash
// to the hashes of its children. Every block added is written to storage.
type Index struct {
	mu       sync.RWMutex
	storage  database.Storage
	blocks   map[string]database.Block
	children map[string][]string
	leafs    map[string]string
}

// New constructs an index and loads every block held by storage into it.
func New(strg database.Storage) (*Index, error) {
	idx := Index{
		storage:  strg,
		blocks:   make(map[string]database.Block),
		children: make(map[string][]string),
		leafs:    make(map[string]string),
	}

	iter := strg.ForEach()
	for blockFS, err := iter.Next(); !iter.Done(); blockFS, err = iter.Next() {
		if err != nil {
			return nil, fmt.Errorf("loading blocks: %w", err)
		}

		block, err := database.ToBlock(blockFS)
		if err != nil {
			return nil, fmt.Errorf("loading block %s: %w", blockFS.Hash, err)
		}

		idx.index(blockFS.Hash, block)
	}

	return &idx, nil
}

// Add writes the block to storage and adds it to the index. Adding a block
// that is already indexed does nothing.
func (idx *Index) Add(block database.Block) (string, error) {
	blockFS, err := database.NewBlockFS(block)
	if err != nil {
		return "", err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.blocks[blockFS.Hash]; exists {
		return blockFS.Hash, nil
	}

	if err := idx.storage.Write(blockFS); err != nil {
		return "", fmt.Errorf("writing block: %w", err)
	}

	idx.index(blockFS.Hash, block.Clone())

	return blockFS.Hash, nil
}

// Contains reports whether the block is in the index.
func (idx *Index) Contains(hash string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, exists := idx.blocks[hash]
	return exists
}

// Len returns the number of blocks in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.blocks)
}

// FindByHash returns the block for the specified hash.
func (idx *Index) FindByHash(hash string) (database.Block, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	block, exists := idx.blocks[hash]
	if !exists {
		return database.Block{}, fmt.Errorf("%w: %s", database.ErrNotFound, hash)
	}

	return block.Clone(), nil
}

// FindBlockByMerkleLeaf returns the block whose transaction tree holds the
// specified transaction hash as a leaf.
func (idx *Index) FindBlockByMerkleLeaf(txHash string) (database.Block, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hash, exists := idx.leafs[txHash]
	if !exists {
		return database.Block{}, fmt.Errorf("%w: leaf %s", database.ErrNotFound, txHash)
	}

	return idx.blocks[hash].Clone(), nil
}

// FindTip walks the graph from the genesis sentinel and returns the block
// with the greatest hop count along with that count. On a tie the block with
// the lexicographically smallest hash wins.
func (idx *Index) FindTip() (database.Block, uint64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hash, hops := idx.tip()
	if hops == 0 {
		return database.Block{}, 0, ErrEmptyChain
	}

	return idx.blocks[hash].Clone(), hops, nil
}

// TipHash returns the hash of the current tip and its hop count. An empty
// chain returns the genesis sentinel with a count of zero.
func (idx *Index) TipHash() (string, uint64) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.tip()
}

// ValidateExtendsTip returns ErrStaleParent unless the block's previous hash
// is the hash of the current tip. On an empty chain only the genesis
// sentinel is accepted as the parent.
func (idx *Index) ValidateExtendsTip(block database.Block) error {
	tip, _ := idx.TipHash()

	if block.PreviousHash != tip {
		return fmt.Errorf("%w: previous %s, tip %s", ErrStaleParent, block.PreviousHash, tip)
	}

	return nil
}

// =============================================================================

// index records the block in the maps. The caller must hold the write lock
// or have exclusive access.
func (idx *Index) index(hash string, block database.Block) {
	if _, exists := idx.blocks[hash]; exists {
		return
	}

	idx.blocks[hash] = block
	idx.children[block.PreviousHash] = append(idx.children[block.PreviousHash], hash)

	for _, tx := range block.Transactions {
		idx.leafs[tx.ID] = hash
	}
}

// tip performs an iterative depth first walk from the genesis sentinel using
// an explicit stack. The caller must hold a read lock.
func (idx *Index) tip() (string, uint64) {
	type frame struct {
		hash string
		hops uint64
	}

	bestHash := signature.ZeroHash
	var bestHops uint64

	stack := []frame{{hash: signature.ZeroHash}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case f.hops > bestHops:
			bestHash, bestHops = f.hash, f.hops
		case f.hops == bestHops && f.hops > 0 && f.hash < bestHash:
			bestHash = f.hash
		}

		for _, child := range idx.children[f.hash] {
			stack = append(stack, frame{hash: child, hops: f.hops + 1})
		}
	}

	return bestHash, bestHops
}

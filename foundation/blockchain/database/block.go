// Package database provides the block and transaction data model for the
// node along with the functions that assemble candidate blocks.
package database

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/merkle"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrMerkleMismatch is returned when the attached transactions don't produce
// the block's merkle root.
var ErrMerkleMismatch = errors.New("merkle root does not match transactions")

// =============================================================================

// Block represents a group of transactions batched together and the fields
// that are searched over when mining. The hash is never stored on the value,
// it is always recomputed from the fields.
type Block struct {
	PreviousHash      string        `json:"previousHash"`
	MerkleRoot        string        `json:"merkleRoot"`
	MinerKeys         []string      `json:"minerKeys"`
	AssemblyTimestamp time.Time     `json:"assemblyTimestamp"`
	MinedTimestamp    *time.Time    `json:"minedTimestamp,omitempty"`
	Nonce             *big.Int      `json:"nonce"`
	Transactions      []Transaction `json:"transactions,omitempty"`
}

// NewBlock constructs a candidate block that extends the specified previous
// hash and commits to the specified merkle root.
func NewBlock(root string, previousHash string) (Block, error) {
	if _, err := signature.HashToBytes(root); err != nil {
		return Block{}, fmt.Errorf("merkle root: %w", err)
	}

	if _, err := signature.HashToBytes(previousHash); err != nil {
		return Block{}, fmt.Errorf("previous hash: %w", err)
	}

	b := Block{
		PreviousHash:      previousHash,
		MerkleRoot:        root,
		MinerKeys:         []string{},
		AssemblyTimestamp: time.Now().UTC().Truncate(time.Second),
		Nonce:             big.NewInt(0),
	}

	return b, nil
}

// NewBlockFromTransactions builds the merkle tree for the transactions and
// constructs a candidate block on top of the previous hash. The transactions
// are attached to the block in leaf order.
func NewBlockFromTransactions(trans []Transaction, previousHash string) (Block, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	b, err := NewBlock(tree.RootHex(), previousHash)
	if err != nil {
		return Block{}, err
	}
	b.Transactions = tree.Values()

	return b, nil
}

// Clone returns a deep copy of the block so the copy can be mutated without
// affecting the original.
func (b Block) Clone() Block {
	nb := b

	nb.Nonce = new(big.Int)
	if b.Nonce != nil {
		nb.Nonce.Set(b.Nonce)
	}

	if b.MinerKeys != nil {
		nb.MinerKeys = make([]string, len(b.MinerKeys))
		copy(nb.MinerKeys, b.MinerKeys)
	}

	if b.MinedTimestamp != nil {
		ts := *b.MinedTimestamp
		nb.MinedTimestamp = &ts
	}

	if b.Transactions != nil {
		nb.Transactions = make([]Transaction, len(b.Transactions))
		copy(nb.Transactions, b.Transactions)
	}

	return nb
}

// Serialize produces the bytes that are hashed to identify the block. The
// mined timestamp and attached transactions are not part of it.
func (b Block) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	prev, err := signature.HashToBytes(b.PreviousHash)
	if err != nil {
		return nil, fmt.Errorf("previous hash: %w", err)
	}
	buf.Write(prev[:])

	root, err := signature.HashToBytes(b.MerkleRoot)
	if err != nil {
		return nil, fmt.Errorf("merkle root: %w", err)
	}
	buf.Write(root[:])

	for _, key := range b.MinerKeys {
		kb, err := hexutil.Decode(key)
		if err != nil {
			return nil, fmt.Errorf("miner key %q: %w: %s", key, signature.ErrInvalidKey, err)
		}
		buf.Write(kb)
	}

	ts := b.AssemblyTimestamp.UTC().Format(TimeFormat)
	if len(ts) > math.MaxUint16 {
		return nil, errors.New("timestamp too long")
	}
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(ts)))
	buf.Write(l[:])
	buf.WriteString(ts)

	if b.Nonce != nil {
		if b.Nonce.Sign() < 0 {
			return nil, errors.New("nonce is negative")
		}
		buf.Write(b.Nonce.Bytes())
	}

	return buf.Bytes(), nil
}

// Digest returns the raw hash of the block.
func (b Block) Digest() ([signature.HashLength]byte, error) {
	data, err := b.Serialize()
	if err != nil {
		return [signature.HashLength]byte{}, err
	}

	return signature.Digest(data), nil
}

// Hash returns the unique hash for the block.
func (b Block) Hash() (string, error) {
	h, err := b.Digest()
	if err != nil {
		return "", err
	}

	return signature.BytesToHash(h[:]), nil
}

// TemplateHash returns the hash of the block before mining, with a zero nonce
// and no miners. Every member of a pool can derive it from the proposal.
func (b Block) TemplateHash() (string, error) {
	t := Block{
		PreviousHash:      b.PreviousHash,
		MerkleRoot:        b.MerkleRoot,
		AssemblyTimestamp: b.AssemblyTimestamp,
	}

	return t.Hash()
}

// IsMined reports whether a nonce has been found for the block.
func (b Block) IsMined() bool {
	return b.MinedTimestamp != nil
}

// ValidateMerkle rebuilds the tree from the attached transactions and
// checks it produces the block's merkle root. A block that travels without
// its transactions has nothing to check.
func (b Block) ValidateMerkle() error {
	if len(b.Transactions) == 0 {
		return nil
	}

	for _, tx := range b.Transactions {
		if err := tx.Validate(); err != nil {
			return err
		}
	}

	tree, err := merkle.NewTree(b.Transactions)
	if err != nil {
		return err
	}

	if tree.RootHex() != b.MerkleRoot {
		return fmt.Errorf("%w: got %s, exp %s", ErrMerkleMismatch, tree.RootHex(), b.MerkleRoot)
	}

	return nil
}

// Introduction returns the fields peers need to reproduce the template.
func (b Block) Introduction() BlockIntroduction {
	return BlockIntroduction{
		PreviousHash:      b.PreviousHash,
		MerkleRoot:        b.MerkleRoot,
		AssemblyTimestamp: b.AssemblyTimestamp,
	}
}

// =============================================================================

// BlockIntroduction is the part of a template sent to a peer when it is
// invited into a mining pool.
type BlockIntroduction struct {
	PreviousHash      string    `json:"previousHash" validate:"required,len=64,hexadecimal"`
	MerkleRoot        string    `json:"merkleRoot" validate:"required,len=64,hexadecimal"`
	AssemblyTimestamp time.Time `json:"assemblyTimestamp" validate:"required"`
}

// Block converts the introduction back into an unmined template.
func (bi BlockIntroduction) Block() Block {
	return Block{
		PreviousHash:      bi.PreviousHash,
		MerkleRoot:        bi.MerkleRoot,
		MinerKeys:         []string{},
		AssemblyTimestamp: bi.AssemblyTimestamp.UTC().Truncate(time.Second),
		Nonce:             big.NewInt(0),
	}
}

// =============================================================================

// BlockFS represents what is written to storage for a block.
type BlockFS struct {
	Hash  string `json:"hash"`
	Block Block  `json:"block"`
}

// NewBlockFS constructs the value to serialize to storage.
func NewBlockFS(block Block) (BlockFS, error) {
	hash, err := block.Hash()
	if err != nil {
		return BlockFS{}, err
	}

	bfs := BlockFS{
		Hash:  hash,
		Block: block,
	}

	return bfs, nil
}

// ToBlock converts a BlockFS into a Block, checking the recorded hash still
// matches the block contents.
func ToBlock(blockFS BlockFS) (Block, error) {
	hash, err := blockFS.Block.Hash()
	if err != nil {
		return Block{}, err
	}

	if hash != blockFS.Hash {
		return Block{}, fmt.Errorf("stored hash %s does not match block hash %s", blockFS.Hash, hash)
	}

	return blockFS.Block, nil
}

// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkel tree for validation
// support for the blockchain. Nodes are paired in strict FIFO order, level
// after level, so a surplus node at the end of one level is paired with the
// first parent produced from the next.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
)

// ErrEmptyLeafSet is returned when a tree is requested for no values.
var ErrEmptyLeafSet = errors.New("cannot construct tree with no leafs")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	var defaultHashStrategy = sha256.New

	t := Tree[T]{
		hashStrategy: defaultHashStrategy,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return ErrEmptyLeafSet
	}

	leafs := make([]*Node[T], 0, len(values))
	for _, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return fmt.Errorf("hashing leaf: %w", err)
		}

		leafs = append(leafs, &Node[T]{
			Hash:  hash,
			Value: value,
			leaf:  true,
			Tree:  t,
		})
	}

	root, err := t.build(leafs)
	if err != nil {
		return err
	}

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Rebuild is a helper function that will rebuild the tree reusing only the
// data that it currently holds in the leaves.
func (t *Tree[T]) Rebuild() error {
	return t.Generate(t.Values())
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. An order of 0 means the proof
// hash comes first in the concatenation, 1 means it comes second.
//
//	bytes = concat(proof[0], dataHash)  -- Order 0 says proof comes first.
//	h1 = sha256.Sum256(bytes)
//	bytes = concat(h1, proof[1])        -- Order 1 says proof comes second.
//	root = sha256.Sum256(bytes)
func (t *Tree[T]) Proof(data T) ([][]byte, []int64, error) {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		var merkleProof [][]byte
		var order []int64

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			left, right := parent.Children[0], parent.Children[1]
			if left == node {
				merkleProof = append(merkleProof, right.Hash)
				order = append(order, 1)
			} else {
				merkleProof = append(merkleProof, left.Hash)
				order = append(order, 0)
			}
			node = parent
		}

		return merkleProof, order, nil
	}

	return nil, nil, errors.New("unable to find data in tree")
}

// Verify validates the hashes at each level of the tree and returns an
// error if the resulting hash at the root of the tree does not match the
// recorded root hash.
func (t *Tree[T]) Verify() error {
	calculatedMerkleRoot, err := t.Root.verify()
	if err != nil {
		return err
	}

	if !bytes.Equal(t.MerkleRoot, calculatedMerkleRoot) {
		return errors.New("root hash invalid")
	}

	return nil
}

// VerifyData indicates whether a given piece of data is in the tree and if the
// hashes are valid for that data along its path to the root.
func (t *Tree[T]) VerifyData(data T) error {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			calculated, err := parent.CalculateHash()
			if err != nil {
				return err
			}

			if !bytes.Equal(calculated, parent.Hash) {
				return errors.New("merkle root is not equivalent to the merkle root calculated on the critical path")
			}
		}

		return nil
	}

	return errors.New("unable to find data in tree")
}

// Values returns the values stored in the leafs in their original order.
func (t *Tree[T]) Values() []T {
	values := make([]T, 0, len(t.Leafs))
	for _, leaf := range t.Leafs {
		values = append(values, leaf.Value)
	}

	return values
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hex.EncodeToString(t.MerkleRoot)
}

// String returns a string representation of the tree. Only leaf nodes are
// included in the output.
func (t *Tree[T]) String() string {
	s := ""

	for _, l := range t.Leafs {
		s += fmt.Sprint(l)
		s += "\n"
	}

	return s
}

// MarshalText implements the TextMarshaler interface and produces a panic
// if anyone tries to marshal the Merkle tree. I don't want this to happen.
// Use the Values function to return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	panic("do not marshal the merkle tree, use Values")
}

// build pairs nodes from a FIFO queue until a single root remains. The order
// nodes leave the queue is what makes the root reproducible.
func (t *Tree[T]) build(leafs []*Node[T]) (*Node[T], error) {
	queue := make([]*Node[T], len(leafs))
	copy(queue, leafs)

	for len(queue) > 1 {
		left, right := queue[0], queue[1]
		queue = queue[2:]

		n := Node[T]{
			Children: []*Node[T]{left, right},
			Tree:     t,
		}

		hash, err := n.CalculateHash()
		if err != nil {
			return nil, err
		}
		n.Hash = hash

		left.Parent = &n
		right.Parent = &n

		queue = append(queue, &n)
	}

	return queue[0], nil
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to its
// immediate relationships, a hash, the data if it is a leaf, and other metadata.
// An internal node always has exactly two children.
type Node[T Hashable[T]] struct {
	Tree     *Tree[T]
	Parent   *Node[T]
	Children []*Node[T]
	Hash     []byte
	Value    T
	leaf     bool
}

// IsLeaf reports whether the node holds a value.
func (n *Node[T]) IsLeaf() bool {
	return n.leaf
}

// verify walks down the tree until hitting a leaf, calculating the hash at
// each level and returning the resulting hash of the node.
func (n *Node[T]) verify() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	leftBytes, err := n.Children[0].verify()
	if err != nil {
		return nil, err
	}

	rightBytes, err := n.Children[1].verify()
	if err != nil {
		return nil, err
	}

	return n.Tree.join(leftBytes, rightBytes)
}

// CalculateHash is a helper function that calculates the hash of the node.
func (n *Node[T]) CalculateHash() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	return n.Tree.join(n.Children[0].Hash, n.Children[1].Hash)
}

// String returns a string representation of the node.
func (n *Node[T]) String() string {
	return fmt.Sprintf("%t %x %v", n.leaf, n.Hash, n.Value)
}

// join hashes the concatenation of the left and right hashes.
func (t *Tree[T]) join(left []byte, right []byte) ([]byte, error) {
	data := make([]byte, 0, len(left)+len(right))
	data = append(data, left...)
	data = append(data, right...)

	h := t.hashStrategy()
	if _, err := h.Write(data); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// =============================================================================

// HashLeaf is a leaf that is nothing more than an already computed hex
// encoded hash. It allows a tree to be built when no value is attached.
type HashLeaf string

// Hash decodes the hex hash.
func (hl HashLeaf) Hash() ([]byte, error) {
	return hex.DecodeString(string(hl))
}

// Equals tests for equality of two leafs.
func (hl HashLeaf) Equals(other HashLeaf) bool {
	return hl == other
}

// FromHashes constructs a tree from a set of hex encoded leaf hashes.
func FromHashes(hashes []string) (*Tree[HashLeaf], error) {
	leafs := make([]HashLeaf, len(hashes))
	for i, h := range hashes {
		leafs[i] = HashLeaf(h)
	}

	return NewTree(leafs)
}

package database

import "errors"

// ErrNotFound is returned when a block is not held by storage.
var ErrNotFound = errors.New("block not found")

// Storage interface represents the behavior required to be implemented by any
// package providing support for reading and writing blocks.
type Storage interface {
	Write(blockFS BlockFS) error
	GetBlock(hash string) (BlockFS, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks. The order blocks are
// returned in is up to the implementation.
type Iterator interface {
	Next() (BlockFS, error)
	Done() bool
}

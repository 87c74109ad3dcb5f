package miner

import (
	"encoding/binary"
	"math/big"

	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// Shard describes the arithmetic progression of nonces one worker visits.
type Shard struct {
	Offset *big.Int
	Stride *big.Int
}

// Shards partitions the progression starting at offset with the specified
// stride across the threads. Thread t starts at offset + t*stride and steps
// by stride*threads, so together the threads visit exactly the nonces of
// the original progression with no overlap.
func Shards(offset *big.Int, stride *big.Int, threads int) []Shard {
	step := new(big.Int).Mul(stride, big.NewInt(int64(threads)))

	shards := make([]Shard, threads)
	for t := range shards {
		start := new(big.Int).Mul(stride, big.NewInt(int64(t)))
		start.Add(start, offset)

		shards[t] = Shard{
			Offset: start,
			Stride: new(big.Int).Set(step),
		}
	}

	return shards
}

// Nonce returns the i-th nonce visited by the shard.
func (s Shard) Nonce(i uint64) *big.Int {
	n := new(big.Int).SetUint64(i)
	n.Mul(n, s.Stride)
	return n.Add(n, s.Offset)
}

// IsSolved checks the hash satisfies the difficulty. The first 8 bytes of
// the hash are read as a little endian uint64 and the low difficulty bits
// must all be zero. A difficulty of 64 or more tests the whole prefix.
func IsSolved(hash [signature.HashLength]byte, difficulty uint) bool {
	prefix := binary.LittleEndian.Uint64(hash[:8])

	if difficulty >= 64 {
		return prefix == 0
	}

	mask := uint64(1)<<difficulty - 1
	return prefix&mask == 0
}

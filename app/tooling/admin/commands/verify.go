package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/miner"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// Verify checks every stored block against its recorded hash, its merkle
// root and the difficulty. It returns the number of blocks that failed.
// The genesis block is not held to the difficulty.
func Verify(w io.Writer, strg database.Storage, difficulty uint) (int, error) {
	var bad int

	iter := strg.ForEach()
	for blockFS, err := iter.Next(); !iter.Done(); blockFS, err = iter.Next() {
		if err != nil {
			return bad, err
		}

		if err := verifyBlock(blockFS, difficulty); err != nil {
			fmt.Fprintf(w, "FAIL %s: %s\n", blockFS.Hash, err)
			bad++
			continue
		}

		fmt.Fprintf(w, "ok   %s\n", blockFS.Hash)
	}

	return bad, nil
}

func verifyBlock(blockFS database.BlockFS, difficulty uint) error {
	block, err := database.ToBlock(blockFS)
	if err != nil {
		return err
	}

	if len(block.Transactions) > 0 {
		if err := block.ValidateMerkle(); err != nil {
			return err
		}
	}

	if block.PreviousHash == signature.ZeroHash {
		return nil
	}

	digest, err := block.Digest()
	if err != nil {
		return err
	}

	if !miner.IsSolved(digest, difficulty) {
		return fmt.Errorf("does not meet difficulty %d", difficulty)
	}

	return nil
}

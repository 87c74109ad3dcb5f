// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/ardanlabs/poolchain/foundation/blockchain/chain"
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// Blocks prints the longest chain from the tip back to genesis.
func Blocks(w io.Writer, strg database.Storage) error {
	idx, err := chain.New(strg)
	if err != nil {
		return err
	}

	block, hops, err := idx.FindTip()
	if err != nil {
		return err
	}

	for {
		hash, err := block.Hash()
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%6d %s txs[%d] miners[%s]\n", hops, hash, len(block.Transactions), strings.Join(block.MinerKeys, ","))

		if block.PreviousHash == signature.ZeroHash {
			return nil
		}

		if block, err = idx.FindByHash(block.PreviousHash); err != nil {
			return err
		}
		hops--
	}
}

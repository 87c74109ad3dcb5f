package memory_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ardanlabs/poolchain/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_ReadWrite(t *testing.T) {
	t.Log("Given the need to store blocks in memory.")
	{
		strg, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the storage: %v", failed, err)
		}
		defer strg.Close()

		var hashes []string
		prev := signature.ZeroHash
		for i := 0; i < 3; i++ {
			b, err := database.NewBlock(signature.DigestHex([]byte{byte(i)}), prev)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to construct a block: %v", failed, err)
			}

			bfs, err := database.NewBlockFS(b)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to hash the block: %v", failed, err)
			}

			if err := strg.Write(bfs); err != nil {
				t.Fatalf("\t%s\tShould be able to write the block: %v", failed, err)
			}

			hashes = append(hashes, bfs.Hash)
			prev = bfs.Hash
		}
		t.Logf("\t%s\tShould be able to write the blocks.", success)

		bfs, err := strg.GetBlock(hashes[1])
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read a block back: %v", failed, err)
		}
		if _, err := database.ToBlock(bfs); err != nil {
			t.Fatalf("\t%s\tShould get back a block that matches its hash: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to read a block back.", success)

		var count int
		iter := strg.ForEach()
		for bfs, err := iter.Next(); !iter.Done(); bfs, err = iter.Next() {
			if err != nil {
				t.Fatalf("\t%s\tShould be able to iterate: %v", failed, err)
			}
			if bfs.Hash != hashes[count] {
				t.Fatalf("\t%s\tShould iterate in write order.", failed)
			}
			count++
		}
		if count != 3 {
			t.Fatalf("\t%s\tShould iterate over 3 blocks, got %d.", failed, count)
		}
		t.Logf("\t%s\tShould iterate over every block in write order.", success)

		if err := strg.Reset(); err != nil {
			t.Fatalf("\t%s\tShould be able to reset: %v", failed, err)
		}
		if _, err := strg.GetBlock(hashes[0]); !errors.Is(err, database.ErrNotFound) {
			t.Fatalf("\t%s\tShould get ErrNotFound after a reset: %v", failed, err)
		}
		t.Logf("\t%s\tShould get ErrNotFound after a reset.", success)
	}
}

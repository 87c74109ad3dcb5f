package commands_test

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/poolchain/app/tooling/admin/commands"
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ardanlabs/poolchain/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func write(t *testing.T, strg *memory.Memory, block database.Block) string {
	t.Helper()

	blockFS, err := database.NewBlockFS(block)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to hash the block : %s", failed, err)
	}

	if err := strg.Write(blockFS); err != nil {
		t.Fatalf("\t%s\tShould be able to write the block : %s", failed, err)
	}

	return blockFS.Hash
}

func Test_Verify(t *testing.T) {
	strg, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open storage : %s", failed, err)
	}

	genesis := database.Block{
		PreviousHash:      signature.ZeroHash,
		MerkleRoot:        signature.ZeroHash,
		MinerKeys:         []string{"0x0a"},
		AssemblyTimestamp: time.Date(2024, 5, 22, 23, 0, 40, 0, time.UTC),
		Nonce:             big.NewInt(0),
	}
	genesisHash := write(t, strg, genesis)

	mined := time.Date(2024, 5, 22, 23, 1, 0, 0, time.UTC)
	child := database.Block{
		PreviousHash:      genesisHash,
		MerkleRoot:        signature.ZeroHash,
		MinerKeys:         []string{"0x0a"},
		AssemblyTimestamp: mined,
		MinedTimestamp:    &mined,
		Nonce:             big.NewInt(7),
	}
	write(t, strg, child)

	t.Log("Given the need to verify a block store.")
	{
		var out bytes.Buffer
		bad, err := commands.Verify(&out, strg, 0)
		if err != nil || bad != 0 {
			t.Fatalf("\t%s\tShould pass every block with no difficulty : bad[%d] err[%v]\n%s", failed, bad, err, out.String())
		}
		t.Logf("\t%s\tShould pass every block with no difficulty.", success)

		out.Reset()
		bad, err = commands.Verify(&out, strg, 64)
		if err != nil || bad != 1 {
			t.Fatalf("\t%s\tShould fail only the mined block at full difficulty : bad[%d] err[%v]", failed, bad, err)
		}
		t.Logf("\t%s\tShould not hold the genesis block to the difficulty.", success)

		tampered, _ := database.NewBlockFS(child)
		tampered.Hash = strings.Repeat("ee", 32)
		if err := strg.Write(tampered); err != nil {
			t.Fatalf("\t%s\tShould be able to write the block : %s", failed, err)
		}

		out.Reset()
		bad, _ = commands.Verify(&out, strg, 0)
		if bad != 1 || !strings.Contains(out.String(), "FAIL "+tampered.Hash) {
			t.Fatalf("\t%s\tShould report the tampered block : bad[%d]\n%s", failed, bad, out.String())
		}
		t.Logf("\t%s\tShould report the tampered block.", success)
	}
}

func Test_Blocks(t *testing.T) {
	strg, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open storage : %s", err)
	}

	genesis := database.Block{
		PreviousHash:      signature.ZeroHash,
		MerkleRoot:        signature.ZeroHash,
		MinerKeys:         []string{"0x0a"},
		AssemblyTimestamp: time.Date(2024, 5, 22, 23, 0, 40, 0, time.UTC),
		Nonce:             big.NewInt(0),
	}
	hash := write(t, strg, genesis)

	var out bytes.Buffer
	if err := commands.Blocks(&out, strg); err != nil {
		t.Fatalf("Should be able to list the chain : %s", err)
	}

	if !strings.Contains(out.String(), hash) {
		t.Fatalf("Should list the genesis block, got %q", out.String())
	}
}

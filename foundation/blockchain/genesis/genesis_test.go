package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/poolchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Load(t *testing.T) {
	t.Log("Given the need to load the genesis file.")
	{
		gen, err := genesis.Load(filepath.Join("..", "..", "..", genesis.DefaultPath))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the genesis file: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the genesis file.", success)

		if gen.Block.PreviousHash != signature.ZeroHash || len(gen.Block.MinerKeys) != 1 {
			t.Fatalf("\t%s\tShould get back the genesis block.", failed)
		}
		t.Logf("\t%s\tShould get back the genesis block.", success)

		if gen.MiningReward.String() != "50.00000000" {
			t.Fatalf("\t%s\tShould get back the mining reward, got %s.", failed, gen.MiningReward)
		}
		t.Logf("\t%s\tShould get back the mining reward.", success)
	}
}

func Test_Invalid(t *testing.T) {
	type table struct {
		name    string
		content string
	}

	tt := []table{
		{name: "json", content: `{`},
		{name: "trans", content: `{"trans_per_block": 0, "difficulty": 8, "block": {"previousHash": "` + signature.ZeroHash + `", "merkleRoot": "` + signature.ZeroHash + `", "nonce": 0}}`},
		{name: "difficulty", content: `{"trans_per_block": 3, "difficulty": 0, "block": {"previousHash": "` + signature.ZeroHash + `", "merkleRoot": "` + signature.ZeroHash + `", "nonce": 0}}`},
		{name: "parent", content: `{"trans_per_block": 3, "difficulty": 8, "block": {"previousHash": "` + signature.ZeroHash[1:] + `1", "merkleRoot": "` + signature.ZeroHash + `", "nonce": 0}}`},
	}

	t.Log("Given the need to reject bad genesis files.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "genesis.json")
				if err := os.WriteFile(path, []byte(tst.content), 0600); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write the file: %v", failed, testID, err)
				}

				if _, err := genesis.Load(path); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould reject the genesis file.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the genesis file.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

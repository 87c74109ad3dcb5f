package worker_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
	"github.com/ardanlabs/poolchain/foundation/blockchain/pool"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ardanlabs/poolchain/foundation/blockchain/state"
	"github.com/ardanlabs/poolchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/poolchain/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const key = "0x04a4324b3aa2ee1e8a2c21b5a32a8cb1b996ddcc14d1f3bf9bf1f4db6c6d2a4c05ec5fd02a9c7e1bd0f0e8c08f0ec1b31fcaa1b76e42ab7e57f1dbc9a3f1920f34"

func Test_BuildOnSignal(t *testing.T) {
	t.Log("Given the need to build a block once enough transactions are pending.")
	{
		strg, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open storage: %v", failed, err)
		}

		gen := genesis.Genesis{
			TransPerBlock: 2,
			Difficulty:    4,
			MiningReward:  database.Amount(100),
			Block: database.Block{
				PreviousHash:      signature.ZeroHash,
				MerkleRoot:        signature.ZeroHash,
				MinerKeys:         []string{key},
				AssemblyTimestamp: time.Date(2024, 5, 22, 23, 0, 40, 0, time.UTC),
				Nonce:             big.NewInt(0),
			},
		}

		// The peer is unreachable so the round falls back to solo mining and
		// the peer operation removes it.
		peers := peer.NewPeerSet()
		peers.Add(peer.Peer{Host: "127.0.0.1:1", PublicKey: key, AcceptsPoolRequests: true})

		st, err := state.New(state.Config{
			PublicKey:  key,
			Host:       "localhost:9080",
			Storage:    strg,
			Genesis:    gen,
			KnownPeers: peers,
			Client:     pool.NewClient(pool.ClientConfig{Timeout: 100 * time.Millisecond}),
			Threads:    1,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
		}
		defer st.Shutdown()

		genesisHash := st.QueryStatus().TipHash

		worker.Run(st, worker.Config{
			BuildInterval: time.Hour,
			SweepInterval: 50 * time.Millisecond,
			PeerInterval:  50 * time.Millisecond,
		})
		t.Logf("\t%s\tShould be able to start the worker.", success)

		for _, receiver := range []string{"0x01", "0x02"} {
			tx := database.NewTransaction(key, []database.Output{}, []database.Output{{Amount: 1, ReceiverKey: receiver}})
			if err := st.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tShould be able to submit a transaction: %v", failed, err)
			}
		}

		deadline := time.Now().Add(10 * time.Second)
		for {
			tip, _, err := st.QueryTip()
			if err == nil && tip.PreviousHash == genesisHash {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould mine a block after the build signal.", failed)
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Logf("\t%s\tShould mine a block after the build signal.", success)

		deadline = time.Now().Add(5 * time.Second)
		for len(st.RetrieveKnownPeers()) != 0 {
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould remove the unreachable peer.", failed)
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Logf("\t%s\tShould remove the unreachable peer.", success)
	}
}

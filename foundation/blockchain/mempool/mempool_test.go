package mempool_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func tran(t *testing.T, receiver string, amount database.Amount, ts time.Time) database.Transaction {
	tx := database.Transaction{
		Inputs:    []database.Output{},
		Outputs:   []database.Output{{Amount: amount, ReceiverKey: receiver}},
		SenderKey: "0x01",
		Timestamp: ts,
	}
	tx.ID = tx.ComputeHash()

	if err := tx.Validate(); err != nil {
		t.Fatalf("\t%s\tShould be able to construct a transaction: %v", failed, err)
	}

	return tx
}

func TestCRUD(t *testing.T) {
	now := time.Date(2024, 5, 22, 23, 0, 40, 0, time.UTC)

	type table struct {
		name string
		txs  []database.Transaction
		best []int
	}

	tt := []table{
		{
			name: "basic",
			txs: []database.Transaction{
				tran(t, "0x02", 10, now.Add(3*time.Second)),
				tran(t, "0x03", 50, now.Add(time.Second)),
				tran(t, "0x04", 100, now.Add(2*time.Second)),
				tran(t, "0x05", 10, now),
			},
			best: []int{3, 1, 2},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					for _, tx := range tst.txs {
						if _, err := mp.Upsert(tx); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add new transaction: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould be able to add new transaction: %s", success, testID, tx.ID[:8])
					}

					if _, err := mp.Upsert(tst.txs[0]); err != nil || mp.Count() != len(tst.txs) {
						t.Fatalf("\t%s\tTest %d:\tShould replace a known transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould replace a known transaction.", success, testID)

					pulled := mp.PullUnverified(len(tst.best))
					if len(pulled) != len(tst.best) {
						t.Fatalf("\t%s\tTest %d:\tShould pull %d transactions, got %d.", failed, testID, len(tst.best), len(pulled))
					}
					for i, tx := range pulled {
						exp := tst.txs[tst.best[i]]
						if tx.ID != exp.ID {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx.ID)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, exp.ID)
							t.Fatalf("\t%s\tTest %d:\tShould pull the oldest transactions first.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould pull the oldest transactions first.", success, testID)

					if mp.Count() != len(tst.txs) {
						t.Fatalf("\t%s\tTest %d:\tShould keep pulled transactions in the pool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould keep pulled transactions in the pool.", success, testID)

					mp.Remove(pulled[:2])
					if mp.Count() != len(tst.txs)-2 || mp.Contains(pulled[0].ID) {
						t.Fatalf("\t%s\tTest %d:\tShould be able to remove mined transactions.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to remove mined transactions.", success, testID)

					mp.Delete(pulled[2])
					if mp.Count() != len(tst.txs)-3 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to delete a transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to delete a transaction.", success, testID)

					mp.Truncate()
					if len(mp.Copy()) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

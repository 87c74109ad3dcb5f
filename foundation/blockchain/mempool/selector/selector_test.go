package selector_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func tran(id string, amount database.Amount, ts time.Time) database.Transaction {
	return database.Transaction{
		ID:        id,
		Outputs:   []database.Output{{Amount: amount, ReceiverKey: "0x01"}},
		Timestamp: ts,
	}
}

func TestSelect(t *testing.T) {
	now := time.Date(2024, 5, 22, 23, 0, 40, 0, time.UTC)

	type table struct {
		name     string
		strategy string
		txs      []database.Transaction
		howMany  int
		best     []string
	}

	tt := []table{
		{
			name:     "oldest",
			strategy: selector.StrategyOldest,
			txs: []database.Transaction{
				tran("c", 1, now.Add(2*time.Second)),
				tran("a", 5, now),
				tran("b", 3, now.Add(time.Second)),
			},
			howMany: 2,
			best:    []string{"a", "b"},
		},
		{
			name:     "oldest-ties",
			strategy: selector.StrategyOldest,
			txs: []database.Transaction{
				tran("b", 1, now),
				tran("a", 1, now),
			},
			howMany: -1,
			best:    []string{"a", "b"},
		},
		{
			name:     "value",
			strategy: selector.StrategyValue,
			txs: []database.Transaction{
				tran("a", 1, now),
				tran("b", 9, now.Add(time.Second)),
				tran("c", 9, now.Add(2*time.Second)),
				tran("d", 4, now.Add(3*time.Second)),
			},
			howMany: 3,
			best:    []string{"b", "c", "d"},
		},
	}

	t.Log("Given the need to select transactions for the next block.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen using the %s strategy.", testID, tst.strategy)
			{
				f := func(t *testing.T) {
					fn, err := selector.Retrieve(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the strategy: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to retrieve the strategy.", success, testID)

					got := fn(tst.txs, tst.howMany)
					if len(got) != len(tst.best) {
						t.Fatalf("\t%s\tTest %d:\tShould get back %d transactions, got %d.", failed, testID, len(tst.best), len(got))
					}

					for i, tx := range got {
						if tx.ID != tst.best[i] {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx.ID)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.best[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back the right order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right order.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}

	if _, err := selector.Retrieve("bogus"); err == nil {
		t.Fatalf("\t%s\tShould not find an unknown strategy.", failed)
	}
}

package state

import (
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
)

// SubmitTransaction adds a new transaction to the mempool. Once enough
// transactions are pending the worker is told to build a block.
func (s *State) SubmitTransaction(tx database.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	n, err := s.mempool.Upsert(tx)
	if err != nil {
		return err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: mempool[%d]", tx.ID, n)

	if n >= s.transPerBlock && s.Worker != nil {
		s.Worker.SignalBuild()
	}

	return nil
}

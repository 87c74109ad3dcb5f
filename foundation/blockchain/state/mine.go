package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/miner"
	"github.com/ardanlabs/poolchain/foundation/blockchain/pool"
)

// BuildCandidate assembles a candidate block from the oldest unverified
// transactions on top of the current tip and starts a pool round for it.
func (s *State) BuildCandidate(ctx context.Context) (pool.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" {
		if job, exists := s.miner.Lookup(s.current); exists && job.State() == miner.Running && !job.Cancelled() {
			return pool.Round{}, fmt.Errorf("%w: %s", ErrBuildInProgress, s.current)
		}
	}

	trans := s.mempool.PullUnverified(s.transPerBlock)
	if len(trans) < s.transPerBlock {
		return pool.Round{}, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughTransactions, len(trans), s.transPerBlock)
	}

	s.evHandler("state: BuildCandidate: started: trans[%d]", len(trans))
	defer s.evHandler("state: BuildCandidate: completed")

	tipHash, hops := s.chain.TipHash()

	block, err := database.NewBlockFromTransactions(trans, tipHash)
	if err != nil {
		return pool.Round{}, fmt.Errorf("assemble: %w", err)
	}

	s.evHandler("state: BuildCandidate: tip[%s]: hops[%d]: root[%s]", tipHash, hops, block.MerkleRoot)

	round, err := s.pool.Mine(ctx, block)
	if err != nil {
		return pool.Round{}, err
	}
	s.current = round.Key

	return round, nil
}

// =============================================================================

// minedBlock is called by the miner when a local job finds a solution.
func (s *State) minedBlock(key string, block database.Block) {
	s.evHandler("state: minedBlock: started: job[%s]", key)
	defer s.evHandler("state: minedBlock: completed: job[%s]", key)

	ctx, cancel := netContext()
	defer cancel()

	// A block found after the tip moved is of no use.
	if err := s.chain.ValidateExtendsTip(block); err != nil {
		s.evHandler("state: minedBlock: job[%s]: WARNING: %s", key, err)
		s.pool.Forget(key)
		return
	}

	hash, err := s.saveBlock(ctx, block)
	if err != nil {
		s.evHandler("state: minedBlock: job[%s]: ERROR: %s", key, err)
		s.pool.Forget(key)
		return
	}

	s.evHandler("state: minedBlock: MINED: block[%s]: nonce[%s]: miners[%d]", hash, block.Nonce, len(block.MinerKeys))

	// Tell the rest of the pool to stop searching.
	s.pool.Abort(ctx, key)

	// Credit the miners of the block in the next block.
	if len(block.MinerKeys) > 0 {
		coinbase, err := database.MakeCoinbaseTransaction(block.MinerKeys, s.genesis.MiningReward)
		switch {
		case err != nil:
			s.evHandler("state: minedBlock: coinbase: ERROR: %s", err)
		default:
			s.mempool.Upsert(coinbase)
			s.evHandler("state: minedBlock: coinbase[%s]: share[%s]", coinbase.ID, coinbase.Outputs[0].Amount)
		}
	}

	if s.Worker != nil {
		s.Worker.SignalShareBlock(block)
	}
}

// failedJob is called by the miner when every worker of a job failed.
func (s *State) failedJob(key string, err error) {
	s.evHandler("state: failedJob: job[%s]: ERROR: %s", key, err)

	ctx, cancel := netContext()
	defer cancel()

	s.pool.Abort(ctx, key)
}

// saveBlock writes the block to the chain, removes its transactions from
// the mempool and stops the jobs the new tip made stale.
func (s *State) saveBlock(ctx context.Context, block database.Block) (string, error) {
	hash, err := s.chain.Add(block)
	if err != nil {
		return "", err
	}

	s.seen.Add(hash, struct{}{})
	s.mempool.Remove(block.Transactions)

	s.abortStale(ctx, hash)

	return hash, nil
}

// abortStale stops every running job, and its pool round, whose template
// does not extend the tip.
func (s *State) abortStale(ctx context.Context, tipHash string) {
	for _, job := range s.miner.Jobs() {
		if job.Cancelled() || job.Template.PreviousHash == tipHash {
			continue
		}

		s.evHandler("state: abortStale: job[%s]: parent[%s]: tip moved", job.Key, job.Template.PreviousHash)
		s.abortTemplate(ctx, job.Key)
	}
}

// isDuplicate reports whether the block hash was already processed.
func (s *State) isDuplicate(hash string) bool {
	return s.seen.Contains(hash) || s.chain.Contains(hash)
}

// abortTemplate stops any local job and pool round for the template.
func (s *State) abortTemplate(ctx context.Context, key string) {
	if s.miner.Abort(key) {
		s.evHandler("state: abortTemplate: job[%s]: aborted", key)
	}

	s.pool.Abort(ctx, key)
}

// ignoreDuplicateJob treats a job that is already running as success.
func ignoreDuplicateJob(err error) error {
	if errors.Is(err, miner.ErrDuplicateJob) {
		return nil
	}
	return err
}

package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/miner"
)

// ProcessMinedBlock takes a block mined by a peer and, if it's valid, adds
// it to the chain and stops mining the same template locally.
func (s *State) ProcessMinedBlock(ctx context.Context, block database.Block) error {
	if !block.IsMined() {
		return fmt.Errorf("%w: block is not mined", ErrInvalidBlock)
	}

	hash, err := block.Hash()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBlock, err)
	}

	if s.isDuplicate(hash) {
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, hash)
	}

	s.evHandler("state: ProcessMinedBlock: started: block[%s]", hash)
	defer s.evHandler("state: ProcessMinedBlock: completed: block[%s]", hash)

	if err := s.chain.ValidateExtendsTip(block); err != nil {
		return err
	}

	digest, err := block.Digest()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBlock, err)
	}

	if !miner.IsSolved(digest, s.difficulty) {
		return fmt.Errorf("%w: block %s does not meet difficulty %d", ErrInvalidBlock, hash, s.difficulty)
	}

	key, err := block.TemplateHash()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBlock, err)
	}

	switch {
	case len(block.Transactions) > 0:
		if err := block.ValidateMerkle(); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidBlock, err)
		}

	default:

		// A pool member mines without the leaves. The coordinator of the
		// round still has them.
		if round, exists := s.pool.Round(key); exists {
			block.Transactions = round.Template.Transactions
		}
	}

	if _, err := s.saveBlock(ctx, block); err != nil {
		return err
	}

	s.abortTemplate(ctx, key)

	return nil
}

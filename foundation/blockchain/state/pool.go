package state

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/poolchain/foundation/blockchain/chain"
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/pool"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ProcessProposal decides if the node takes part in mining the proposed
// template. An accepted template is cached until the initiation arrives.
func (s *State) ProcessProposal(proposal pool.Proposal) error {
	if !s.acceptsPool {
		return ErrPoolDisabled
	}

	if proposal.ExpectedPoolSize < 1 || proposal.ExpectedPoolSize > s.maxPool {
		return fmt.Errorf("%w: got %d, max %d", ErrInvalidPoolSize, proposal.ExpectedPoolSize, s.maxPool)
	}

	tipHash, _ := s.chain.TipHash()
	if proposal.Block.PreviousHash != tipHash {
		return fmt.Errorf("%w: tip %s, parent %s", chain.ErrStaleParent, tipHash, proposal.Block.PreviousHash)
	}

	template := proposal.Block.Block()

	key, err := template.TemplateHash()
	if err != nil {
		return err
	}

	s.templates.Add(key, template)

	s.evHandler("state: ProcessProposal: accepted: template[%s]: poolSize[%d]", key, proposal.ExpectedPoolSize)

	return nil
}

// ProcessInitiation starts mining the node's share of a proposed template.
// An initiation for a template already being mined is acknowledged.
func (s *State) ProcessInitiation(initiation pool.Initiation) error {
	v, exists := s.templates.Get(initiation.Hash)
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, initiation.Hash)
	}

	if len(initiation.Miners) == 0 {
		return ErrNoMiners
	}

	if initiation.Offset < 0 || initiation.Offset >= int64(len(initiation.Miners)) {
		return fmt.Errorf("%w: offset %d, miners %d", ErrInvalidOffset, initiation.Offset, len(initiation.Miners))
	}

	// The keys are hashed with the header.
	for _, key := range initiation.Miners {
		if _, err := hexutil.Decode(key); err != nil {
			return fmt.Errorf("miner key %q: %w: %s", key, signature.ErrInvalidKey, err)
		}
	}

	template := v.(database.Block).Clone()
	template.MinerKeys = append([]string{}, initiation.Miners...)

	offset := big.NewInt(initiation.Offset)
	stride := big.NewInt(int64(len(initiation.Miners)))

	if _, err := s.miner.Start(template, offset, stride); err != nil {
		return ignoreDuplicateJob(err)
	}

	s.evHandler("state: ProcessInitiation: started: template[%s]: offset[%s]: stride[%s]", initiation.Hash, offset, stride)

	return nil
}

// ProcessAbort stops mining the template. Unknown templates are ignored.
func (s *State) ProcessAbort(hash string) {
	if s.miner.Abort(hash) {
		s.evHandler("state: ProcessAbort: job[%s]: aborted", hash)
	}
}

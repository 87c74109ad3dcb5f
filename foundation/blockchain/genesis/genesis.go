// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// DefaultPath is where the genesis file lives relative to the working
// directory of the node.
const DefaultPath = "zblock/genesis.json"

// Genesis represents the genesis file.
type Genesis struct {
	Date            time.Time       `json:"date"`
	ChainID         uint16          `json:"chain_id"`          // The chain id represents an unique id for this running instance.
	TransPerBlock   int             `json:"trans_per_block"`   // The number of transactions batched into a block.
	Difficulty      uint            `json:"difficulty"`        // The number of low bits of the block hash that must be zero.
	MiningReward    database.Amount `json:"mining_reward"`     // Reward split between the miners of a block.
	MaxPoolRequests int             `json:"max_pool_requests"` // The most peers invited into a mining pool.
	Block           database.Block  `json:"block"`             // The first block of the chain.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	if path == "" {
		path = DefaultPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("genesis %s: %w", path, err)
	}

	return genesis, nil
}

// Validate checks the chain parameters are usable.
func (g Genesis) Validate() error {
	switch {
	case g.TransPerBlock <= 0:
		return errors.New("trans_per_block must be greater than zero")
	case g.Difficulty == 0:
		return errors.New("difficulty must be greater than zero")
	case g.MiningReward < 0:
		return errors.New("mining_reward must not be negative")
	case g.MaxPoolRequests < 0:
		return errors.New("max_pool_requests must not be negative")
	}

	if g.Block.PreviousHash != signature.ZeroHash {
		return errors.New("genesis block must not have a parent")
	}

	if g.Block.Nonce == nil {
		return errors.New("genesis block has no nonce")
	}

	if _, err := g.Block.Hash(); err != nil {
		return fmt.Errorf("genesis block: %w", err)
	}

	return nil
}

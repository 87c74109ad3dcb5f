// Package pool coordinates a nonce search shared with cooperating peers.
// A round proposes the template to peers, assigns every accepting peer a
// disjoint shard of the nonce space and mines the remaining shard locally.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/miner"
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
)

// ErrAlreadyMining is returned when a job already exists for the template.
var ErrAlreadyMining = errors.New("template is already being mined")

// PeerSource provides the peers that can be invited into a round.
type PeerSource interface {
	RankByHashRate(after *peer.Cursor, limit int) []peer.Peer
}

// Transport sends the pool protocol messages to a peer.
type Transport interface {
	Propose(ctx context.Context, pr peer.Peer, proposal Proposal) error
	Initiate(ctx context.Context, pr peer.Peer, initiation Initiation) error
	Abort(ctx context.Context, pr peer.Peer, hash string) error
}

// Starter starts the local share of a round.
type Starter interface {
	Start(template database.Block, offset *big.Int, stride *big.Int) (*miner.Job, error)
	Registered(key string) bool
}

// Config represents the collaborators a coordinator needs.
type Config struct {
	Peers           PeerSource
	Transport       Transport
	Miner           Starter
	PublicKey       string
	MaxPoolRequests int
	EvHandler       func(v string, args ...any)
}

// Round describes how the nonce space of one template was divided.
type Round struct {
	Key       string
	Template  database.Block
	Accepted  []peer.Peer
	Initiated []peer.Peer
	Miners    []string
	Offset    int64
	Stride    int64
	Fallback  bool
	Job       *miner.Job
}

// Coordinator runs pool mining rounds.
type Coordinator struct {
	peers      PeerSource
	transport  Transport
	miner      Starter
	publicKey  string
	maxRequest int
	evHandler  func(v string, args ...any)

	mu     sync.Mutex
	rounds map[string]Round
}

// New constructs a coordinator for running pool rounds.
func New(cfg Config) *Coordinator {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Coordinator{
		peers:      cfg.Peers,
		transport:  cfg.Transport,
		miner:      cfg.Miner,
		publicKey:  cfg.PublicKey,
		maxRequest: cfg.MaxPoolRequests,
		evHandler:  ev,
		rounds:     make(map[string]Round),
	}
}

// Mine runs a round for the template. Peer failures never fail the round,
// when no peer takes part the template is mined solo.
func (c *Coordinator) Mine(ctx context.Context, template database.Block) (Round, error) {
	key, err := template.TemplateHash()
	if err != nil {
		return Round{}, fmt.Errorf("template hash: %w", err)
	}

	if c.miner.Registered(key) {
		return Round{}, fmt.Errorf("%w: %s", ErrAlreadyMining, key)
	}

	c.evHandler("pool: Mine: started: template[%s]", key)
	defer c.evHandler("pool: Mine: completed: template[%s]", key)

	round := Round{
		Key:      key,
		Template: template.Clone(),
	}

	round.Accepted = c.propose(ctx, template)
	if len(round.Accepted) > 0 {
		round.Miners = make([]string, 0, len(round.Accepted)+1)
		for _, pr := range round.Accepted {
			round.Miners = append(round.Miners, pr.PublicKey)
		}
		round.Miners = append(round.Miners, c.publicKey)

		round.Initiated = c.initiate(ctx, key, round.Accepted, round.Miners)
	}

	switch {
	case len(round.Initiated) == 0:
		round.Fallback = true
		round.Miners = []string{c.publicKey}
		round.Offset = 0
		round.Stride = 1

		c.evHandler("pool: Mine: template[%s]: no peers took part, mining solo", key)

	default:
		round.Offset = int64(len(round.Accepted))
		round.Stride = int64(len(round.Miners))

		c.evHandler("pool: Mine: template[%s]: accepted[%d]: initiated[%d]: offset[%d]: stride[%d]", key, len(round.Accepted), len(round.Initiated), round.Offset, round.Stride)
	}

	block := template.Clone()
	block.MinerKeys = append([]string{}, round.Miners...)

	job, err := c.miner.Start(block, big.NewInt(round.Offset), big.NewInt(round.Stride))
	if err != nil {
		if !round.Fallback {
			c.abort(ctx, key, round.Initiated)
		}
		return Round{}, fmt.Errorf("start: %w", err)
	}
	round.Job = job

	c.mu.Lock()
	c.rounds[key] = round
	c.mu.Unlock()

	return round, nil
}

// Round returns the round recorded for the template hash.
func (c *Coordinator) Round(key string) (Round, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	round, exists := c.rounds[key]
	return round, exists
}

// Abort tells every initiated peer of the round to stop mining and forgets
// the round. It reports whether a round was recorded for the key.
func (c *Coordinator) Abort(ctx context.Context, key string) bool {
	c.mu.Lock()
	round, exists := c.rounds[key]
	delete(c.rounds, key)
	c.mu.Unlock()

	if !exists {
		return false
	}

	c.abort(ctx, key, round.Initiated)

	return true
}

// Forget drops the round without contacting any peer.
func (c *Coordinator) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.rounds, key)
}

// =============================================================================

// propose pages through the ranked peers until enough have accepted or no
// peers remain. Accepted peers are returned in rank order.
func (c *Coordinator) propose(ctx context.Context, template database.Block) []peer.Peer {
	if c.maxRequest <= 0 || c.peers == nil {
		return nil
	}

	proposal := Proposal{
		Block:            template.Introduction(),
		ExpectedPoolSize: c.maxRequest,
	}

	var accepted []peer.Peer
	var cursor *peer.Cursor

	for len(accepted) < c.maxRequest {
		if ctx.Err() != nil {
			break
		}

		page := c.peers.RankByHashRate(cursor, c.maxRequest-len(accepted))
		if len(page) == 0 {
			break
		}
		cursor = peer.After(page[len(page)-1])

		ok := make([]bool, len(page))

		var wg sync.WaitGroup
		wg.Add(len(page))

		for i, pr := range page {
			go func(i int, pr peer.Peer) {
				defer wg.Done()

				if pr.PublicKey == "" {
					c.evHandler("pool: propose: peer[%s]: no public key", pr.Host)
					return
				}

				if err := c.transport.Propose(ctx, pr, proposal); err != nil {
					c.evHandler("pool: propose: peer[%s]: rejected: %s", pr.Host, err)
					return
				}

				ok[i] = true
			}(i, pr)
		}

		wg.Wait()

		for i, pr := range page {
			if ok[i] {
				accepted = append(accepted, pr)
			}
		}
	}

	return accepted
}

// initiate sends each accepted peer its offset. Peers that fail are dropped
// and their shard goes unsearched.
func (c *Coordinator) initiate(ctx context.Context, key string, accepted []peer.Peer, miners []string) []peer.Peer {
	ok := make([]bool, len(accepted))

	var wg sync.WaitGroup
	wg.Add(len(accepted))

	for i, pr := range accepted {
		go func(i int, pr peer.Peer) {
			defer wg.Done()

			initiation := Initiation{
				Hash:   key,
				Miners: miners,
				Offset: int64(i),
			}

			if err := c.transport.Initiate(ctx, pr, initiation); err != nil {
				c.evHandler("pool: initiate: peer[%s]: offset[%d]: dropped: %s", pr.Host, i, err)
				return
			}

			ok[i] = true
		}(i, pr)
	}

	wg.Wait()

	var initiated []peer.Peer
	for i, pr := range accepted {
		if ok[i] {
			initiated = append(initiated, pr)
		}
	}

	return initiated
}

// abort sends the abort message to the peers.
func (c *Coordinator) abort(ctx context.Context, key string, peers []peer.Peer) {
	var wg sync.WaitGroup
	wg.Add(len(peers))

	for _, pr := range peers {
		go func(pr peer.Peer) {
			defer wg.Done()

			if err := c.transport.Abort(ctx, pr, key); err != nil {
				c.evHandler("pool: abort: peer[%s]: ERROR: %s", pr.Host, err)
			}
		}(pr)
	}

	wg.Wait()
}

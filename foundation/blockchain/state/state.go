// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/chain"
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/poolchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/poolchain/foundation/blockchain/miner"
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
	"github.com/ardanlabs/poolchain/foundation/blockchain/pool"
	lru "github.com/hashicorp/golang-lru"
)

// Set of errors returned by the core API.
var (
	ErrInvalidPoolSize       = errors.New("expected pool size is out of range")
	ErrPoolDisabled          = errors.New("node does not accept pool requests")
	ErrUnknownTemplate       = errors.New("template was never proposed")
	ErrNoMiners              = errors.New("initiation has no miners")
	ErrInvalidOffset         = errors.New("offset is out of range for the miners")
	ErrDuplicateBlock        = errors.New("block already known")
	ErrInvalidBlock          = errors.New("block is invalid")
	ErrNotEnoughTransactions = errors.New("not enough transactions to build a block")
	ErrBuildInProgress       = errors.New("candidate block already being mined")
)

// Default sizes of the caches kept by the node.
const (
	defaultTemplateCache = 128
	defaultSeenCache     = 1024
)

// netTimeout bounds the background network calls started by the state.
const netTimeout = 30 * time.Second

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for building blocks, peer updates, and block
// sharing.
type Worker interface {
	Shutdown()
	SignalBuild()
	SignalShareBlock(block database.Block)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	PublicKey           string
	Host                string
	Name                string
	TLS                 bool
	Storage             database.Storage
	Genesis             genesis.Genesis
	SelectStrategy      string
	KnownPeers          *peer.PeerSet
	Client              *pool.Client
	Threads             int
	Difficulty          uint
	MaxPoolRequests     int
	AcceptsPoolRequests bool
	TemplateCacheSize   int
	HashFn              miner.HashFunc
	EvHandler           EventHandler
}

// State manages the blockchain database.
type State struct {
	publicKey     string
	host          string
	name          string
	tls           bool
	evHandler     EventHandler
	genesis       genesis.Genesis
	difficulty    uint
	maxPool       int
	acceptsPool   bool
	transPerBlock int

	knownPeers *peer.PeerSet
	storage    database.Storage
	chain      *chain.Index
	mempool    *mempool.Mempool
	client     *pool.Client
	miner      *miner.Miner
	pool       *pool.Coordinator
	templates  *lru.Cache
	seen       *lru.Cache

	mu      sync.Mutex
	current string

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	if cfg.PublicKey == "" {
		return nil, errors.New("public key is required")
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	// Load all existing blocks from storage into the chain index. An empty
	// store starts with the genesis block.
	idx, err := chain.New(cfg.Storage)
	if err != nil {
		return nil, err
	}

	if idx.Len() == 0 {
		hash, err := idx.Add(cfg.Genesis.Block)
		if err != nil {
			return nil, fmt.Errorf("genesis block: %w", err)
		}
		ev("state: New: saved genesis block[%s]", hash)
	}

	// Construct a mempool with the specified select strategy.
	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = "oldest"
	}
	mp, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	size := cfg.TemplateCacheSize
	if size <= 0 {
		size = defaultTemplateCache
	}
	templates, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	seen, err := lru.New(defaultSeenCache)
	if err != nil {
		return nil, err
	}

	difficulty := cfg.Difficulty
	if difficulty == 0 {
		difficulty = cfg.Genesis.Difficulty
	}

	maxPool := cfg.MaxPoolRequests
	if maxPool <= 0 {
		maxPool = cfg.Genesis.MaxPoolRequests
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	client := cfg.Client
	if client == nil {
		client = pool.NewClient(pool.ClientConfig{})
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		publicKey:     cfg.PublicKey,
		host:          cfg.Host,
		name:          cfg.Name,
		tls:           cfg.TLS,
		evHandler:     ev,
		genesis:       cfg.Genesis,
		difficulty:    difficulty,
		maxPool:       maxPool,
		acceptsPool:   cfg.AcceptsPoolRequests,
		transPerBlock: cfg.Genesis.TransPerBlock,

		knownPeers: knownPeers,
		storage:    cfg.Storage,
		chain:      idx,
		mempool:    mp,
		client:     client,
		templates:  templates,
		seen:       seen,
	}

	state.miner = miner.New(miner.Config{
		Threads:    cfg.Threads,
		Difficulty: difficulty,
		HashFn:     cfg.HashFn,
		EvHandler:  ev,
		OnFound:    state.minedBlock,
		OnFailed:   state.failedJob,
	})

	state.pool = pool.New(pool.Config{
		Peers:           knownPeers,
		Transport:       client,
		Miner:           state.miner,
		PublicKey:       cfg.PublicKey,
		MaxPoolRequests: maxPool,
		EvHandler:       ev,
	})

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Stop every running job before closing storage.
	s.miner.Shutdown()

	return s.storage.Close()
}

// Sweep removes finished mining jobs from the registry.
func (s *State) Sweep() int {
	return s.miner.Sweep()
}

// =============================================================================

// netContext returns a context bounding a background network call.
func netContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), netTimeout)
}

// Package worker implements block building, job sweeping, peer updates, and
// block sharing for the blockchain.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/state"
)

// Default intervals for the background operations.
const (
	defaultBuildInterval = 10 * time.Second
	defaultSweepInterval = 5 * time.Second
	defaultPeerInterval  = time.Minute
)

// Config represents the intervals the operations run on.
type Config struct {
	BuildInterval time.Duration
	SweepInterval time.Duration
	PeerInterval  time.Duration
	EvHandler     state.EventHandler
}

// =============================================================================

// Worker manages the background workflows for the blockchain.
type Worker struct {
	state        *state.State
	wg           sync.WaitGroup
	buildTicker  *time.Ticker
	sweepTicker  *time.Ticker
	peerTicker   *time.Ticker
	shut         chan struct{}
	startBuild   chan bool
	blockSharing chan database.Block
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		state:        st,
		buildTicker:  time.NewTicker(interval(cfg.BuildInterval, defaultBuildInterval)),
		sweepTicker:  time.NewTicker(interval(cfg.SweepInterval, defaultSweepInterval)),
		peerTicker:   time.NewTicker(interval(cfg.PeerInterval, defaultPeerInterval)),
		shut:         make(chan struct{}),
		startBuild:   make(chan bool, 1),
		blockSharing: make(chan database.Block, maxBlockShareRequests),
		evHandler:    ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.buildOperations,
		w.sweepOperations,
		w.peerOperations,
		w.shareBlockOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop tickers")
	w.buildTicker.Stop()
	w.sweepTicker.Stop()
	w.peerTicker.Stop()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalBuild starts a build operation. If there is already a signal
// pending in the channel, just return since a build operation will start.
func (w *Worker) SignalBuild() {
	select {
	case w.startBuild <- true:
	default:
	}
	w.evHandler("worker: SignalBuild: build signaled")
}

// SignalShareBlock signals a share block operation. If
// maxBlockShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareBlock(block database.Block) {
	select {
	case w.blockSharing <- block:
		w.evHandler("worker: SignalShareBlock: share block signaled")
	default:
		w.evHandler("worker: SignalShareBlock: queue full, block won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

func interval(d time.Duration, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

package miner

import (
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
)

// State represents where a job is in its lifecycle.
type State int32

// Set of job states.
const (
	Pending State = iota
	Running
	Found
	Aborted
	Failed
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Found:
		return "found"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// =============================================================================

// Job represents a nonce search over one block template. The job owns its
// workers and the one cancellation flag they share.
type Job struct {
	Key      string
	Offset   *big.Int
	Stride   *big.Int
	Template database.Block

	cancel  atomic.Bool
	state   atomic.Int32
	failed  atomic.Int32
	hashes  atomic.Uint64
	result  chan database.Block
	done    chan struct{}
	wg      sync.WaitGroup
	started time.Time

	errMu   sync.Mutex
	lastErr error

	// Written by the monitor before done is closed.
	block   database.Block
	err     error
	elapsed time.Duration
}

func newJob(key string, template database.Block, offset *big.Int, stride *big.Int) *Job {
	return &Job{
		Key:      key,
		Offset:   new(big.Int).Set(offset),
		Stride:   new(big.Int).Set(stride),
		Template: template.Clone(),
		result:   make(chan database.Block, 1),
		done:     make(chan struct{}),
	}
}

// State returns the current state of the job.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Done returns a channel that is closed once the job has reached its final
// state and its callback has returned.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancelled reports whether the job's cancellation flag is set.
func (j *Job) Cancelled() bool {
	return j.cancel.Load()
}

// Block returns the winning block once the job has been found.
func (j *Job) Block() (database.Block, bool) {
	select {
	case <-j.done:
		if j.State() == Found {
			return j.block.Clone(), true
		}
	default:
	}

	return database.Block{}, false
}

// Err returns the last worker error for a failed job.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Hashes returns the number of hashes computed so far.
func (j *Job) Hashes() uint64 {
	return j.hashes.Load()
}

// workerFailed records a worker error and returns the number of workers
// that have failed so far.
func (j *Job) workerFailed(err error) int32 {
	j.errMu.Lock()
	j.lastErr = err
	j.errMu.Unlock()

	return j.failed.Add(1)
}

// isDone reports whether the done channel has been closed.
func (j *Job) isDone() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Package miner implements the cancellable multi-worker nonce search and the
// registry of running mining jobs.
package miner

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"sync"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// ErrDuplicateJob is returned when a job is already registered for the
// template hash.
var ErrDuplicateJob = errors.New("mining job already registered")

// rateSamples is the number of finished jobs the hash rate is averaged over.
const rateSamples = 10

// HashFunc computes the hash a worker tests against the difficulty.
type HashFunc func(block database.Block) ([signature.HashLength]byte, error)

// Config represents the configuration required to construct a miner.
type Config struct {
	Threads    int
	Difficulty uint
	HashFn     HashFunc
	EvHandler  func(v string, args ...any)
	OnFound    func(key string, block database.Block)
	OnFailed   func(key string, err error)
}

// Miner runs mining jobs and owns the registry that maps a template hash to
// its job. At most one job exists per template hash.
type Miner struct {
	threads    int
	difficulty uint
	hashFn     HashFunc
	evHandler  func(v string, args ...any)
	onFound    func(key string, block database.Block)
	onFailed   func(key string, err error)

	mu   sync.Mutex
	jobs map[string]*Job

	rateMu sync.Mutex
	rates  []float64
}

// New constructs a miner for use.
func New(cfg Config) *Miner {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	hashFn := cfg.HashFn
	if hashFn == nil {
		hashFn = database.Block.Digest
	}

	return &Miner{
		threads:    threads,
		difficulty: cfg.Difficulty,
		hashFn:     hashFn,
		evHandler:  ev,
		onFound:    cfg.OnFound,
		onFailed:   cfg.OnFailed,
		jobs:       make(map[string]*Job),
	}
}

// Threads returns the number of workers started per job.
func (m *Miner) Threads() int {
	return m.threads
}

// Difficulty returns the number of low bits that must be zero.
func (m *Miner) Difficulty() uint {
	return m.difficulty
}

// Start registers a job for the template and launches its workers. Worker t
// starts at offset + t*stride and steps by stride*threads.
func (m *Miner) Start(template database.Block, offset *big.Int, stride *big.Int) (*Job, error) {
	if offset == nil || offset.Sign() < 0 {
		return nil, errors.New("offset must be zero or greater")
	}

	if stride == nil || stride.Sign() <= 0 {
		return nil, errors.New("stride must be greater than zero")
	}

	key, err := template.TemplateHash()
	if err != nil {
		return nil, fmt.Errorf("template hash: %w", err)
	}

	job := newJob(key, template, offset, stride)

	m.mu.Lock()
	{
		if _, exists := m.jobs[key]; exists {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, key)
		}
		m.jobs[key] = job
	}
	m.mu.Unlock()

	m.evHandler("miner: Start: job[%s]: offset[%s]: stride[%s]: threads[%d]: difficulty[%d]", key, offset, stride, m.threads, m.difficulty)

	job.started = time.Now()
	job.state.Store(int32(Running))

	shards := Shards(job.Offset, job.Stride, m.threads)
	job.wg.Add(len(shards))

	for t, shard := range shards {
		block := job.Template.Clone()
		block.Nonce.Set(shard.Offset)

		go m.work(job, t, block, shard.Stride)
	}

	go m.monitor(job)

	return job, nil
}

// Abort sets the job's cancellation flag so every worker stops. It reports
// whether a job was registered for the key.
func (m *Miner) Abort(key string) bool {
	job, exists := m.Lookup(key)
	if !exists {
		return false
	}

	if job.cancel.CompareAndSwap(false, true) {
		m.evHandler("miner: Abort: job[%s]: cancellation flag set", key)
	}

	return true
}

// Lookup returns the job registered for the key.
func (m *Miner) Lookup(key string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[key]
	return job, exists
}

// Jobs returns a snapshot of the registered jobs.
func (m *Miner) Jobs() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}

	return jobs
}

// Registered reports whether a job exists for the key.
func (m *Miner) Registered(key string) bool {
	_, exists := m.Lookup(key)
	return exists
}

// Len returns the number of registered jobs.
func (m *Miner) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.jobs)
}

// Sweep removes every job whose cancellation flag is set and whose workers
// have all exited. It returns the number of jobs removed.
func (m *Miner) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int
	for key, job := range m.jobs {
		if job.cancel.Load() && job.isDone() {
			delete(m.jobs, key)
			removed++
		}
	}

	if removed > 0 {
		m.evHandler("miner: Sweep: removed[%d]: remaining[%d]", removed, len(m.jobs))
	}

	return removed
}

// Shutdown aborts every registered job and waits for their workers and
// callbacks to finish.
func (m *Miner) Shutdown() {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		job.cancel.Store(true)
		jobs = append(jobs, job)
	}
	m.mu.Unlock()

	for _, job := range jobs {
		<-job.done
	}
}

// HashRate returns the average hash rate in MH/s over recent jobs. A node
// that has not finished a job yet reports zero.
func (m *Miner) HashRate() float64 {
	m.rateMu.Lock()
	defer m.rateMu.Unlock()

	if len(m.rates) == 0 {
		return 0
	}

	var total float64
	for _, r := range m.rates {
		total += r
	}

	return total / float64(len(m.rates))
}

// =============================================================================

// work runs one worker's search over its shard. The block is the worker's
// private clone with the nonce set to the shard's offset.
func (m *Miner) work(job *Job, t int, block database.Block, stride *big.Int) {
	defer job.wg.Done()

	for {
		if job.cancel.Load() {
			return
		}

		hash, err := m.hashFn(block)
		if err != nil {
			n := job.workerFailed(err)
			m.evHandler("miner: work: job[%s]: worker[%d]: ERROR: %s: failed[%d/%d]", job.Key, t, err, n, m.threads)
			return
		}
		job.hashes.Add(1)

		if IsSolved(hash, m.difficulty) {

			// Only the first setter of the flag is the winner. A worker that
			// loses the race has its solution ignored.
			if job.cancel.CompareAndSwap(false, true) {
				now := time.Now().UTC().Truncate(time.Second)
				block.MinedTimestamp = &now
				job.result <- block

				m.evHandler("miner: work: job[%s]: worker[%d]: SOLVED: nonce[%s]", job.Key, t, block.Nonce)
			}
			return
		}

		block.Nonce.Add(block.Nonce, stride)
	}
}

// monitor waits for every worker to exit and resolves the final state of
// the job. The done channel is closed once the callbacks return.
func (m *Miner) monitor(job *Job) {
	job.wg.Wait()
	job.elapsed = time.Since(job.started)

	select {
	case block := <-job.result:
		job.block = block
		job.state.Store(int32(Found))

	default:
		switch {
		case int(job.failed.Load()) == m.threads:
			job.errMu.Lock()
			job.err = job.lastErr
			job.errMu.Unlock()

			job.cancel.Store(true)
			job.state.Store(int32(Failed))

		default:
			job.state.Store(int32(Aborted))
		}
	}

	m.recordRate(job)

	m.evHandler("miner: monitor: job[%s]: state[%s]: hashes[%d]: elapsed[%s]", job.Key, job.State(), job.Hashes(), job.elapsed)

	// Shutdown waits on the done channel, so the callbacks finish before
	// the owner of the miner releases what they use.
	defer close(job.done)

	switch job.State() {
	case Found:
		if m.onFound != nil {
			m.onFound(job.Key, job.block.Clone())
		}

	case Failed:
		if m.onFailed != nil {
			m.onFailed(job.Key, job.err)
		}
	}
}

// recordRate keeps the hash rate of the finished job for the average.
func (m *Miner) recordRate(job *Job) {
	secs := job.elapsed.Seconds()
	if secs <= 0 || job.Hashes() == 0 {
		return
	}

	rate := float64(job.Hashes()) / secs / 1e6

	m.rateMu.Lock()
	defer m.rateMu.Unlock()

	m.rates = append(m.rates, rate)
	if len(m.rates) > rateSamples {
		m.rates = m.rates[len(m.rates)-rateSamples:]
	}
}

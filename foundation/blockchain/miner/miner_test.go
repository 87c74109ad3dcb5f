package miner_test

import (
	"encoding/binary"
	"errors"
	"math/big"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/miner"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func template(t *testing.T, label string) database.Block {
	b, err := database.NewBlock(signature.DigestHex([]byte(label)), signature.ZeroHash)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a template: %v", failed, err)
	}

	return b
}

func fixedHash(prefix uint64) miner.HashFunc {
	return func(database.Block) ([signature.HashLength]byte, error) {
		var h [signature.HashLength]byte
		binary.LittleEndian.PutUint64(h[:8], prefix)
		return h, nil
	}
}

func wait(t *testing.T, job *miner.Job) {
	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("\t%s\tShould see the job finish in time, state[%s].", failed, job.State())
	}
}

// =============================================================================

func Test_Shards(t *testing.T) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	t.Log("Given the need to partition the nonce space without overlap.")
	{
		for round := 0; round < 25; round++ {
			k := rnd.Intn(12) + 1
			threads := rnd.Intn(8) + 1
			const steps = 50

			seen := make(map[int64]bool)
			for peer := 0; peer < k; peer++ {
				shards := miner.Shards(big.NewInt(int64(peer)), big.NewInt(int64(k)), threads)

				for w, shard := range shards {
					for i := uint64(0); i < steps; i++ {
						n := shard.Nonce(i).Int64()

						if seen[n] {
							t.Fatalf("\t%s\tRound %d:\tShould not visit nonce %d twice, k[%d] threads[%d] peer[%d] worker[%d].", failed, round, n, k, threads, peer, w)
						}
						seen[n] = true
					}
				}
			}

			total := int64(k * threads * steps)
			for n := int64(0); n < total; n++ {
				if !seen[n] {
					t.Fatalf("\t%s\tRound %d:\tShould visit every nonce below %d, missing %d.", failed, round, total, n)
				}
			}
		}
		t.Logf("\t%s\tShould visit every nonce exactly once across peers and workers.", success)

		k := 5
		for i := 0; i < k; i++ {
			shard := miner.Shards(big.NewInt(int64(i)), big.NewInt(int64(k)), 1)[0]
			for j := uint64(0); j < 20; j++ {
				if shard.Nonce(j).Int64() != int64(i)+int64(j)*int64(k) {
					t.Fatalf("\t%s\tShould get the progression {i, i+K, i+2K...} for worker %d.", failed, i)
				}
			}
		}
		t.Logf("\t%s\tShould get the progression {i, i+K, i+2K...} for a single thread.", success)
	}
}

func Test_IsSolved(t *testing.T) {
	t.Log("Given the need to test the low bits of the little endian prefix.")
	{
		for d := uint(0); d < 64; d++ {
			var h [signature.HashLength]byte
			binary.LittleEndian.PutUint64(h[:8], uint64(1)<<d)

			if !miner.IsSolved(h, d) {
				t.Fatalf("\t%s\tShould pass for difficulty %d.", failed, d)
			}
			if miner.IsSolved(h, d+1) {
				t.Fatalf("\t%s\tShould fail for difficulty %d.", failed, d+1)
			}
		}
		t.Logf("\t%s\tShould pass for D and fail for D+1.", success)

		var h [signature.HashLength]byte
		h[0] = 0x01
		for i := 8; i < len(h); i++ {
			h[i] = 0xff
		}
		if miner.IsSolved(h, 1) {
			t.Fatalf("\t%s\tShould read byte 0 as the least significant byte.", failed)
		}

		h[0], h[7] = 0x00, 0x80
		if !miner.IsSolved(h, 63) || miner.IsSolved(h, 64) {
			t.Fatalf("\t%s\tShould read byte 7 as the most significant byte.", failed)
		}
		t.Logf("\t%s\tShould read the prefix as little endian.", success)
	}
}

func Test_FixedDigest(t *testing.T) {
	const d = 12

	t.Log("Given the need to resolve a job against a mocked digest.")
	{
		m := miner.New(miner.Config{Threads: 2, Difficulty: d, HashFn: fixedHash(1 << d)})

		job, err := m.Start(template(t, "pass"), big.NewInt(0), big.NewInt(1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}
		wait(t, job)

		if job.State() != miner.Found {
			t.Fatalf("\t%s\tShould find a block at difficulty %d, state[%s].", failed, d, job.State())
		}
		t.Logf("\t%s\tShould find a block at difficulty %d.", success, d)

		m = miner.New(miner.Config{Threads: 2, Difficulty: d + 1, HashFn: fixedHash(1 << d)})

		job, err = m.Start(template(t, "fail"), big.NewInt(0), big.NewInt(1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}

		time.Sleep(50 * time.Millisecond)
		if job.State() != miner.Running {
			t.Fatalf("\t%s\tShould keep searching at difficulty %d, state[%s].", failed, d+1, job.State())
		}

		m.Abort(job.Key)
		wait(t, job)

		if job.State() != miner.Aborted {
			t.Fatalf("\t%s\tShould end aborted, state[%s].", failed, job.State())
		}
		t.Logf("\t%s\tShould not find a block at difficulty %d.", success, d+1)
	}
}

func Test_OneWinner(t *testing.T) {
	t.Log("Given the need to accept only the first solution of a job.")
	{
		var found atomic.Int32
		onFound := func(key string, block database.Block) {
			found.Add(1)
		}

		m := miner.New(miner.Config{Threads: 8, Difficulty: 20, HashFn: fixedHash(0), OnFound: onFound})

		job, err := m.Start(template(t, "race"), big.NewInt(0), big.NewInt(1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}
		wait(t, job)

		if n := found.Load(); n != 1 {
			t.Fatalf("\t%s\tShould accept exactly one solution, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould accept exactly one solution.", success)

		if job.State() != miner.Found {
			t.Fatalf("\t%s\tShould end found, state[%s].", failed, job.State())
		}

		block, ok := job.Block()
		if !ok || !block.IsMined() {
			t.Fatalf("\t%s\tShould get back the mined block.", failed)
		}
		t.Logf("\t%s\tShould get back the mined block.", success)
	}
}

func Test_CallbackBeforeDone(t *testing.T) {
	t.Log("Given the need to finish a job's callback before the job reports done.")
	{
		var saved atomic.Bool
		onFound := func(key string, block database.Block) {
			time.Sleep(200 * time.Millisecond)
			saved.Store(true)
		}

		m := miner.New(miner.Config{Threads: 2, Difficulty: 20, HashFn: fixedHash(0), OnFound: onFound})

		job, err := m.Start(template(t, "callback"), big.NewInt(0), big.NewInt(1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}
		wait(t, job)

		if !saved.Load() {
			t.Fatalf("\t%s\tShould run the found callback before closing done.", failed)
		}
		t.Logf("\t%s\tShould run the found callback before closing done.", success)

		var reported atomic.Bool
		entered := make(chan struct{})
		onFailed := func(key string, err error) {
			close(entered)
			time.Sleep(200 * time.Millisecond)
			reported.Store(true)
		}

		hashFn := func(database.Block) ([signature.HashLength]byte, error) {
			return [signature.HashLength]byte{}, errors.New("no hash")
		}
		m = miner.New(miner.Config{Threads: 2, Difficulty: 20, HashFn: hashFn, OnFailed: onFailed})

		if _, err := m.Start(template(t, "shutdown"), big.NewInt(0), big.NewInt(1)); err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}

		select {
		case <-entered:
		case <-time.After(5 * time.Second):
			t.Fatalf("\t%s\tShould report the failed job.", failed)
		}
		m.Shutdown()

		if !reported.Load() {
			t.Fatalf("\t%s\tShould wait for the failed callback on shutdown.", failed)
		}
		t.Logf("\t%s\tShould wait for the failed callback on shutdown.", success)
	}
}

func Test_Duplicate(t *testing.T) {
	t.Log("Given the need to register only one job per template.")
	{
		m := miner.New(miner.Config{Threads: 1, Difficulty: 64, HashFn: fixedHash(1)})
		tmpl := template(t, "dup")

		job, err := m.Start(tmpl, big.NewInt(0), big.NewInt(1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}

		mined := tmpl.Clone()
		mined.Nonce.SetInt64(99)
		if _, err := m.Start(mined, big.NewInt(3), big.NewInt(4)); !errors.Is(err, miner.ErrDuplicateJob) {
			t.Fatalf("\t%s\tShould get ErrDuplicateJob for the same template: %v", failed, err)
		}

		if m.Len() != 1 || !m.Registered(job.Key) {
			t.Fatalf("\t%s\tShould have exactly one job registered, got %d.", failed, m.Len())
		}
		t.Logf("\t%s\tShould have exactly one job registered.", success)

		m.Shutdown()
		if job.State() != miner.Aborted {
			t.Fatalf("\t%s\tShould abort the job on shutdown, state[%s].", failed, job.State())
		}
		t.Logf("\t%s\tShould abort the job on shutdown.", success)
	}
}

func Test_RealSearch(t *testing.T) {
	const d = 8

	t.Log("Given the need to find a real nonce at a low difficulty.")
	{
		m := miner.New(miner.Config{Threads: 4, Difficulty: d})

		offset, stride := big.NewInt(2), big.NewInt(3)
		job, err := m.Start(template(t, "real"), offset, stride)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}
		wait(t, job)

		block, ok := job.Block()
		if !ok {
			t.Fatalf("\t%s\tShould find a block, state[%s].", failed, job.State())
		}
		t.Logf("\t%s\tShould find a block.", success)

		h, err := block.Digest()
		if err != nil || !miner.IsSolved(h, d) {
			t.Fatalf("\t%s\tShould get a block that satisfies the difficulty: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a block that satisfies the difficulty.", success)

		mod := new(big.Int).Mod(block.Nonce, stride)
		if mod.Cmp(offset) != 0 {
			t.Fatalf("\t%s\tShould find a nonce inside the assigned shard, nonce[%s].", failed, block.Nonce)
		}
		t.Logf("\t%s\tShould find a nonce inside the assigned shard.", success)

		if m.HashRate() <= 0 {
			t.Fatalf("\t%s\tShould record a hash rate.", failed)
		}
		t.Logf("\t%s\tShould record a hash rate.", success)
	}
}

func Test_Failed(t *testing.T) {
	t.Log("Given the need to report a job where every worker failed.")
	{
		failure := errors.New("digest failed")
		hashFn := func(database.Block) ([signature.HashLength]byte, error) {
			return [signature.HashLength]byte{}, failure
		}

		reported := make(chan error, 1)
		onFailed := func(key string, err error) {
			reported <- err
		}

		m := miner.New(miner.Config{Threads: 3, Difficulty: 4, HashFn: hashFn, OnFailed: onFailed})

		job, err := m.Start(template(t, "failed"), big.NewInt(0), big.NewInt(1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}
		wait(t, job)

		if job.State() != miner.Failed {
			t.Fatalf("\t%s\tShould end failed, state[%s].", failed, job.State())
		}
		t.Logf("\t%s\tShould end failed.", success)

		select {
		case err := <-reported:
			if !errors.Is(err, failure) {
				t.Fatalf("\t%s\tShould report the worker error: %v", failed, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("\t%s\tShould report the failure.", failed)
		}
		t.Logf("\t%s\tShould report the failure.", success)

		if m.Sweep() != 1 {
			t.Fatalf("\t%s\tShould sweep the failed job.", failed)
		}
		t.Logf("\t%s\tShould sweep the failed job.", success)
	}
}

func Test_Sweep(t *testing.T) {
	t.Log("Given the need to clean up finished jobs only.")
	{
		m := miner.New(miner.Config{Threads: 2, Difficulty: 64, HashFn: fixedHash(1)})

		job1, err := m.Start(template(t, "one"), big.NewInt(0), big.NewInt(1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}

		job2, err := m.Start(template(t, "two"), big.NewInt(0), big.NewInt(1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start the job: %v", failed, err)
		}

		m.Abort(job1.Key)
		wait(t, job1)

		if n := m.Sweep(); n != 1 {
			t.Fatalf("\t%s\tShould sweep only the aborted job, got %d.", failed, n)
		}
		if m.Registered(job1.Key) || !m.Registered(job2.Key) {
			t.Fatalf("\t%s\tShould keep the running job registered.", failed)
		}
		t.Logf("\t%s\tShould sweep only the aborted job.", success)

		if m.Abort("unknown") {
			t.Fatalf("\t%s\tShould report no job for an unknown key.", failed)
		}

		m.Abort(job2.Key)
		wait(t, job2)

		if n := m.Sweep(); n != 1 || m.Len() != 0 {
			t.Fatalf("\t%s\tShould sweep the second job once aborted, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould sweep the second job once aborted.", success)
	}
}

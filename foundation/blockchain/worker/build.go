package worker

import (
	"context"
	"errors"

	"github.com/ardanlabs/poolchain/foundation/blockchain/pool"
	"github.com/ardanlabs/poolchain/foundation/blockchain/state"
)

// buildOperations handles building candidate blocks on the ticker or when
// signaled.
func (w *Worker) buildOperations() {
	w.evHandler("worker: buildOperations: G started")
	defer w.evHandler("worker: buildOperations: G completed")

	for {
		select {
		case <-w.buildTicker.C:
			if !w.isShutdown() {
				w.runBuildOperation()
			}
		case <-w.startBuild:
			if !w.isShutdown() {
				w.runBuildOperation()
			}
		case <-w.shut:
			w.evHandler("worker: buildOperations: received shut signal")
			return
		}
	}
}

// runBuildOperation builds a candidate block and starts mining it.
func (w *Worker) runBuildOperation() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop proposing to peers when the node is shutting down.
	go func() {
		select {
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	round, err := w.state.BuildCandidate(ctx)
	switch {
	case err == nil:
		w.evHandler("worker: runBuildOperation: template[%s]: miners[%d]: fallback[%v]", round.Key, len(round.Miners), round.Fallback)

	case errors.Is(err, state.ErrNotEnoughTransactions),
		errors.Is(err, state.ErrBuildInProgress),
		errors.Is(err, pool.ErrAlreadyMining):

	default:
		w.evHandler("worker: runBuildOperation: ERROR: %s", err)
	}
}

package worker

import (
	"context"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
)

// maxBlockShareRequests represents the max number of pending block network
// share requests that can be outstanding before share requests are dropped.
const maxBlockShareRequests = 16

// shareBlockOperations handles sharing mined blocks.
func (w *Worker) shareBlockOperations() {
	w.evHandler("worker: shareBlockOperations: G started")
	defer w.evHandler("worker: shareBlockOperations: G completed")

	for {
		select {
		case block := <-w.blockSharing:
			if !w.isShutdown() {
				w.runShareBlockOperation(block)
			}
		case <-w.shut:
			w.evHandler("worker: shareBlockOperations: received shut signal")
			return
		}
	}
}

// runShareBlockOperation sends a mined block to the known peers.
func (w *Worker) runShareBlockOperation(block database.Block) {
	w.evHandler("worker: runShareBlockOperation: started")
	defer w.evHandler("worker: runShareBlockOperation: completed")

	w.state.NetSendBlockToPeers(context.Background(), block)
}

package worker

import (
	"context"
)

// Sync tells the known peers about this node and pulls in their status
// before the background operations start. Peers that can't be reached yet
// are kept for the next peer update.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	ctx := context.Background()

	for _, pr := range w.state.RetrieveKnownPeers() {
		if err := w.state.NetRegisterWithPeer(ctx, pr); err != nil {
			w.evHandler("worker: sync: register: %s: ERROR: %s", pr.Host, err)
			continue
		}

		if err := w.updatePeer(ctx, pr); err != nil {
			w.evHandler("worker: sync: queryPeerStatus: %s: ERROR: %s", pr.Host, err)
		}
	}
}

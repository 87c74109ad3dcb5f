package worker

import (
	"context"

	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
)

// peerOperations handles refreshing the status of known peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.peerTicker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation updates the advertised hash rate and pool acceptance of
// every known peer. Unreachable peers are removed.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	ctx := context.Background()

	for _, pr := range w.state.RetrieveKnownPeers() {
		if w.isShutdown() {
			return
		}

		if err := w.updatePeer(ctx, pr); err != nil {
			w.evHandler("worker: runPeersOperation: queryPeerStatus: %s: ERROR: %s", pr.Host, err)
			w.state.RemoveKnownPeer(pr)
		}
	}
}

// updatePeer refreshes what is known about the peer from its status and
// adds the peers it knows about.
func (w *Worker) updatePeer(ctx context.Context, pr peer.Peer) error {
	peerStatus, err := w.state.NetRequestPeerStatus(ctx, pr)
	if err != nil {
		return err
	}

	pr.PublicKey = peerStatus.PublicKey
	pr.AcceptsPoolRequests = peerStatus.AcceptsPoolRequests
	pr.AverageHashRate = peerStatus.AverageHashRate
	w.state.RegisterPeer(pr)

	// Add new peers to this nodes list.
	w.addNewPeers(peerStatus.KnownPeers)

	return nil
}

// addNewPeers takes the list of known peers and makes sure they are included
// in the nodes list of know peers.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) {
	for _, pr := range knownPeers {
		if _, exists := w.state.RetrieveKnownPeer(pr.Host); exists {
			continue
		}

		if w.state.RegisterPeer(pr) {
			w.evHandler("worker: addNewPeers: adding peer-node %s", pr.Host)
		}
	}
}

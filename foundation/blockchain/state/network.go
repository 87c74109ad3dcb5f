package state

import (
	"context"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
)

// NetSendBlockToPeers takes the new mined block and sends it to all known
// peers. Failures are logged and don't stop the broadcast.
func (s *State) NetSendBlockToPeers(ctx context.Context, block database.Block) {
	s.evHandler("state: NetSendBlockToPeers: started")
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	for _, pr := range s.RetrieveKnownPeers() {
		if err := s.client.SubmitBlock(ctx, pr, block); err != nil {
			s.evHandler("state: NetSendBlockToPeers: peer[%s]: WARNING: %s", pr.Host, err)
			continue
		}

		s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", pr.Host)
	}
}

// NetRequestPeerStatus asks the peer for its status.
func (s *State) NetRequestPeerStatus(ctx context.Context, pr peer.Peer) (peer.PeerStatus, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr.Host)
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr.Host)

	ps, err := s.client.Status(ctx, pr)
	if err != nil {
		return peer.PeerStatus{}, err
	}

	s.evHandler("state: NetRequestPeerStatus: peer-node[%s]: tip[%s]: hops[%d]: rate[%.2f]", pr.Host, ps.TipHash, ps.TipHops, ps.AverageHashRate)

	return ps, nil
}

// NetRegisterWithPeer tells the peer about this node.
func (s *State) NetRegisterWithPeer(ctx context.Context, pr peer.Peer) error {
	return s.client.Register(ctx, pr, s.RetrieveSelf())
}

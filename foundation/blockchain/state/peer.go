package state

import (
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
)

// RegisterPeer adds or refreshes a peer. It reports whether the peer was
// not known before.
func (s *State) RegisterPeer(pr peer.Peer) bool {
	if pr.Match(s.host) {
		return false
	}

	_, exists := s.knownPeers.Get(pr.Host)
	s.knownPeers.Update(pr)

	if !exists {
		s.evHandler("state: RegisterPeer: added peer[%s]: pool[%v]: rate[%.2f]", pr.Host, pr.AcceptsPoolRequests, pr.AverageHashRate)
	}

	return !exists
}

// RemoveKnownPeer removes the peer from the known peer list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr.Host)
}

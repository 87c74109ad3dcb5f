// Package peer maintains the peer related information such as the set
// of known peers and their status.
package peer

import (
	"fmt"
	"sort"
	"sync"
)

// Peer represents information about a Node in the network.
type Peer struct {
	Name                string  `json:"name"`
	Host                string  `json:"host" validate:"required,hostname_port"`
	TLS                 bool    `json:"tls"`
	PublicKey           string  `json:"publicKey"`
	AcceptsPoolRequests bool    `json:"acceptsPoolRequests"`
	AverageHashRate     float64 `json:"averageHashRate" validate:"gte=0"`
}

// New contructs a new info value.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// BaseURL returns the scheme and host used to reach the peer.
func (p Peer) BaseURL() string {
	scheme := "http"
	if p.TLS {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, p.Host)
}

// =============================================================================

// PeerStatus represents information about the status
// of any given peer.
type PeerStatus struct {
	TipHash             string  `json:"tipHash"`
	TipHops             uint64  `json:"tipHops"`
	PublicKey           string  `json:"publicKey"`
	AcceptsPoolRequests bool    `json:"acceptsPoolRequests"`
	AverageHashRate     float64 `json:"averageHashRate"`
	KnownPeers          []Peer  `json:"knownPeers"`
}

// =============================================================================

// Cursor marks the last peer seen while paging through peers ranked by
// hash rate. Paging resumes strictly after the cursor.
type Cursor struct {
	Rate float64
	Host string
}

// After returns a cursor positioned at the specified peer.
func After(p Peer) *Cursor {
	return &Cursor{Rate: p.AverageHashRate, Host: p.Host}
}

// less reports if the peer is ordered before the cursor position.
func (c *Cursor) less(p Peer) bool {
	if c == nil {
		return true
	}

	if p.AverageHashRate != c.Rate {
		return p.AverageHashRate > c.Rate
	}

	return p.Host > c.Host
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[string]Peer
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[string]Peer),
	}
}

// Add adds a new node to the set.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer.Host]
	if !exists {
		ps.set[peer.Host] = peer
		return true
	}

	return false
}

// Update replaces the information held for the peer, adding it if the
// peer is not known yet.
func (ps *PeerSet) Update(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.set[peer.Host] = peer
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(host string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, host)
}

// Get returns the peer for the specified host.
func (ps *PeerSet) Get(host string) (Peer, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	p, exists := ps.set[host]
	return p, exists
}

// Copy returns a list of the known peers, excluding the specified host,
// sorted by host.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]Peer, 0, len(ps.set))
	for _, peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Host < peers[j].Host
	})

	return peers
}

// RankByHashRate returns up to limit peers that accept pool requests,
// ordered by ascending advertised hash rate with the host breaking ties.
// Only peers ordered strictly after the cursor are returned. A nil cursor
// starts from the beginning.
func (ps *PeerSet) RankByHashRate(after *Cursor, limit int) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for _, peer := range ps.set {
		if peer.AcceptsPoolRequests && after.less(peer) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool {
		if peers[i].AverageHashRate != peers[j].AverageHashRate {
			return peers[i].AverageHashRate < peers[j].AverageHashRate
		}
		return peers[i].Host < peers[j].Host
	})

	if limit > 0 && len(peers) > limit {
		peers = peers[:limit]
	}

	return peers
}

package state

import (
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/poolchain/foundation/blockchain/miner"
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
)

// QueryTip returns the block at the tip of the longest chain and the number
// of hops from genesis to it.
func (s *State) QueryTip() (database.Block, uint64, error) {
	return s.chain.FindTip()
}

// QueryTipHash returns the hash of the tip and its hops from genesis.
func (s *State) QueryTipHash() (string, uint64) {
	return s.chain.TipHash()
}

// QueryBlock returns the block with the specified hash.
func (s *State) QueryBlock(hash string) (database.Block, error) {
	return s.chain.FindByHash(hash)
}

// QueryBlockByLeaf returns the block that batched the transaction.
func (s *State) QueryBlockByLeaf(txHash string) (database.Block, error) {
	return s.chain.FindBlockByMerkleLeaf(txHash)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryJob returns the mining job registered for the template hash.
func (s *State) QueryJob(key string) (*miner.Job, bool) {
	return s.miner.Lookup(key)
}

// QueryStatus returns the status this node reports to its peers.
func (s *State) QueryStatus() peer.PeerStatus {
	tipHash, hops := s.chain.TipHash()

	return peer.PeerStatus{
		TipHash:             tipHash,
		TipHops:             hops,
		PublicKey:           s.publicKey,
		AcceptsPoolRequests: s.acceptsPool,
		AverageHashRate:     s.miner.HashRate(),
		KnownPeers:          s.RetrieveKnownPeers(),
	}
}

// =============================================================================

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveSelf returns the peer information other nodes need to reach
// this node.
func (s *State) RetrieveSelf() peer.Peer {
	return peer.Peer{
		Name:                s.name,
		Host:                s.host,
		TLS:                 s.tls,
		PublicKey:           s.publicKey,
		AcceptsPoolRequests: s.acceptsPool,
		AverageHashRate:     s.miner.HashRate(),
	}
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []database.Transaction {
	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveKnownPeer returns the known peer for the host.
func (s *State) RetrieveKnownPeer(host string) (peer.Peer, bool) {
	return s.knownPeers.Get(host)
}

package peer_test

import (
	"testing"

	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host1:9080"}, {Host: "host2:9080"}, {Host: "host3:9080"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer)
			}

			if ps.Add(tst.peers[0]) {
				t.Fatalf("Test %s:\tShould not add a known peer twice.", tst.name)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("host2:9080")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			update := tst.peers[0]
			update.AverageHashRate = 4.5
			ps.Update(update)

			got, exists := ps.Get(update.Host)
			if !exists || got.AverageHashRate != 4.5 {
				t.Fatalf("Test %s:\tShould get back the updated peer.", tst.name)
			}

			ps.Remove(update.Host)
			if _, exists := ps.Get(update.Host); exists {
				t.Fatalf("Test %s:\tShould not find a removed peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_RankByHashRate(t *testing.T) {
	ps := peer.NewPeerSet()

	ps.Add(peer.Peer{Host: "a:1", AcceptsPoolRequests: true, AverageHashRate: 3})
	ps.Add(peer.Peer{Host: "b:1", AcceptsPoolRequests: true, AverageHashRate: 1})
	ps.Add(peer.Peer{Host: "c:1", AcceptsPoolRequests: true, AverageHashRate: 2})
	ps.Add(peer.Peer{Host: "d:1", AcceptsPoolRequests: true, AverageHashRate: 2})
	ps.Add(peer.Peer{Host: "e:1", AcceptsPoolRequests: false, AverageHashRate: 0.5})
	ps.Add(peer.Peer{Host: "f:1", AcceptsPoolRequests: true, AverageHashRate: 2})

	exp := []string{"b:1", "c:1", "d:1", "f:1", "a:1"}

	all := ps.RankByHashRate(nil, 0)
	if len(all) != len(exp) {
		t.Fatalf("Should get back %d peers accepting pool requests, got %d.", len(exp), len(all))
	}
	for i, p := range all {
		if p.Host != exp[i] {
			t.Fatalf("Should rank %s at position %d, got %s.", exp[i], i, p.Host)
		}
	}

	var paged []string
	var cursor *peer.Cursor
	for {
		page := ps.RankByHashRate(cursor, 2)
		if len(page) == 0 {
			break
		}
		if len(page) > 2 {
			t.Fatalf("Should get at most 2 peers per page, got %d.", len(page))
		}

		for _, p := range page {
			paged = append(paged, p.Host)
		}
		cursor = peer.After(page[len(page)-1])
	}

	if len(paged) != len(exp) {
		t.Fatalf("Should page through every peer once, got %v.", paged)
	}
	for i := range exp {
		if paged[i] != exp[i] {
			t.Fatalf("Should page through peers in rank order, got %v.", paged)
		}
	}
}

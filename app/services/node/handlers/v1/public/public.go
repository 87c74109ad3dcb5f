// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/poolchain/business/web/errs"
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/state"
	"github.com/ardanlabs/poolchain/foundation/events"
	"github.com/ardanlabs/poolchain/foundation/nameservice"
	"github.com/ardanlabs/poolchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, open := <-ch:
			if !open {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Time returns the node's clock, used by peers and wallets to stamp
// transactions.
func (h Handlers) Time(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, timeResponse{Time: time.Now().UTC()}, http.StatusOK)
}

// Tip returns the block at the tip of the longest chain.
func (h Handlers) Tip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, hops, err := h.State.QueryTip()
	if err != nil {
		return err
	}

	return h.respondBlock(ctx, w, block, hops)
}

// Block returns the block with the specified hash.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.QueryBlock(web.Param(r, "hash"))
	if err != nil {
		return notFound(err)
	}

	return h.respondBlock(ctx, w, block, 0)
}

// BlockByLeaf returns the block that batched the specified transaction.
func (h Handlers) BlockByLeaf(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.QueryBlockByLeaf(web.Param(r, "txhash"))
	if err != nil {
		return notFound(err)
	}

	return h.respondBlock(ctx, w, block, 0)
}

// Send adds a new transaction to the mempool.
func (h Handlers) Send(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.Transaction
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("send tran", "traceid", v.TraceID, "tx", tx.ID, "sender", h.NS.Lookup(tx.SenderKey), "outputs", len(tx.Outputs))

	if err := h.State.SubmitTransaction(tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := sendResponse{
		Hash:    tx.ID,
		Mempool: h.State.QueryMempoolLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining asks the worker to build and mine a block now.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker == nil {
		return errs.NewTrusted(errors.New("worker is not running"), http.StatusServiceUnavailable)
	}

	h.State.Worker.SignalBuild()

	return web.Respond(ctx, w, statusResponse{Status: "mining signalled"}, http.StatusOK)
}

// =============================================================================

func (h Handlers) respondBlock(ctx context.Context, w http.ResponseWriter, block database.Block, hops uint64) error {
	hash, err := block.Hash()
	if err != nil {
		return err
	}

	resp := blockResponse{
		Hash:   hash,
		Hops:   hops,
		Miners: h.NS.Names(block.MinerKeys),
		Block:  block,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

func notFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return errs.NewTrusted(err, http.StatusNotFound)
	}
	return err
}

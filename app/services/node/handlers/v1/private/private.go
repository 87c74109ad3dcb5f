// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/poolchain/business/sys/validate"
	"github.com/ardanlabs/poolchain/business/web/errs"
	"github.com/ardanlabs/poolchain/foundation/blockchain/chain"
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
	"github.com/ardanlabs/poolchain/foundation/blockchain/pool"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ardanlabs/poolchain/foundation/blockchain/state"
	"github.com/ardanlabs/poolchain/foundation/nameservice"
	"github.com/ardanlabs/poolchain/foundation/web"
	"go.uber.org/zap"
)

// Status codes for the errors a proposal can fail with.
var proposeStatus = map[error]int{
	state.ErrPoolDisabled:    http.StatusForbidden,
	state.ErrInvalidPoolSize: http.StatusBadRequest,
	chain.ErrStaleParent:     http.StatusConflict,
}

// Status codes for the errors an initiation can fail with.
var initiateStatus = map[error]int{
	state.ErrUnknownTemplate: http.StatusNotFound,
	state.ErrNoMiners:        http.StatusBadRequest,
	state.ErrInvalidOffset:   http.StatusBadRequest,
	signature.ErrInvalidKey:  http.StatusBadRequest,
}

// Status codes for the errors a submitted block can fail with.
var submitStatus = map[error]int{
	state.ErrDuplicateBlock: http.StatusAlreadyReported,
	chain.ErrStaleParent:    http.StatusConflict,
	state.ErrInvalidBlock:   http.StatusBadRequest,
}

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
}

// Propose decides if this node takes part in mining the proposed template.
func (h Handlers) Propose(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var proposal pool.Proposal
	if err := web.Decode(r, &proposal); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(proposal); err != nil {
		return err
	}

	h.Log.Infow("propose", "traceid", v.TraceID, "previous", proposal.Block.PreviousHash, "poolsize", proposal.ExpectedPoolSize, "agent", r.UserAgent())

	if err := h.State.ProcessProposal(proposal); err != nil {
		return errs.Map(err, proposeStatus)
	}

	return web.Respond(ctx, w, status("accepted"), http.StatusOK)
}

// Initiate starts mining this node's share of a proposed template.
func (h Handlers) Initiate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var initiation pool.Initiation
	if err := web.Decode(r, &initiation); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(initiation); err != nil {
		return err
	}

	h.Log.Infow("initiate", "traceid", v.TraceID, "template", initiation.Hash, "offset", initiation.Offset, "miners", h.NS.Names(initiation.Miners))

	if err := h.State.ProcessInitiation(initiation); err != nil {
		return errs.Map(err, initiateStatus)
	}

	return web.Respond(ctx, w, status("mining"), http.StatusOK)
}

// Abort stops mining the template.
func (h Handlers) Abort(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var abort pool.Abort
	if err := web.Decode(r, &abort); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(abort); err != nil {
		return err
	}

	h.State.ProcessAbort(abort.Hash)

	return web.Respond(ctx, w, status("aborted"), http.StatusOK)
}

// SubmitBlock takes a block mined by a peer and adds it to the chain.
func (h Handlers) SubmitBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit block", "traceid", v.TraceID, "previous", block.PreviousHash, "miners", h.NS.Names(block.MinerKeys))

	if err := h.State.ProcessMinedBlock(ctx, block); err != nil {
		return errs.Map(err, submitStatus)
	}

	return web.Respond(ctx, w, status("accepted"), http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryStatus(), http.StatusOK)
}

// Register adds the calling node to the set of known peers.
func (h Handlers) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var pr peer.Peer
	if err := web.Decode(r, &pr); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(pr); err != nil {
		return err
	}

	added := h.State.RegisterPeer(pr)
	h.Log.Infow("register", "traceid", v.TraceID, "host", pr.Host, "name", h.NS.Lookup(pr.PublicKey), "added", added)

	return web.Respond(ctx, w, status("registered"), http.StatusOK)
}

// =============================================================================

// statusResponse is the body returned by endpoints with nothing else to
// report.
type statusResponse struct {
	Status string `json:"status"`
}

func status(s string) statusResponse {
	return statusResponse{Status: s}
}

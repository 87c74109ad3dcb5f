// Package v1 contains the full set of handler functions and routes
// supported by the node's web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/poolchain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/poolchain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/poolchain/foundation/blockchain/state"
	"github.com/ardanlabs/poolchain/foundation/events"
	"github.com/ardanlabs/poolchain/foundation/nameservice"
	"github.com/ardanlabs/poolchain/foundation/web"
	"go.uber.org/zap"
)

// group prefixes every route. Peers call the private routes under it.
const group = "blockchain"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, group, "/events", pbl.Events)
	app.Handle(http.MethodGet, group, "/time", pbl.Time)
	app.Handle(http.MethodGet, group, "/tip", pbl.Tip)
	app.Handle(http.MethodGet, group, "/blocks/:hash", pbl.Block)
	app.Handle(http.MethodGet, group, "/blocks/leaf/:txhash", pbl.BlockByLeaf)
	app.Handle(http.MethodPost, group, "/send", pbl.Send)
	app.Handle(http.MethodPost, group, "/mine/signal", pbl.SignalMining)
}

// PrivateRoutes binds all the node to node routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
	}

	app.Handle(http.MethodPost, group, "/mine/propose", prv.Propose)
	app.Handle(http.MethodPost, group, "/mine/initiate", prv.Initiate)
	app.Handle(http.MethodPost, group, "/mine/abort", prv.Abort)
	app.Handle(http.MethodPost, group, "/block/submit", prv.SubmitBlock)
	app.Handle(http.MethodGet, group, "/node/status", prv.Status)
	app.Handle(http.MethodPost, group, "/node/register", prv.Register)
}

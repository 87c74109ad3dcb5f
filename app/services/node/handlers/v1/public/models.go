package public

import (
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
)

type timeResponse struct {
	Time time.Time `json:"time"`
}

type blockResponse struct {
	Hash   string         `json:"hash"`
	Hops   uint64         `json:"hops,omitempty"`
	Miners []string       `json:"miners"`
	Block  database.Block `json:"block"`
}

type sendResponse struct {
	Hash    string `json:"hash"`
	Mempool int    `json:"mempool"`
}

type statusResponse struct {
	Status string `json:"status"`
}

package pool

import (
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
)

// Proposal invites a peer to take part in mining the introduced template.
type Proposal struct {
	Block            database.BlockIntroduction `json:"block" validate:"required"`
	ExpectedPoolSize int                        `json:"expectedPoolSize" validate:"required,gte=1"`
}

// Initiation tells an accepted peer to start mining its share of the
// nonce space. The stride is the number of miners.
type Initiation struct {
	Hash   string   `json:"hash" validate:"required,len=64,hexadecimal"`
	Miners []string `json:"miners" validate:"required,min=1"`
	Offset int64    `json:"offset" validate:"gte=0"`
}

// Abort tells a peer to stop mining the template.
type Abort struct {
	Hash string `json:"hash" validate:"required,len=64,hexadecimal"`
}

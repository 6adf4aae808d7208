package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// SourceTransaction is an L1 transaction as returned by the chain, reduced to
// the fields the derivation pipeline consumes.
type SourceTransaction struct {
	Hash        common.Hash
	From        common.Address
	To          *common.Address
	Input       []byte
	BlockHash   common.Hash
	BlockNumber uint64
}

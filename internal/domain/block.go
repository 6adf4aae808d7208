package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Block carries the header fields the rate lookup needs.
type Block struct {
	Number    uint64
	Hash      common.Hash
	Timestamp uint64
}

package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// LogEntry represents a contract log from an L1 transaction receipt.
type LogEntry struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Receipt represents an L1 transaction receipt.
type Receipt struct {
	TxHash      common.Hash
	BlockHash   common.Hash
	BlockNumber uint64
	Status      uint64
	Logs        []LogEntry
}

package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CanonicalTransaction is the deterministic Facet transaction derived from L1
// activity. To is nil when the source encodes an empty recipient (contract
// creation); Value and GasLimit default to zero when the source field is
// empty. FCTMintAmount is filled in a second pass once the mint rate for the
// source block is known.
type CanonicalTransaction struct {
	To            *common.Address
	Value         *big.Int
	Data          []byte
	GasLimit      uint64
	MineBoost     []byte
	FCTMintAmount *big.Int
}

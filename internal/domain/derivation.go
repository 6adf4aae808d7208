package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DerivationRecord is the audit-trail entry for one completed derivation.
type DerivationRecord struct {
	ChainID     uint64
	L1TxHash    common.Hash
	FacetTxHash common.Hash
	Path        string
	From        common.Address
	To          *common.Address
	Value       *big.Int
	GasLimit    uint64
	MintAmount  *big.Int
	MintRate    *big.Int
	OracleBlock uint64
	L1BlockNum  uint64
	DerivedAt   time.Time
}

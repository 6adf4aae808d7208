package protocol

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// aliasOffset is the published L1-to-L2 alias offset. It must match the
// value the Facet execution layer applies, so L2-side observers can invert
// the transform.
var aliasOffset = new(big.Int).SetBytes(common.HexToAddress("0x1111000000000000000000000000000000001111").Bytes())

var addressModulus = new(big.Int).Lsh(big.NewInt(1), 160)

// AliasL1ToL2 maps an L1 contract address to its L2 sender identity by
// adding the alias offset modulo 2^160.
func AliasL1ToL2(addr common.Address) common.Address {
	sum := new(big.Int).Add(new(big.Int).SetBytes(addr.Bytes()), aliasOffset)
	sum.Mod(sum, addressModulus)
	return common.BigToAddress(sum)
}

// AliasL2ToL1 inverts AliasL1ToL2.
func AliasL2ToL1(addr common.Address) common.Address {
	diff := new(big.Int).Sub(new(big.Int).SetBytes(addr.Bytes()), aliasOffset)
	diff.Mod(diff, addressModulus)
	return common.BigToAddress(diff)
}

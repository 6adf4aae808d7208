package protocol

import (
	"math/big"
)

// Calldata gas prices per EIP-2028.
const (
	txDataZeroGas    uint64 = 4
	txDataNonZeroGas uint64 = 16
)

// eventByteCost is the flat per-byte charge on the event path.
const eventByteCost uint64 = 8

// CalldataGas charges the encoded envelope the way intrinsic calldata
// costing does: 4 gas per zero byte, 16 per non-zero byte.
func CalldataGas(data []byte) uint64 {
	var gas uint64
	for _, b := range data {
		if b == 0 {
			gas += txDataZeroGas
		} else {
			gas += txDataNonZeroGas
		}
	}
	return gas
}

// DirectMintAmount converts the re-encoded inbox envelope into minted FCT at
// the given rate.
func DirectMintAmount(encodedEnvelope []byte, rate *big.Int) *big.Int {
	cost := new(big.Int).SetUint64(CalldataGas(encodedEnvelope))
	return cost.Mul(cost, rate)
}

// EventMintAmount converts a Facet log's full data (tag byte included) into
// minted FCT at the given rate. The flat 8-gas-per-byte charge is what
// historical L2 blocks computed for this path; it deliberately does not
// match the direct formula.
func EventMintAmount(logData []byte, rate *big.Int) *big.Int {
	cost := new(big.Int).SetUint64(uint64(len(logData)) * eventByteCost)
	return cost.Mul(cost, rate)
}

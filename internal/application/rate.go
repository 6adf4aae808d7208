package application

import (
	"context"
	"fmt"
	"math/big"

	"github.com/0xFacet/facet-tx-worker/internal/protocol"
)

// OracleTargetBlock picks the L2 block whose state carries the mint rate in
// effect when the source transaction landed on L1. It walks back from the L2
// tip assuming the fixed block period; actual spacing drift can select a
// block a few off, which is a documented limitation of the protocol, not
// corrected here.
func OracleTargetBlock(tipNumber, tipTimestamp, l1Timestamp uint64) uint64 {
	if l1Timestamp >= tipTimestamp {
		return tipNumber
	}
	blocksBack := (tipTimestamp - l1Timestamp) / protocol.L2BlockTime
	if blocksBack >= tipNumber {
		return 0
	}
	return tipNumber - blocksBack
}

// lookupMintRate reads fctMintRate() on the oracle predeploy at the target
// block. The rate drifts over time and is never cached beyond the request;
// a failed state read propagates with no retry and no fallback to the tip.
func lookupMintRate(ctx context.Context, l2 ChainReader, targetBlock uint64) (*big.Int, error) {
	ret, err := l2.CallContract(ctx, protocol.MintRateOracle, protocol.MintRateCallData(), targetBlock)
	if err != nil {
		return nil, fmt.Errorf("read mint rate at block %d: %w", targetBlock, err)
	}
	if len(ret) < 32 {
		return nil, fmt.Errorf("read mint rate at block %d: short return of %d bytes", targetBlock, len(ret))
	}
	// uint128 return, right-aligned in the first word, widened here.
	return new(big.Int).SetBytes(ret[:32]), nil
}

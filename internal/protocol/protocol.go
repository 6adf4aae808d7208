// Package protocol implements the Facet derivation protocol: envelope
// classification and decoding, address aliasing, mint accounting and
// canonical hash computation. It is pure: all chain access happens in the
// application layer.
package protocol

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// FacetTxType is the type tag shared by the inbox envelope, the event
// payload and the canonical transaction encoding.
const FacetTxType byte = 0x46

// L2BlockTime is the fixed Facet block period in seconds. The oracle lookup
// assumes constant spacing; it is a configured constant, not measured.
const L2BlockTime uint64 = 12

var (
	// InboxAddress is the fixed L1 address whose calls carry direct Facet
	// submissions.
	InboxAddress = common.HexToAddress("0x00000000000000000000000000000000000FacE7")

	// FacetEventTopic is the reserved topic sentinel for contract-emitted
	// Facet submissions. A log qualifies only when this is its sole topic.
	FacetEventTopic = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000face7")

	// MintRateOracle is the L2 predeploy exposing fctMintRate().
	MintRateOracle = common.HexToAddress("0x4200000000000000000000000000000000000015")
)

var mintRateSelector = crypto.Keccak256([]byte("fctMintRate()"))[:4]

// MintRateCallData returns the calldata for the no-argument fctMintRate()
// state read.
func MintRateCallData() []byte {
	out := make([]byte, 4)
	copy(out, mintRateSelector)
	return out
}

// Error strings double as wire messages, so they keep the casing clients
// already match on.
var (
	ErrMalformedEnvelope = errors.New("malformed Facet inbox envelope")
	ErrNoFacetEvent      = errors.New("No Facet event found")
	ErrInvalidRlpPayload = errors.New("invalid RLP payload in Facet event")
)

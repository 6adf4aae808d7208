package protocol

import (
	"github.com/0xFacet/facet-tx-worker/internal/domain"
)

// Path names the two decoding routes for a source transaction.
type Path string

const (
	PathDirect Path = "direct"
	PathEvent  Path = "event"
)

// Classify routes a source transaction: calls to the inbox address decode
// directly from the transaction input, everything else goes through the
// receipt's Facet event. No other recipient qualifies as direct.
func Classify(tx *domain.SourceTransaction) Path {
	if tx.To != nil && *tx.To == InboxAddress {
		return PathDirect
	}
	return PathEvent
}

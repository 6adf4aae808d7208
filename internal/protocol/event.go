package protocol

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/0xFacet/facet-tx-worker/internal/domain"
)

// FindFacetLog scans receipt logs in order and returns the first entry whose
// topic list is exactly the Facet sentinel. Logs carrying the sentinel among
// other topics do not qualify.
func FindFacetLog(logs []domain.LogEntry) (*domain.LogEntry, error) {
	for i := range logs {
		log := &logs[i]
		if len(log.Topics) == 1 && log.Topics[0] == FacetEventTopic {
			return log, nil
		}
	}
	return nil, ErrNoFacetEvent
}

// DecodeEventPayload parses a Facet log's data: one tag byte (carried but not
// validated) followed by an RLP list of at least six elements
// [_, to, value, gasLimit, data, _, ...]. Elements 0 and 5+ are reserved by
// the emitting contract and ignored here.
func DecodeEventPayload(data []byte) (*domain.CanonicalTransaction, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: payload too short", ErrInvalidRlpPayload)
	}
	var items []rlp.RawValue
	if err := rlp.DecodeBytes(data[1:], &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRlpPayload, err)
	}
	if len(items) < 6 {
		return nil, fmt.Errorf("%w: %d elements", ErrInvalidRlpPayload, len(items))
	}

	to, err := decodeEventBytes(items[1])
	if err != nil {
		return nil, err
	}
	value, err := decodeEventBytes(items[2])
	if err != nil {
		return nil, err
	}
	gasLimit, err := decodeEventBytes(items[3])
	if err != nil {
		return nil, err
	}
	payload, err := decodeEventBytes(items[4])
	if err != nil {
		return nil, err
	}

	gas := new(big.Int).SetBytes(gasLimit)
	if !gas.IsUint64() {
		return nil, fmt.Errorf("%w: gas limit out of range", ErrInvalidRlpPayload)
	}
	tx := &domain.CanonicalTransaction{
		Value:    new(big.Int).SetBytes(value),
		Data:     payload,
		GasLimit: gas.Uint64(),
	}
	// A recipient of one byte or fewer means contract creation, never the
	// zero address.
	switch {
	case len(to) <= 1:
	case len(to) == common.AddressLength:
		addr := common.BytesToAddress(to)
		tx.To = &addr
	default:
		return nil, fmt.Errorf("%w: recipient is %d bytes", ErrInvalidRlpPayload, len(to))
	}
	return tx, nil
}

func decodeEventBytes(item rlp.RawValue) ([]byte, error) {
	var out []byte
	if err := rlp.DecodeBytes(item, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRlpPayload, err)
	}
	return out, nil
}

package protocol

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/0xFacet/facet-tx-worker/internal/domain"
)

// inboxEnvelope is the pinned wire layout of a direct submission: the input
// bytes of an inbox call are FacetTxType followed by exactly this RLP list.
type inboxEnvelope struct {
	ChainID   *big.Int
	To        []byte
	Value     *big.Int
	GasLimit  uint64
	Data      []byte
	MineBoost []byte
}

// DecodeDirectEnvelope parses the input bytes of an inbox call into the
// canonical field set. Decoding a valid envelope and re-encoding it with
// EncodeDirectEnvelope reproduces the input byte for byte.
func DecodeDirectEnvelope(input []byte, l2ChainID *big.Int) (*domain.CanonicalTransaction, error) {
	if len(input) < 2 || input[0] != FacetTxType {
		return nil, ErrMalformedEnvelope
	}
	var env inboxEnvelope
	if err := rlp.DecodeBytes(input[1:], &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.ChainID == nil || env.ChainID.Cmp(l2ChainID) != 0 {
		return nil, fmt.Errorf("%w: wrong L2 chain id", ErrMalformedEnvelope)
	}

	tx := &domain.CanonicalTransaction{
		Value:    env.Value,
		Data:     env.Data,
		GasLimit: env.GasLimit,
	}
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}
	switch len(env.To) {
	case 0:
		// contract creation, recipient stays absent
	case common.AddressLength:
		to := common.BytesToAddress(env.To)
		tx.To = &to
	default:
		return nil, fmt.Errorf("%w: recipient is %d bytes", ErrMalformedEnvelope, len(env.To))
	}
	if len(env.MineBoost) > 0 {
		tx.MineBoost = env.MineBoost
	}
	return tx, nil
}

// EncodeDirectEnvelope serializes canonical fields back into the inbox wire
// form. The mint accounting charges calldata gas over exactly these bytes.
func EncodeDirectEnvelope(tx *domain.CanonicalTransaction, l2ChainID *big.Int) ([]byte, error) {
	env := inboxEnvelope{
		ChainID:   l2ChainID,
		Value:     tx.Value,
		GasLimit:  tx.GasLimit,
		Data:      tx.Data,
		MineBoost: tx.MineBoost,
	}
	if tx.To != nil {
		env.To = tx.To.Bytes()
	}
	if env.Value == nil {
		env.Value = new(big.Int)
	}
	payload, err := rlp.EncodeToBytes(&env)
	if err != nil {
		return nil, err
	}
	return append([]byte{FacetTxType}, payload...), nil
}

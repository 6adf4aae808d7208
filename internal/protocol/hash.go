package protocol

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// HashInput is the full field set the canonical transaction hash commits to.
type HashInput struct {
	L1TxHash   common.Hash
	From       common.Address
	To         *common.Address
	Value      *big.Int
	GasLimit   uint64
	Data       []byte
	MintAmount *big.Int
}

// CanonicalHasher computes the identifying hash an L2 node derives for a
// canonical transaction. It is an interface so recorded vectors and test
// doubles can stand in for the chain's function.
type CanonicalHasher interface {
	FacetTransactionHash(in HashInput) (common.Hash, error)
}

// hashPayload pins the byte layout of the hash preimage: the deposit-style
// field order [sourceHash, from, to, mint, value, gasLimit, data], RLP
// encoded and prefixed with the Facet type tag. Any change here breaks
// compatibility with every hash the L2 chain has already produced.
type hashPayload struct {
	SourceHash common.Hash
	From       common.Address
	To         []byte
	Mint       *big.Int
	Value      *big.Int
	GasLimit   uint64
	Data       []byte
}

// KeccakHasher is the production CanonicalHasher.
type KeccakHasher struct{}

func NewKeccakHasher() KeccakHasher { return KeccakHasher{} }

func (KeccakHasher) FacetTransactionHash(in HashInput) (common.Hash, error) {
	payload := hashPayload{
		SourceHash: in.L1TxHash,
		From:       in.From,
		Mint:       in.MintAmount,
		Value:      in.Value,
		GasLimit:   in.GasLimit,
		Data:       in.Data,
	}
	if in.To != nil {
		payload.To = in.To.Bytes()
	}
	if payload.Mint == nil {
		payload.Mint = new(big.Int)
	}
	if payload.Value == nil {
		payload.Value = new(big.Int)
	}
	encoded, err := rlp.EncodeToBytes(&payload)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(append([]byte{FacetTxType}, encoded...)), nil
}

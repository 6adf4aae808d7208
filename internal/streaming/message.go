package streaming

import (
	"encoding/json"
	"errors"
	"time"
)

type MessageType string

const (
	MessageTypeDerivation MessageType = "derivation"
)

// Message is the wire form of one derivation on the audit stream.
type Message struct {
	Type        MessageType `json:"type"`
	ChainID     uint64      `json:"chain_id"`
	TraceID     string      `json:"trace_id,omitempty"`
	L1TxHash    string      `json:"l1_tx_hash"`
	FacetTxHash string      `json:"facet_tx_hash"`
	Path        string      `json:"path"`
	From        string      `json:"from"`
	To          string      `json:"to,omitempty"`
	Value       string      `json:"value,omitempty"`
	GasLimit    uint64      `json:"gas_limit,omitempty"`
	MintAmount  string      `json:"mint_amount,omitempty"`
	MintRate    string      `json:"mint_rate,omitempty"`
	OracleBlock uint64      `json:"oracle_block,omitempty"`
	L1Block     uint64      `json:"l1_block,omitempty"`
	DerivedAt   time.Time   `json:"derived_at"`
}

func Encode(msg Message) ([]byte, error) {
	if msg.Type == "" {
		return nil, errors.New("message type is required")
	}
	if msg.ChainID == 0 {
		return nil, errors.New("chain_id is required")
	}
	if msg.L1TxHash == "" {
		return nil, errors.New("l1_tx_hash is required")
	}
	return json.Marshal(msg)
}

func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, errors.New("message type is missing")
	}
	if msg.ChainID == 0 {
		return Message{}, errors.New("chain_id is missing")
	}
	return msg, nil
}

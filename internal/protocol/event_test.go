package protocol

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/0xFacet/facet-tx-worker/internal/domain"
)

func encodeEventPayload(t *testing.T, fields []any) []byte {
	t.Helper()
	payload, err := rlp.EncodeToBytes(fields)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return append([]byte{FacetTxType}, payload...)
}

func TestFindFacetLog(t *testing.T) {
	emitter := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	otherTopic := common.HexToHash("0x01")
	logs := []domain.LogEntry{
		{Address: emitter, Topics: []common.Hash{otherTopic}},
		{Address: emitter, Topics: []common.Hash{FacetEventTopic, otherTopic}},
		{Address: emitter, Topics: []common.Hash{FacetEventTopic}, Data: []byte{0x46}},
		{Address: emitter, Topics: []common.Hash{FacetEventTopic}, Data: []byte{0xff}},
	}
	log, err := FindFacetLog(logs)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	// The two-topic log does not qualify; the first single-topic sentinel
	// log wins.
	if !bytes.Equal(log.Data, []byte{0x46}) {
		t.Fatalf("matched wrong log: data=%x", log.Data)
	}
}

func TestFindFacetLogMissing(t *testing.T) {
	logs := []domain.LogEntry{
		{Topics: []common.Hash{common.HexToHash("0x02")}},
	}
	if _, err := FindFacetLog(logs); !errors.Is(err, ErrNoFacetEvent) {
		t.Fatalf("got %v, want ErrNoFacetEvent", err)
	}
	if _, err := FindFacetLog(nil); !errors.Is(err, ErrNoFacetEvent) {
		t.Fatalf("empty logs: got %v", err)
	}
}

func TestDecodeEventPayload(t *testing.T) {
	to := common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
	data := encodeEventPayload(t, []any{
		[]byte{0x01},
		to.Bytes(),
		big.NewInt(7),
		uint64(21000),
		[]byte{0xab, 0xcd, 0xef},
		[]byte{},
	})
	tx, err := DecodeEventPayload(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.To == nil || *tx.To != to {
		t.Errorf("to = %v", tx.To)
	}
	if tx.Value.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("value = %s", tx.Value)
	}
	if tx.GasLimit != 21000 {
		t.Errorf("gasLimit = %d", tx.GasLimit)
	}
	if !bytes.Equal(tx.Data, []byte{0xab, 0xcd, 0xef}) {
		t.Errorf("data = %x", tx.Data)
	}
}

func TestDecodeEventPayloadEmptyFields(t *testing.T) {
	// Scenario: [unused, 0x, 0x, 0x5208, 0xabcdef, unused]
	data := encodeEventPayload(t, []any{
		[]byte{},
		[]byte{},
		[]byte{},
		uint64(21000),
		[]byte{0xab, 0xcd, 0xef},
		[]byte{},
	})
	tx, err := DecodeEventPayload(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.To != nil {
		t.Errorf("to = %s, want absent (never the zero address)", tx.To.Hex())
	}
	if tx.Value.Sign() != 0 {
		t.Errorf("value = %s, want 0", tx.Value)
	}
	if tx.GasLimit != 21000 {
		t.Errorf("gasLimit = %d", tx.GasLimit)
	}
	if !bytes.Equal(tx.Data, []byte{0xab, 0xcd, 0xef}) {
		t.Errorf("data = %x", tx.Data)
	}
}

func TestDecodeEventPayloadSingleByteToIsAbsent(t *testing.T) {
	data := encodeEventPayload(t, []any{
		[]byte{}, []byte{0x05}, []byte{}, []byte{}, []byte{}, []byte{},
	})
	tx, err := DecodeEventPayload(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.To != nil {
		t.Fatalf("one-byte recipient should be absent, got %s", tx.To.Hex())
	}
}

func TestDecodeEventPayloadExtraElementsIgnored(t *testing.T) {
	data := encodeEventPayload(t, []any{
		[]byte{}, []byte{}, []byte{}, []byte{}, []byte{0x01}, []byte{}, []byte{0xaa}, []byte{0xbb},
	})
	tx, err := DecodeEventPayload(data)
	if err != nil {
		t.Fatalf("decode with trailing elements: %v", err)
	}
	if !bytes.Equal(tx.Data, []byte{0x01}) {
		t.Errorf("data = %x", tx.Data)
	}
}

func TestDecodeEventPayloadTagNotValidated(t *testing.T) {
	data := encodeEventPayload(t, []any{
		[]byte{}, []byte{}, []byte{}, []byte{}, []byte{}, []byte{},
	})
	data[0] = 0x00
	if _, err := DecodeEventPayload(data); err != nil {
		t.Fatalf("tag byte must not be validated: %v", err)
	}
}

func TestDecodeEventPayloadInvalid(t *testing.T) {
	cases := map[string][]byte{
		"empty":      nil,
		"tag only":   {0x46},
		"not a list": {0x46, 0x81, 0xff},
		"five elements": encodeEventPayload(t, []any{
			[]byte{}, []byte{}, []byte{}, []byte{}, []byte{},
		}),
		"list recipient": encodeEventPayload(t, []any{
			[]byte{}, []any{[]byte{0x01}}, []byte{}, []byte{}, []byte{}, []byte{},
		}),
	}
	for name, data := range cases {
		if _, err := DecodeEventPayload(data); !errors.Is(err, ErrInvalidRlpPayload) {
			t.Errorf("%s: got %v, want InvalidRlpPayload", name, err)
		}
	}
}

package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/0xFacet/facet-tx-worker/internal/domain"
)

// Client is a minimal JSON-RPC 2.0 client over HTTP implementing the
// read-only chain-data provider the derivation pipeline consumes.
type Client struct {
	url        string
	httpClient *http.Client
	idCounter  uint64
}

type Config struct {
	URL string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rpc url is required")
	}
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{},
	}, nil
}

func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*domain.SourceTransaction, error) {
	var result *rpcTransaction
	if err := c.call(ctx, "eth_getTransactionByHash", []any{hash.Hex()}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("transaction %s: %w", hash.Hex(), domain.ErrNotFound)
	}
	return result.toDomain()
}

func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	var result *rpcReceipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []any{hash.Hex()}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), domain.ErrNotFound)
	}
	return result.toDomain()
}

func (c *Client) BlockByHash(ctx context.Context, hash common.Hash) (*domain.Block, error) {
	var result *rpcBlock
	if err := c.call(ctx, "eth_getBlockByHash", []any{hash.Hex(), false}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("block %s: %w", hash.Hex(), domain.ErrNotFound)
	}
	return result.toDomain()
}

func (c *Client) LatestBlock(ctx context.Context) (*domain.Block, error) {
	var result *rpcBlock
	if err := c.call(ctx, "eth_getBlockByNumber", []any{"latest", false}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("latest block: %w", domain.ErrNotFound)
	}
	return result.toDomain()
}

func (c *Client) CallContract(ctx context.Context, to common.Address, input []byte, blockNumber uint64) ([]byte, error) {
	msg := map[string]any{
		"to":   to.Hex(),
		"data": hexutil.Encode(input),
	}
	var result string
	if err := c.call(ctx, "eth_call", []any{msg, hexutil.EncodeUint64(blockNumber)}, &result); err != nil {
		return nil, err
	}
	return hexutil.Decode(result)
}

// Ping verifies upstream connectivity for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	var result string
	return c.call(ctx, "eth_blockNumber", []any{}, &result)
}

type rpcTransaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Input       string `json:"input"`
	BlockHash   string `json:"blockHash"`
	BlockNumber string `json:"blockNumber"`
}

func (t *rpcTransaction) toDomain() (*domain.SourceTransaction, error) {
	input, err := hexutil.Decode(t.Input)
	if err != nil {
		return nil, fmt.Errorf("transaction input: %w", err)
	}
	tx := &domain.SourceTransaction{
		Hash:  common.HexToHash(t.Hash),
		From:  common.HexToAddress(t.From),
		Input: input,
	}
	if t.To != "" {
		to := common.HexToAddress(t.To)
		tx.To = &to
	}
	if t.BlockHash != "" {
		tx.BlockHash = common.HexToHash(t.BlockHash)
	}
	if t.BlockNumber != "" {
		number, err := hexutil.DecodeUint64(t.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("transaction block number: %w", err)
		}
		tx.BlockNumber = number
	}
	return tx, nil
}

type rpcReceipt struct {
	TransactionHash string   `json:"transactionHash"`
	BlockHash       string   `json:"blockHash"`
	BlockNumber     string   `json:"blockNumber"`
	Status          string   `json:"status"`
	Logs            []rpcLog `json:"logs"`
}

type rpcLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

func (r *rpcReceipt) toDomain() (*domain.Receipt, error) {
	receipt := &domain.Receipt{
		TxHash:    common.HexToHash(r.TransactionHash),
		BlockHash: common.HexToHash(r.BlockHash),
	}
	if r.BlockNumber != "" {
		number, err := hexutil.DecodeUint64(r.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("receipt block number: %w", err)
		}
		receipt.BlockNumber = number
	}
	if r.Status != "" {
		status, err := hexutil.DecodeUint64(r.Status)
		if err != nil {
			return nil, fmt.Errorf("receipt status: %w", err)
		}
		receipt.Status = status
	}
	receipt.Logs = make([]domain.LogEntry, 0, len(r.Logs))
	for _, log := range r.Logs {
		data, err := hexutil.Decode(log.Data)
		if err != nil {
			return nil, fmt.Errorf("log data: %w", err)
		}
		topics := make([]common.Hash, 0, len(log.Topics))
		for _, topic := range log.Topics {
			topics = append(topics, common.HexToHash(topic))
		}
		receipt.Logs = append(receipt.Logs, domain.LogEntry{
			Address: common.HexToAddress(log.Address),
			Topics:  topics,
			Data:    data,
		})
	}
	return receipt, nil
}

type rpcBlock struct {
	Number    string `json:"number"`
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

func (b *rpcBlock) toDomain() (*domain.Block, error) {
	number, err := hexutil.DecodeUint64(b.Number)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	timestamp, err := hexutil.DecodeUint64(b.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("block timestamp: %w", err)
	}
	return &domain.Block{
		Number:    number,
		Hash:      common.HexToHash(b.Hash),
		Timestamp: timestamp,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	id := atomic.AddUint64(&c.idCounter, 1)
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return err
	}
	if decoded.Error != nil {
		return fmt.Errorf("rpc error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if result == nil {
		return nil
	}
	if len(decoded.Result) == 0 {
		return errors.New("rpc result is empty")
	}
	return json.Unmarshal(decoded.Result, result)
}

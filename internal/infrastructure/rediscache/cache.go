package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/0xFacet/facet-tx-worker/internal/application"
	"github.com/0xFacet/facet-tx-worker/internal/domain"
	"github.com/0xFacet/facet-tx-worker/internal/protocol"
)

const (
	cacheKeyPrefix  = "facetworker:derive:"
	defaultCacheTTL = time.Hour
)

type CacheConfig struct {
	Addr string
	TTL  time.Duration
}

// Deriver is the derivation capability the cache wraps.
type Deriver interface {
	Derive(ctx context.Context, chainID uint64, txHash common.Hash) (*application.Result, error)
}

// CachedDeriver memoizes successful derivations. A derived result is a pure
// function of immutable chain history (the source transaction and the L2 tip
// observed at derivation time), so entries never need invalidation, only
// expiry. Errors are never cached.
type CachedDeriver struct {
	base  Deriver
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedDeriver(base Deriver, cfg CacheConfig) (*CachedDeriver, error) {
	if base == nil {
		return nil, errors.New("base deriver is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return &CachedDeriver{base: base}, nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &CachedDeriver{base: base, cache: client, ttl: cfg.TTL}, nil
}

func (c *CachedDeriver) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

func (c *CachedDeriver) Ping(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Ping(ctx).Err()
}

func (c *CachedDeriver) Derive(ctx context.Context, chainID uint64, txHash common.Hash) (*application.Result, error) {
	if c.cache == nil {
		return c.base.Derive(ctx, chainID, txHash)
	}

	key := cacheKey(chainID, txHash)
	if cached, err := c.cache.Get(ctx, key).Result(); err == nil {
		if result, ok := decodeResult([]byte(cached)); ok {
			result.Cached = true
			return result, nil
		}
	}

	result, err := c.base.Derive(ctx, chainID, txHash)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(encodeResult(result)); err == nil {
		_ = c.cache.Set(ctx, key, payload, c.ttl).Err()
	}
	return result, nil
}

func cacheKey(chainID uint64, txHash common.Hash) string {
	var b strings.Builder
	b.Grow(96)
	b.WriteString(cacheKeyPrefix)
	b.WriteString(strconv.FormatUint(chainID, 10))
	b.WriteString(":")
	b.WriteString(txHash.Hex())
	return b.String()
}

// cachedResult is the wire form of application.Result. Big integers travel as
// decimal strings so precision survives JSON.
type cachedResult struct {
	FacetTxHash common.Hash     `json:"facet_tx_hash"`
	To          *common.Address `json:"to,omitempty"`
	Value       string          `json:"value"`
	GasLimit    uint64          `json:"gas_limit"`
	Data        []byte          `json:"data"`
	MintAmount  string          `json:"mint_amount"`
	From        common.Address  `json:"from"`
	Path        string          `json:"path"`
	MintRate    string          `json:"mint_rate"`
	OracleBlock uint64          `json:"oracle_block"`
	L1Block     uint64          `json:"l1_block"`
}

func encodeResult(result *application.Result) cachedResult {
	entry := cachedResult{
		FacetTxHash: result.FacetTxHash,
		To:          result.Tx.To,
		GasLimit:    result.Tx.GasLimit,
		Data:        result.Tx.Data,
		From:        result.From,
		Path:        string(result.Path),
		OracleBlock: result.OracleBlock,
		L1Block:     result.L1Block,
	}
	if result.Tx.Value != nil {
		entry.Value = result.Tx.Value.String()
	}
	if result.Tx.FCTMintAmount != nil {
		entry.MintAmount = result.Tx.FCTMintAmount.String()
	}
	if result.MintRate != nil {
		entry.MintRate = result.MintRate.String()
	}
	return entry
}

func decodeResult(payload []byte) (*application.Result, bool) {
	var entry cachedResult
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false
	}
	value, ok := parseBig(entry.Value)
	if !ok {
		return nil, false
	}
	mintAmount, ok := parseBig(entry.MintAmount)
	if !ok {
		return nil, false
	}
	mintRate, ok := parseBig(entry.MintRate)
	if !ok {
		return nil, false
	}
	return &application.Result{
		FacetTxHash: entry.FacetTxHash,
		Tx: &domain.CanonicalTransaction{
			To:            entry.To,
			Value:         value,
			Data:          entry.Data,
			GasLimit:      entry.GasLimit,
			FCTMintAmount: mintAmount,
		},
		From:        entry.From,
		Path:        protocol.Path(entry.Path),
		MintRate:    mintRate,
		OracleBlock: entry.OracleBlock,
		L1Block:     entry.L1Block,
	}, true
}

func parseBig(s string) (*big.Int, bool) {
	if s == "" {
		return nil, true
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return v, true
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/0xFacet/facet-tx-worker/internal/domain"
	"github.com/0xFacet/facet-tx-worker/internal/protocol"
)

// ChainReader is the read-only chain-data provider the pipeline consumes.
// Implementations return domain.ErrNotFound when the object does not exist.
type ChainReader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*domain.SourceTransaction, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
	BlockByHash(ctx context.Context, hash common.Hash) (*domain.Block, error)
	LatestBlock(ctx context.Context) (*domain.Block, error)
	CallContract(ctx context.Context, to common.Address, input []byte, blockNumber uint64) ([]byte, error)
}

// AuditSink records completed derivations. Sinks are best effort: a failing
// sink is logged and never fails the derivation.
type AuditSink interface {
	RecordDerivation(ctx context.Context, record domain.DerivationRecord) error
}

// ChainBackend pairs the L1 and L2 providers for one supported network.
type ChainBackend struct {
	L1        ChainReader
	L2        ChainReader
	L2ChainID *big.Int
}

// ErrUnsupportedChain keeps the wire message clients match on.
var ErrUnsupportedChain = errors.New("Invalid chainId")

// Result is everything a completed derivation produced.
type Result struct {
	FacetTxHash common.Hash
	Tx          *domain.CanonicalTransaction
	From        common.Address
	Path        protocol.Path
	MintRate    *big.Int
	OracleBlock uint64
	L1Block     uint64
	Cached      bool
}

type Deriver struct {
	chains map[uint64]ChainBackend
	hasher protocol.CanonicalHasher
	sinks  []AuditSink
}

func NewDeriver(chains map[uint64]ChainBackend, hasher protocol.CanonicalHasher, sinks ...AuditSink) (*Deriver, error) {
	if len(chains) == 0 {
		return nil, errors.New("at least one chain backend is required")
	}
	if hasher == nil {
		return nil, errors.New("canonical hasher is required")
	}
	for chainID, backend := range chains {
		if backend.L1 == nil || backend.L2 == nil || backend.L2ChainID == nil {
			return nil, fmt.Errorf("incomplete backend for chain %d", chainID)
		}
	}
	return &Deriver{chains: chains, hasher: hasher, sinks: sinks}, nil
}

// Derive runs the whole pipeline for one L1 transaction: classify, decode,
// look up the historical mint rate, account the mint, hash. Every upstream
// failure aborts the derivation; the operation is read-only and idempotent,
// so the caller simply retries.
func (d *Deriver) Derive(ctx context.Context, chainID uint64, txHash common.Hash) (*Result, error) {
	backend, ok := d.chains[chainID]
	if !ok {
		return nil, ErrUnsupportedChain
	}

	tracer := otel.Tracer("facetworker/derive")
	ctx, span := tracer.Start(ctx, "derive.transaction")
	span.SetAttributes(
		attribute.Int64("chain.id", int64(chainID)),
		attribute.String("tx.hash", txHash.Hex()),
	)
	defer span.End()

	result, err := d.derive(ctx, backend, txHash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("facet.tx_hash", result.FacetTxHash.Hex()),
		attribute.String("derive.path", string(result.Path)),
	)

	d.audit(ctx, chainID, txHash, result)
	return result, nil
}

func (d *Deriver) derive(ctx context.Context, backend ChainBackend, txHash common.Hash) (*Result, error) {
	source, err := backend.L1.TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("fetch source transaction: %w", err)
	}
	if source.BlockHash == (common.Hash{}) {
		// Pending transactions have no containing block and nothing to
		// derive against.
		return nil, fmt.Errorf("source transaction pending: %w", domain.ErrNotFound)
	}

	path := protocol.Classify(source)
	var (
		tx   *domain.CanonicalTransaction
		from common.Address
		// kept for event-path mint accounting, tag byte included
		eventData []byte
	)
	switch path {
	case protocol.PathDirect:
		tx, err = protocol.DecodeDirectEnvelope(source.Input, backend.L2ChainID)
		if err != nil {
			return nil, err
		}
		from = source.From
	case protocol.PathEvent:
		receipt, err := backend.L1.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}
		log, err := protocol.FindFacetLog(receipt.Logs)
		if err != nil {
			return nil, err
		}
		tx, err = protocol.DecodeEventPayload(log.Data)
		if err != nil {
			return nil, err
		}
		from = protocol.AliasL1ToL2(log.Address)
		eventData = log.Data
	}

	l1Block, l2Tip, err := d.fetchBlocks(ctx, backend, source.BlockHash)
	if err != nil {
		return nil, err
	}

	oracleBlock := OracleTargetBlock(l2Tip.Number, l2Tip.Timestamp, l1Block.Timestamp)
	rate, err := lookupMintRate(ctx, backend.L2, oracleBlock)
	if err != nil {
		return nil, err
	}

	switch path {
	case protocol.PathDirect:
		encoded, err := protocol.EncodeDirectEnvelope(tx, backend.L2ChainID)
		if err != nil {
			return nil, fmt.Errorf("reencode envelope: %w", err)
		}
		tx.FCTMintAmount = protocol.DirectMintAmount(encoded, rate)
	case protocol.PathEvent:
		tx.FCTMintAmount = protocol.EventMintAmount(eventData, rate)
	}

	facetHash, err := d.hasher.FacetTransactionHash(protocol.HashInput{
		L1TxHash:   source.Hash,
		From:       from,
		To:         tx.To,
		Value:      tx.Value,
		GasLimit:   tx.GasLimit,
		Data:       tx.Data,
		MintAmount: tx.FCTMintAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("compute facet transaction hash: %w", err)
	}

	return &Result{
		FacetTxHash: facetHash,
		Tx:          tx,
		From:        from,
		Path:        path,
		MintRate:    rate,
		OracleBlock: oracleBlock,
		L1Block:     source.BlockNumber,
	}, nil
}

// fetchBlocks resolves the L1 containing block and the L2 tip. The two reads
// have no data dependency and run concurrently.
func (d *Deriver) fetchBlocks(ctx context.Context, backend ChainBackend, l1BlockHash common.Hash) (*domain.Block, *domain.Block, error) {
	var (
		wg      sync.WaitGroup
		l1Block *domain.Block
		l2Tip   *domain.Block
		l1Err   error
		l2Err   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		l1Block, l1Err = backend.L1.BlockByHash(ctx, l1BlockHash)
	}()
	go func() {
		defer wg.Done()
		l2Tip, l2Err = backend.L2.LatestBlock(ctx)
	}()
	wg.Wait()

	if l1Err != nil {
		return nil, nil, fmt.Errorf("fetch L1 block: %w", l1Err)
	}
	if l2Err != nil {
		return nil, nil, fmt.Errorf("fetch L2 tip: %w", l2Err)
	}
	return l1Block, l2Tip, nil
}

func (d *Deriver) audit(ctx context.Context, chainID uint64, txHash common.Hash, result *Result) {
	if len(d.sinks) == 0 {
		return
	}
	record := domain.DerivationRecord{
		ChainID:     chainID,
		L1TxHash:    txHash,
		FacetTxHash: result.FacetTxHash,
		Path:        string(result.Path),
		From:        result.From,
		To:          result.Tx.To,
		Value:       result.Tx.Value,
		GasLimit:    result.Tx.GasLimit,
		MintAmount:  result.Tx.FCTMintAmount,
		MintRate:    result.MintRate,
		OracleBlock: result.OracleBlock,
		L1BlockNum:  result.L1Block,
		DerivedAt:   time.Now().UTC(),
	}
	for _, sink := range d.sinks {
		if err := sink.RecordDerivation(ctx, record); err != nil {
			slog.Warn("audit sink failed",
				"tx_hash", txHash.Hex(),
				"error", err,
			)
		}
	}
}

package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/0xFacet/facet-tx-worker/internal/domain"
	"github.com/0xFacet/facet-tx-worker/internal/infrastructure/telemetry"
	"github.com/0xFacet/facet-tx-worker/internal/streaming"
)

// Producer publishes derivation audit events. It implements
// application.AuditSink.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

type ProducerConfig struct {
	Brokers []string
	Topic   string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = "facet-derivations"
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 500 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: cfg.Topic}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func (p *Producer) RecordDerivation(ctx context.Context, record domain.DerivationRecord) error {
	tracer := otel.Tracer("facetworker/kafka")
	traceID, traceIDHex, ok := telemetry.NewTraceID()
	traceCtx := ctx
	if ok {
		if spanCtx, ok := telemetry.NewSpanContext(traceID); ok {
			traceCtx = trace.ContextWithSpanContext(ctx, spanCtx)
		}
	} else {
		traceIDHex = ""
	}
	traceCtx, span := tracer.Start(traceCtx, "worker.publish_derivation", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("kafka.topic", p.topic),
		attribute.Int64("chain.id", int64(record.ChainID)),
		attribute.String("tx.hash", record.L1TxHash.Hex()),
		attribute.String("facet.tx_hash", record.FacetTxHash.Hex()),
	)

	msg := streaming.Message{
		Type:        streaming.MessageTypeDerivation,
		ChainID:     record.ChainID,
		TraceID:     traceIDHex,
		L1TxHash:    record.L1TxHash.Hex(),
		FacetTxHash: record.FacetTxHash.Hex(),
		Path:        record.Path,
		From:        record.From.Hex(),
		GasLimit:    record.GasLimit,
		OracleBlock: record.OracleBlock,
		L1Block:     record.L1BlockNum,
		DerivedAt:   record.DerivedAt,
	}
	if record.To != nil {
		msg.To = record.To.Hex()
	}
	if record.Value != nil {
		msg.Value = record.Value.String()
	}
	if record.MintAmount != nil {
		msg.MintAmount = record.MintAmount.String()
	}
	if record.MintRate != nil {
		msg.MintRate = record.MintRate.String()
	}

	payload, err := streaming.Encode(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(traceCtx, &headers)
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(record.L1TxHash.Hex()),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

package main

import (
	"context"
	"errors"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xFacet/facet-tx-worker/internal/application"
	"github.com/0xFacet/facet-tx-worker/internal/config"
	"github.com/0xFacet/facet-tx-worker/internal/infrastructure/ethrpc"
	"github.com/0xFacet/facet-tx-worker/internal/infrastructure/kafka"
	"github.com/0xFacet/facet-tx-worker/internal/infrastructure/logging"
	"github.com/0xFacet/facet-tx-worker/internal/infrastructure/rediscache"
	"github.com/0xFacet/facet-tx-worker/internal/infrastructure/sqlite"
	"github.com/0xFacet/facet-tx-worker/internal/infrastructure/telemetry"
	"github.com/0xFacet/facet-tx-worker/internal/interfaces/httpapi"
	"github.com/0xFacet/facet-tx-worker/internal/protocol"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logWriter, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	if logWriter != nil {
		defer logWriter.Close()
	}

	shutdownTracing, err := telemetry.InitTracer(context.Background(), "facet-tx-worker", cfg.OtelEndpoint)
	if err != nil {
		log.Printf("tracing init error: %v", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				log.Printf("tracing shutdown error: %v", err)
			}
		}()
	}

	probes := make([]httpapi.ReadyProbe, 0, 4)
	chains := make(map[uint64]application.ChainBackend, len(cfg.Chains))
	for chainID, chain := range cfg.Chains {
		l1Client, err := ethrpc.NewClient(ethrpc.Config{URL: chain.L1RPCURL})
		if err != nil {
			log.Fatalf("l1 rpc error for chain %d: %v", chainID, err)
		}
		l2Client, err := ethrpc.NewClient(ethrpc.Config{URL: chain.L2RPCURL})
		if err != nil {
			log.Fatalf("l2 rpc error for chain %d: %v", chainID, err)
		}
		chains[chainID] = application.ChainBackend{
			L1:        l1Client,
			L2:        l2Client,
			L2ChainID: new(big.Int).SetUint64(chain.L2ChainID),
		}
		probes = append(probes,
			httpapi.ReadyProbe{Name: "l1 rpc", Ping: l1Client.Ping},
			httpapi.ReadyProbe{Name: "l2 rpc", Ping: l2Client.Ping},
		)
	}

	sinks := make([]application.AuditSink, 0, 2)
	if cfg.AuditDBPath != "" {
		auditStore, err := sqlite.NewRepository(cfg.AuditDBPath)
		if err != nil {
			log.Printf("audit store disabled: %v", err)
		} else {
			defer auditStore.Close()
			sinks = append(sinks, auditStore)
			probes = append(probes, httpapi.ReadyProbe{Name: "audit db", Ping: auditStore.Ping})
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Printf("kafka producer disabled: %v", err)
		} else {
			defer producer.Close()
			sinks = append(sinks, producer)
		}
	}

	deriver, err := application.NewDeriver(chains, protocol.NewKeccakHasher(), sinks...)
	if err != nil {
		log.Fatalf("deriver error: %v", err)
	}

	var handler httpapi.Deriver = deriver
	if cached, err := rediscache.NewCachedDeriver(deriver, rediscache.CacheConfig{
		Addr: cfg.RedisAddr,
		TTL:  cfg.CacheTTL,
	}); err != nil {
		log.Printf("redis cache disabled: %v", err)
	} else {
		defer cached.Close()
		handler = cached
		if cfg.RedisAddr != "" {
			probes = append(probes, httpapi.ReadyProbe{Name: "redis", Ping: cached.Ping})
		}
	}

	httpServer, err := httpapi.NewServer(cfg, handler, probes, httpapi.NewMetrics(), httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		log.Fatalf("http server error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("facet tx worker listening on %s (%d chains)", cfg.HTTPAddr, len(chains))
	if err := httpServer.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("http server error: %v", err)
	}
}

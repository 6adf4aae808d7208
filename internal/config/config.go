package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Supported L1 chain ids and their Facet counterparts. Adding a network is a
// table entry plus two RPC URLs, never a code branch.
const (
	MainnetChainID uint64 = 1
	SepoliaChainID uint64 = 11155111

	FacetMainnetChainID uint64 = 0xface7
	FacetSepoliaChainID uint64 = 0xface7a
)

// ChainConfig wires one supported network: the L1 to read source
// transactions from and the Facet chain to read mint rates from.
type ChainConfig struct {
	L1ChainID uint64
	L2ChainID uint64
	L1RPCURL  string
	L2RPCURL  string
}

type Config struct {
	HTTPAddr      string
	RedisAddr     string
	CacheTTL      time.Duration
	OtelEndpoint  string
	KafkaBrokers  []string
	KafkaTopic    string
	AuditDBPath   string
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	Chains        map[uint64]ChainConfig
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	chains, err := loadChains(source)
	if err != nil {
		return Config{}, err
	}

	httpAddr := ":8080"
	if raw, ok := source.Lookup("HTTP_ADDR"); ok && raw != "" {
		httpAddr = raw
	}

	redisAddr := ""
	if raw, ok := source.Lookup("REDIS_ADDR"); ok {
		redisAddr = strings.TrimSpace(raw)
	}

	cacheTTL := time.Hour
	if raw, ok := source.Lookup("CACHE_TTL"); ok && raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		cacheTTL = duration
	}

	otelEndpoint, _ := source.Lookup("OTEL_EXPORTER_OTLP_ENDPOINT")
	otelEndpoint = strings.TrimSpace(otelEndpoint)

	kafkaBrokers := parseList(source, "KAFKA_BROKERS")
	kafkaTopic := "facet-derivations"
	if raw, ok := source.Lookup("KAFKA_TOPIC"); ok && raw != "" {
		kafkaTopic = raw
	}

	auditDBPath, _ := source.Lookup("AUDIT_DB_PATH")

	logLevel, _ := source.Lookup("LOG_LEVEL")
	logFile, _ := source.Lookup("LOG_FILE")
	logMaxSizeMB, err := parseIntEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseIntEnv(source, "LOG_MAX_BACKUPS", 3)
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPAddr:      httpAddr,
		RedisAddr:     redisAddr,
		CacheTTL:      cacheTTL,
		OtelEndpoint:  otelEndpoint,
		KafkaBrokers:  kafkaBrokers,
		KafkaTopic:    kafkaTopic,
		AuditDBPath:   strings.TrimSpace(auditDBPath),
		LogLevel:      logLevel,
		LogFile:       logFile,
		LogMaxSizeMB:  logMaxSizeMB,
		LogMaxBackups: logMaxBackups,
		Chains:        chains,
	}, nil
}

func loadChains(source EnvSource) (map[uint64]ChainConfig, error) {
	table := []struct {
		l1ChainID uint64
		l2ChainID uint64
		l1Env     string
		l2Env     string
	}{
		{MainnetChainID, FacetMainnetChainID, "L1_RPC_URL_MAINNET", "FACET_RPC_URL_MAINNET"},
		{SepoliaChainID, FacetSepoliaChainID, "L1_RPC_URL_SEPOLIA", "FACET_RPC_URL_SEPOLIA"},
	}

	chains := make(map[uint64]ChainConfig)
	for _, entry := range table {
		l1URL, _ := source.Lookup(entry.l1Env)
		l2URL, _ := source.Lookup(entry.l2Env)
		l1URL = strings.TrimSpace(l1URL)
		l2URL = strings.TrimSpace(l2URL)
		if l1URL == "" && l2URL == "" {
			continue
		}
		if l1URL == "" || l2URL == "" {
			return nil, fmt.Errorf("%s and %s must be set together", entry.l1Env, entry.l2Env)
		}
		chains[entry.l1ChainID] = ChainConfig{
			L1ChainID: entry.l1ChainID,
			L2ChainID: entry.l2ChainID,
			L1RPCURL:  l1URL,
			L2RPCURL:  l2URL,
		}
	}
	if len(chains) == 0 {
		return nil, errors.New("at least one network is required (L1_RPC_URL_MAINNET/FACET_RPC_URL_MAINNET or the Sepolia pair)")
	}
	return chains, nil
}

func parseList(source EnvSource, key string) []string {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	var values []string
	for _, item := range items {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}

func parseIntEnv(source EnvSource, key string, defaultValue int) (int, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	var value int
	if _, err := fmt.Sscanf(raw, "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

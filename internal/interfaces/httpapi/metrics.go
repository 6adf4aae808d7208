package httpapi

import (
	"sync"
	"time"
)

type Metrics struct {
	mu               sync.RWMutex
	startTime        time.Time
	derivationsTotal uint64
	directTotal      uint64
	eventTotal       uint64
	cacheHits        uint64
	validationErrs   uint64
	notFoundErrs     uint64
	protocolErrs     uint64
	upstreamErrs     uint64
	lastL1Block      uint64
	lastOracleBlock  uint64
	chainCount       map[uint64]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime:  time.Now(),
		chainCount: make(map[uint64]uint64),
	}
}

func (m *Metrics) OnDerivation(chainID uint64, path string, cached bool, l1Block, oracleBlock uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.derivationsTotal++
	switch path {
	case "direct":
		m.directTotal++
	case "event":
		m.eventTotal++
	}
	if cached {
		m.cacheHits++
	}
	m.lastL1Block = l1Block
	m.lastOracleBlock = oracleBlock
	m.chainCount[chainID]++
}

func (m *Metrics) IncValidationErr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationErrs++
}

func (m *Metrics) IncNotFoundErr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notFoundErrs++
}

func (m *Metrics) IncProtocolErr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.protocolErrs++
}

func (m *Metrics) IncUpstreamErr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upstreamErrs++
}

type Snapshot struct {
	StartTime        time.Time
	DerivationsTotal uint64
	DirectTotal      uint64
	EventTotal       uint64
	CacheHits        uint64
	ValidationErrs   uint64
	NotFoundErrs     uint64
	ProtocolErrs     uint64
	UpstreamErrs     uint64
	LastL1Block      uint64
	LastOracleBlock  uint64
	ChainCount       map[uint64]uint64
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		StartTime:        m.startTime,
		DerivationsTotal: m.derivationsTotal,
		DirectTotal:      m.directTotal,
		EventTotal:       m.eventTotal,
		CacheHits:        m.cacheHits,
		ValidationErrs:   m.validationErrs,
		NotFoundErrs:     m.notFoundErrs,
		ProtocolErrs:     m.protocolErrs,
		UpstreamErrs:     m.upstreamErrs,
		LastL1Block:      m.lastL1Block,
		LastOracleBlock:  m.lastOracleBlock,
		ChainCount:       copyChainCounts(m.chainCount),
	}
}

func copyChainCounts(source map[uint64]uint64) map[uint64]uint64 {
	if len(source) == 0 {
		return nil
	}
	clone := make(map[uint64]uint64, len(source))
	for key, value := range source {
		clone[key] = value
	}
	return clone
}

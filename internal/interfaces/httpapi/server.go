package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xFacet/facet-tx-worker/internal/application"
	"github.com/0xFacet/facet-tx-worker/internal/config"
	"github.com/0xFacet/facet-tx-worker/internal/domain"
	"github.com/0xFacet/facet-tx-worker/internal/protocol"
)

// Deriver is the derivation capability the HTTP layer fronts.
type Deriver interface {
	Derive(ctx context.Context, chainID uint64, txHash common.Hash) (*application.Result, error)
}

// ReadyProbe is a named dependency the readiness endpoint pings.
type ReadyProbe struct {
	Name string
	Ping func(ctx context.Context) error
}

type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

type Server struct {
	cfg       config.Config
	deriver   Deriver
	probes    []ReadyProbe
	metrics   *Metrics
	buildInfo BuildInfo
}

func NewServer(cfg config.Config, deriver Deriver, probes []ReadyProbe, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if deriver == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{cfg: cfg, deriver: deriver, probes: probes, metrics: metrics, buildInfo: buildInfo}, nil
}

func (s *Server) MetricsObserver() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDerive)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/chains", s.handleChains)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/version", s.handleVersion)
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	chainID, err := parseChainID(r)
	if err != nil {
		s.metrics.IncValidationErr()
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	txHash, err := parseTxHash(r)
	if err != nil {
		s.metrics.IncValidationErr()
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.deriver.Derive(r.Context(), chainID, txHash)
	if err != nil {
		status := s.classifyError(err)
		respondError(w, status, err.Error())
		return
	}

	s.metrics.OnDerivation(chainID, string(result.Path), result.Cached, result.L1Block, result.OracleBlock)
	respondJSON(w, http.StatusOK, map[string]string{
		"facetTransactionHash": result.FacetTxHash.Hex(),
	})
}

// classifyError maps pipeline failures onto the wire status codes. Upstream
// failures keep their message so callers can see the provider error verbatim.
func (s *Server) classifyError(err error) int {
	switch {
	case errors.Is(err, application.ErrUnsupportedChain):
		s.metrics.IncValidationErr()
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrMalformedEnvelope),
		errors.Is(err, protocol.ErrNoFacetEvent),
		errors.Is(err, protocol.ErrInvalidRlpPayload):
		s.metrics.IncProtocolErr()
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.IncNotFoundErr()
		return http.StatusNotFound
	default:
		s.metrics.IncUpstreamErr()
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, probe := range s.probes {
		if err := probe.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, probe.Name+" not ready")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	type chainEntry struct {
		L1ChainID uint64 `json:"l1_chain_id"`
		L2ChainID uint64 `json:"l2_chain_id"`
	}
	chains := make([]chainEntry, 0, len(s.cfg.Chains))
	for _, chain := range s.cfg.Chains {
		chains = append(chains, chainEntry{
			L1ChainID: chain.L1ChainID,
			L2ChainID: chain.L2ChainID,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"chains": chains})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	snap := s.metrics.Snapshot()

	uptime := time.Since(snap.StartTime).Seconds()
	fmt.Fprintf(w, "facetworker_uptime_seconds %.0f\n", uptime)
	fmt.Fprintf(w, "facetworker_derivations_total %d\n", snap.DerivationsTotal)
	fmt.Fprintf(w, "facetworker_derivations_direct_total %d\n", snap.DirectTotal)
	fmt.Fprintf(w, "facetworker_derivations_event_total %d\n", snap.EventTotal)
	fmt.Fprintf(w, "facetworker_cache_hits_total %d\n", snap.CacheHits)
	fmt.Fprintf(w, "facetworker_errors_validation_total %d\n", snap.ValidationErrs)
	fmt.Fprintf(w, "facetworker_errors_not_found_total %d\n", snap.NotFoundErrs)
	fmt.Fprintf(w, "facetworker_errors_protocol_total %d\n", snap.ProtocolErrs)
	fmt.Fprintf(w, "facetworker_errors_upstream_total %d\n", snap.UpstreamErrs)
	fmt.Fprintf(w, "facetworker_last_l1_block %d\n", snap.LastL1Block)
	fmt.Fprintf(w, "facetworker_last_oracle_block %d\n", snap.LastOracleBlock)
	for chainID, count := range snap.ChainCount {
		fmt.Fprintf(w, "facetworker_derivations_chain_total{chain_id=\"%d\"} %d\n", chainID, count)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

func parseChainID(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("chainId")
	if raw == "" {
		return 0, errors.New("Invalid chainId")
	}
	chainID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("Invalid chainId")
	}
	return chainID, nil
}

func parseTxHash(r *http.Request) (common.Hash, error) {
	raw := r.URL.Query().Get("txHash")
	if raw == "" {
		return common.Hash{}, errors.New("txHash is required")
	}
	if !strings.HasPrefix(raw, "0x") || len(raw) != 66 {
		return common.Hash{}, errors.New("invalid txHash")
	}
	for _, c := range raw[2:] {
		if !isHexDigit(c) {
			return common.Hash{}, errors.New("invalid txHash")
		}
	}
	return common.HexToHash(raw), nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

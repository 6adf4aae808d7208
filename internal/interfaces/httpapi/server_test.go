package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xFacet/facet-tx-worker/internal/application"
	"github.com/0xFacet/facet-tx-worker/internal/config"
	"github.com/0xFacet/facet-tx-worker/internal/domain"
	"github.com/0xFacet/facet-tx-worker/internal/protocol"
)

type stubDeriver struct {
	result *application.Result
	err    error

	lastChainID uint64
	lastTxHash  common.Hash
}

func (d *stubDeriver) Derive(ctx context.Context, chainID uint64, txHash common.Hash) (*application.Result, error) {
	d.lastChainID = chainID
	d.lastTxHash = txHash
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

func testConfig() config.Config {
	return config.Config{
		HTTPAddr: ":0",
		Chains: map[uint64]config.ChainConfig{
			config.MainnetChainID: {
				L1ChainID: config.MainnetChainID,
				L2ChainID: config.FacetMainnetChainID,
			},
		},
	}
}

func newTestServer(t *testing.T, deriver Deriver, probes []ReadyProbe) *Server {
	t.Helper()
	server, err := NewServer(testConfig(), deriver, probes, NewMetrics(), BuildInfo{Version: "test"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return server
}

func deriveRequest(chainID, txHash string) *http.Request {
	target := "/"
	query := make([]string, 0, 2)
	if chainID != "" {
		query = append(query, "chainId="+chainID)
	}
	if txHash != "" {
		query = append(query, "txHash="+txHash)
	}
	if len(query) > 0 {
		target += "?" + strings.Join(query, "&")
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestDeriveSuccess(t *testing.T) {
	facetHash := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	to := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	deriver := &stubDeriver{result: &application.Result{
		FacetTxHash: facetHash,
		Tx: &domain.CanonicalTransaction{
			To:            &to,
			Value:         big.NewInt(1),
			GasLimit:      21000,
			FCTMintAmount: big.NewInt(168000),
		},
		Path:        protocol.PathDirect,
		MintRate:    big.NewInt(1000),
		OracleBlock: 499998,
		L1Block:     123,
	}}
	server := newTestServer(t, deriver, nil)

	txHash := "0x" + strings.Repeat("ab", 32)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, deriveRequest("1", txHash))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := body["facetTransactionHash"]; got != facetHash.Hex() {
		t.Fatalf("facetTransactionHash = %q, want %q", got, facetHash.Hex())
	}
	if len(body) != 1 {
		t.Fatalf("response has %d fields, want 1: %v", len(body), body)
	}
	if deriver.lastChainID != 1 {
		t.Fatalf("deriver called with chain %d, want 1", deriver.lastChainID)
	}
	if deriver.lastTxHash != common.HexToHash(txHash) {
		t.Fatalf("deriver called with hash %s, want %s", deriver.lastTxHash.Hex(), txHash)
	}
}

func TestDeriveUnsupportedChain(t *testing.T) {
	deriver := &stubDeriver{err: application.ErrUnsupportedChain}
	server := newTestServer(t, deriver, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, deriveRequest("5", "0x"+strings.Repeat("ab", 32)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "Invalid chainId") {
		t.Fatalf("body %q does not mention Invalid chainId", rec.Body.String())
	}
}

func TestDeriveMissingParams(t *testing.T) {
	cases := []struct {
		name    string
		chainID string
		txHash  string
	}{
		{"no chainId", "", "0x" + strings.Repeat("ab", 32)},
		{"no txHash", "1", ""},
		{"bad chainId", "mainnet", "0x" + strings.Repeat("ab", 32)},
		{"short txHash", "1", "0xabcd"},
		{"non hex txHash", "1", "0x" + strings.Repeat("zz", 32)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deriver := &stubDeriver{err: errors.New("deriver must not be called")}
			server := newTestServer(t, deriver, nil)

			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, deriveRequest(tc.chainID, tc.txHash))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
		})
	}
}

func TestDeriveErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"no facet event", fmt.Errorf("derive: %w", protocol.ErrNoFacetEvent), http.StatusBadRequest, "No Facet event found"},
		{"malformed envelope", protocol.ErrMalformedEnvelope, http.StatusBadRequest, "malformed"},
		{"invalid rlp", protocol.ErrInvalidRlpPayload, http.StatusBadRequest, "invalid RLP"},
		{"not found", fmt.Errorf("fetch source transaction: %w", domain.ErrNotFound), http.StatusNotFound, "not found"},
		{"upstream", errors.New("connection refused by provider"), http.StatusInternalServerError, "connection refused by provider"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(t, &stubDeriver{err: tc.err}, nil)

			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, deriveRequest("1", "0x"+strings.Repeat("ab", 32)))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestDeriveMethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &stubDeriver{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/?chainId=1&txHash=0x"+strings.Repeat("ab", 32), nil)
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, &stubDeriver{}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyz(t *testing.T) {
	ok := ReadyProbe{Name: "rpc", Ping: func(ctx context.Context) error { return nil }}
	failing := ReadyProbe{Name: "redis", Ping: func(ctx context.Context) error { return errors.New("down") }}

	server := newTestServer(t, &stubDeriver{}, []ReadyProbe{ok})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	server = newTestServer(t, &stubDeriver{}, []ReadyProbe{ok, failing})
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(rec.Body.String(), "redis") {
		t.Fatalf("body %q does not name the failing probe", rec.Body.String())
	}
}

func TestChains(t *testing.T) {
	server := newTestServer(t, &stubDeriver{}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chains", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Chains []struct {
			L1ChainID uint64 `json:"l1_chain_id"`
			L2ChainID uint64 `json:"l2_chain_id"`
		} `json:"chains"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Chains) != 1 {
		t.Fatalf("chains = %d, want 1", len(body.Chains))
	}
	if body.Chains[0].L1ChainID != 1 || body.Chains[0].L2ChainID != config.FacetMainnetChainID {
		t.Fatalf("unexpected chain entry: %+v", body.Chains[0])
	}
}

func TestMetricsExposition(t *testing.T) {
	facetHash := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
	deriver := &stubDeriver{result: &application.Result{
		FacetTxHash: facetHash,
		Tx:          &domain.CanonicalTransaction{GasLimit: 21000},
		Path:        protocol.PathEvent,
		OracleBlock: 42,
		L1Block:     7,
	}}
	server := newTestServer(t, deriver, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, deriveRequest("1", "0x"+strings.Repeat("cd", 32)))
	if rec.Code != http.StatusOK {
		t.Fatalf("derive status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"facetworker_derivations_total 1",
		"facetworker_derivations_event_total 1",
		"facetworker_last_l1_block 7",
		"facetworker_last_oracle_block 42",
		"facetworker_derivations_chain_total{chain_id=\"1\"} 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestUnknownPath(t *testing.T) {
	server := newTestServer(t, &stubDeriver{}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

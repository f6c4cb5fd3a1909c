// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/api/middleware"
	"github.com/vechain/stakingpool/genesis"
	"github.com/vechain/stakingpool/metrics"
	"github.com/vechain/stakingpool/node"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func httpDo(t *testing.T, method, url, body string) ([]byte, *http.Response) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return data, res
}

func TestAPI(t *testing.T) {
	n, err := node.Open(genesis.NewDevnet(), node.Options{Clock: func() uint64 { return 1700003700 }})
	require.NoError(t, err)
	defer n.Close()

	var reqLogs atomic.Bool
	handler, closeSubs := New(n, Options{
		AllowedOrigins:  "https://example.org",
		BacktraceLimit:  100,
		EnableReqLogger: &reqLogs,
		EnableMetrics:   true,
		LogsLimit:       10,
	})
	defer closeSubs()

	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	router.PathPrefix("/").Handler(handler)
	ts := httptest.NewServer(router)
	defer ts.Close()

	body, res := httpDo(t, http.MethodGet, ts.URL+"/pools", "")
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.Equal(t, n.GenesisID().String(), res.Header.Get("x-genesis-id"))
	assert.Equal(t, "https://example.org", res.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, res.Header.Get(middleware.RequestIDHeader))

	dev := genesis.DevAccounts()
	body, res = httpDo(t, http.MethodPost, ts.URL+"/pools/liquidity/calls",
		`{"op":"stake","caller":"`+dev[1].String()+`","args":{"amount":"1000"}}`)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.Contains(t, string(body), `"blockNumber":1`)

	body, res = httpDo(t, http.MethodPost, ts.URL+"/events", `{"name":"Staked"}`)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.Contains(t, string(body), `"name":"Staked"`)

	body, res = httpDo(t, http.MethodGet, ts.URL+"/node/info", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), n.GenesisID().String())

	body, res = httpDo(t, http.MethodGet, ts.URL+"/doc/poold.yaml", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "openapi")

	_, res = httpDo(t, http.MethodGet, ts.URL+"/pools/nowhere", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	body, _ = httpDo(t, http.MethodGet, ts.URL+"/metrics", "")
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	require.NoError(t, err)

	family, ok := families["stakingpool_api_request_count"]
	require.True(t, ok)
	counts := make(map[string]float64)
	for _, m := range family.GetMetric() {
		labels := make(map[string]string)
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		counts[labels["name"]+" "+labels["code"]] += m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(1), counts["GET /pools 200"])
	assert.Equal(t, float64(1), counts["POST /pools/{pool}/calls 200"])
	assert.Equal(t, float64(1), counts["GET /pools/{pool} 404"])
	assert.Equal(t, float64(1), counts["POST /events 200"])
}

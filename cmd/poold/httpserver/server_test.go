// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/genesis"
	"github.com/vechain/stakingpool/metrics"
	"github.com/vechain/stakingpool/node"
)

func get(t *testing.T, url string) (int, string) {
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestStartServers(t *testing.T) {
	metrics.InitializePrometheusMetrics()
	metrics.Counter("httpserver_test_count").Add(1)

	url, stop, err := StartMetricsServer("localhost:0")
	require.NoError(t, err)
	defer stop()
	assert.True(t, strings.HasSuffix(url, "/metrics"))

	code, body := get(t, url)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "httpserver_test_count")

	n, err := node.Open(genesis.NewDevnet(), node.Options{})
	require.NoError(t, err)
	defer n.Close()

	var level slog.LevelVar
	var apiLogs atomic.Bool
	adminURL, stopAdmin, err := StartAdminServer("localhost:0", &level, &apiLogs, n)
	require.NoError(t, err)
	defer stopAdmin()

	code, body = get(t, adminURL+"/loglevel")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "info")

	var stopped atomic.Bool
	apiURL, stopAPI, err := StartAPIServer("localhost:0", http.NotFoundHandler(), func() { stopped.Store(true) })
	require.NoError(t, err)
	code, _ = get(t, apiURL+"pools")
	assert.Equal(t, http.StatusNotFound, code)
	stopAPI()
	assert.True(t, stopped.Load())
}

func TestListenError(t *testing.T) {
	_, _, err := StartMetricsServer("256.0.0.1:-1")
	assert.Error(t, err)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/genesis"
	"github.com/vechain/stakingpool/node"
)

func TestAdminRoutes(t *testing.T) {
	n, err := node.Open(genesis.NewDevnet(), node.Options{})
	require.NoError(t, err)
	defer n.Close()

	var level slog.LevelVar
	var apiLogs atomic.Bool
	ts := httptest.NewServer(New(&level, &apiLogs, n))
	defer ts.Close()

	for _, path := range []string{"/admin/loglevel", "/admin/apilogs", "/admin/health"} {
		res, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
	}

	res, err := http.Post(ts.URL+"/admin/apilogs", "application/json", strings.NewReader(`{"enabled":true}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.True(t, apiLogs.Load())

	res, err = http.Get(ts.URL + "/loglevel")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

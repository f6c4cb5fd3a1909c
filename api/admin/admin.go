// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/stakingpool/api/admin/apilogs"
	healthAPI "github.com/vechain/stakingpool/api/admin/health"
	"github.com/vechain/stakingpool/api/admin/loglevel"
	"github.com/vechain/stakingpool/node"
)

// New returns the admin router serving log level, api log and health endpoints under /admin.
func New(logLevel *slog.LevelVar, apiLogs *atomic.Bool, n *node.Node) http.HandlerFunc {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	loglevel.New(logLevel).Mount(sub, "/loglevel")
	apilogs.New(apiLogs).Mount(sub, "/apilogs")
	healthAPI.New(n).Mount(sub, "/health")

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}

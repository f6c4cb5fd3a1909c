// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/stakingpool/api/doc"
	"github.com/vechain/stakingpool/api/events"
	"github.com/vechain/stakingpool/api/middleware"
	apinode "github.com/vechain/stakingpool/api/node"
	"github.com/vechain/stakingpool/api/pools"
	"github.com/vechain/stakingpool/api/subscriptions"
	"github.com/vechain/stakingpool/log"
	"github.com/vechain/stakingpool/node"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins       string
	BacktraceLimit       uint32
	PprofOn              bool
	SkipLogs             bool
	EnableReqLogger      *atomic.Bool
	SlowQueriesThreshold time.Duration
	EnableMetrics        bool
	LogsLimit            uint64
}

// New return api router, and a func closing the open subscriptions.
func New(n *node.Node, opts Options) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	router.Path("/doc/poold.yaml").HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			http.ServeFileFS(w, req, doc.FS, "poold.yaml")
		})

	pools.New(n).
		Mount(router, "/pools")
	if !opts.SkipLogs {
		events.New(n.EventDB(), opts.LogsLimit).
			Mount(router, "/events")
	}
	apinode.New(n).
		Mount(router, "/node")
	subs := subscriptions.New(n, origins, opts.BacktraceLimit)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	genesisID := n.GenesisID().String()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("x-genesis-id", genesisID)
			w.Header().Set("x-poold-ver", doc.Version())
			next.ServeHTTP(w, req)
		})
	})

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "x-genesis-id", middleware.RequestIDHeader}),
		handlers.ExposedHeaders([]string{"x-genesis-id", "x-poold-ver", middleware.RequestIDHeader}),
	)(handler)

	if opts.EnableReqLogger != nil {
		handler = middleware.RequestLoggerMiddleware(logger, opts.EnableReqLogger, opts.SlowQueriesThreshold)(handler)
	}

	return handler.ServeHTTP, subs.Close
}

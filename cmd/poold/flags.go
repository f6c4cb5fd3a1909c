// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for ledger databases",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to the pool genesis file, if not set, the devnet genesis is used",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8679",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiBacktraceLimitFlag = cli.Uint64Flag{
		Name:  "api-backtrace-limit",
		Value: 1000,
		Usage: "limit the distance between 'position' and best block for subscriptions APIs",
	}
	apiLogsLimitFlag = cli.Uint64Flag{
		Name:  "api-logs-limit",
		Value: 1000,
		Usage: "limit the number of events returned by /events API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiSlowQueriesThresholdFlag = cli.Uint64Flag{
		Name:  "api-slow-queries-threshold",
		Value: 0,
		Usage: "all queries with duration(ms) above threshold will be logged",
	}
	skipLogsFlag = cli.BoolFlag{
		Name:  "skip-logs",
		Usage: "disable the /events API",
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	logDirFlag = cli.StringFlag{
		Name:  "log-dir",
		Usage: "also write logs into rotated files in this directory",
	}
	cacheFlag = cli.Uint64Flag{
		Name:  "cache",
		Value: 256,
		Usage: "megabytes of ram allocated to the ledger database cache",
	}
	stateCacheFlag = cli.Uint64Flag{
		Name:  "state-cache",
		Value: 65536,
		Usage: "number of storage slots kept in the read cache",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2122",
		Usage: "metrics service listening address",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2123",
		Usage: "admin service listening address",
	}
	ntpCheckFlag = cli.BoolFlag{
		Name:  "ntp-check",
		Usage: "warn at startup when the local clock drifts from pool.ntp.org",
	}

	// replay only
	stepTimeFlag = cli.Uint64Flag{
		Name:  "step",
		Value: 10,
		Usage: "seconds between calls that carry no time",
	}
	quietFlag = cli.BoolFlag{
		Name:  "quiet",
		Usage: "don't print the per call outcome",
	}

	// clean only
	forceFlag = cli.BoolFlag{
		Name:  "force",
		Usage: "remove without asking for confirmation",
	}
)

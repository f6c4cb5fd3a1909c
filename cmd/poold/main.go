// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakingpool/api"
	"github.com/vechain/stakingpool/cmd/poold/httpserver"
	"github.com/vechain/stakingpool/log"
	"github.com/vechain/stakingpool/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func newApp() *cli.App {
	return &cli.App{
		Version:   fullVersion(),
		Name:      "Poold",
		Usage:     "Staking pool ledger with borrowing, debt socialization and slashing",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			dataDirFlag,
			genesisFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiBacktraceLimitFlag,
			apiLogsLimitFlag,
			enableAPILogsFlag,
			apiSlowQueriesThresholdFlag,
			skipLogsFlag,
			verbosityFlag,
			jsonLogsFlag,
			logDirFlag,
			cacheFlag,
			stateCacheFlag,
			pprofFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
			ntpCheckFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:      "replay",
				Usage:     "apply a yaml list of ledger calls and print the outcome",
				ArgsUsage: "<calls.yaml>",
				Flags: []cli.Flag{
					dataDirFlag,
					genesisFlag,
					verbosityFlag,
					jsonLogsFlag,
					stepTimeFlag,
					quietFlag,
				},
				Action: replayAction,
			},
			{
				Name:  "clean",
				Usage: "remove the ledger databases of a genesis",
				Flags: []cli.Flag{
					dataDirFlag,
					genesisFlag,
					forceFlag,
				},
				Action: cleanAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()

	defer func() { log.Info("exited") }()

	logLevel, closeLogs, err := initLogger(ctx)
	if err != nil {
		return err
	}
	defer closeLogs()

	gene, err := loadGenesis(ctx)
	if err != nil {
		return err
	}

	// metrics must be set up before any meter is touched
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	dir, err := instanceDir(ctx, gene)
	if err != nil {
		return err
	}
	n, err := openNode(ctx, gene, dir)
	if err != nil {
		return err
	}
	defer func() { log.Info("closing ledger..."); n.Close() }()

	apiLogs := &atomic.Bool{}
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	apiHandler, closeSubs := api.New(n, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		BacktraceLimit:       uint32(ctx.Uint64(apiBacktraceLimitFlag.Name)),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		SkipLogs:             ctx.Bool(skipLogsFlag.Name),
		EnableReqLogger:      apiLogs,
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
		LogsLimit:            ctx.Uint64(apiLogsLimitFlag.Name),
	})
	apiURL, stopAPI, err := httpserver.StartAPIServer(ctx.String(apiAddrFlag.Name), apiHandler, closeSubs)
	if err != nil {
		return err
	}
	defer func() { log.Info("stopping API server..."); stopAPI() }()

	var metricsURL string
	if ctx.Bool(enableMetricsFlag.Name) {
		url, stop, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		defer func() { log.Info("stopping metrics server..."); stop() }()
		metricsURL = url
	}

	var adminURL string
	if ctx.Bool(enableAdminFlag.Name) {
		url, stop, err := httpserver.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, apiLogs, n)
		if err != nil {
			return err
		}
		defer func() { log.Info("stopping admin server..."); stop() }()
		adminURL = url
	}

	printStartupMessage(gene, n, dir, apiURL, metricsURL, adminURL)

	group, groupCtx := errgroup.WithContext(exitSignal)
	group.Go(func() error {
		return n.Run(groupCtx)
	})
	if ctx.Bool(ntpCheckFlag.Name) {
		group.Go(func() error {
			clockCheckLoop(groupCtx)
			return nil
		})
	}
	return group.Wait()
}

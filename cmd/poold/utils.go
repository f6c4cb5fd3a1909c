// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/beevik/ntp"
	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakingpool/cmd/poold/rotatewriter"
	"github.com/vechain/stakingpool/genesis"
	"github.com/vechain/stakingpool/log"
	"github.com/vechain/stakingpool/node"
)

const (
	ntpServer        = "pool.ntp.org"
	maxClockOffset   = 2 * time.Second
	clockCheckPeriod = time.Hour
)

func fatal(args ...any) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

// initLogger installs the root logger and returns its level, adjustable at runtime.
// The returned func flushes and closes the log files, if any.
func initLogger(ctx *cli.Context) (*slog.LevelVar, func(), error) {
	lvl := &slog.LevelVar{}
	lvl.Set(log.FromLegacyLevel(int(ctx.Uint64(verbosityFlag.Name))))

	var (
		output   io.Writer = os.Stderr
		useColor           = isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
		closer             = func() {}
	)
	if dir := ctx.String(logDirFlag.Name); dir != "" {
		w, err := rotatewriter.New(
			rotatewriter.WithDir(dir),
			rotatewriter.WithFileBaseName("poold"),
			rotatewriter.WithFileMaxSize(64<<20),
			rotatewriter.WithMaxNumberFiles(10),
		)
		if err != nil {
			return nil, nil, err
		}
		output = io.MultiWriter(os.Stderr, w)
		useColor = false
		closer = func() { w.Close() }
	}

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(output, lvl)
	} else {
		handler = log.NewTerminalHandlerWithLevel(output, lvl, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return lvl, closer, nil
}

func loadGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet(), nil
	}
	return genesis.Load(path)
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "org.vechain.poold")
		case "windows":
			return filepath.Join(home, "AppData", "Roaming", "org.vechain.poold")
		default:
			return filepath.Join(home, ".org.vechain.poold")
		}
	}
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// instanceDir is the ledger directory of a genesis under the data dir.
func instanceDir(ctx *cli.Context, gene *genesis.Genesis) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", fmt.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	id, err := gene.ID()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, fmt.Sprintf("instance-%x", id.Bytes()[24:])), nil
}

func readIntFromUInt64Flag(val uint64) (int, error) {
	if val > math.MaxInt {
		return 0, fmt.Errorf("value %d exceeds max int", val)
	}
	return int(val), nil
}

func openNode(ctx *cli.Context, gene *genesis.Genesis, dir string) (*node.Node, error) {
	stateCache, err := readIntFromUInt64Flag(ctx.Uint64(stateCacheFlag.Name))
	if err != nil {
		return nil, errors.WithMessage(err, stateCacheFlag.Name)
	}
	opts := node.Options{
		DataDir:    dir,
		StateCache: stateCache,
	}
	if dir != "" {
		cacheMB, err := readIntFromUInt64Flag(ctx.Uint64(cacheFlag.Name))
		if err != nil {
			return nil, errors.WithMessage(err, cacheFlag.Name)
		}
		cacheMB = normalizeCacheSize(cacheMB)
		log.Debug("cache size(MB)", "size", cacheMB)

		// keep the GC from counting the database cache
		gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))
		log.Debug("sanitize Go's GC trigger", "percent", int(gogc))
		debug.SetGCPercent(int(gogc))

		fdCache, err := suggestFDCache()
		if err != nil {
			return nil, err
		}
		log.Debug("fd cache", "n", fdCache)

		opts.CacheSize = cacheMB
		opts.OpenFiles = fdCache
	}
	n, err := node.Open(gene, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "open ledger [%v]", dir)
	}
	return n, nil
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem", "err", err)
	} else {
		// limit to 1/4 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 4)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() (int, error) {
	limit, err := fdlimit.Current()
	if err != nil {
		return 0, errors.Wrap(err, "get fd limit")
	}
	if limit <= 1024 {
		log.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 1024 {
		return 1024, nil
	}
	return n, nil
}

// checkClockOffset warns when the local clock is off. Epoch boundaries and
// blackout windows are computed from it.
func checkClockOffset() {
	resp, err := ntp.Query(ntpServer)
	if err != nil {
		log.Debug("failed to access NTP", "err", err)
		return
	}
	offset := resp.ClockOffset
	if offset < 0 {
		offset = -offset
	}
	if offset > maxClockOffset {
		log.Warn("clock offset detected", "offset", common.PrettyDuration(resp.ClockOffset))
	}
}

func clockCheckLoop(ctx context.Context) {
	ticker := time.NewTicker(clockCheckPeriod)
	defer ticker.Stop()
	for {
		checkClockOffset()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

// sizeOfDir is the disk usage in bytes of the files under path.
func sizeOfDir(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

func printStartupMessage(gene *genesis.Genesis, n *node.Node, dir, apiURL, metricsURL, adminURL string) {
	best := n.Best()
	if dir == "" {
		dir = "Memory"
	}
	if metricsURL == "" {
		metricsURL = "Disabled"
	}
	if adminURL == "" {
		adminURL = "Disabled"
	}
	fmt.Printf(`Starting %v
    Genesis      [ %v ]
    Pools        [ %v ]
    Best block   [ #%v %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
    Metrics      [ %v ]
    Admin        [ %v ]
`,
		"Poold/"+fullVersion(),
		n.GenesisID(),
		len(gene.Pools),
		best.Number, time.Unix(int64(best.Time), 0).UTC().Format(time.RFC3339),
		dir,
		apiURL,
		metricsURL,
		adminURL,
	)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/log"
	"github.com/vechain/stakingpool/node"
)

// replayStats counts the outcome of a replay.
type replayStats struct {
	Applied  int
	Reverted int
}

func replayAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()

	if ctx.NArg() != 1 {
		return errors.New("expect exactly one calls file")
	}
	_, closeLogs, err := initLogger(ctx)
	if err != nil {
		return err
	}
	defer closeLogs()

	calls, err := loadCalls(ctx.Args().First())
	if err != nil {
		return err
	}
	gene, err := loadGenesis(ctx)
	if err != nil {
		return err
	}

	// replays run in memory unless a data dir is asked for
	var dir string
	if ctx.IsSet(dataDirFlag.Name) {
		if dir, err = instanceDir(ctx, gene); err != nil {
			return err
		}
	}
	n, err := openNode(ctx, gene, dir)
	if err != nil {
		return err
	}
	defer n.Close()

	var bar *pb.ProgressBar
	quiet := ctx.Bool(quietFlag.Name)
	if quiet && isatty.IsTerminal(os.Stdout.Fd()) {
		bar = pb.New(len(calls)).SetMaxWidth(90).Start()
		defer func() { bar.NotPrint = true }()
	}

	var out io.Writer = os.Stdout
	if quiet {
		out = io.Discard
	}
	stats, err := replay(exitSignal, n, calls, ctx.Uint64(stepTimeFlag.Name), out, func() {
		if bar != nil {
			bar.Increment()
		}
	})
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}

	fmt.Printf("applied %d calls, %d reverted\n", stats.Applied, stats.Reverted)
	return printTotals(os.Stdout, n)
}

func loadCalls(path string) ([]*node.Call, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read calls file")
	}
	var calls []*node.Call
	if err := yaml.Unmarshal(data, &calls); err != nil {
		return nil, errors.Wrap(err, "decode calls file")
	}
	return calls, nil
}

// replay executes each call in its own block. Calls without a time run step
// seconds after the previous block. Reverted calls are reported and skipped,
// malformed ones stop the replay.
func replay(ctx context.Context, n *node.Node, calls []*node.Call, step uint64, out io.Writer, progress func()) (*replayStats, error) {
	var stats replayStats
	last := n.Best().Time
	for i, call := range calls {
		select {
		case <-ctx.Done():
			return &stats, ctx.Err()
		default:
		}

		at := call.Time
		if at == 0 {
			at = last + step
		}

		var result *big.Int
		receipt, err := n.Execute(at, func(pools *node.Pools) (err error) {
			result, err = call.Apply(pools)
			return
		})
		switch {
		case err == nil:
			stats.Applied++
			last = receipt.Block.Time
			fmt.Fprintf(out, "#%d %s %s by %s: ok", receipt.Block.Number, call.Pool, call.Op, call.Caller)
			if result != nil {
				fmt.Fprintf(out, " result=%s", result)
			}
			fmt.Fprintf(out, " events=%d\n", len(receipt.Events))
		case reverts.IsRevertErr(err):
			stats.Reverted++
			fmt.Fprintf(out, "-- %s %s by %s: reverted: %v\n", call.Pool, call.Op, call.Caller, err)
			log.Debug("call reverted", "index", i, "op", call.Op, "err", err)
		default:
			return &stats, errors.WithMessagef(err, "call %d (%s)", i, call.Op)
		}
		if progress != nil {
			progress()
		}
	}
	return &stats, nil
}

func printTotals(w io.Writer, n *node.Node) error {
	best := n.Best()
	fmt.Fprintf(w, "best block #%d at %d\n", best.Number, best.Time)
	return n.View(func(pools *node.Pools) error {
		for _, p := range pools.All() {
			totals, err := p.Totals()
			if err != nil {
				return err
			}
			current, next := totals.Sum()
			fmt.Fprintf(w, "%s (%s): staked %s, next epoch %s, active %s\n",
				pools.Name(p.Address()), p.Kind(), current, next, totals.Active.Current)

			switch p.Kind() {
			case staking.KindLiquidity:
				borrowed, err := p.TotalBorrowed()
				if err != nil {
					return err
				}
				shortfall, err := p.Shortfall()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  borrowed %s, unresolved shortfall %s\n", borrowed, shortfall)
			case staking.KindSafetyModule:
				rate, err := p.ExchangeRate()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  exchange rate %s\n", rate.Dec())
			}
		}
		return nil
	})
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/eventdb"
	"github.com/vechain/stakingpool/xenv"
)

// Receipt is the outcome of a committed block.
type Receipt struct {
	Block  Block
	Events []*staking.Event
}

// Execute runs fn in a new block and commits it when fn succeeds.
// The block time is at when non zero, otherwise the node clock held to the best block time.
// A failing fn leaves the ledger untouched.
func (n *Node) Execute(at uint64, fn func(pools *Pools) error) (*Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	receipt, err := n.execute(at, fn)

	status := "ok"
	if err != nil {
		status = "failed"
	}
	metricExecDuration().ObserveWithLabels(time.Since(start).Milliseconds(), map[string]string{"status": status})
	return receipt, err
}

func (n *Node) execute(at uint64, fn func(pools *Pools) error) (*Receipt, error) {
	explicit := at != 0
	if !explicit {
		at = n.opts.Clock()
	}
	if at < n.best.Time {
		if explicit {
			return nil, fmt.Errorf("block time %d is before the best block time %d", at, n.best.Time)
		}
		at = n.best.Time
	}
	blk := Block{Number: n.best.Number + 1, Time: at}

	st := n.stater.NewState()
	pools, err := newPools(n.gen, st, &xenv.BlockContext{Number: blk.Number, Time: blk.Time})
	if err != nil {
		return nil, err
	}
	if err := fn(pools); err != nil {
		return nil, err
	}
	events := pools.takeEvents()

	if blk.Root, err = st.Stage().Commit(); err != nil {
		return nil, errors.WithMessage(err, "commit state")
	}
	if err := n.putMeta(bestKey, &blk); err != nil {
		return nil, errors.WithMessage(err, "save best block")
	}
	n.best = blk

	if len(events) > 0 {
		if err := n.eventDB.Write(toDBEvents(events)); err != nil {
			logger.Error("failed to write events", "block", blk.Number, "err", err)
			return nil, errors.WithMessage(err, "write events")
		}
		metricBlockEvents().Add(int64(len(events)))
	}
	n.newBlock.Broadcast()

	logger.Debug("block committed", "number", blk.Number, "time", blk.Time, "events", len(events), "root", blk.Root)
	return &Receipt{Block: blk, Events: events}, nil
}

// View runs fn against the ledger state of the best block at the node clock. Writes are discarded.
// Blocks are not committed while fn runs.
func (n *Node) View(fn func(pools *Pools) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	best := n.best
	now := n.opts.Clock()
	if now < best.Time {
		now = best.Time
	}
	pools, err := newPools(n.gen, n.stater.NewState(), &xenv.BlockContext{Number: best.Number, Time: now})
	if err != nil {
		return err
	}
	return fn(pools)
}

func toDBEvents(events []*staking.Event) []*eventdb.Event {
	out := make([]*eventdb.Event, 0, len(events))
	for i, ev := range events {
		out = append(out, &eventdb.Event{
			BlockNumber:  ev.BlockNumber,
			Index:        uint32(i),
			BlockTime:    ev.BlockTime,
			Pool:         ev.Pool,
			Name:         ev.Name,
			Topic:        ev.Topic(),
			Account:      ev.Account,
			Counterparty: ev.Counterparty,
			Amount:       ev.Amount,
			Meta:         ev.Meta,
		})
	}
	return out
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/builtin/staking/power"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/eventdb"
	"github.com/vechain/stakingpool/genesis"
)

const epochZero = 1700003600

type testClock struct {
	now atomic.Uint64
}

func (c *testClock) Now() uint64 { return c.now.Load() }

func newTestNode(t *testing.T, dir string) (*Node, *testClock) {
	clock := &testClock{}
	clock.now.Store(epochZero + 100)
	n, err := Open(genesis.NewDevnet(), Options{DataDir: dir, Clock: clock.Now})
	require.NoError(t, err)
	return n, clock
}

func TestExecute(t *testing.T) {
	n, clock := newTestNode(t, "")
	defer n.Close()

	assert.Equal(t, uint32(0), n.Best().Number)
	dev := genesis.DevAccounts()

	waiter := n.NewBlockWaiter()
	receipt, err := n.Execute(0, func(pools *Pools) error {
		_, err := (&Call{Pool: "liquidity", Op: "stake", Caller: dev[1], Args: Args{"amount": "1000"}}).Apply(pools)
		return err
	})
	require.NoError(t, err)
	<-waiter

	assert.Equal(t, uint32(1), receipt.Block.Number)
	assert.Equal(t, uint64(epochZero+100), receipt.Block.Time)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, staking.EventStaked, receipt.Events[0].Name)
	assert.Equal(t, n.Best(), receipt.Block)

	events, err := n.EventDB().Filter(context.Background(), &eventdb.Filter{Account: &dev[1]})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint32(1), events[0].BlockNumber)
	assert.Equal(t, "1000", events[0].Amount.String())

	// a failed call commits nothing
	_, err = n.Execute(0, func(pools *Pools) error {
		_, err := (&Call{Pool: "liquidity", Op: "request-withdrawal", Caller: dev[1], Args: Args{"amount": "1001"}}).Apply(pools)
		return err
	})
	assert.True(t, reverts.IsRevertErr(err))
	assert.Equal(t, uint32(1), n.Best().Number)

	// the clock going backwards is held at the best block time
	clock.now.Store(epochZero)
	receipt, err = n.Execute(0, func(pools *Pools) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, uint64(epochZero+100), receipt.Block.Time)
	assert.Empty(t, receipt.Events)

	_, err = n.Execute(epochZero+50, func(pools *Pools) error { return nil })
	assert.ErrorContains(t, err, "before the best block time")

	require.NoError(t, n.View(func(pools *Pools) error {
		p, ok := pools.Get("liquidity")
		require.True(t, ok)
		staker, err := p.Staker(dev[1])
		require.NoError(t, err)
		assert.Equal(t, "1000", staker.Active.Current.String())
		return nil
	}))
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	dev := genesis.DevAccounts()

	n, _ := newTestNode(t, dir)
	_, err := n.Execute(0, func(pools *Pools) error {
		_, err := (&Call{Pool: "safety", Op: "stake", Caller: dev[0], Args: Args{"amount": "0x100"}}).Apply(pools)
		return err
	})
	require.NoError(t, err)
	best := n.Best()
	require.NoError(t, n.Close())

	n, _ = newTestNode(t, dir)
	assert.Equal(t, best, n.Best())
	require.NoError(t, n.View(func(pools *Pools) error {
		p, ok := pools.Get("safety")
		require.True(t, ok)
		totals, err := p.Totals()
		require.NoError(t, err)
		assert.Equal(t, "256", totals.Active.Next.String())
		return nil
	}))
	require.NoError(t, n.Close())

	gen := genesis.NewDevnet()
	gen.Pools[0].Epoch.BlackoutWindow = 60
	_, err = Open(gen, Options{DataDir: dir})
	assert.ErrorContains(t, err, "genesis mismatch")
}

func TestViewHoldsCommits(t *testing.T) {
	n, _ := newTestNode(t, "")
	defer n.Close()
	dev := genesis.DevAccounts()

	stake := func(pools *Pools) error {
		_, err := (&Call{Pool: "liquidity", Op: "stake", Caller: dev[1], Args: Args{"amount": "1000"}}).Apply(pools)
		return err
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	viewed := make(chan error, 1)
	go func() {
		viewed <- n.View(func(pools *Pools) error {
			close(entered)
			<-release
			p, _ := pools.Get("liquidity")
			staker, err := p.Staker(dev[1])
			if err != nil {
				return err
			}
			if staker.Active.Current.Sign() != 0 {
				return errors.New("view saw a block committed after it started")
			}
			return nil
		})
	}()
	<-entered

	committed := make(chan error, 1)
	go func() {
		_, err := n.Execute(0, stake)
		committed <- err
	}()
	select {
	case err := <-committed:
		t.Fatalf("block committed during a view: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-viewed)
	require.NoError(t, <-committed)

	// the cache must not hold anything older than the commit
	require.NoError(t, n.View(func(pools *Pools) error {
		p, _ := pools.Get("liquidity")
		staker, err := p.Staker(dev[1])
		require.NoError(t, err)
		assert.Equal(t, "1000", staker.Active.Current.String())
		return nil
	}))
}

func TestViewReadsBestBlock(t *testing.T) {
	n, _ := newTestNode(t, "")
	defer n.Close()
	dev := genesis.DevAccounts()

	_, err := n.Execute(0, func(pools *Pools) error {
		_, err := (&Call{Pool: "liquidity", Op: "stake", Caller: dev[1], Args: Args{"amount": "1000"}}).Apply(pools)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, uint32(1), n.Best().Number)

	require.NoError(t, n.View(func(pools *Pools) error {
		p, _ := pools.Get("liquidity")
		pw, err := p.PowerAtBlock(dev[1], 1, power.Voting)
		require.NoError(t, err)
		assert.Equal(t, "1000", pw.String())

		_, err = p.PowerAtBlock(dev[1], 2, power.Voting)
		assert.ErrorIs(t, err, reverts.ErrInvalidBlockNumber)
		return nil
	}))
}

func TestRunUpdatesStats(t *testing.T) {
	n, _ := newTestNode(t, "")
	defer n.Close()
	n.opts.StatsPeriod = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- n.Run(ctx) }()

	_, err := n.Execute(0, func(pools *Pools) error {
		return pools.Token.Transfer(genesis.DevAccounts()[0], genesis.DevAccounts()[1], big.NewInt(1))
	})
	require.NoError(t, err)

	cancel()
	assert.NoError(t, <-done)
}

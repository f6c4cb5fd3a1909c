// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/builtin/staking/power"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
)

func TestSlashAndExchangeRate(t *testing.T) {
	env := newTestEnv(t, KindSafetyModule)
	pool := env.pool

	// block 2
	env.at(1000)
	require.NoError(t, pool.Stake(alice, big.NewInt(1000)))

	// block 3
	env.at(1010)
	assert.ErrorIs(t, func() error { _, err := pool.Slash(bob, big.NewInt(1), bob); return err }(), reverts.ErrUnauthorized)
	slashed, err := pool.Slash(admin, big.NewInt(500), admin)
	require.NoError(t, err)
	assertBig(t, 500, slashed)
	// admin holds no tokens of its own
	assertBig(t, 500, env.balanceOf(t, admin))
	assertBig(t, 500, env.balanceOf(t, poolAddr))

	rate, err := pool.ExchangeRate()
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", rate.Dec())

	// staked units are untouched, their underlying value halves
	AssertStaker(env, alice).Active(1000, 1000).Assert(t)
	p, err := pool.Power(alice, power.Voting)
	require.NoError(t, err)
	assertBig(t, 500, p)

	// block 4
	env.at(1020)
	require.NoError(t, pool.Stake(bob, big.NewInt(100)))
	AssertStaker(env, bob).Active(200, 200).Assert(t)

	past, err := pool.PowerAtBlock(alice, 2, power.Voting)
	require.NoError(t, err)
	assertBig(t, 1000, past)
	past, err = pool.PowerAtBlock(alice, 3, power.Voting)
	require.NoError(t, err)
	assertBig(t, 500, past)
	_, err = pool.PowerAtBlock(alice, 5, power.Voting)
	assert.ErrorIs(t, err, reverts.ErrInvalidBlockNumber)

	snapshots, err := pool.ExchangeRateSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, uint32(3), snapshots[0].Block)

	// no blackout for the safety module
	env.at(1095)
	require.NoError(t, pool.RequestWithdrawal(alice, big.NewInt(1000)))
	env.at(1100)
	paid, err := pool.WithdrawStake(alice, alice, big.NewInt(1000))
	require.NoError(t, err)
	assertBig(t, 500, paid)

	available, err := pool.Available()
	require.NoError(t, err)
	assertBig(t, 100, available)
}

func TestSlashCap(t *testing.T) {
	env := newTestEnv(t, KindSafetyModule)
	pool := env.pool

	env.at(1000)
	require.NoError(t, pool.Stake(alice, big.NewInt(1000)))

	slashed, err := pool.Slash(admin, big.NewInt(5000), admin)
	require.NoError(t, err)
	assertBig(t, 950, slashed)

	rate, err := pool.ExchangeRate()
	require.NoError(t, err)
	assert.Equal(t, "20000000000000000000", rate.Dec())

	// a second slash in the same block replaces the snapshot
	slashed, err = pool.Slash(admin, big.NewInt(25), admin)
	require.NoError(t, err)
	assertBig(t, 25, slashed)

	snapshots, err := pool.ExchangeRateSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "40000000000000000000", snapshots[0].Rate.String())

	events := pool.TakeEvents()
	require.Len(t, events, 3)
	assert.Equal(t, EventSlashed, events[2].Name)
	assert.Equal(t, "40000000000000000000", events[2].Meta["rate"])
}

func TestSlashEmptyPool(t *testing.T) {
	env := newTestEnv(t, KindSafetyModule)
	env.at(1000)

	slashed, err := env.pool.Slash(admin, big.NewInt(10), admin)
	require.NoError(t, err)
	assert.Equal(t, 0, slashed.Sign())

	snapshots, err := env.pool.ExchangeRateSnapshots()
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

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

	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

func TestWorkedExample(t *testing.T) {
	env := newTestEnv(t, KindLiquidity)
	pool := env.pool

	NewSequence(env).
		At(1000).
		Stake(alice, 1_000_000).
		Allocate([]thor.Address{borrowerA, borrowerB}, []uint64{4000, 6000}).
		At(1100).
		Borrow(borrowerA, 400_000).
		ExpectError(func(p *Pool) error { return p.Borrow(borrowerA, big.NewInt(1)) }, reverts.ErrExceedsBorrowable).
		RequestWithdrawal(alice, 500_000).
		Run(t)

	// next epoch headroom of A is gone while the current borrow stays
	borrowable, err := pool.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assert.Equal(t, 0, borrowable.Sign())
	a, err := pool.Borrower(borrowerA)
	require.NoError(t, err)
	assertBig(t, 400_000, a.Borrowed)

	// blackout of epoch 2
	env.at(1295)
	blackout, err := pool.InBlackoutWindow()
	require.NoError(t, err)
	assert.True(t, blackout)
	assert.ErrorIs(t, pool.RequestWithdrawal(alice, big.NewInt(1)), reverts.ErrInBlackoutWindow)

	shortfall, err := pool.Shortfall()
	require.NoError(t, err)
	assertBig(t, 200_000, shortfall)

	marked, err := pool.MarkDebt([]thor.Address{borrowerA})
	require.NoError(t, err)
	assertBig(t, 200_000, marked)

	a, err = pool.Borrower(borrowerA)
	require.NoError(t, err)
	assert.True(t, a.Restricted)
	assertBig(t, 200_000, a.Debt)
	assertBig(t, 200_000, a.Borrowed)

	AssertStaker(env, alice).
		Active(500_000, 500_000).
		Inactive(300_000, 300_000).
		Debt(200_000).
		Assert(t)

	shortfalls, err := pool.Shortfalls()
	require.NoError(t, err)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, "600000000000000000", shortfalls[0].Index.String())
	assert.Equal(t, uint64(2), shortfalls[0].Epoch)

	// idempotent
	_, err = pool.MarkDebt([]thor.Address{borrowerA})
	assert.ErrorIs(t, err, reverts.ErrNoShortfall)
	_, err = pool.MarkDebt(nil)
	assert.ErrorIs(t, err, reverts.ErrNoShortfall)

	// the remaining inactive balance is fully payable
	paid, err := pool.WithdrawStake(alice, alice, big.NewInt(300_000))
	require.NoError(t, err)
	assertBig(t, 300_000, paid)

	// repaid debt flows back to the staker
	require.NoError(t, pool.RepayDebt(borrowerA, borrowerA, big.NewInt(200_000)))
	paid, err = pool.WithdrawMaxDebt(alice, alice)
	require.NoError(t, err)
	assertBig(t, 200_000, paid)

	AssertStaker(env, alice).
		Active(500_000, 500_000).
		Inactive(0, 0).
		Debt(0).
		Assert(t)

	// deposits - withdrawals - converted debt
	totals, err := pool.Totals()
	require.NoError(t, err)
	cur, next := totals.Sum()
	assertBig(t, 500_000, cur)
	assertBig(t, 500_000, next)

	assertBig(t, 10_000_000-1_000_000+300_000+200_000, env.balanceOf(t, alice))
}

func TestFailedCallReverts(t *testing.T) {
	env := newTestEnv(t, KindLiquidity)
	pool := env.pool
	env.at(1000)

	require.NoError(t, pool.Stake(alice, big.NewInt(100)))
	require.Len(t, pool.TakeEvents(), 1)

	// the token transfer fails after the reward index was settled
	err := pool.Stake(bob, big.NewInt(20_000_000))
	assert.ErrorIs(t, err, reverts.ErrInsufficientBalance)
	assert.Empty(t, pool.TakeEvents())

	AssertStaker(env, bob).Active(0, 0).Assert(t)
	totals, err := pool.Totals()
	require.NoError(t, err)
	assertBig(t, 100, totals.Active.Current)

	p, err := pool.Power(bob, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Sign())
}

func TestUnsupportedOperations(t *testing.T) {
	liquidity := newTestEnv(t, KindLiquidity).at(1000).pool
	_, err := liquidity.Slash(admin, big.NewInt(1), admin)
	assert.ErrorIs(t, err, reverts.ErrUnsupportedOperation)

	safety := newTestEnv(t, KindSafetyModule).at(1000).pool
	assert.ErrorIs(t, safety.Borrow(borrowerA, big.NewInt(1)), reverts.ErrUnsupportedOperation)
	assert.ErrorIs(t, safety.RepayBorrow(borrowerA, borrowerA, big.NewInt(1)), reverts.ErrUnsupportedOperation)
	assert.ErrorIs(t, safety.RepayDebt(borrowerA, borrowerA, big.NewInt(1)), reverts.ErrUnsupportedOperation)
	assert.ErrorIs(t,
		safety.SetBorrowerAllocations(admin, []thor.Address{borrowerA}, []uint64{1}),
		reverts.ErrUnsupportedOperation)
	_, err = safety.MarkDebt(nil)
	assert.ErrorIs(t, err, reverts.ErrUnsupportedOperation)

	amount, err := safety.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Sign())
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t, KindLiquidity)
	pool := env.pool
	env.at(1000)

	require.NoError(t, pool.Stake(alice, big.NewInt(100)))
	require.NoError(t, pool.RequestWithdrawal(alice, big.NewInt(40)))

	events := pool.TakeEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventStaked, events[0].Name)
	assert.Equal(t, poolAddr, events[0].Pool)
	assert.Equal(t, alice, events[0].Account)
	assertBig(t, 100, events[0].Amount)
	assert.Equal(t, uint64(1000), events[0].BlockTime)
	assert.Equal(t, thor.Keccak256([]byte(EventStaked)), events[0].Topic())
	assert.Equal(t, EventWithdrawalRequested, events[1].Name)

	assert.Empty(t, pool.TakeEvents())
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindLiquidity, KindSafetyModule} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("vault")
	assert.Error(t, err)
}

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

func TestBorrowUpToBorrowable(t *testing.T) {
	env := newTestEnv(t, KindLiquidity)
	pool := env.pool

	// before epoch zero the allocation applies at once
	NewSequence(env).
		Allocate([]thor.Address{borrowerA, borrowerB}, []uint64{5000, 5000}).
		At(1000).
		Stake(alice, 1000).
		Run(t)

	rem, err := pool.AllocationRemainder()
	require.NoError(t, err)
	assert.Equal(t, 0, rem.Current.Sign())
	assert.Equal(t, 0, rem.Next.Sign())

	amount, err := pool.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assertBig(t, 500, amount)

	require.NoError(t, pool.Borrow(borrowerA, amount))
	assert.ErrorIs(t, pool.Borrow(borrowerA, big.NewInt(1)), reverts.ErrExceedsBorrowable)

	amount, err = pool.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Sign())

	total, err := pool.TotalBorrowed()
	require.NoError(t, err)
	assertBig(t, 500, total)
	assertBig(t, 10_000_500, env.balanceOf(t, borrowerA))

	// repaid by a third party
	assert.ErrorIs(t, pool.RepayBorrow(bob, borrowerA, big.NewInt(501)), reverts.ErrRepayExceedsBorrowed)
	require.NoError(t, pool.RepayBorrow(bob, borrowerA, big.NewInt(200)))
	b, err := pool.Borrower(borrowerA)
	require.NoError(t, err)
	assertBig(t, 300, b.Borrowed)
	assertBig(t, 10_000_000-200, env.balanceOf(t, bob))

	amount, err = pool.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assertBig(t, 200, amount)
}

func TestBorrowableFollowsNextEpoch(t *testing.T) {
	env := newTestEnv(t, KindLiquidity)
	pool := env.pool

	NewSequence(env).
		Allocate([]thor.Address{borrowerA}, []uint64{5000}).
		At(1000).
		Stake(alice, 1000).
		RequestWithdrawal(alice, 600).
		Run(t)

	// capped by the active stake of the next epoch
	amount, err := pool.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assertBig(t, 200, amount)

	// a lowered allocation caps borrowing straight away
	require.NoError(t, pool.SetBorrowerAllocations(admin, []thor.Address{borrowerA}, []uint64{1000}))
	amount, err = pool.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assertBig(t, 40, amount)

	b, err := pool.Borrower(borrowerA)
	require.NoError(t, err)
	assertBig(t, 5000, b.Allocation.Current)
	assertBig(t, 1000, b.Allocation.Next)

	// settled withdrawals are honoured before lending
	env.at(1100)
	amount, err = pool.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assertBig(t, 40, amount)
}

func TestSetBorrowerAllocations(t *testing.T) {
	env := newTestEnv(t, KindLiquidity)
	pool := env.pool

	require.NoError(t, pool.SetBorrowerAllocations(admin, []thor.Address{borrowerA, borrowerB}, []uint64{5000, 5000}))
	require.Len(t, pool.TakeEvents(), 2)

	tests := []struct {
		name      string
		borrowers []thor.Address
		bps       []uint64
	}{
		{"over total", []thor.Address{borrowerA}, []uint64{6000}},
		{"over max", []thor.Address{borrowerA}, []uint64{10_001}},
		{"length mismatch", []thor.Address{borrowerA}, []uint64{1, 2}},
		{"zero borrower", []thor.Address{{}}, []uint64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pool.SetBorrowerAllocations(admin, tt.borrowers, tt.bps)
			assert.ErrorIs(t, err, reverts.ErrAllocationSumMismatch)
		})
	}

	// nothing of the failed calls was written
	b, err := pool.Borrower(borrowerA)
	require.NoError(t, err)
	assertBig(t, 5000, b.Allocation.Current)
	assert.Empty(t, pool.TakeEvents())

	// moving weight between borrowers in one call
	require.NoError(t, pool.SetBorrowerAllocations(admin, []thor.Address{borrowerA, borrowerB}, []uint64{7000, 3000}))

	assert.ErrorIs(t,
		pool.SetBorrowerAllocations(bob, []thor.Address{borrowerA}, []uint64{0}),
		reverts.ErrUnauthorized)

	// a borrower with nothing left is delisted
	require.NoError(t, pool.SetBorrowerAllocations(admin, []thor.Address{borrowerB}, []uint64{0}))
	var listed []thor.Address
	require.NoError(t, pool.IterBorrowers(func(addr thor.Address) error {
		listed = append(listed, addr)
		return nil
	}))
	assert.Equal(t, []thor.Address{borrowerA}, listed)

	rem, err := pool.AllocationRemainder()
	require.NoError(t, err)
	assertBig(t, 3000, rem.Current)
}

func TestRestrictedBorrower(t *testing.T) {
	env := newTestEnv(t, KindLiquidity)
	pool := env.pool

	NewSequence(env).
		Allocate([]thor.Address{borrowerA}, []uint64{10_000}).
		At(1000).
		Stake(alice, 1000).
		Run(t)

	assert.ErrorIs(t, pool.SetBorrowerRestriction(bob, borrowerA, true), reverts.ErrUnauthorized)
	require.NoError(t, pool.SetBorrowerRestriction(admin, borrowerA, true))

	amount, err := pool.BorrowableAmount(borrowerA)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Sign())
	assert.ErrorIs(t, pool.Borrow(borrowerA, big.NewInt(1)), reverts.ErrExceedsBorrowable)

	require.NoError(t, pool.SetBorrowerRestriction(admin, borrowerA, false))
	require.NoError(t, pool.Borrow(borrowerA, big.NewInt(1)))
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balances

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/lvldb"
	"github.com/vechain/stakingpool/state"
	"github.com/vechain/stakingpool/thor"
)

func newTestService(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 0)
	require.NoError(t, err)
	return New(solidity.NewContext(thor.BytesToAddress([]byte("pool")), stater.NewState()))
}

func assertBig(t *testing.T, expected int64, actual *big.Int, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, big.NewInt(expected).String(), actual.String(), msgAndArgs...)
}

func TestStakeAndRequestWithdrawal(t *testing.T) {
	svc := newTestService(t)
	alice := thor.BytesToAddress([]byte("alice"))

	require.NoError(t, svc.Stake(alice, big.NewInt(1000), 0))
	require.NoError(t, svc.RequestWithdrawal(alice, big.NewInt(400), 0))
	assert.ErrorIs(t, svc.RequestWithdrawal(alice, big.NewInt(601), 0), reverts.ErrExceedsNextActiveBalance)

	staker, err := svc.GetStaker(alice, 0)
	require.NoError(t, err)
	assertBig(t, 1000, staker.Active.Current)
	assertBig(t, 600, staker.Active.Next)
	assertBig(t, 0, staker.Inactive.Current)
	assertBig(t, 400, staker.Inactive.Next)
	assertBig(t, 1000, staker.StakedBalance())

	// nothing settled yet
	assert.ErrorIs(t, svc.Withdraw(alice, big.NewInt(1), 0), reverts.ErrExceedsAvailable)

	staker, err = svc.GetStaker(alice, 1)
	require.NoError(t, err)
	assertBig(t, 600, staker.Active.Current)
	assertBig(t, 400, staker.Inactive.Current)

	require.NoError(t, svc.Withdraw(alice, big.NewInt(150), 1))
	totals, err := svc.Totals(1)
	require.NoError(t, err)
	cur, next := totals.Sum()
	assertBig(t, 850, cur)
	assertBig(t, 850, next)

	count, err := svc.StakerCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestReadsDoNotPersist(t *testing.T) {
	svc := newTestService(t)
	alice := thor.BytesToAddress([]byte("alice"))

	require.NoError(t, svc.Stake(alice, big.NewInt(1000), 0))
	require.NoError(t, svc.RequestWithdrawal(alice, big.NewInt(1000), 0))

	_, err := svc.GetStaker(alice, 5)
	require.NoError(t, err)

	stored, err := svc.GetStoredStaker(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stored.Active.CachedEpoch)
	assertBig(t, 1000, stored.Active.Current)
}

func TestTransfer(t *testing.T) {
	svc := newTestService(t)
	alice := thor.BytesToAddress([]byte("alice"))
	bob := thor.BytesToAddress([]byte("bob"))

	require.NoError(t, svc.Stake(alice, big.NewInt(1000), 0))
	require.NoError(t, svc.RequestWithdrawal(alice, big.NewInt(300), 0))

	assert.ErrorIs(t, svc.Transfer(alice, bob, big.NewInt(701), 0), reverts.ErrExceedsNextActiveBalance)
	require.NoError(t, svc.Transfer(alice, bob, big.NewInt(700), 0))
	require.NoError(t, svc.Transfer(bob, bob, big.NewInt(700), 0))

	a, _ := svc.GetStaker(alice, 0)
	b, _ := svc.GetStaker(bob, 0)
	assertBig(t, 300, a.Active.Current)
	assertBig(t, 0, a.Active.Next)
	assertBig(t, 700, b.Active.Current)
	assertBig(t, 700, b.Active.Next)

	totals, _ := svc.Totals(0)
	assertBig(t, 1000, totals.Active.Current)
}

func TestHaircut(t *testing.T) {
	svc := newTestService(t)
	alice := thor.BytesToAddress([]byte("alice"))
	bob := thor.BytesToAddress([]byte("bob"))
	carol := thor.BytesToAddress([]byte("carol"))

	require.NoError(t, svc.Stake(alice, big.NewInt(1000), 0))
	require.NoError(t, svc.Stake(bob, big.NewInt(1000), 0))
	require.NoError(t, svc.Stake(carol, big.NewInt(1000), 0))
	require.NoError(t, svc.RequestWithdrawal(alice, big.NewInt(333), 0))
	require.NoError(t, svc.RequestWithdrawal(bob, big.NewInt(167), 0))

	// 0.6
	index := new(big.Int).Div(new(big.Int).Mul(big.NewInt(6), IndexBase), big.NewInt(10))
	loss, affected, err := svc.Haircut(index, 1)
	require.NoError(t, err)
	require.Len(t, affected, 2)
	assert.Equal(t, alice, affected[0].Staker)
	assert.Equal(t, bob, affected[1].Staker)
	assertBig(t, 67, affected[1].Amount)

	a, _ := svc.GetStaker(alice, 1)
	b, _ := svc.GetStaker(bob, 1)
	// 333*0.6 = 199.8 -> 199 kept, 134 lost
	assertBig(t, 199, a.Inactive.Current)
	assertBig(t, 134, a.Debt)
	// 167*0.6 = 100.2 -> 100 kept, 67 lost
	assertBig(t, 100, b.Inactive.Current)
	assertBig(t, 67, b.Debt)
	assertBig(t, 201, loss)

	totals, _ := svc.Totals(1)
	assertBig(t, 299, totals.Inactive.Current)
	assertBig(t, 299, totals.Inactive.Next)

	assert.ErrorIs(t, svc.WithdrawDebt(alice, big.NewInt(135), 1), reverts.ErrExceedsAvailable)
	require.NoError(t, svc.WithdrawDebt(alice, big.NewInt(134), 1))
	a, _ = svc.GetStaker(alice, 1)
	assertBig(t, 0, a.Debt)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package power

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

var (
	alice = thor.BytesToAddress([]byte("alice"))
	bob   = thor.BytesToAddress([]byte("bob"))
)

func newTestService(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 0)
	require.NoError(t, err)
	return New(solidity.NewContext(thor.BytesToAddress([]byte("pool")), stater.NewState()))
}

func powerAt(t *testing.T, svc *Service, account thor.Address, typ Type, block uint32) string {
	t.Helper()
	cp, err := svc.PowerAt(account, typ, block, 1000)
	require.NoError(t, err)
	return cp.Power.String()
}

func TestMoveAndPowerAt(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Move(alice, big.NewInt(100), 10))
	require.NoError(t, svc.Move(alice, big.NewInt(50), 20))
	require.NoError(t, svc.Move(alice, big.NewInt(-30), 20))
	require.NoError(t, svc.Move(alice, big.NewInt(-20), 30))

	series, err := svc.Checkpoints(alice, Voting)
	require.NoError(t, err)
	require.Len(t, series, 3, "same block writes overwrite")

	assert.Equal(t, "0", powerAt(t, svc, alice, Voting, 9))
	assert.Equal(t, "100", powerAt(t, svc, alice, Voting, 10))
	assert.Equal(t, "120", powerAt(t, svc, alice, Proposition, 25))
	assert.Equal(t, "100", powerAt(t, svc, alice, Voting, 30))
	assert.Equal(t, "100", powerAt(t, svc, alice, Voting, 1000))

	_, err = svc.PowerAt(alice, Voting, 1001, 1000)
	assert.ErrorIs(t, err, reverts.ErrInvalidBlockNumber)

	assert.ErrorIs(t, svc.Move(alice, big.NewInt(-101), 40), reverts.ErrUnderflow)
}

func TestDelegate(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Move(alice, big.NewInt(100), 1))
	require.NoError(t, svc.Move(bob, big.NewInt(10), 1))

	d, err := svc.Delegatee(alice, Voting)
	require.NoError(t, err)
	assert.Equal(t, alice, d)

	prev, err := svc.Delegate(alice, bob, Voting, big.NewInt(100), 2)
	require.NoError(t, err)
	assert.Equal(t, alice, prev)

	p, _ := svc.Power(alice, Voting)
	assert.Equal(t, "0", p.String())
	p, _ = svc.Power(bob, Voting)
	assert.Equal(t, "110", p.String())
	p, _ = svc.Power(alice, Proposition)
	assert.Equal(t, "100", p.String(), "types are delegated independently")

	// power follows the delegatee
	require.NoError(t, svc.Move(alice, big.NewInt(5), 3))
	p, _ = svc.Power(bob, Voting)
	assert.Equal(t, "115", p.String())

	// reset to self
	_, err = svc.Delegate(alice, thor.Address{}, Voting, big.NewInt(105), 4)
	require.NoError(t, err)
	p, _ = svc.Power(alice, Voting)
	assert.Equal(t, "105", p.String())
	p, _ = svc.Power(bob, Voting)
	assert.Equal(t, "10", p.String())

	assert.Equal(t, "110", powerAt(t, svc, bob, Voting, 2))
}

func TestParseType(t *testing.T) {
	for _, typ := range Types {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	_, err := ParseType("veto")
	assert.Error(t, err)
}

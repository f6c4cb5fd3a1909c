// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

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

func M(a ...any) []any {
	return a
}

func newToken(t *testing.T) *Token {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 0)
	require.NoError(t, err)
	return New(solidity.NewContext(thor.BytesToAddress([]byte("token")), stater.NewState()))
}

func TestToken(t *testing.T) {
	tok := newToken(t)
	alice, bob := thor.BytesToAddress([]byte("alice")), thor.BytesToAddress([]byte("bob"))

	assert.Equal(t, M(big.NewInt(0), nil), M(tok.BalanceOf(alice)))

	require.NoError(t, tok.Mint(alice, big.NewInt(1000)))
	assert.Equal(t, M(big.NewInt(1000), nil), M(tok.TotalSupply()))

	require.NoError(t, tok.Transfer(alice, bob, big.NewInt(300)))
	assert.Equal(t, M(big.NewInt(700), nil), M(tok.BalanceOf(alice)))
	assert.Equal(t, M(big.NewInt(300), nil), M(tok.BalanceOf(bob)))

	assert.ErrorIs(t, tok.Transfer(bob, alice, big.NewInt(301)), reverts.ErrInsufficientBalance)
	assert.ErrorIs(t, tok.Transfer(bob, alice, big.NewInt(-1)), reverts.ErrInvalidAmount)
	assert.NoError(t, tok.Transfer(bob, bob, big.NewInt(1_000_000)), "self transfer is a no-op")

	assert.Equal(t, M(big.NewInt(1000), nil), M(tok.TotalSupply()))
	assert.Equal(t, tok.Address(), thor.BytesToAddress([]byte("token")))
}

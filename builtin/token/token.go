// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

var (
	slotBalances    = thor.BytesToBytes32([]byte("token-balances"))
	slotTotalSupply = thor.BytesToBytes32([]byte("token-supply"))
)

// Token is the underlying fungible token shared by the pools and the rewards vault.
type Token struct {
	addr        thor.Address
	balances    *solidity.Mapping[thor.Address, *big.Int]
	totalSupply *solidity.Uint256
}

// New create a token instance backed by the storage of addr.
func New(sctx *solidity.Context) *Token {
	return &Token{
		addr:        sctx.Address(),
		balances:    solidity.NewMapping[thor.Address, *big.Int](sctx, slotBalances),
		totalSupply: solidity.NewUint256(sctx, slotTotalSupply),
	}
}

// Address returns the token account.
func (t *Token) Address() thor.Address {
	return t.addr
}

// BalanceOf returns the balance of account.
func (t *Token) BalanceOf(account thor.Address) (*big.Int, error) {
	return t.balances.Get(account)
}

// TotalSupply returns the amount ever minted.
func (t *Token) TotalSupply() (*big.Int, error) {
	return t.totalSupply.Get()
}

// Mint credits amount to account out of thin air.
func (t *Token) Mint(to thor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.ErrInvalidAmount
	}
	bal, err := t.balances.Get(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(to, bal.Add(bal, amount)); err != nil {
		return err
	}
	return t.totalSupply.Add(amount)
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to thor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBal, err := t.balances.Get(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	toBal, err := t.balances.Get(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return t.balances.Set(to, toBal.Add(toBal, amount))
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewards

import (
	"math/big"
)

// IndexBase is the fixed point base of reward indexes.
var IndexBase = big.NewInt(1e18)

// Global is the pool wide reward index.
type Global struct {
	Index      *big.Int
	LastUpdate uint64
	Epoch      uint64
	Rate       *big.Int // rewards per second
}

// Schedule bounds the distribution in time. A zero End leaves it open ended.
type Schedule struct {
	Start uint64
	End   uint64
}

// User is the reward bookkeeping of one staker.
type User struct {
	Index   *big.Int
	Pending *big.Int
	Epoch   uint64
}

func (g *Global) normalize() *Global {
	if g.Index == nil {
		g.Index = new(big.Int)
	}
	if g.Rate == nil {
		g.Rate = new(big.Int)
	}
	return g
}

func (u *User) normalize() *User {
	if u.Index == nil {
		u.Index = new(big.Int)
	}
	if u.Pending == nil {
		u.Pending = new(big.Int)
	}
	return u
}

// accrue advances index over [from, to] clipped to the schedule.
func accrue(index *big.Int, rate *big.Int, schedule Schedule, from, to uint64, total *big.Int) *big.Int {
	if from < schedule.Start {
		from = schedule.Start
	}
	if schedule.End != 0 && to > schedule.End {
		to = schedule.End
	}
	if to <= from || total.Sign() == 0 || rate.Sign() == 0 {
		return index
	}
	delta := new(big.Int).Mul(rate, new(big.Int).SetUint64(to-from))
	delta.Mul(delta, IndexBase)
	delta.Div(delta, total)
	return new(big.Int).Add(index, delta)
}

// earned returns balance * (to - from) / IndexBase, zero if to is behind from.
func earned(balance, from, to *big.Int) *big.Int {
	if to.Cmp(from) <= 0 || balance.Sign() == 0 {
		return new(big.Int)
	}
	diff := new(big.Int).Sub(to, from)
	diff.Mul(diff, balance)
	return diff.Div(diff, IndexBase)
}

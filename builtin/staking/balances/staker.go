// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balances

import (
	"math/big"

	"github.com/vechain/stakingpool/builtin/staking/checkpoint"
)

// Staker is the position of one staker, amounts are in staked units.
type Staker struct {
	Active   *checkpoint.Checkpoint
	Inactive *checkpoint.Checkpoint
	Debt     *big.Int
}

func newStaker() *Staker {
	return &Staker{
		Active:   checkpoint.New(),
		Inactive: checkpoint.New(),
		Debt:     new(big.Int),
	}
}

// clone returns a deep copy, nil safe.
func (s *Staker) clone() *Staker {
	cpy := newStaker()
	if s == nil {
		return cpy
	}
	cpy.Active = s.Active.Clone()
	cpy.Inactive = s.Inactive.Clone()
	if s.Debt != nil {
		cpy.Debt.Set(s.Debt)
	}
	return cpy
}

// load returns a copy rolled over to epoch.
func (s *Staker) load(epoch uint64) *Staker {
	cpy := s.clone()
	cpy.Active.Rollover(epoch)
	cpy.Inactive.Rollover(epoch)
	return cpy
}

// StakedBalance is the balance carrying governance power.
func (s *Staker) StakedBalance() *big.Int {
	return new(big.Int).Add(s.Active.Next, s.Inactive.Next)
}

// IsEmpty returns whether the staker holds nothing.
func (s *Staker) IsEmpty() bool {
	return s.Active.IsZero() && s.Inactive.IsZero() && s.Debt.Sign() == 0
}

// Totals are the pool wide active and inactive balances.
type Totals struct {
	Active   *checkpoint.Checkpoint
	Inactive *checkpoint.Checkpoint
}

// Sum returns active plus inactive for the current and next views.
func (t *Totals) Sum() (current *big.Int, next *big.Int) {
	current = new(big.Int).Add(t.Active.Current, t.Inactive.Current)
	next = new(big.Int).Add(t.Active.Next, t.Inactive.Next)
	return
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package borrowing

import (
	"math/big"

	"github.com/vechain/stakingpool/builtin/staking/checkpoint"
)

// MaxAllocation is the sum of all allocations, in basis points.
const MaxAllocation = 10_000

var bpsBase = big.NewInt(MaxAllocation)

// Borrower is the position of an approved borrower.
type Borrower struct {
	Allocation *checkpoint.Checkpoint // basis points of the total active balance
	Borrowed   *big.Int
	Debt       *big.Int
	Restricted bool
}

func (b *Borrower) clone() *Borrower {
	cpy := &Borrower{
		Allocation: b.Allocation.Clone(),
		Borrowed:   new(big.Int),
		Debt:       new(big.Int),
	}
	if b.Borrowed != nil {
		cpy.Borrowed.Set(b.Borrowed)
	}
	if b.Debt != nil {
		cpy.Debt.Set(b.Debt)
	}
	cpy.Restricted = b.Restricted
	return cpy
}

// IsEmpty returns whether the borrower can be dropped from the borrower list.
func (b *Borrower) IsEmpty() bool {
	return b.Allocation.IsZero() && b.Borrowed.Sign() == 0 && b.Debt.Sign() == 0 && !b.Restricted
}

// Allocated returns the share of total the current allocation entitles to.
func (b *Borrower) Allocated(total *big.Int) *big.Int {
	return share(b.Allocation.Current, total)
}

// Overdue returns how much the borrowed balance exceeds the current allocation.
func (b *Borrower) Overdue(totalActive *big.Int) *big.Int {
	overdue := new(big.Int).Sub(b.Borrowed, b.Allocated(totalActive))
	if overdue.Sign() < 0 {
		return overdue.SetUint64(0)
	}
	return overdue
}

func share(bps, total *big.Int) *big.Int {
	s := new(big.Int).Mul(bps, total)
	return s.Div(s, bpsBase)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking/borrowing"
	"github.com/vechain/stakingpool/builtin/staking/checkpoint"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

//
// Getters - no state change
//

// Borrower returns the position of a borrower as seen now.
func (p *Pool) Borrower(addr thor.Address) (*borrowing.Borrower, error) {
	var b *borrowing.Borrower
	err := p.view(func(ctx *callContext) (err error) {
		b, err = p.borrowingService.GetBorrower(addr, ctx.epoch)
		return
	})
	return b, err
}

// AllocationRemainder returns the unallocated basis points as seen now.
func (p *Pool) AllocationRemainder() (*checkpoint.Checkpoint, error) {
	var rem *checkpoint.Checkpoint
	err := p.view(func(ctx *callContext) (err error) {
		rem, err = p.borrowingService.Remainder(ctx.epoch)
		return
	})
	return rem, err
}

// IterBorrowers visits every listed borrower.
func (p *Pool) IterBorrowers(callback func(thor.Address) error) error {
	return p.borrowingService.IterBorrowers(callback)
}

// TotalBorrowed returns the amount lent out.
func (p *Pool) TotalBorrowed() (*big.Int, error) {
	return p.borrowingService.TotalBorrowed()
}

// TotalBorrowerDebt returns the borrower debt not yet repaid.
func (p *Pool) TotalBorrowerDebt() (*big.Int, error) {
	return p.borrowingService.TotalBorrowerDebt()
}

// BorrowableAmount returns how much borrower can borrow now. Zero for a safety module.
func (p *Pool) BorrowableAmount(borrower thor.Address) (*big.Int, error) {
	if p.kind != KindLiquidity {
		return new(big.Int), nil
	}
	var amount *big.Int
	err := p.view(func(ctx *callContext) (err error) {
		amount, err = p.borrowable(ctx, borrower)
		return
	})
	return amount, err
}

func (p *Pool) borrowable(ctx *callContext, borrower thor.Address) (*big.Int, error) {
	totals, err := p.balancesService.Totals(ctx.epoch)
	if err != nil {
		return nil, err
	}
	available, err := p.available()
	if err != nil {
		return nil, err
	}
	// liquidity left once settled withdrawals are honoured
	liquidity := new(big.Int).Sub(available, totals.Inactive.Current)
	if liquidity.Sign() < 0 {
		liquidity.SetUint64(0)
	}
	return p.borrowingService.Borrowable(borrower, ctx.epoch, totals.Active.Current, totals.Active.Next, liquidity)
}

//
// Setters - state change
//

// SetBorrowerAllocations sets the allocation of each borrower in basis points. Before epoch zero
// the change is immediate, afterwards it takes effect at the next epoch.
func (p *Pool) SetBorrowerAllocations(caller thor.Address, borrowers []thor.Address, bps []uint64) error {
	logger.Debug("setting borrower allocations", "pool", p.addr, "borrowers", len(borrowers))

	err := p.atomic("set-borrower-allocations", func(ctx *callContext) error {
		if err := p.requireKind(KindLiquidity); err != nil {
			return err
		}
		if err := p.requireRole(roles.AllocationAdmin, caller); err != nil {
			return err
		}
		applyNow := !ctx.params.HasStarted(ctx.now)
		if err := p.borrowingService.SetAllocations(borrowers, bps, ctx.epoch, applyNow); err != nil {
			return err
		}
		for i, borrower := range borrowers {
			p.emit(ctx, EventBorrowerAllocationsChanged, borrower, caller, new(big.Int).SetUint64(bps[i]), map[string]string{
				"immediate": strconv.FormatBool(applyNow),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("borrower allocations set", "pool", p.addr, "borrowers", joinAddresses(borrowers), "bps", bps)
	return nil
}

// Borrow lends amount of underlying to borrower.
func (p *Pool) Borrow(borrower thor.Address, amount *big.Int) error {
	logger.Debug("borrowing", "pool", p.addr, "borrower", borrower, "amount", amount)

	err := p.atomic("borrow", func(ctx *callContext) error {
		if err := p.requireKind(KindLiquidity); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		if err := ctx.requireStarted(); err != nil {
			return err
		}
		borrowable, err := p.borrowable(ctx, borrower)
		if err != nil {
			return err
		}
		if amount.Cmp(borrowable) > 0 {
			return reverts.ErrExceedsBorrowable
		}
		if err := p.borrowingService.Borrow(borrower, amount, ctx.epoch); err != nil {
			return err
		}
		if err := p.token.Transfer(p.addr, borrower, amount); err != nil {
			return err
		}
		p.emit(ctx, EventBorrowed, borrower, borrower, amount, nil)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("borrowed", "pool", p.addr, "borrower", borrower, "amount", amount)
	return nil
}

// RepayBorrow returns amount of the borrowed balance of borrower, paid by sender.
func (p *Pool) RepayBorrow(sender, borrower thor.Address, amount *big.Int) error {
	logger.Debug("repaying borrow", "pool", p.addr, "sender", sender, "borrower", borrower, "amount", amount)

	err := p.atomic("repay-borrow", func(ctx *callContext) error {
		if err := p.requireKind(KindLiquidity); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		if err := p.borrowingService.Repay(borrower, amount, ctx.epoch); err != nil {
			return err
		}
		if err := p.token.Transfer(sender, p.addr, amount); err != nil {
			return err
		}
		p.emit(ctx, EventRepaidBorrow, borrower, sender, amount, nil)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("repaid borrow", "pool", p.addr, "sender", sender, "borrower", borrower, "amount", amount)
	return nil
}

func joinAddresses(addrs []thor.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		parts = append(parts, addr.String())
	}
	return strings.Join(parts, ",")
}

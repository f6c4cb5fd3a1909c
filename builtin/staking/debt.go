// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"strconv"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking/debt"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

//
// Getters - no state change
//

// NetDebtAvailable returns repaid debt waiting to be withdrawn by stakers.
func (p *Pool) NetDebtAvailable() (*big.Int, error) {
	return p.debtService.NetDebtAvailable()
}

// Shortfalls returns every socialized shortfall, oldest first.
func (p *Pool) Shortfalls() ([]*debt.Shortfall, error) {
	return p.debtService.Shortfalls()
}

// Shortfall returns the part of the settled inactive balance the pool can't pay now.
func (p *Pool) Shortfall() (*big.Int, error) {
	if p.kind != KindLiquidity {
		return new(big.Int), nil
	}
	var shortfall *big.Int
	err := p.view(func(ctx *callContext) (err error) {
		shortfall, _, err = p.shortfall(ctx)
		return
	})
	return shortfall, err
}

// shortfall returns the shortfall and the current total inactive balance.
func (p *Pool) shortfall(ctx *callContext) (*big.Int, *big.Int, error) {
	totals, err := p.balancesService.Totals(ctx.epoch)
	if err != nil {
		return nil, nil, err
	}
	available, err := p.available()
	if err != nil {
		return nil, nil, err
	}
	covered, err := p.borrowingService.Covered(ctx.epoch, totals.Active.Current)
	if err != nil {
		return nil, nil, err
	}
	// active stake held by the pool rather than lent within allocation
	reserved := new(big.Int).Sub(totals.Active.Current, covered)
	if reserved.Sign() < 0 {
		reserved.SetUint64(0)
	}
	return debt.Compute(totals.Inactive.Current, available, reserved), totals.Inactive.Current, nil
}

//
// Setters - state change
//

// MarkDebt converts overdue borrowed balances into debt until the shortfall is covered.
// The named borrowers go first, then every other overdue borrower in list order. The stakers
// waiting on settled withdrawals take the loss pro rata and receive an equal debt claim.
// It returns the borrowed amount converted into debt.
func (p *Pool) MarkDebt(borrowers []thor.Address) (*big.Int, error) {
	logger.Debug("marking debt", "pool", p.addr, "borrowers", joinAddresses(borrowers))

	marked := new(big.Int)
	err := p.atomic("mark-debt", func(ctx *callContext) error {
		if err := p.requireKind(KindLiquidity); err != nil {
			return err
		}
		if err := ctx.requireStarted(); err != nil {
			return err
		}
		shortfall, inactive, err := p.shortfall(ctx)
		if err != nil {
			return err
		}
		if shortfall.Sign() == 0 {
			return reverts.ErrNoShortfall
		}
		// the haircut can't take more than the inactive balance
		remaining := minBig(shortfall, inactive)

		totals, err := p.balancesService.Totals(ctx.epoch)
		if err != nil {
			return err
		}
		listed, overdue, err := p.borrowingService.Overdue(ctx.epoch, totals.Active.Current)
		if err != nil {
			return err
		}
		order := make([]thor.Address, 0, len(listed))
		seen := make(map[thor.Address]bool)
		for _, addr := range append(append([]thor.Address{}, borrowers...), listed...) {
			if seen[addr] || overdue[addr] == nil {
				continue
			}
			seen[addr] = true
			order = append(order, addr)
		}

		for _, addr := range order {
			if remaining.Sign() == 0 {
				break
			}
			amount := minBig(overdue[addr], remaining)
			if err := p.borrowingService.ConvertToDebt(addr, amount, ctx.epoch); err != nil {
				return err
			}
			remaining.Sub(remaining, amount)
			marked.Add(marked, amount)
			p.emit(ctx, EventDebtMarked, addr, thor.Address{}, amount, nil)
		}
		if marked.Sign() == 0 {
			return reverts.ErrNoShortfall
		}

		// totals are rolled by the haircut, settle the reward index against the stored epoch first
		if err := p.settle(ctx); err != nil {
			return err
		}
		index := debt.Index(inactive, marked)
		loss, losses, err := p.balancesService.Haircut(index, ctx.epoch)
		if err != nil {
			return err
		}
		for _, l := range losses {
			if err := p.powerService.Move(l.Staker, new(big.Int).Neg(l.Amount), ctx.block); err != nil {
				return err
			}
		}
		return p.debtService.Record(&debt.Shortfall{
			Epoch: ctx.epoch,
			Debt:  new(big.Int).Set(marked),
			Loss:  loss,
			Index: index,
		})
	})
	if err != nil {
		return nil, err
	}

	metricDebtMarked().Add(1)
	logger.Info("debt marked", "pool", p.addr, "debt", marked)
	return marked, nil
}

// RepayDebt pays back amount of the debt of borrower, paid by sender. Repaid debt becomes
// withdrawable by any staker holding a debt claim.
func (p *Pool) RepayDebt(sender, borrower thor.Address, amount *big.Int) error {
	logger.Debug("repaying debt", "pool", p.addr, "sender", sender, "borrower", borrower, "amount", amount)

	err := p.atomic("repay-debt", func(ctx *callContext) error {
		if err := p.requireKind(KindLiquidity); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		if err := p.borrowingService.RepayDebt(borrower, amount, ctx.epoch); err != nil {
			return err
		}
		if err := p.debtService.AddRepaid(amount); err != nil {
			return err
		}
		if err := p.token.Transfer(sender, p.addr, amount); err != nil {
			return err
		}
		p.emit(ctx, EventRepaidDebt, borrower, sender, amount, nil)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("repaid debt", "pool", p.addr, "sender", sender, "borrower", borrower, "amount", amount)
	return nil
}

// WithdrawDebt pays amount of the debt claim of staker to recipient out of repaid debt.
func (p *Pool) WithdrawDebt(staker, recipient thor.Address, amount *big.Int) error {
	logger.Debug("withdrawing debt", "pool", p.addr, "staker", staker, "amount", amount)

	err := p.atomic("withdraw-debt", func(ctx *callContext) error {
		if err := p.requireKind(KindLiquidity); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		return p.withdrawDebt(ctx, staker, recipient, amount)
	})
	if err != nil {
		return err
	}

	logger.Info("withdrew debt", "pool", p.addr, "staker", staker, "recipient", recipient, "amount", amount)
	return nil
}

// WithdrawMaxDebt withdraws as much of the debt claim as repaid debt allows. It returns the amount paid.
func (p *Pool) WithdrawMaxDebt(staker, recipient thor.Address) (*big.Int, error) {
	logger.Debug("withdrawing max debt", "pool", p.addr, "staker", staker)

	paid := new(big.Int)
	err := p.atomic("withdraw-max-debt", func(ctx *callContext) error {
		if err := p.requireKind(KindLiquidity); err != nil {
			return err
		}
		position, err := p.balancesService.GetStaker(staker, ctx.epoch)
		if err != nil {
			return err
		}
		netDebt, err := p.debtService.NetDebtAvailable()
		if err != nil {
			return err
		}
		paid = minBig(position.Debt, netDebt)
		if paid.Sign() == 0 {
			return nil
		}
		return p.withdrawDebt(ctx, staker, recipient, paid)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("withdrew max debt", "pool", p.addr, "staker", staker, "recipient", recipient, "amount", paid)
	return paid, nil
}

func (p *Pool) withdrawDebt(ctx *callContext, staker, recipient thor.Address, amount *big.Int) error {
	if err := p.settle(ctx, staker); err != nil {
		return err
	}
	if err := p.balancesService.WithdrawDebt(staker, amount, ctx.epoch); err != nil {
		return err
	}
	if err := p.debtService.TakeRepaid(amount); err != nil {
		return err
	}
	if err := p.token.Transfer(p.addr, recipient, amount); err != nil {
		return err
	}
	p.emit(ctx, EventWithdrewDebt, staker, recipient, amount, nil)
	return nil
}

// SetBorrowerRestriction blocks or releases borrowing for borrower.
func (p *Pool) SetBorrowerRestriction(caller, borrower thor.Address, restricted bool) error {
	logger.Debug("setting borrower restriction", "pool", p.addr, "borrower", borrower, "restricted", restricted)

	err := p.atomic("set-borrower-restriction", func(ctx *callContext) error {
		if err := p.requireKind(KindLiquidity); err != nil {
			return err
		}
		if err := p.requireRole(roles.DebtOperator, caller); err != nil {
			return err
		}
		if err := p.borrowingService.SetRestricted(borrower, restricted, ctx.epoch); err != nil {
			return err
		}
		p.emit(ctx, EventBorrowerRestrictionChanged, borrower, caller, nil, map[string]string{
			"restricted": strconv.FormatBool(restricted),
		})
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("borrower restriction set", "pool", p.addr, "borrower", borrower, "restricted", restricted)
	return nil
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/vechain/stakingpool/builtin/staking/balances"
	"github.com/vechain/stakingpool/builtin/staking/exchangerate"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

//
// Getters - no state change
//

// Staker returns the position of a staker in staked units as seen now.
func (p *Pool) Staker(addr thor.Address) (*balances.Staker, error) {
	var staker *balances.Staker
	err := p.view(func(ctx *callContext) (err error) {
		staker, err = p.balancesService.GetStaker(addr, ctx.epoch)
		return
	})
	return staker, err
}

// Totals returns the pool wide active and inactive balances as seen now.
func (p *Pool) Totals() (*balances.Totals, error) {
	var totals *balances.Totals
	err := p.view(func(ctx *callContext) (err error) {
		totals, err = p.balancesService.Totals(ctx.epoch)
		return
	})
	return totals, err
}

// Available returns the underlying the pool can pay out.
func (p *Pool) Available() (*big.Int, error) {
	return p.available()
}

// StakerCount returns the number of accounts that ever staked.
func (p *Pool) StakerCount() (uint64, error) {
	return p.balancesService.StakerCount()
}

// IterStakers visits every staker in the order they first staked.
func (p *Pool) IterStakers(callback func(thor.Address) error) error {
	return p.balancesService.IterStakers(callback)
}

//
// Setters - state change
//

// Stake deposits amount of underlying for staker.
func (p *Pool) Stake(staker thor.Address, amount *big.Int) error {
	logger.Debug("staking", "pool", p.addr, "staker", staker, "amount", amount)

	err := p.atomic("stake", func(ctx *callContext) error {
		if err := requirePositive(amount); err != nil {
			return err
		}
		if err := ctx.requireStarted(); err != nil {
			return err
		}
		staked, err := p.toStaked(amount)
		if err != nil {
			return err
		}
		if err := p.settle(ctx, staker); err != nil {
			return err
		}
		if err := p.token.Transfer(staker, p.addr, amount); err != nil {
			return err
		}
		if err := p.balancesService.Stake(staker, staked, ctx.epoch); err != nil {
			return err
		}
		if err := p.powerService.Move(staker, staked, ctx.block); err != nil {
			return err
		}
		p.emit(ctx, EventStaked, staker, staker, amount, map[string]string{"staked": staked.String()})
		return nil
	})
	if err != nil {
		return err
	}

	if count, err := p.balancesService.StakerCount(); err == nil {
		metricStakersCount().SetWithLabel(int64(count), map[string]string{"pool": p.addr.String()})
	}
	logger.Info("staked", "pool", p.addr, "staker", staker, "amount", amount)
	return nil
}

// RequestWithdrawal moves amount of staked units to the inactive balance as of the next epoch.
func (p *Pool) RequestWithdrawal(staker thor.Address, amount *big.Int) error {
	logger.Debug("requesting withdrawal", "pool", p.addr, "staker", staker, "amount", amount)

	err := p.atomic("request-withdrawal", func(ctx *callContext) error {
		if err := requirePositive(amount); err != nil {
			return err
		}
		if err := ctx.requireStarted(); err != nil {
			return err
		}
		// the safety module accepts requests at any time
		if p.kind == KindLiquidity && ctx.params.InBlackout(ctx.now) {
			return reverts.ErrInBlackoutWindow
		}
		if err := p.settle(ctx, staker); err != nil {
			return err
		}
		if err := p.balancesService.RequestWithdrawal(staker, amount, ctx.epoch); err != nil {
			return err
		}
		p.emit(ctx, EventWithdrawalRequested, staker, staker, amount, nil)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("withdrawal requested", "pool", p.addr, "staker", staker, "amount", amount)
	return nil
}

// WithdrawStake pays out amount of settled inactive staked units to recipient.
// It returns the underlying paid.
func (p *Pool) WithdrawStake(staker, recipient thor.Address, amount *big.Int) (*big.Int, error) {
	logger.Debug("withdrawing stake", "pool", p.addr, "staker", staker, "amount", amount)

	var paid *big.Int
	err := p.atomic("withdraw-stake", func(ctx *callContext) (err error) {
		if err := requirePositive(amount); err != nil {
			return err
		}
		if err := ctx.requireStarted(); err != nil {
			return err
		}
		paid, err = p.withdrawStake(ctx, staker, recipient, amount)
		return
	})
	if err != nil {
		return nil, err
	}

	logger.Info("withdrew stake", "pool", p.addr, "staker", staker, "recipient", recipient, "paid", paid)
	return paid, nil
}

// WithdrawMaxStake withdraws as much of the settled inactive balance as the pool can pay.
// Nothing to withdraw is not an error, zero is returned instead.
func (p *Pool) WithdrawMaxStake(staker, recipient thor.Address) (*big.Int, error) {
	logger.Debug("withdrawing max stake", "pool", p.addr, "staker", staker)

	paid := new(big.Int)
	err := p.atomic("withdraw-max-stake", func(ctx *callContext) error {
		if err := ctx.requireStarted(); err != nil {
			return err
		}
		position, err := p.balancesService.GetStaker(staker, ctx.epoch)
		if err != nil {
			return err
		}
		available, err := p.available()
		if err != nil {
			return err
		}
		availableStaked, err := p.toStaked(available)
		if err != nil {
			return err
		}
		amount := minBig(position.Inactive.Current, availableStaked)
		if amount.Sign() == 0 {
			return nil
		}
		paid, err = p.withdrawStake(ctx, staker, recipient, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("withdrew max stake", "pool", p.addr, "staker", staker, "recipient", recipient, "paid", paid)
	return paid, nil
}

func (p *Pool) withdrawStake(ctx *callContext, staker, recipient thor.Address, amount *big.Int) (*big.Int, error) {
	underlying, err := p.toUnderlying(amount)
	if err != nil {
		return nil, err
	}
	available, err := p.available()
	if err != nil {
		return nil, err
	}
	if underlying.Cmp(available) > 0 {
		return nil, reverts.ErrExceedsAvailable
	}
	if err := p.settle(ctx, staker); err != nil {
		return nil, err
	}
	if err := p.balancesService.Withdraw(staker, amount, ctx.epoch); err != nil {
		return nil, err
	}
	if err := p.token.Transfer(p.addr, recipient, underlying); err != nil {
		return nil, err
	}
	if err := p.powerService.Move(staker, new(big.Int).Neg(amount), ctx.block); err != nil {
		return nil, err
	}
	p.emit(ctx, EventWithdrewStake, staker, recipient, underlying, map[string]string{"staked": amount.String()})
	return underlying, nil
}

// Transfer moves amount of active staked units from one staker to another.
func (p *Pool) Transfer(from, to thor.Address, amount *big.Int) error {
	logger.Debug("transferring stake", "pool", p.addr, "from", from, "to", to, "amount", amount)

	err := p.atomic("transfer", func(ctx *callContext) error {
		if err := requirePositive(amount); err != nil {
			return err
		}
		if err := ctx.requireStarted(); err != nil {
			return err
		}
		if to.IsZero() {
			return reverts.ErrInvalidAmount
		}
		if err := p.settle(ctx, from, to); err != nil {
			return err
		}
		if err := p.balancesService.Transfer(from, to, amount, ctx.epoch); err != nil {
			return err
		}
		if err := p.powerService.Move(from, new(big.Int).Neg(amount), ctx.block); err != nil {
			return err
		}
		if err := p.powerService.Move(to, amount, ctx.block); err != nil {
			return err
		}
		p.emit(ctx, EventTransfer, from, to, amount, nil)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("transferred stake", "pool", p.addr, "from", from, "to", to, "amount", amount)
	return nil
}

// toStaked converts underlying into staked units, the identity for a liquidity pool.
func (p *Pool) toStaked(underlying *big.Int) (*big.Int, error) {
	if p.kind != KindSafetyModule {
		return new(big.Int).Set(underlying), nil
	}
	rate, err := p.exchangeRateService.Rate()
	if err != nil {
		return nil, err
	}
	return exchangerate.ToStaked(underlying, rate), nil
}

// toUnderlying converts staked units into underlying, the identity for a liquidity pool.
func (p *Pool) toUnderlying(staked *big.Int) (*big.Int, error) {
	if p.kind != KindSafetyModule {
		return new(big.Int).Set(staked), nil
	}
	rate, err := p.exchangeRateService.Rate()
	if err != nil {
		return nil, err
	}
	return exchangerate.ToUnderlying(staked, rate), nil
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking/rewards"
	"github.com/vechain/stakingpool/thor"
)

// settle brings the global reward index, and the records of the given stakers, up to now.
// Must run before any change of an active balance.
func (p *Pool) settle(ctx *callContext, stakers ...thor.Address) error {
	total, err := p.balancesService.StoredTotalActive()
	if err != nil {
		return err
	}
	global, err := p.rewardsService.Update(ctx.now, ctx.params, total)
	if err != nil {
		return err
	}
	for _, addr := range stakers {
		staker, err := p.balancesService.GetStoredStaker(addr)
		if err != nil {
			return err
		}
		if _, err := p.rewardsService.Settle(addr, global, staker.Active); err != nil {
			return err
		}
	}
	return nil
}

// PendingRewards returns the rewards staker could claim now.
func (p *Pool) PendingRewards(staker thor.Address) (*big.Int, error) {
	var pending *big.Int
	err := p.view(func(ctx *callContext) error {
		if err := p.settle(ctx, staker); err != nil {
			return err
		}
		user, err := p.rewardsService.User(staker)
		if err != nil {
			return err
		}
		pending = user.Pending
		return nil
	})
	return pending, err
}

// RewardsGlobal returns the global reward index settled up to now.
func (p *Pool) RewardsGlobal() (*rewards.Global, error) {
	var global *rewards.Global
	err := p.view(func(ctx *callContext) (err error) {
		if err = p.settle(ctx); err != nil {
			return
		}
		global, err = p.rewardsService.Global()
		return
	})
	return global, err
}

// ClaimRewards pays amount of the pending rewards of staker out of the rewards vault.
// A MaxUint256 amount claims everything. It returns the amount paid.
func (p *Pool) ClaimRewards(staker, recipient thor.Address, amount *big.Int) (*big.Int, error) {
	logger.Debug("claiming rewards", "pool", p.addr, "staker", staker, "amount", amount)

	var claimed *big.Int
	err := p.atomic("claim-rewards", func(ctx *callContext) (err error) {
		if err = requirePositive(amount); err != nil {
			return
		}
		if err = p.settle(ctx, staker); err != nil {
			return
		}
		if claimed, err = p.rewardsService.Claim(staker, amount); err != nil {
			return
		}
		if err = p.token.Transfer(p.vault, recipient, claimed); err != nil {
			return
		}
		p.emit(ctx, EventClaimedRewards, staker, recipient, claimed, nil)
		return
	})
	if err != nil {
		return nil, err
	}

	logger.Info("claimed rewards", "pool", p.addr, "staker", staker, "recipient", recipient, "amount", claimed)
	return claimed, nil
}

// SetRewardsPerSecond changes the emission rate from now on.
func (p *Pool) SetRewardsPerSecond(caller thor.Address, rate *big.Int) error {
	logger.Debug("setting rewards per second", "pool", p.addr, "rate", rate)

	err := p.atomic("set-rewards-per-second", func(ctx *callContext) error {
		if err := p.requireRole(roles.RewardsAdmin, caller); err != nil {
			return err
		}
		if err := p.settle(ctx); err != nil {
			return err
		}
		if err := p.rewardsService.SetRate(rate); err != nil {
			return err
		}
		p.emit(ctx, EventRewardsPerSecondChanged, caller, thor.Address{}, rate, nil)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("rewards per second set", "pool", p.addr, "rate", rate)
	return nil
}

// SetDistributionSchedule bounds reward accrual to [start, end]. A zero end leaves it open ended.
func (p *Pool) SetDistributionSchedule(caller thor.Address, start, end uint64) error {
	logger.Debug("setting distribution schedule", "pool", p.addr, "start", start, "end", end)

	err := p.atomic("set-distribution-schedule", func(ctx *callContext) error {
		if err := p.requireRole(roles.RewardsAdmin, caller); err != nil {
			return err
		}
		if err := p.settle(ctx); err != nil {
			return err
		}
		if err := p.rewardsService.SetSchedule(start, end); err != nil {
			return err
		}
		p.emit(ctx, EventDistributionChanged, caller, thor.Address{}, nil, map[string]string{
			"start": formatUint(start),
			"end":   formatUint(end),
		})
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("distribution schedule set", "pool", p.addr, "start", start, "end", end)
	return nil
}

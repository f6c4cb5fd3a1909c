// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/vechain/stakingpool/builtin/staking/exchangerate"
	"github.com/vechain/stakingpool/builtin/staking/power"
	"github.com/vechain/stakingpool/thor"
)

// Delegatee returns who holds the power of account.
func (p *Pool) Delegatee(account thor.Address, typ power.Type) (thor.Address, error) {
	return p.powerService.Delegatee(account, typ)
}

// PowerAtBlock returns the power of account at block, in underlying units at the rate of that block.
func (p *Pool) PowerAtBlock(account thor.Address, block uint32, typ power.Type) (*big.Int, error) {
	cp, err := p.powerService.PowerAt(account, typ, block, p.clock.BlockNumber())
	if err != nil {
		return nil, err
	}
	if p.kind != KindSafetyModule {
		return cp.Power, nil
	}
	rate, err := p.exchangeRateService.RateAt(block)
	if err != nil {
		return nil, err
	}
	return exchangerate.ToUnderlying(cp.Power, rate), nil
}

// Power returns the current power of account, in underlying units.
func (p *Pool) Power(account thor.Address, typ power.Type) (*big.Int, error) {
	staked, err := p.powerService.Power(account, typ)
	if err != nil {
		return nil, err
	}
	return p.toUnderlying(staked)
}

// PowerCheckpoints returns the power series of account in staked units.
func (p *Pool) PowerCheckpoints(account thor.Address, typ power.Type) ([]*power.Checkpoint, error) {
	return p.powerService.Checkpoints(account, typ)
}

// Delegate hands both voting and proposition power of delegator to delegatee.
// The zero address or the delegator itself resets to self delegation.
func (p *Pool) Delegate(delegator, delegatee thor.Address) error {
	return p.delegate("delegate", delegator, delegatee, power.Types...)
}

// DelegateByType hands one type of power of delegator to delegatee.
func (p *Pool) DelegateByType(delegator, delegatee thor.Address, typ power.Type) error {
	return p.delegate("delegate-by-type", delegator, delegatee, typ)
}

func (p *Pool) delegate(op string, delegator, delegatee thor.Address, types ...power.Type) error {
	logger.Debug("delegating", "pool", p.addr, "delegator", delegator, "delegatee", delegatee)

	if delegatee.IsZero() {
		delegatee = delegator
	}
	err := p.atomic(op, func(ctx *callContext) error {
		staker, err := p.balancesService.GetStaker(delegator, ctx.epoch)
		if err != nil {
			return err
		}
		balance := staker.StakedBalance()
		for _, typ := range types {
			prev, err := p.powerService.Delegate(delegator, delegatee, typ, balance, ctx.block)
			if err != nil {
				return err
			}
			p.emit(ctx, EventDelegateChanged, delegator, delegatee, balance, map[string]string{
				"type":     typ.String(),
				"previous": prev.String(),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("delegated", "pool", p.addr, "delegator", delegator, "delegatee", delegatee)
	return nil
}

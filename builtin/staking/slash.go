// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking/exchangerate"
	"github.com/vechain/stakingpool/thor"
)

// ExchangeRate returns the current staked per underlying rate in 1e18 base.
func (p *Pool) ExchangeRate() (*uint256.Int, error) {
	if p.kind != KindSafetyModule {
		return new(uint256.Int).Set(exchangerate.Base), nil
	}
	return p.exchangeRateService.Rate()
}

// ExchangeRateSnapshots returns every rate change, oldest first.
func (p *Pool) ExchangeRateSnapshots() ([]*exchangerate.Snapshot, error) {
	return p.exchangeRateService.Snapshots()
}

// Slash takes up to requested underlying out of the pool and sends it to recipient.
// A single slash is capped at 95% of the pool. It returns the amount taken.
func (p *Pool) Slash(caller thor.Address, requested *big.Int, recipient thor.Address) (*big.Int, error) {
	logger.Debug("slashing", "pool", p.addr, "requested", requested, "recipient", recipient)

	var (
		actual *big.Int
		rate   *uint256.Int
	)
	err := p.atomic("slash", func(ctx *callContext) (err error) {
		if err = p.requireKind(KindSafetyModule); err != nil {
			return
		}
		if err = p.requireRole(roles.Slasher, caller); err != nil {
			return
		}
		if err = requirePositive(requested); err != nil {
			return
		}
		balance, err := p.token.BalanceOf(p.addr)
		if err != nil {
			return
		}
		if actual, rate, err = p.exchangeRateService.Slash(ctx.block, balance, requested); err != nil {
			return
		}
		if err = p.token.Transfer(p.addr, recipient, actual); err != nil {
			return
		}
		p.emit(ctx, EventSlashed, recipient, caller, actual, map[string]string{"rate": rate.Dec()})
		return
	})
	if err != nil {
		return nil, err
	}

	metricSlashCount().Add(1)
	logger.Info("slashed", "pool", p.addr, "amount", actual, "rate", rate.Dec())
	return actual, nil
}

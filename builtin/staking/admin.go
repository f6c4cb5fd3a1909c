// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"strconv"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking/epoch"
	"github.com/vechain/stakingpool/thor"
)

//
// Getters - no state change
//

// EpochParams returns the epoch schedule.
func (p *Pool) EpochParams() (epoch.Params, error) {
	return p.epochService.Params()
}

// CurrentEpoch returns the epoch number now, failing before epoch zero.
func (p *Pool) CurrentEpoch() (uint64, error) {
	params, err := p.epochService.Params()
	if err != nil {
		return 0, err
	}
	return params.Current(p.clock.BlockTime())
}

// TimeRemainingInCurrentEpoch returns the seconds left in the current epoch.
func (p *Pool) TimeRemainingInCurrentEpoch() (uint64, error) {
	params, err := p.epochService.Params()
	if err != nil {
		return 0, err
	}
	return params.TimeRemaining(p.clock.BlockTime())
}

// InBlackoutWindow reports whether withdrawal requests are blocked now.
func (p *Pool) InBlackoutWindow() (bool, error) {
	params, err := p.epochService.Params()
	if err != nil {
		return false, err
	}
	return params.InBlackout(p.clock.BlockTime()), nil
}

// HasEpochZeroStarted reports whether the pool accepts stake.
func (p *Pool) HasEpochZeroStarted() (bool, error) {
	params, err := p.epochService.Params()
	if err != nil {
		return false, err
	}
	return params.HasStarted(p.clock.BlockTime()), nil
}

// EpochStart returns when epoch e starts.
func (p *Pool) EpochStart(e uint64) (uint64, error) {
	params, err := p.epochService.Params()
	if err != nil {
		return 0, err
	}
	return params.Start(e), nil
}

//
// Setters - state change
//

// SetEpochParameters retunes the epoch schedule without changing the running epoch number.
func (p *Pool) SetEpochParameters(caller thor.Address, interval, offset uint64) error {
	logger.Debug("setting epoch parameters", "pool", p.addr, "interval", interval, "offset", offset)

	err := p.atomic("set-epoch-parameters", func(ctx *callContext) error {
		if err := p.requireRole(roles.EpochParametersAdmin, caller); err != nil {
			return err
		}
		// rewards accrue under the old schedule up to now
		if err := p.settle(ctx); err != nil {
			return err
		}
		if err := p.epochService.SetParams(ctx.now, interval, offset); err != nil {
			return err
		}
		p.emit(ctx, EventEpochParametersChanged, caller, thor.Address{}, nil, map[string]string{
			"interval": formatUint(interval),
			"offset":   formatUint(offset),
		})
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("epoch parameters set", "pool", p.addr, "interval", interval, "offset", offset)
	return nil
}

// SetBlackoutWindow sets how long before the end of an epoch withdrawal requests are blocked.
func (p *Pool) SetBlackoutWindow(caller thor.Address, window uint64) error {
	logger.Debug("setting blackout window", "pool", p.addr, "window", window)

	err := p.atomic("set-blackout-window", func(ctx *callContext) error {
		if err := p.requireRole(roles.EpochParametersAdmin, caller); err != nil {
			return err
		}
		if err := p.epochService.SetBlackoutWindow(window); err != nil {
			return err
		}
		p.emit(ctx, EventBlackoutWindowChanged, caller, thor.Address{}, nil, map[string]string{
			"window": formatUint(window),
		})
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("blackout window set", "pool", p.addr, "window", window)
	return nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"github.com/vechain/stakingpool/builtin/staking/reverts"
)

// Params defines the epoch schedule. All values are in seconds.
type Params struct {
	Interval       uint64
	Offset         uint64
	BlackoutWindow uint64
}

// HasStarted reports whether epoch zero has started at now.
func (p Params) HasStarted(now uint64) bool {
	return p.Interval > 0 && now >= p.Offset
}

// Current returns the epoch number at now.
func (p Params) Current(now uint64) (uint64, error) {
	if !p.HasStarted(now) {
		return 0, reverts.ErrEpochNotStarted
	}
	return (now - p.Offset) / p.Interval, nil
}

// CurrentOrZero returns the epoch number at now, or zero before epoch zero.
// Checkpoints touched before epoch zero stay in epoch zero.
func (p Params) CurrentOrZero(now uint64) uint64 {
	e, err := p.Current(now)
	if err != nil {
		return 0
	}
	return e
}

// Start returns the timestamp epoch e starts at.
func (p Params) Start(e uint64) uint64 {
	return p.Offset + e*p.Interval
}

// TimeRemaining returns seconds left in the current epoch.
func (p Params) TimeRemaining(now uint64) (uint64, error) {
	e, err := p.Current(now)
	if err != nil {
		return 0, err
	}
	return p.Start(e+1) - now, nil
}

// InBlackout reports whether now falls in the blackout window at the end of an epoch.
func (p Params) InBlackout(now uint64) bool {
	remaining, err := p.TimeRemaining(now)
	if err != nil {
		return false
	}
	return remaining <= p.BlackoutWindow
}

// ValidateChange checks a schedule change requested at now.
func (p Params) ValidateChange(now uint64, next Params) error {
	if next.Interval == 0 || next.BlackoutWindow > next.Interval {
		return reverts.ErrInvalidEpochChange
	}
	// before epoch zero the schedule is free as long as epoch zero stays ahead
	if !p.HasStarted(now) {
		if next.HasStarted(now) {
			return reverts.ErrInvalidEpochChange
		}
		return nil
	}
	// the running epoch must stay the same epoch
	if next.Offset > now {
		return reverts.ErrInvalidEpochChange
	}
	before, _ := p.Current(now)
	after, _ := next.Current(now)
	if before != after {
		return reverts.ErrInvalidEpochChange
	}
	return nil
}

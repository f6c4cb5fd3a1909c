// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

var slotParams = thor.BytesToBytes32([]byte("epoch-params"))

// Service persists the epoch schedule of a pool.
type Service struct {
	params *solidity.Raw[*Params]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		params: solidity.NewRaw[*Params](sctx, slotParams),
	}
}

// Params returns the stored schedule.
func (s *Service) Params() (Params, error) {
	p, err := s.params.Get()
	if err != nil {
		return Params{}, err
	}
	return *p, nil
}

// Init stores the genesis schedule, which may have started already.
func (s *Service) Init(params Params) error {
	if params.Interval == 0 || params.BlackoutWindow > params.Interval {
		return reverts.ErrInvalidEpochChange
	}
	return s.params.Set(&params)
}

// SetParams changes interval and offset, keeping the blackout window.
func (s *Service) SetParams(now, interval, offset uint64) error {
	current, err := s.Params()
	if err != nil {
		return err
	}
	next := Params{Interval: interval, Offset: offset, BlackoutWindow: current.BlackoutWindow}
	if err := current.ValidateChange(now, next); err != nil {
		return err
	}
	return s.params.Set(&next)
}

// SetBlackoutWindow changes the blackout window, which can't exceed the interval.
func (s *Service) SetBlackoutWindow(window uint64) error {
	current, err := s.Params()
	if err != nil {
		return err
	}
	if window > current.Interval {
		return reverts.ErrInvalidEpochChange
	}
	current.BlackoutWindow = window
	return s.params.Set(&current)
}

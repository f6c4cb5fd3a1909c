// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewards

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/checkpoint"
	"github.com/vechain/stakingpool/builtin/staking/epoch"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

var (
	slotGlobal    = thor.BytesToBytes32([]byte("rewards-global"))
	slotSchedule  = thor.BytesToBytes32([]byte("rewards-schedule"))
	slotUsers     = thor.BytesToBytes32([]byte("rewards-users"))
	slotSnapshots = thor.BytesToBytes32([]byte("rewards-snapshots"))
)

type epochKey uint64

func (k epochKey) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(k))
}

// Service accrues rewards against the current active balances.
type Service struct {
	global    *solidity.Raw[*Global]
	schedule  *solidity.Raw[*Schedule]
	users     *solidity.Mapping[thor.Address, *User]
	snapshots *solidity.Mapping[epochKey, *big.Int]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		global:    solidity.NewRaw[*Global](sctx, slotGlobal),
		schedule:  solidity.NewRaw[*Schedule](sctx, slotSchedule),
		users:     solidity.NewMapping[thor.Address, *User](sctx, slotUsers),
		snapshots: solidity.NewMapping[epochKey, *big.Int](sctx, slotSnapshots),
	}
}

// Global returns the stored global index.
func (s *Service) Global() (*Global, error) {
	g, err := s.global.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get rewards global")
	}
	return g.normalize(), nil
}

// Schedule returns the distribution window.
func (s *Service) Schedule() (Schedule, error) {
	sch, err := s.schedule.Get()
	if err != nil {
		return Schedule{}, err
	}
	return *sch, nil
}

// SetSchedule sets the distribution window, settle the global index first.
func (s *Service) SetSchedule(start, end uint64) error {
	if end != 0 && end < start {
		return reverts.ErrInvalidAmount
	}
	return s.schedule.Set(&Schedule{Start: start, End: end})
}

// SetRate changes the emission rate. The global index must be settled first.
func (s *Service) SetRate(rate *big.Int) error {
	if rate.Sign() < 0 {
		return reverts.ErrInvalidAmount
	}
	g, err := s.Global()
	if err != nil {
		return err
	}
	g.Rate = new(big.Int).Set(rate)
	return s.global.Set(g)
}

// Update settles the global index up to now.
// totalActive is the stored (not rolled) total active checkpoint.
// When an epoch boundary lies in the elapsed interval, the stretch up to the first boundary
// uses the total of the previous epoch and the index at that boundary is snapshotted.
func (s *Service) Update(now uint64, params epoch.Params, totalActive *checkpoint.Checkpoint) (*Global, error) {
	g, err := s.Global()
	if err != nil {
		return nil, err
	}
	if now <= g.LastUpdate {
		return g, nil
	}
	// the first update only starts the clock
	if g.LastUpdate == 0 {
		g.LastUpdate = now
		g.Epoch = params.CurrentOrZero(now)
		if err := s.global.Set(g); err != nil {
			return nil, err
		}
		return g, nil
	}
	sch, err := s.Schedule()
	if err != nil {
		return nil, err
	}

	nowEpoch := params.CurrentOrZero(now)
	if nowEpoch > g.Epoch {
		boundary := params.Start(g.Epoch + 1)
		if boundary > g.LastUpdate {
			g.Index = accrue(g.Index, g.Rate, sch, g.LastUpdate, boundary, totalActive.Load(g.Epoch).Current)
			g.LastUpdate = boundary
		}
		if err := s.snapshots.Set(epochKey(g.Epoch+1), g.Index); err != nil {
			return nil, err
		}
		g.Epoch = nowEpoch
	}
	g.Index = accrue(g.Index, g.Rate, sch, g.LastUpdate, now, totalActive.Load(nowEpoch).Current)
	g.LastUpdate = now

	if err := s.global.Set(g); err != nil {
		return nil, err
	}
	return g, nil
}

// User returns the stored reward record of a staker.
func (s *Service) User(addr thor.Address) (*User, error) {
	u, err := s.users.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get rewards user")
	}
	return u.normalize(), nil
}

// Accrued computes the user record settled against g without persisting it.
// active is the stored (not rolled) active checkpoint of the staker.
func (s *Service) Accrued(addr thor.Address, g *Global, active *checkpoint.Checkpoint) (*User, error) {
	u, err := s.User(addr)
	if err != nil {
		return nil, err
	}
	if u.Epoch < g.Epoch {
		snap, err := s.snapshots.Get(epochKey(u.Epoch + 1))
		if err != nil {
			return nil, err
		}
		if snap.Cmp(u.Index) < 0 {
			snap = u.Index
		}
		u.Pending.Add(u.Pending, earned(active.Load(u.Epoch).Current, u.Index, snap))
		u.Pending.Add(u.Pending, earned(active.Load(g.Epoch).Current, snap, g.Index))
	} else {
		u.Pending.Add(u.Pending, earned(active.Load(g.Epoch).Current, u.Index, g.Index))
	}
	u.Index = new(big.Int).Set(g.Index)
	u.Epoch = g.Epoch
	return u, nil
}

// Settle persists the accrued record of a staker.
func (s *Service) Settle(addr thor.Address, g *Global, active *checkpoint.Checkpoint) (*User, error) {
	u, err := s.Accrued(addr, g, active)
	if err != nil {
		return nil, err
	}
	if err := s.users.Set(addr, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Claim takes amount out of the settled pending rewards. A MaxUint256 amount claims everything.
func (s *Service) Claim(addr thor.Address, amount *big.Int) (*big.Int, error) {
	u, err := s.User(addr)
	if err != nil {
		return nil, err
	}
	claimed := new(big.Int).Set(amount)
	if amount.Cmp(math.MaxBig256) == 0 {
		claimed.Set(u.Pending)
	} else if amount.Cmp(u.Pending) > 0 {
		return nil, reverts.ErrInvalidAmount
	}
	u.Pending.Sub(u.Pending, claimed)
	if err := s.users.Set(addr, u); err != nil {
		return nil, err
	}
	return claimed, nil
}

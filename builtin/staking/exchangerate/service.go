// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package exchangerate

import (
	"encoding/binary"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

var (
	slotSnapshots     = thor.BytesToBytes32([]byte("exchange-rate-snapshots"))
	slotSnapshotCount = thor.BytesToBytes32([]byte("exchange-rate-snapshot-count"))

	// Base is the exchange rate before any slash, 1.0 in 18 decimals.
	Base = uint256.NewInt(1e18)
	// MaxExchangeRate bounds the rate, leaving room for at least 30 slashes of 95%.
	MaxExchangeRate = new(uint256.Int).Mul(uint256.NewInt(1e18), new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(40)))

	// MaxSlashPercent caps a single slash relative to the underlying balance.
	MaxSlashPercent = uint256.NewInt(95)
)

// Snapshot is the rate in effect from a block on.
type Snapshot struct {
	Block uint32
	Rate  *big.Int
}

type seqKey uint64

func (k seqKey) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(k))
}

// Service keeps the slashing exchange rate between staked and underlying units.
type Service struct {
	snapshots *solidity.Mapping[seqKey, *Snapshot]
	count     *solidity.Raw[uint64]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		snapshots: solidity.NewMapping[seqKey, *Snapshot](sctx, slotSnapshots),
		count:     solidity.NewRaw[uint64](sctx, slotSnapshotCount),
	}
}

// Rate returns the current exchange rate.
func (s *Service) Rate() (*uint256.Int, error) {
	count, err := s.count.Get()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return new(uint256.Int).Set(Base), nil
	}
	snap, err := s.snapshots.Get(seqKey(count - 1))
	if err != nil {
		return nil, err
	}
	return toUint256(snap.Rate), nil
}

// RateAt returns the exchange rate in effect at block.
func (s *Service) RateAt(block uint32) (*uint256.Int, error) {
	snaps, err := s.Snapshots()
	if err != nil {
		return nil, err
	}
	// first snapshot after block
	i := sort.Search(len(snaps), func(i int) bool {
		return snaps[i].Block > block
	})
	if i == 0 {
		return new(uint256.Int).Set(Base), nil
	}
	return toUint256(snaps[i-1].Rate), nil
}

// Snapshots returns every rate change, oldest first.
func (s *Service) Snapshots() ([]*Snapshot, error) {
	count, err := s.count.Get()
	if err != nil {
		return nil, err
	}
	snaps := make([]*Snapshot, 0, count)
	for i := uint64(0); i < count; i++ {
		snap, err := s.snapshots.Get(seqKey(i))
		if err != nil {
			return nil, errors.Wrap(err, "failed to get exchange rate snapshot")
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Slash computes the capped slash amount against the underlying balance,
// raises the rate accordingly and appends a snapshot at block.
func (s *Service) Slash(block uint32, underlying, requested *big.Int) (*big.Int, *uint256.Int, error) {
	rate, err := s.Rate()
	if err != nil {
		return nil, nil, err
	}
	before, overflow := uint256.FromBig(underlying)
	if overflow {
		return nil, nil, reverts.ErrMaxExchangeRateExceeded
	}
	limit := new(uint256.Int).Mul(before, MaxSlashPercent)
	limit.Div(limit, uint256.NewInt(100))

	actual, overflow := uint256.FromBig(requested)
	if overflow || actual.Gt(limit) {
		actual = limit
	}
	if actual.IsZero() {
		return new(big.Int), rate, nil
	}

	after := new(uint256.Int).Sub(before, actual)
	next, overflow := new(uint256.Int).MulDivOverflow(rate, before, after)
	if overflow || next.Gt(MaxExchangeRate) {
		return nil, nil, reverts.ErrMaxExchangeRateExceeded
	}

	if err := s.append(block, next); err != nil {
		return nil, nil, err
	}
	return actual.ToBig(), next, nil
}

func (s *Service) append(block uint32, rate *uint256.Int) error {
	count, err := s.count.Get()
	if err != nil {
		return err
	}
	// same block slashes overwrite the last snapshot
	if count > 0 {
		last, err := s.snapshots.Get(seqKey(count - 1))
		if err != nil {
			return err
		}
		if last.Block == block {
			return s.snapshots.Set(seqKey(count-1), &Snapshot{Block: block, Rate: rate.ToBig()})
		}
	}
	if err := s.snapshots.Set(seqKey(count), &Snapshot{Block: block, Rate: rate.ToBig()}); err != nil {
		return err
	}
	return s.count.Set(count + 1)
}

// ToStaked converts underlying units into staked units at rate.
func ToStaked(underlying *big.Int, rate *uint256.Int) *big.Int {
	staked := new(big.Int).Mul(underlying, rate.ToBig())
	return staked.Div(staked, Base.ToBig())
}

// ToUnderlying converts staked units into underlying units at rate.
func ToUnderlying(staked *big.Int, rate *uint256.Int) *big.Int {
	underlying := new(big.Int).Mul(staked, Base.ToBig())
	return underlying.Div(underlying, rate.ToBig())
}

func toUint256(v *big.Int) *uint256.Int {
	u, _ := uint256.FromBig(v)
	return u
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin"
	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/lvldb"
	"github.com/vechain/stakingpool/state"
	"github.com/vechain/stakingpool/thor"
	"github.com/vechain/stakingpool/xenv"
)

// builder authorizes every call made while writing the genesis state.
type builder struct{}

func (builder) IsAuthorized(roles.Permission, thor.Address) (bool, error) { return true, nil }

// Build writes the genesis into st at block zero. Committing is left to the caller.
func (g *Genesis) Build(st *state.State) error {
	tok := builtin.Token.WithState(st)

	// sorted for a deterministic state
	accounts := make([]thor.Address, 0, len(g.Balances))
	for addr := range g.Balances {
		accounts = append(accounts, addr)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return string(accounts[i].Bytes()) < string(accounts[j].Bytes())
	})
	for _, addr := range accounts {
		if err := tok.Mint(addr, g.Balances[addr].Big()); err != nil {
			return errors.WithMessagef(err, "mint %v", addr)
		}
	}

	reg := builtin.Roles.WithState(st)
	for _, grant := range g.Grants {
		p, err := roles.ParsePermission(grant.Permission)
		if err != nil {
			return err
		}
		for _, acc := range grant.Accounts {
			if err := reg.Init(p, acc); err != nil {
				return err
			}
		}
	}

	clock := &xenv.BlockContext{Number: 0, Time: g.LaunchTime}
	for _, cfg := range g.Pools {
		kind, err := staking.ParseKind(cfg.Kind)
		if err != nil {
			return err
		}
		pool := staking.New(cfg.Address, kind, st, clock, tok, builder{}, cfg.Vault)
		if err := buildPool(pool, cfg); err != nil {
			return errors.WithMessagef(err, "pool %s", cfg.PoolName())
		}
	}
	return nil
}

func buildPool(pool *staking.Pool, cfg Pool) error {
	if err := pool.Initialize(cfg.Epoch.Params()); err != nil {
		return err
	}
	if cfg.Rewards != nil {
		if err := pool.SetDistributionSchedule(thor.Address{}, cfg.Rewards.Start, cfg.Rewards.End); err != nil {
			return err
		}
		if err := pool.SetRewardsPerSecond(thor.Address{}, cfg.Rewards.PerSecond.Big()); err != nil {
			return err
		}
	}
	if len(cfg.Allocations) > 0 {
		borrowers := make([]thor.Address, 0, len(cfg.Allocations))
		bps := make([]uint64, 0, len(cfg.Allocations))
		for _, a := range cfg.Allocations {
			borrowers = append(borrowers, a.Borrower)
			bps = append(bps, a.BPS)
		}
		if err := pool.SetBorrowerAllocations(thor.Address{}, borrowers, bps); err != nil {
			return err
		}
	}
	// genesis writes are not part of the event history
	pool.TakeEvents()
	return nil
}

// ID identifies the genesis by the hash of the storage it writes.
func (g *Genesis) ID() (thor.Bytes32, error) {
	db, err := lvldb.NewMem()
	if err != nil {
		return thor.Bytes32{}, err
	}
	defer db.Close()

	stater, err := state.NewStater(db, 0)
	if err != nil {
		return thor.Bytes32{}, err
	}
	st := stater.NewState()
	if err := g.Build(st); err != nil {
		return thor.Bytes32{}, err
	}
	return st.Stage().Hash(), nil
}

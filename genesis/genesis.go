// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/builtin/staking/epoch"
	"github.com/vechain/stakingpool/thor"
)

// Genesis describes the initial ledger: token balances, role grants and pools.
type Genesis struct {
	LaunchTime uint64                   `yaml:"launchTime"`
	Balances   map[thor.Address]*Amount `yaml:"balances"`
	Grants     []Grant                  `yaml:"grants"`
	Pools      []Pool                   `yaml:"pools"`
}

// Grant gives one permission to some accounts.
type Grant struct {
	Permission string         `yaml:"permission"`
	Accounts   []thor.Address `yaml:"accounts"`
}

// Pool is the initial configuration of one pool.
type Pool struct {
	Name        string       `yaml:"name"`
	Address     thor.Address `yaml:"address"`
	Kind        string       `yaml:"kind"`
	Vault       thor.Address `yaml:"vault"`
	Epoch       Epoch        `yaml:"epoch"`
	Rewards     *Rewards     `yaml:"rewards"`
	Allocations []Allocation `yaml:"allocations"`
}

type Epoch struct {
	Interval       uint64 `yaml:"interval"`
	Offset         uint64 `yaml:"offset"`
	BlackoutWindow uint64 `yaml:"blackoutWindow"`
}

// Params converts to the ledger epoch parameters.
func (e Epoch) Params() epoch.Params {
	return epoch.Params{Interval: e.Interval, Offset: e.Offset, BlackoutWindow: e.BlackoutWindow}
}

type Rewards struct {
	PerSecond *Amount `yaml:"perSecond"`
	Start     uint64  `yaml:"start"`
	End       uint64  `yaml:"end"`
}

type Allocation struct {
	Borrower thor.Address `yaml:"borrower"`
	BPS      uint64       `yaml:"bps"`
}

// Load reads and validates a genesis file.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	return Decode(data)
}

// Decode parses and validates a yaml genesis.
func Decode(data []byte) (*Genesis, error) {
	var gen Genesis
	if err := yaml.Unmarshal(data, &gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	return &gen, nil
}

// Validate checks what the ledger itself can't check while building.
func (g *Genesis) Validate() error {
	for _, grant := range g.Grants {
		if _, err := roles.ParsePermission(grant.Permission); err != nil {
			return err
		}
	}
	if len(g.Pools) == 0 {
		return errors.New("no pool configured")
	}
	seen := make(map[thor.Address]bool)
	for i, p := range g.Pools {
		if p.Address.IsZero() {
			return fmt.Errorf("pool #%d: missing address", i)
		}
		if seen[p.Address] {
			return fmt.Errorf("pool #%d: duplicated address %v", i, p.Address)
		}
		seen[p.Address] = true

		kind, err := staking.ParseKind(p.Kind)
		if err != nil {
			return errors.WithMessagef(err, "pool #%d", i)
		}
		if kind != staking.KindLiquidity && len(p.Allocations) > 0 {
			return fmt.Errorf("pool #%d: allocations need a liquidity pool", i)
		}
		if p.Epoch.Interval == 0 {
			return fmt.Errorf("pool #%d: zero epoch interval", i)
		}
	}
	return nil
}

// PoolName returns the configured name, or the address when unnamed.
func (p Pool) PoolName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Address.String()
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"strings"

	"github.com/vechain/stakingpool/builtin"
	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/builtin/token"
	"github.com/vechain/stakingpool/genesis"
	"github.com/vechain/stakingpool/state"
	"github.com/vechain/stakingpool/thor"
	"github.com/vechain/stakingpool/xenv"
)

// Pools binds every configured pool, the token and the role registry to one state.
type Pools struct {
	Token *token.Token
	Roles *roles.Registry

	list   []*staking.Pool
	byAddr map[thor.Address]*staking.Pool
	names  map[thor.Address]string
}

func newPools(gen *genesis.Genesis, st *state.State, clock xenv.Clock) (*Pools, error) {
	pools := &Pools{
		Token:  builtin.Token.WithState(st),
		Roles:  builtin.Roles.WithState(st),
		byAddr: make(map[thor.Address]*staking.Pool, len(gen.Pools)),
		names:  make(map[thor.Address]string, len(gen.Pools)),
	}
	for _, cfg := range gen.Pools {
		kind, err := staking.ParseKind(cfg.Kind)
		if err != nil {
			return nil, err
		}
		p := staking.New(cfg.Address, kind, st, clock, pools.Token, pools.Roles, cfg.Vault)
		pools.list = append(pools.list, p)
		pools.byAddr[cfg.Address] = p
		pools.names[cfg.Address] = cfg.PoolName()
	}
	return pools, nil
}

// All returns the pools in configuration order.
func (p *Pools) All() []*staking.Pool {
	return p.list
}

// Get finds a pool by its address, or by its configured name.
func (p *Pools) Get(key string) (*staking.Pool, bool) {
	for addr, name := range p.names {
		if name == key {
			return p.byAddr[addr], true
		}
	}
	addr, err := thor.ParseAddress(strings.TrimSpace(key))
	if err != nil {
		return nil, false
	}
	pool, ok := p.byAddr[addr]
	return pool, ok
}

// Name returns the configured name of a pool.
func (p *Pools) Name(addr thor.Address) string {
	return p.names[addr]
}

// takeEvents drains the events of every pool, in pool order.
func (p *Pools) takeEvents() []*staking.Event {
	var events []*staking.Event
	for _, pool := range p.list {
		events = append(events, pool.TakeEvents()...)
	}
	return events
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"fmt"
	"math/big"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/balances"
	"github.com/vechain/stakingpool/builtin/staking/borrowing"
	"github.com/vechain/stakingpool/builtin/staking/debt"
	"github.com/vechain/stakingpool/builtin/staking/epoch"
	"github.com/vechain/stakingpool/builtin/staking/exchangerate"
	"github.com/vechain/stakingpool/builtin/staking/power"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/builtin/staking/rewards"
	"github.com/vechain/stakingpool/log"
	"github.com/vechain/stakingpool/state"
	"github.com/vechain/stakingpool/thor"
	"github.com/vechain/stakingpool/xenv"
)

var logger = log.WithContext("pkg", "staking")

func SetLogger(l log.Logger) {
	logger = l
}

// Kind selects the pool variant.
type Kind uint8

const (
	// KindLiquidity pools lend stake to approved borrowers.
	KindLiquidity Kind = iota + 1
	// KindSafetyModule pools can be slashed and track an exchange rate.
	KindSafetyModule
)

func (k Kind) String() string {
	switch k {
	case KindLiquidity:
		return "liquidity"
	case KindSafetyModule:
		return "safety-module"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind converts a pool kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindLiquidity, KindSafetyModule} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown pool kind %q", s)
}

// Token is the underlying fungible token.
type Token interface {
	BalanceOf(account thor.Address) (*big.Int, error)
	Transfer(from, to thor.Address, amount *big.Int) error
}

// Pool is one staking pool. Every exported mutator is atomic: it either applies
// all of its writes and events or none of them.
type Pool struct {
	addr  thor.Address
	kind  Kind
	state *state.State
	clock xenv.Clock
	token Token
	auth  roles.Authorizer
	vault thor.Address

	epochService        *epoch.Service
	balancesService     *balances.Service
	rewardsService      *rewards.Service
	borrowingService    *borrowing.Service
	debtService         *debt.Service
	exchangeRateService *exchangerate.Service
	powerService        *power.Service

	events []*Event
}

// New create a pool bound to the storage of addr.
func New(
	addr thor.Address,
	kind Kind,
	st *state.State,
	clock xenv.Clock,
	token Token,
	auth roles.Authorizer,
	vault thor.Address,
) *Pool {
	sctx := solidity.NewContext(addr, st)
	return &Pool{
		addr:  addr,
		kind:  kind,
		state: st,
		clock: clock,
		token: token,
		auth:  auth,
		vault: vault,

		epochService:        epoch.New(sctx),
		balancesService:     balances.New(sctx),
		rewardsService:      rewards.New(sctx),
		borrowingService:    borrowing.New(sctx),
		debtService:         debt.New(sctx),
		exchangeRateService: exchangerate.New(sctx),
		powerService:        power.New(sctx),
	}
}

// Initialize writes the initial pool storage, called once at genesis.
func (p *Pool) Initialize(params epoch.Params) error {
	return p.atomic("initialize", func(ctx *callContext) error {
		if params.Interval > 0 {
			if err := p.epochService.Init(params); err != nil {
				return err
			}
		}
		return p.borrowingService.Init()
	})
}

func (p *Pool) Address() thor.Address { return p.addr }
func (p *Pool) Kind() Kind            { return p.kind }
func (p *Pool) Vault() thor.Address   { return p.vault }

// TakeEvents returns and clears the events emitted by successful calls.
func (p *Pool) TakeEvents() []*Event {
	events := p.events
	p.events = nil
	return events
}

// callContext is the block a call executes in.
type callContext struct {
	now    uint64
	block  uint32
	params epoch.Params
	epoch  uint64
}

func (p *Pool) newContext() (*callContext, error) {
	params, err := p.epochService.Params()
	if err != nil {
		return nil, err
	}
	now := p.clock.BlockTime()
	return &callContext{
		now:    now,
		block:  p.clock.BlockNumber(),
		params: params,
		epoch:  params.CurrentOrZero(now),
	}, nil
}

func (ctx *callContext) requireStarted() error {
	if !ctx.params.HasStarted(ctx.now) {
		return reverts.ErrEpochNotStarted
	}
	return nil
}

// atomic runs fn in a state checkpoint, reverting every write and event when it fails.
func (p *Pool) atomic(op string, fn func(ctx *callContext) error) error {
	checkpoint := p.state.NewCheckpoint()
	emitted := len(p.events)

	ctx, err := p.newContext()
	if err == nil {
		err = fn(ctx)
	}
	if err != nil {
		p.state.RevertTo(checkpoint)
		p.events = p.events[:emitted]
		metricCalls().AddWithLabel(1, map[string]string{"op": op, "status": "reverted"})
		logger.Info("call reverted", "pool", p.addr, "op", op, "error", err)
		return err
	}
	metricCalls().AddWithLabel(1, map[string]string{"op": op, "status": "ok"})
	return nil
}

// view runs fn and discards every write it made.
func (p *Pool) view(fn func(ctx *callContext) error) error {
	checkpoint := p.state.NewCheckpoint()
	defer p.state.RevertTo(checkpoint)

	ctx, err := p.newContext()
	if err != nil {
		return err
	}
	return fn(ctx)
}

func (p *Pool) requireRole(permission roles.Permission, caller thor.Address) error {
	ok, err := p.auth.IsAuthorized(permission, caller)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrUnauthorized
	}
	return nil
}

func (p *Pool) requireKind(kind Kind) error {
	if p.kind != kind {
		return reverts.ErrUnsupportedOperation
	}
	return nil
}

func requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	return nil
}

// available returns the token balance the pool can pay out of, excluding repaid debt owed to stakers.
func (p *Pool) available() (*big.Int, error) {
	balance, err := p.token.BalanceOf(p.addr)
	if err != nil {
		return nil, err
	}
	netDebt, err := p.debtService.NetDebtAvailable()
	if err != nil {
		return nil, err
	}
	balance.Sub(balance, netDebt)
	if balance.Sign() < 0 {
		return balance.SetUint64(0), nil
	}
	return balance, nil
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

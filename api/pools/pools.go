// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/api/restutil"
	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/builtin/staking/power"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/node"
	"github.com/vechain/stakingpool/thor"
)

type Pools struct {
	node *node.Node
}

func New(n *node.Node) *Pools {
	return &Pools{node: n}
}

// view resolves the {pool} path variable and runs fn against the latest state.
func (p *Pools) view(req *http.Request, fn func(pools *node.Pools, pool *staking.Pool) error) error {
	key := mux.Vars(req)["pool"]
	return p.node.View(func(pools *node.Pools) error {
		pool, ok := pools.Get(key)
		if !ok {
			return restutil.NotFound(fmt.Errorf("pool %q not found", key))
		}
		return fn(pools, pool)
	})
}

func (p *Pools) handleList(w http.ResponseWriter, _ *http.Request) error {
	var infos []*PoolInfo
	if err := p.node.View(func(pools *node.Pools) error {
		for _, pool := range pools.All() {
			infos = append(infos, convertPool(pools, pool))
		}
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, infos)
}

func (p *Pools) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	var summary *Summary
	if err := p.view(req, func(pools *node.Pools, pool *staking.Pool) (err error) {
		summary, err = summarize(pools, pool)
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, summary)
}

func summarize(pools *node.Pools, pool *staking.Pool) (*Summary, error) {
	params, err := pool.EpochParams()
	if err != nil {
		return nil, err
	}
	ep := &Epoch{
		Interval:       params.Interval,
		Offset:         params.Offset,
		BlackoutWindow: params.BlackoutWindow,
	}
	if ep.Started, err = pool.HasEpochZeroStarted(); err != nil {
		return nil, err
	}
	if ep.Started {
		current, err := pool.CurrentEpoch()
		if err != nil {
			return nil, err
		}
		remaining, err := pool.TimeRemainingInCurrentEpoch()
		if err != nil {
			return nil, err
		}
		ep.Current, ep.TimeRemaining = &current, &remaining
	}
	if ep.InBlackout, err = pool.InBlackoutWindow(); err != nil {
		return nil, err
	}

	totals, err := pool.Totals()
	if err != nil {
		return nil, err
	}
	count, err := pool.StakerCount()
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		PoolInfo:    convertPool(pools, pool),
		Epoch:       ep,
		Active:      convertCheckpoint(totals.Active),
		Inactive:    convertCheckpoint(totals.Inactive),
		StakerCount: count,
	}

	getters := []struct {
		get func() (*big.Int, error)
		set func(v *big.Int)
	}{
		{pool.Available, func(v *big.Int) { summary.Available = amount(v) }},
		{pool.TotalBorrowed, func(v *big.Int) { summary.TotalBorrowed = amount(v) }},
		{pool.TotalBorrowerDebt, func(v *big.Int) { summary.TotalBorrowerDebt = amount(v) }},
		{pool.NetDebtAvailable, func(v *big.Int) { summary.NetDebtAvailable = amount(v) }},
		{pool.Shortfall, func(v *big.Int) { summary.Shortfall = amount(v) }},
	}
	for _, g := range getters {
		v, err := g.get()
		if err != nil {
			return nil, err
		}
		g.set(v)
	}

	rate, err := pool.ExchangeRate()
	if err != nil {
		return nil, err
	}
	summary.ExchangeRate = amount(rate.ToBig())

	g, err := pool.RewardsGlobal()
	if err != nil {
		return nil, err
	}
	summary.Rewards = &Rewards{
		Index:      amount(g.Index),
		LastUpdate: g.LastUpdate,
		Epoch:      g.Epoch,
		PerSecond:  amount(g.Rate),
	}
	return summary, nil
}

func (p *Pools) handleListStakers(w http.ResponseWriter, req *http.Request) error {
	addrs := make([]*thor.Address, 0)
	if err := p.view(req, func(_ *node.Pools, pool *staking.Pool) error {
		return pool.IterStakers(func(addr thor.Address) error {
			addrs = append(addrs, &addr)
			return nil
		})
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, addrs)
}

func (p *Pools) handleGetStaker(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.ParseAddress("account", mux.Vars(req)["account"])
	if err != nil {
		return err
	}
	var staker *Staker
	if err := p.view(req, func(_ *node.Pools, pool *staking.Pool) error {
		s, err := pool.Staker(addr)
		if err != nil {
			return err
		}
		pending, err := pool.PendingRewards(addr)
		if err != nil {
			return err
		}
		staker = &Staker{
			Address:        addr,
			Active:         convertCheckpoint(s.Active),
			Inactive:       convertCheckpoint(s.Inactive),
			Debt:           amount(s.Debt),
			StakedBalance:  amount(s.StakedBalance()),
			PendingRewards: amount(pending),
		}
		for _, typ := range power.Types {
			delegatee, err := pool.Delegatee(addr, typ)
			if err != nil {
				return err
			}
			pw, err := pool.Power(addr, typ)
			if err != nil {
				return err
			}
			staker.Power = append(staker.Power, &Power{Type: typ.String(), Delegatee: delegatee, Power: amount(pw)})
		}
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, staker)
}

func borrowerOf(pool *staking.Pool, addr thor.Address) (*Borrower, error) {
	b, err := pool.Borrower(addr)
	if err != nil {
		return nil, err
	}
	borrowable, err := pool.BorrowableAmount(addr)
	if err != nil {
		return nil, err
	}
	return &Borrower{
		Address:    addr,
		Allocation: convertCheckpoint(b.Allocation),
		Borrowed:   amount(b.Borrowed),
		Debt:       amount(b.Debt),
		Restricted: b.Restricted,
		Borrowable: amount(borrowable),
	}, nil
}

func (p *Pools) handleListBorrowers(w http.ResponseWriter, req *http.Request) error {
	borrowers := make([]*Borrower, 0)
	if err := p.view(req, func(_ *node.Pools, pool *staking.Pool) error {
		return pool.IterBorrowers(func(addr thor.Address) error {
			b, err := borrowerOf(pool, addr)
			if err != nil {
				return err
			}
			borrowers = append(borrowers, b)
			return nil
		})
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, borrowers)
}

func (p *Pools) handleGetBorrower(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.ParseAddress("account", mux.Vars(req)["account"])
	if err != nil {
		return err
	}
	var borrower *Borrower
	if err := p.view(req, func(_ *node.Pools, pool *staking.Pool) (err error) {
		borrower, err = borrowerOf(pool, addr)
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, borrower)
}

func (p *Pools) handleGetPower(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.ParseAddress("account", mux.Vars(req)["account"])
	if err != nil {
		return err
	}
	query := req.URL.Query()
	typName := query.Get("type")
	if typName == "" {
		typName = power.Voting.String()
	}
	typ, err := power.ParseType(typName)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "type"))
	}
	best := p.node.Best()
	block, err := restutil.ParseUint32("block", query.Get("block"), best.Number)
	if err != nil {
		return err
	}

	result := &PowerAt{Type: typ.String(), Block: block}
	if err := p.view(req, func(_ *node.Pools, pool *staking.Pool) error {
		pw, err := pool.PowerAtBlock(addr, block, typ)
		if err != nil {
			if reverts.IsRevertErr(err) {
				return restutil.BadRequest(err)
			}
			return err
		}
		result.Power = amount(pw)
		checkpoints, err := pool.PowerCheckpoints(addr, typ)
		if err != nil {
			return err
		}
		result.Checkpoints = make([]*PowerCheckpoint, 0, len(checkpoints))
		for _, c := range checkpoints {
			result.Checkpoints = append(result.Checkpoints, &PowerCheckpoint{Block: c.Block, Power: amount(c.Power)})
		}
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, result)
}

func (p *Pools) handleGetExchangeRate(w http.ResponseWriter, req *http.Request) error {
	var result *ExchangeRate
	if err := p.view(req, func(_ *node.Pools, pool *staking.Pool) error {
		rate, err := pool.ExchangeRate()
		if err != nil {
			return err
		}
		snaps, err := pool.ExchangeRateSnapshots()
		if err != nil {
			return err
		}
		result = &ExchangeRate{Rate: amount(rate.ToBig()), Snapshots: make([]*RateSnapshot, 0, len(snaps))}
		for _, s := range snaps {
			result.Snapshots = append(result.Snapshots, &RateSnapshot{Block: s.Block, Rate: amount(s.Rate)})
		}
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, result)
}

func (p *Pools) handleGetShortfalls(w http.ResponseWriter, req *http.Request) error {
	shortfalls := make([]*Shortfall, 0)
	if err := p.view(req, func(_ *node.Pools, pool *staking.Pool) error {
		list, err := pool.Shortfalls()
		if err != nil {
			return err
		}
		for _, s := range list {
			shortfalls = append(shortfalls, &Shortfall{Epoch: s.Epoch, Debt: amount(s.Debt), Loss: amount(s.Loss), Index: amount(s.Index)})
		}
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, shortfalls)
}

func (p *Pools) handleCall(w http.ResponseWriter, req *http.Request) error {
	var body CallRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Op == "" {
		return restutil.BadRequest(errors.New("body: missing op"))
	}
	call := &node.Call{
		Pool:   mux.Vars(req)["pool"],
		Op:     body.Op,
		Caller: body.Caller,
		Args:   body.Args,
	}

	var result *big.Int
	receipt, err := p.node.Execute(0, func(pools *node.Pools) (err error) {
		result, err = call.Apply(pools)
		return
	})
	switch {
	case err == nil:
	case errors.Is(err, node.ErrBadCall):
		return restutil.BadRequest(err)
	case reverts.IsRevertErr(err):
		return restutil.WriteJSON(w, &CallResult{Reverted: true, Error: err.Error(), Events: []*Event{}})
	default:
		return err
	}

	res := &CallResult{
		BlockNumber: receipt.Block.Number,
		BlockTime:   receipt.Block.Time,
		Events:      make([]*Event, 0, len(receipt.Events)),
	}
	if result != nil {
		res.Result = amount(result)
	}
	for _, ev := range receipt.Events {
		res.Events = append(res.Events, &Event{
			Name:         ev.Name,
			Account:      ev.Account,
			Counterparty: ev.Counterparty,
			Amount:       amount(ev.Amount),
			Meta:         ev.Meta,
		})
	}
	return restutil.WriteJSON(w, res)
}

func (p *Pools) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /pools").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleList))
	sub.Path("/{pool}").
		Methods(http.MethodGet).
		Name("GET /pools/{pool}").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetPool))
	sub.Path("/{pool}/stakers").
		Methods(http.MethodGet).
		Name("GET /pools/{pool}/stakers").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleListStakers))
	sub.Path("/{pool}/stakers/{account}").
		Methods(http.MethodGet).
		Name("GET /pools/{pool}/stakers/{account}").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetStaker))
	sub.Path("/{pool}/borrowers").
		Methods(http.MethodGet).
		Name("GET /pools/{pool}/borrowers").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleListBorrowers))
	sub.Path("/{pool}/borrowers/{account}").
		Methods(http.MethodGet).
		Name("GET /pools/{pool}/borrowers/{account}").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetBorrower))
	sub.Path("/{pool}/power/{account}").
		Methods(http.MethodGet).
		Name("GET /pools/{pool}/power/{account}").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetPower))
	sub.Path("/{pool}/exchange-rate").
		Methods(http.MethodGet).
		Name("GET /pools/{pool}/exchange-rate").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetExchangeRate))
	sub.Path("/{pool}/shortfalls").
		Methods(http.MethodGet).
		Name("GET /pools/{pool}/shortfalls").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetShortfalls))
	sub.Path("/{pool}/calls").
		Methods(http.MethodPost).
		Name("POST /pools/{pool}/calls").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleCall))
}

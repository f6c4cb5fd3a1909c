// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/builtin/staking/power"
	"github.com/vechain/stakingpool/thor"
)

// ErrBadCall is returned for calls that can't be decoded.
var ErrBadCall = errors.New("bad call")

// Call is one ledger call made by Caller against a pool.
type Call struct {
	Pool   string       `json:"pool,omitempty" yaml:"pool"`
	Op     string       `json:"op" yaml:"op"`
	Caller thor.Address `json:"caller" yaml:"caller"`
	Args   Args         `json:"args,omitempty" yaml:"args"`
	Time   uint64       `json:"time,omitempty" yaml:"time"`
}

// Args are the named call arguments. Amounts are decimal or 0x prefixed hex,
// lists are comma separated.
type Args map[string]string

func badArg(name string, format string, args ...any) error {
	return errors.Wrapf(ErrBadCall, "argument %q: "+format, append([]any{name}, args...)...)
}

func (a Args) str(name string) (string, error) {
	v, ok := a[name]
	if !ok || strings.TrimSpace(v) == "" {
		return "", badArg(name, "missing")
	}
	return strings.TrimSpace(v), nil
}

func (a Args) address(name string) (thor.Address, error) {
	s, err := a.str(name)
	if err != nil {
		return thor.Address{}, err
	}
	addr, err := thor.ParseAddress(s)
	if err != nil {
		return thor.Address{}, badArg(name, "%v", err)
	}
	return addr, nil
}

// addressOr returns def when the argument is absent.
func (a Args) addressOr(name string, def thor.Address) (thor.Address, error) {
	if _, ok := a[name]; !ok {
		return def, nil
	}
	return a.address(name)
}

func (a Args) addresses(name string) ([]thor.Address, error) {
	v := strings.TrimSpace(a[name])
	if v == "" {
		return nil, nil
	}
	var addrs []thor.Address
	for _, s := range strings.Split(v, ",") {
		addr, err := thor.ParseAddress(strings.TrimSpace(s))
		if err != nil {
			return nil, badArg(name, "%v", err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func (a Args) amount(name string) (*big.Int, error) {
	s, err := a.str(name)
	if err != nil {
		return nil, err
	}
	if s == "max" {
		return new(big.Int).Set(math.MaxBig256), nil
	}
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, badArg(name, "invalid amount %q", s)
	}
	return v, nil
}

func (a Args) uint(name string) (uint64, error) {
	s, err := a.str(name)
	if err != nil {
		return 0, err
	}
	v, ok := math.ParseUint64(s)
	if !ok {
		return 0, badArg(name, "invalid integer %q", s)
	}
	return v, nil
}

func (a Args) uints(name string) ([]uint64, error) {
	v := strings.TrimSpace(a[name])
	if v == "" {
		return nil, nil
	}
	var out []uint64
	for _, s := range strings.Split(v, ",") {
		n, ok := math.ParseUint64(strings.TrimSpace(s))
		if !ok {
			return nil, badArg(name, "invalid integer %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}

func (a Args) bool(name string) (bool, error) {
	s, err := a.str(name)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, badArg(name, "invalid bool %q", s)
	}
	return b, nil
}

type handler func(p *staking.Pool, pools *Pools, caller thor.Address, args Args) (*big.Int, error)

var handlers = map[string]handler{
	"stake": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return nil, p.Stake(caller, amount)
	},
	"request-withdrawal": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return nil, p.RequestWithdrawal(caller, amount)
	},
	"withdraw-stake": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		recipient, err := args.addressOr("recipient", caller)
		if err != nil {
			return nil, err
		}
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return p.WithdrawStake(caller, recipient, amount)
	},
	"withdraw-max-stake": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		recipient, err := args.addressOr("recipient", caller)
		if err != nil {
			return nil, err
		}
		return p.WithdrawMaxStake(caller, recipient)
	},
	"transfer": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		to, err := args.address("to")
		if err != nil {
			return nil, err
		}
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return nil, p.Transfer(caller, to, amount)
	},
	"claim-rewards": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		recipient, err := args.addressOr("recipient", caller)
		if err != nil {
			return nil, err
		}
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return p.ClaimRewards(caller, recipient, amount)
	},
	"borrow": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return nil, p.Borrow(caller, amount)
	},
	"repay-borrow": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		borrower, err := args.addressOr("borrower", caller)
		if err != nil {
			return nil, err
		}
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return nil, p.RepayBorrow(caller, borrower, amount)
	},
	"mark-debt": func(p *staking.Pool, _ *Pools, _ thor.Address, args Args) (*big.Int, error) {
		borrowers, err := args.addresses("borrowers")
		if err != nil {
			return nil, err
		}
		return p.MarkDebt(borrowers)
	},
	"repay-debt": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		borrower, err := args.addressOr("borrower", caller)
		if err != nil {
			return nil, err
		}
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return nil, p.RepayDebt(caller, borrower, amount)
	},
	"withdraw-debt": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		recipient, err := args.addressOr("recipient", caller)
		if err != nil {
			return nil, err
		}
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		return nil, p.WithdrawDebt(caller, recipient, amount)
	},
	"withdraw-max-debt": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		recipient, err := args.addressOr("recipient", caller)
		if err != nil {
			return nil, err
		}
		return p.WithdrawMaxDebt(caller, recipient)
	},
	"set-borrower-restriction": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		borrower, err := args.address("borrower")
		if err != nil {
			return nil, err
		}
		restricted, err := args.bool("restricted")
		if err != nil {
			return nil, err
		}
		return nil, p.SetBorrowerRestriction(caller, borrower, restricted)
	},
	"set-borrower-allocations": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		borrowers, err := args.addresses("borrowers")
		if err != nil {
			return nil, err
		}
		bps, err := args.uints("bps")
		if err != nil {
			return nil, err
		}
		return nil, p.SetBorrowerAllocations(caller, borrowers, bps)
	},
	"slash": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		amount, err := args.amount("amount")
		if err != nil {
			return nil, err
		}
		recipient, err := args.address("recipient")
		if err != nil {
			return nil, err
		}
		return p.Slash(caller, amount, recipient)
	},
	"delegate": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		delegatee, err := args.addressOr("delegatee", thor.Address{})
		if err != nil {
			return nil, err
		}
		return nil, p.Delegate(caller, delegatee)
	},
	"delegate-by-type": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		delegatee, err := args.addressOr("delegatee", thor.Address{})
		if err != nil {
			return nil, err
		}
		typ, err := power.ParseType(args["type"])
		if err != nil {
			return nil, badArg("type", "%v", err)
		}
		return nil, p.DelegateByType(caller, delegatee, typ)
	},
	"set-epoch-parameters": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		interval, err := args.uint("interval")
		if err != nil {
			return nil, err
		}
		offset, err := args.uint("offset")
		if err != nil {
			return nil, err
		}
		return nil, p.SetEpochParameters(caller, interval, offset)
	},
	"set-blackout-window": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		window, err := args.uint("window")
		if err != nil {
			return nil, err
		}
		return nil, p.SetBlackoutWindow(caller, window)
	},
	"set-rewards-per-second": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		rate, err := args.amount("rate")
		if err != nil {
			return nil, err
		}
		return nil, p.SetRewardsPerSecond(caller, rate)
	},
	"set-distribution-schedule": func(p *staking.Pool, _ *Pools, caller thor.Address, args Args) (*big.Int, error) {
		start, err := args.uint("start")
		if err != nil {
			return nil, err
		}
		var end uint64
		if _, ok := args["end"]; ok {
			if end, err = args.uint("end"); err != nil {
				return nil, err
			}
		}
		return nil, p.SetDistributionSchedule(caller, start, end)
	},
	"grant-role": func(_ *staking.Pool, pools *Pools, caller thor.Address, args Args) (*big.Int, error) {
		perm, account, err := roleArgs(args)
		if err != nil {
			return nil, err
		}
		return nil, pools.Roles.Grant(caller, perm, account)
	},
	"revoke-role": func(_ *staking.Pool, pools *Pools, caller thor.Address, args Args) (*big.Int, error) {
		perm, account, err := roleArgs(args)
		if err != nil {
			return nil, err
		}
		return nil, pools.Roles.Revoke(caller, perm, account)
	},
}

func roleArgs(args Args) (roles.Permission, thor.Address, error) {
	name, err := args.str("permission")
	if err != nil {
		return 0, thor.Address{}, err
	}
	perm, err := roles.ParsePermission(name)
	if err != nil {
		return 0, thor.Address{}, badArg("permission", "%v", err)
	}
	account, err := args.address("account")
	if err != nil {
		return 0, thor.Address{}, err
	}
	return perm, account, nil
}

// Ops returns the supported operation names.
func Ops() []string {
	ops := make([]string, 0, len(handlers))
	for op := range handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Apply runs the call against its pool. The returned amount is nil for calls
// that don't produce one.
func (c *Call) Apply(pools *Pools) (*big.Int, error) {
	h, ok := handlers[c.Op]
	if !ok {
		return nil, errors.Wrapf(ErrBadCall, "unknown op %q", c.Op)
	}
	// role calls act on the shared registry
	pool, ok := pools.Get(c.Pool)
	if !ok && !strings.HasSuffix(c.Op, "-role") {
		return nil, errors.Wrapf(ErrBadCall, "unknown pool %q", c.Pool)
	}
	return h(pool, pools, c.Caller, c.Args)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/epoch"
	"github.com/vechain/stakingpool/builtin/token"
	"github.com/vechain/stakingpool/lvldb"
	"github.com/vechain/stakingpool/state"
	"github.com/vechain/stakingpool/thor"
	"github.com/vechain/stakingpool/xenv"
)

var (
	poolAddr  = thor.BytesToAddress([]byte("pool"))
	tokenAddr = thor.BytesToAddress([]byte("token"))
	rolesAddr = thor.BytesToAddress([]byte("roles"))
	vault     = thor.BytesToAddress([]byte("vault"))
	admin     = thor.BytesToAddress([]byte("admin"))

	alice     = thor.BytesToAddress([]byte("alice"))
	bob       = thor.BytesToAddress([]byte("bob"))
	borrowerA = thor.BytesToAddress([]byte("borrower-a"))
	borrowerB = thor.BytesToAddress([]byte("borrower-b"))

	testParams = epoch.Params{Interval: 100, Offset: 1000, BlackoutWindow: 10}
)

func M(a ...any) []any {
	return a
}

type testEnv struct {
	pool  *Pool
	token *token.Token
	roles *roles.Registry
	clock *xenv.ManualClock
	state *state.State
}

// newTestEnv creates a pool before epoch zero, with funded accounts and every permission granted to admin.
func newTestEnv(t *testing.T, kind Kind) *testEnv {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 0)
	require.NoError(t, err)
	st := stater.NewState()

	tok := token.New(solidity.NewContext(tokenAddr, st))
	reg := roles.New(solidity.NewContext(rolesAddr, st))
	for _, p := range []roles.Permission{
		roles.RoleAdmin, roles.EpochParametersAdmin, roles.RewardsAdmin,
		roles.AllocationAdmin, roles.DebtOperator, roles.Slasher,
	} {
		require.NoError(t, reg.Init(p, admin))
	}
	for _, acc := range []thor.Address{alice, bob, borrowerA, borrowerB, vault} {
		require.NoError(t, tok.Mint(acc, big.NewInt(10_000_000)))
	}

	clock := xenv.NewManualClock(1, 900)
	pool := New(poolAddr, kind, st, clock, tok, reg, vault)
	require.NoError(t, pool.Initialize(testParams))
	pool.TakeEvents()

	return &testEnv{pool: pool, token: tok, roles: reg, clock: clock, state: st}
}

// at moves the clock to time, one block later.
func (e *testEnv) at(time uint64) *testEnv {
	e.clock.Set(e.clock.BlockNumber()+1, time)
	return e
}

func (e *testEnv) balanceOf(t *testing.T, addr thor.Address) *big.Int {
	bal, err := e.token.BalanceOf(addr)
	require.NoError(t, err)
	return bal
}

func assertBig(t *testing.T, expected int64, actual *big.Int, msgAndArgs ...any) {
	t.Helper()
	require.NotNil(t, actual)
	assert.Equal(t, big.NewInt(expected).String(), actual.String(), msgAndArgs...)
}

type TestFunc func(t *testing.T)

type TestSequence struct {
	env *testEnv

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(env *testEnv) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), env: env}
}

func (st *TestSequence) AddFunc(f TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) At(time uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		st.env.at(time)
		t.Logf("clock at block %d time %d", st.env.clock.BlockNumber(), time)
	})
}

func (st *TestSequence) Stake(addr thor.Address, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.pool.Stake(addr, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to stake %d for %s: %v", amount, addr, err)
		}
		t.Logf("staked %d for %s", amount, addr)
	})
}

func (st *TestSequence) RequestWithdrawal(addr thor.Address, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.pool.RequestWithdrawal(addr, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to request withdrawal of %d for %s: %v", amount, addr, err)
		}
		t.Logf("requested withdrawal of %d for %s", amount, addr)
	})
}

func (st *TestSequence) Withdraw(addr thor.Address, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		paid, err := st.env.pool.WithdrawStake(addr, addr, big.NewInt(amount))
		if err != nil {
			t.Fatalf("failed to withdraw %d for %s: %v", amount, addr, err)
		}
		t.Logf("withdrew %s for %s", paid, addr)
	})
}

func (st *TestSequence) Allocate(borrowers []thor.Address, bps []uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.pool.SetBorrowerAllocations(admin, borrowers, bps); err != nil {
			t.Fatalf("failed to set allocations: %v", err)
		}
		t.Logf("allocations set %v", bps)
	})
}

func (st *TestSequence) Borrow(addr thor.Address, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.pool.Borrow(addr, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to borrow %d for %s: %v", amount, addr, err)
		}
		t.Logf("borrowed %d for %s", amount, addr)
	})
}

func (st *TestSequence) ExpectError(fn func(p *Pool) error, target error) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		assert.ErrorIs(t, fn(st.env.pool), target)
	})
}

func (st *TestSequence) Run(t *testing.T) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, f := range st.funcs {
		f(t)
	}

	t.Logf("All test functions executed successfully")
}

type StakerAssertions struct {
	env  *testEnv
	addr thor.Address

	activeCurrent   *int64
	activeNext      *int64
	inactiveCurrent *int64
	inactiveNext    *int64
	debt            *int64
}

func AssertStaker(env *testEnv, addr thor.Address) *StakerAssertions {
	return &StakerAssertions{env: env, addr: addr}
}

func (sa *StakerAssertions) Active(current, next int64) *StakerAssertions {
	sa.activeCurrent, sa.activeNext = &current, &next
	return sa
}

func (sa *StakerAssertions) Inactive(current, next int64) *StakerAssertions {
	sa.inactiveCurrent, sa.inactiveNext = &current, &next
	return sa
}

func (sa *StakerAssertions) Debt(expected int64) *StakerAssertions {
	sa.debt = &expected
	return sa
}

func (sa *StakerAssertions) Assert(t *testing.T) {
	t.Helper()
	staker, err := sa.env.pool.Staker(sa.addr)
	require.NoError(t, err)

	if sa.activeCurrent != nil {
		assertBig(t, *sa.activeCurrent, staker.Active.Current, "active current of %s", sa.addr)
		assertBig(t, *sa.activeNext, staker.Active.Next, "active next of %s", sa.addr)
	}
	if sa.inactiveCurrent != nil {
		assertBig(t, *sa.inactiveCurrent, staker.Inactive.Current, "inactive current of %s", sa.addr)
		assertBig(t, *sa.inactiveNext, staker.Inactive.Next, "inactive next of %s", sa.addr)
	}
	if sa.debt != nil {
		assertBig(t, *sa.debt, staker.Debt, "debt of %s", sa.addr)
	}
}

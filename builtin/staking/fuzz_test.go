// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common/math"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/builtin/staking/power"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

const (
	opStake = iota
	opRequest
	opWithdrawMax
	opTransfer
	opBorrow
	opRepay
	opMarkDebt
	opRepayDebt
	opWithdrawDebt
	opWithdrawMaxDebt
	opClaim
	opSlash
	opAdvance
	opMax // boundary
)

type randStep struct {
	Op     uint8
	Actor  uint8
	Other  uint8
	Amount uint32
	Dt     uint8
}

var randStakers = []thor.Address{alice, bob}

func (s randStep) staker() thor.Address { return randStakers[int(s.Actor)%len(randStakers)] }
func (s randStep) other() thor.Address  { return randStakers[int(s.Other)%len(randStakers)] }
func (s randStep) borrower() thor.Address {
	if s.Actor%2 == 0 {
		return borrowerA
	}
	return borrowerB
}

func (s randStep) String() string {
	return fmt.Sprintf("op=%d actor=%d other=%d amount=%d dt=%d", s.Op%opMax, s.Actor, s.Other, s.Amount, s.Dt)
}

func applyRandStep(env *testEnv, s randStep) error {
	pool := env.pool
	amount := big.NewInt(int64(s.Amount%100_000) + 1)
	switch s.Op % opMax {
	case opStake:
		return pool.Stake(s.staker(), amount)
	case opRequest:
		return pool.RequestWithdrawal(s.staker(), amount)
	case opWithdrawMax:
		_, err := pool.WithdrawMaxStake(s.staker(), s.staker())
		return err
	case opTransfer:
		return pool.Transfer(s.staker(), s.other(), amount)
	case opBorrow:
		return pool.Borrow(s.borrower(), amount)
	case opRepay:
		return pool.RepayBorrow(s.borrower(), s.borrower(), amount)
	case opMarkDebt:
		var named []thor.Address
		if s.Other%2 == 0 {
			named = append(named, s.borrower())
		}
		_, err := pool.MarkDebt(named)
		return err
	case opRepayDebt:
		return pool.RepayDebt(s.borrower(), s.borrower(), amount)
	case opWithdrawDebt:
		return pool.WithdrawDebt(s.staker(), s.staker(), amount)
	case opWithdrawMaxDebt:
		_, err := pool.WithdrawMaxDebt(s.staker(), s.staker())
		return err
	case opClaim:
		if s.Other%2 == 0 {
			amount = math.MaxBig256
		}
		_, err := pool.ClaimRewards(s.staker(), s.staker(), amount)
		return err
	case opSlash:
		_, err := pool.Slash(admin, amount, admin)
		return err
	case opAdvance:
		env.at(env.clock.BlockTime() + uint64(s.Dt))
	}
	return nil
}

// checkConservation verifies that per staker balances and power add up to the totals and that
// the pool holds what it owes.
// For a liquidity pool every unit of stake is held or lent out, except the gap between the
// staker loss and the borrowed balance converted by each shortfall. Repaid debt sits in the
// pool until stakers withdraw it.
// A safety module holds at least the underlying value of all stake.
func checkConservation(env *testEnv) error {
	pool := env.pool
	totals, err := pool.Totals()
	if err != nil {
		return err
	}
	_, staked := totals.Sum()

	sumStakers := new(big.Int)
	sumDebt := new(big.Int)
	sumPower := new(big.Int)
	for _, addr := range randStakers {
		staker, err := pool.Staker(addr)
		if err != nil {
			return err
		}
		sumStakers.Add(sumStakers, staker.StakedBalance())
		sumDebt.Add(sumDebt, staker.Debt)
		p, err := pool.PowerCheckpoints(addr, power.Voting)
		if err != nil {
			return err
		}
		if len(p) > 0 {
			sumPower.Add(sumPower, p[len(p)-1].Power)
		}
	}
	if sumStakers.Cmp(staked) != 0 {
		return fmt.Errorf("stakers %s != staked %s", sumStakers, staked)
	}
	if sumPower.Cmp(staked) != 0 {
		return fmt.Errorf("power %s != staked %s", sumPower, staked)
	}

	held, err := env.token.BalanceOf(poolAddr)
	if err != nil {
		return err
	}

	if pool.Kind() == KindSafetyModule {
		underlying, err := pool.toUnderlying(staked)
		if err != nil {
			return err
		}
		if held.Cmp(underlying) < 0 {
			return fmt.Errorf("held %s < underlying %s", held, underlying)
		}
		return nil
	}

	borrowed, err := pool.TotalBorrowed()
	if err != nil {
		return err
	}
	borrowerDebt, err := pool.TotalBorrowerDebt()
	if err != nil {
		return err
	}
	netDebt, err := pool.NetDebtAvailable()
	if err != nil {
		return err
	}
	shortfalls, err := pool.Shortfalls()
	if err != nil {
		return err
	}
	marked := new(big.Int)
	lost := new(big.Int)
	for _, sf := range shortfalls {
		marked.Add(marked, sf.Debt)
		lost.Add(lost, sf.Loss)
	}

	// held - netDebt + borrowed == staked + lost - marked
	left := new(big.Int).Sub(held, netDebt)
	left.Add(left, borrowed)
	right := new(big.Int).Add(staked, lost)
	right.Sub(right, marked)
	if left.Cmp(right) != 0 {
		return fmt.Errorf("held %s - repaid %s + borrowed %s != staked %s + lost %s - marked %s",
			held, netDebt, borrowed, staked, lost, marked)
	}

	// staker claims shrink only by what was withdrawn out of repaid debt
	withdrawn := new(big.Int).Sub(marked, borrowerDebt)
	withdrawn.Sub(withdrawn, netDebt)
	if claims := new(big.Int).Sub(lost, withdrawn); claims.Cmp(sumDebt) != 0 {
		return fmt.Errorf("staker debt %s != lost %s - withdrawn %s", sumDebt, lost, withdrawn)
	}
	return nil
}

func runRandomSteps(t *testing.T, env *testEnv, seed int64) {
	var steps []randStep
	fuzz.NewWithSeed(seed).NilChance(0).NumElements(20, 80).Fuzz(&steps)

	for i, step := range steps {
		if err := applyRandStep(env, step); err != nil && !reverts.IsRevertErr(err) {
			t.Fatalf("seed %d step %d: %v\n%s", seed, i, err, spew.Sdump(steps[:i+1]))
		}
		if err := checkConservation(env); err != nil {
			t.Fatalf("seed %d step %d: %v\n%s", seed, i, err, spew.Sdump(steps[:i+1]))
		}
	}
}

func TestRandomConservation(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		env := newTestEnv(t, KindLiquidity)
		pool := env.pool
		// allocations apply at once before epoch zero
		require.NoError(t, pool.SetBorrowerAllocations(admin, []thor.Address{borrowerA, borrowerB}, []uint64{3000, 5000}))
		env.at(1000)
		require.NoError(t, pool.SetRewardsPerSecond(admin, big.NewInt(1)))

		// open with a shortfall so the random steps start from socialized debt
		require.NoError(t, pool.Stake(alice, big.NewInt(100_000)))
		require.NoError(t, pool.Borrow(borrowerA, big.NewInt(30_000)))
		require.NoError(t, pool.RequestWithdrawal(alice, big.NewInt(90_000)))
		env.at(1150)
		marked, err := pool.MarkDebt(nil)
		require.NoError(t, err)
		assertBig(t, 27_000, marked)
		require.NoError(t, checkConservation(env))

		runRandomSteps(t, env, seed)
	}
}

func TestRandomConservationSafetyModule(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		env := newTestEnv(t, KindSafetyModule)
		env.at(1000)
		require.NoError(t, env.pool.SetRewardsPerSecond(admin, big.NewInt(1)))

		runRandomSteps(t, env, seed)
	}
}

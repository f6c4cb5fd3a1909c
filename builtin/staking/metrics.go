// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/vechain/stakingpool/metrics"
)

var (
	metricCalls        = metrics.LazyLoadCounterVec("pool_calls_count", []string{"op", "status"})
	metricDebtMarked   = metrics.LazyLoadCounter("pool_debt_marked_count")
	metricSlashCount   = metrics.LazyLoadCounter("pool_slash_count")
	metricStakersCount = metrics.LazyLoadGaugeVec("pool_stakers_count", []string{"pool"})
)

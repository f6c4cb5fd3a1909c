// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"github.com/vechain/stakingpool/metrics"
)

var (
	metricBestBlock        = metrics.LazyLoadGauge("node_best_block")
	metricStateCache       = metrics.LazyLoadGaugeVec("node_state_cache", []string{"type"})
	metricShortfallPending = metrics.LazyLoadGaugeVec("node_shortfall_pending", []string{"pool"})
	metricBlockEvents      = metrics.LazyLoadCounter("node_block_events_count")
	metricExecDuration     = metrics.LazyLoadHistogramVec(
		"node_execute_duration_ms", []string{"status"}, metrics.BucketHTTPReqs,
	)
)

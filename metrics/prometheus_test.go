// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T) map[string][]float64 {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	values := make(map[string][]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] = append(values[mf.GetName()], m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				values[mf.GetName()] = append(values[mf.GetName()], m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				values[mf.GetName()] = append(values[mf.GetName()], m.GetHistogram().GetSampleSum())
			}
		}
	}
	return values
}

func sum(values []float64) (total float64) {
	for _, v := range values {
		total += v
	}
	return
}

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()

	lazy := LazyLoadCounter("lazy_count")
	Counter("count").Add(1)
	Counter("count").Add(2)
	lazy().Add(5)

	vec := CounterVec("count_vec", []string{"zeroOrOne"})
	gauge := Gauge("gauge")
	gaugeVec := GaugeVec("gauge_vec", []string{"zeroOrOne"})
	hist := HistogramVec("hist_vec", []string{"zeroOrOne"}, BucketHTTPReqs)

	total := 0
	for i := range 10 {
		labels := map[string]string{"zeroOrOne": strconv.Itoa(i % 2)}
		vec.AddWithLabel(int64(i), labels)
		gaugeVec.AddWithLabel(int64(i), labels)
		hist.ObserveWithLabels(int64(i), labels)
		total += i
	}
	gauge.Set(7)
	gauge.Add(-2)
	gaugeVec.SetWithLabel(100, map[string]string{"zeroOrOne": "0"})

	values := gather(t)
	assert.Equal(t, []float64{3}, values["stakingpool_count"])
	assert.Equal(t, []float64{5}, values["stakingpool_lazy_count"])
	assert.Equal(t, float64(total), sum(values["stakingpool_count_vec"]))
	assert.Equal(t, float64(total), sum(values["stakingpool_hist_vec"]))
	assert.Equal(t, []float64{5}, values["stakingpool_gauge"])
	// odd labels add up to 1+3+5+7+9
	assert.Equal(t, float64(100+25), sum(values["stakingpool_gauge_vec"]))

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(server.Close)
	resp, err := server.Client().Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "stakingpool_count 3")
}

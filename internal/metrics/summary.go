package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON rendering of the live metrics.
type Summary struct {
	API     apiSummary     `json:"api"`
	Errors  map[string]int `json:"errors,omitempty"`
	Session sessionInfo    `json:"session"`
	Store   storeInfo      `json:"store"`
	Uptime  float64        `json:"uptimeSeconds"`
}

type apiSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type sessionInfo struct {
	Starts         float64 `json:"starts"`
	Ends           float64 `json:"ends"`
	DecodeFailures float64 `json:"decodeFailures"`
}

type storeInfo struct {
	OpenConns float64 `json:"openConns"`
	InUse     float64 `json:"inUse"`
	Idle      float64 `json:"idle"`
}

// Summary gathers the registry into a Summary.
func (m *Metrics) Summary() (Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Summary{}, fmt.Errorf("gathering metrics: %w", err)
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	return Summary{
		API: apiSummary{
			TotalRequests: sumCounter(fam["taskflow_api_requests_total"]),
			ErrorRate:     computeErrorRate(fam["taskflow_api_requests_total"]),
			P50Latency:    histogramPercentile(fam["taskflow_api_request_duration_seconds"], 0.50),
			P95Latency:    histogramPercentile(fam["taskflow_api_request_duration_seconds"], 0.95),
			P99Latency:    histogramPercentile(fam["taskflow_api_request_duration_seconds"], 0.99),
		},
		Errors: countByLabel(fam["taskflow_api_request_errors_total"], "error_type"),
		Session: sessionInfo{
			Starts:         counterWithLabel(fam["taskflow_session_events_total"], "event", "start"),
			Ends:           counterWithLabel(fam["taskflow_session_events_total"], "event", "end"),
			DecodeFailures: counterWithLabel(fam["taskflow_session_events_total"], "event", "decode_failure"),
		},
		Store: storeInfo{
			OpenConns: gaugeValue(fam["taskflow_store_open_conns"]),
			InUse:     gaugeValue(fam["taskflow_store_in_use_conns"]),
			Idle:      gaugeValue(fam["taskflow_store_idle_conns"]),
		},
		Uptime: float64(time.Now().Unix()) - gaugeValue(fam["taskflow_start_time_seconds"]),
	}, nil
}

// WriteJSON writes the summary as indented JSON.
func (m *Metrics) WriteJSON(w io.Writer) error {
	s, err := m.Summary()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// --- Prometheus metric helpers ---

func sumCounter(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() != nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	if ms[0].GetGauge() != nil {
		return ms[0].GetGauge().GetValue()
	}
	return 0
}

func counterWithLabel(f *dto.MetricFamily, labelName, labelValue string) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName && lp.GetValue() == labelValue && m.GetCounter() != nil {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

// countByLabel sums a counter family per value of labelName.
func countByLabel(f *dto.MetricFamily, labelName string) map[string]int {
	if f == nil {
		return nil
	}
	out := map[string]int{}
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName {
				out[lp.GetValue()] += int(m.GetCounter().GetValue())
			}
		}
	}
	return out
}

func computeErrorRate(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total, errors float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		v := m.GetCounter().GetValue()
		total += v
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" {
				code := lp.GetValue()
				if len(code) > 0 && code[0] >= '4' {
					errors += v
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return errors / total
}

// histogramPercentile computes a percentile from aggregated histogram buckets
// using linear interpolation.
func histogramPercentile(f *dto.MetricFamily, q float64) float64 {
	if f == nil {
		return 0
	}

	type bucket struct {
		upperBound      float64
		cumulativeCount uint64
	}
	var totalCount uint64
	bucketMap := make(map[float64]uint64)

	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		totalCount += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			bucketMap[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	if totalCount == 0 {
		return 0
	}

	buckets := make([]bucket, 0, len(bucketMap))
	for ub, count := range bucketMap {
		buckets = append(buckets, bucket{upperBound: ub, cumulativeCount: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].upperBound < buckets[j].upperBound
	})

	rank := q * float64(totalCount)

	var prevBound float64
	var prevCount uint64
	for _, b := range buckets {
		if math.IsInf(b.upperBound, 1) {
			break
		}
		if float64(b.cumulativeCount) >= rank {
			bucketCount := b.cumulativeCount - prevCount
			if bucketCount == 0 {
				return b.upperBound
			}
			fraction := (rank - float64(prevCount)) / float64(bucketCount)
			return prevBound + fraction*(b.upperBound-prevBound)
		}
		prevBound = b.upperBound
		prevCount = b.cumulativeCount
	}

	for i := len(buckets) - 1; i >= 0; i-- {
		if !math.IsInf(buckets[i].upperBound, 1) {
			return buckets[i].upperBound
		}
	}
	return 0
}

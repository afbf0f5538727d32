package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricSessionIssued counts tokens minted by Issue and Login.
	MetricSessionIssued MetricID = iota
	// MetricSessionRefreshed counts successful refreshes.
	MetricSessionRefreshed
	// MetricSessionRevoked counts successful revocations.
	MetricSessionRevoked
	// MetricResolveSuccess counts tokens resolved to an identity.
	MetricResolveSuccess
	// MetricResolveMalformed counts tokens rejected as malformed.
	MetricResolveMalformed
	// MetricResolveInvalidSignature counts tokens rejected for their signature.
	MetricResolveInvalidSignature
	// MetricResolveExpired counts expired tokens.
	MetricResolveExpired
	// MetricResolveRevoked counts revoked tokens.
	MetricResolveRevoked
	// MetricStoreUnavailable counts revocation store failures.
	MetricStoreUnavailable
	// MetricAnonymousRequest counts requests without a session cookie.
	MetricAnonymousRequest
	// MetricSecretRotated counts secret rotations.
	MetricSecretRotated
	// MetricResolveLatency is the Resolve latency histogram.
	MetricResolveLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBucketBounds are the inclusive upper bounds of the latency buckets.
// The last bucket is unbounded.
var HistogramBucketBounds = [histBucketCount - 1]time.Duration{
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	25 * time.Millisecond,
	100 * time.Millisecond,
}

type paddedCounter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

// latencyHistogram counts observations per bucket and keeps their total.
type latencyHistogram struct {
	buckets [histBucketCount]atomic.Uint64
	sumNS   atomic.Int64
}

func (h *latencyHistogram) observe(d time.Duration) {
	h.buckets[bucketIndex(d)].Add(1)
	h.sumNS.Add(int64(d))
}

// Metrics holds lock-free engine counters. The zero value records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of the counters. Histograms holds
// per-bucket (not cumulative) counts; HistogramSums the total observed time.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded. Safe on a nil receiver.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the resolve latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments counter id. Unknown ids and MetricResolveLatency are ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricResolveLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in histogram id. MetricResolveLatency is the only histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricResolveLatency {
		return
	}
	m.latency.observe(d)
}

// Value returns counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricResolveLatency {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter, and the histogram when latency is enabled.
// A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < MetricResolveLatency; id++ {
		s.Counters[id] = m.counters[id].Load()
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.latency.buckets[i].Load()
		}
		s.Histograms[MetricResolveLatency] = buckets
		s.HistogramSums[MetricResolveLatency] = time.Duration(m.latency.sumNS.Load())
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}

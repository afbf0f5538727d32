package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bookwell/authcore/clock"
)

func TestMetricsCounters(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		m := NewMetrics(MetricsConfig{})
		m.Inc(MetricSessionIssued)
		if got := m.Value(MetricSessionIssued); got != 0 {
			t.Fatalf("Value = %d on disabled metrics", got)
		}
		if snap := m.Snapshot(); len(snap.Counters) != 0 {
			t.Fatalf("disabled snapshot has counters %v", snap.Counters)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		m := NewMetrics(MetricsConfig{Enabled: true})
		for range 3 {
			m.Inc(MetricSessionIssued)
		}
		m.Inc(MetricSessionRevoked)
		if got := m.Value(MetricSessionIssued); got != 3 {
			t.Fatalf("issued = %d, want 3", got)
		}
		if got := m.Snapshot().Counters[MetricSessionRevoked]; got != 1 {
			t.Fatalf("revoked = %d, want 1", got)
		}
	})

	t.Run("unknown ids", func(t *testing.T) {
		m := NewMetrics(MetricsConfig{Enabled: true})
		for _, id := range []MetricID{MetricResolveLatency, metricIDCount, 1000} {
			m.Inc(id)
			if got := m.Value(id); got != 0 {
				t.Fatalf("id %d counted %d", id, got)
			}
		}
		if _, ok := m.Snapshot().Counters[MetricResolveLatency]; ok {
			t.Fatal("latency histogram listed as a counter")
		}
	})
}

func TestMetricsParallelIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	ids := []MetricID{MetricResolveSuccess, MetricResolveExpired, MetricAnonymousRequest}

	const workers, rounds = 24, 3000
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids[w%len(ids)]
			for range rounds {
				m.Inc(id)
			}
		}()
	}
	wg.Wait()

	per := uint64(workers / len(ids) * rounds)
	for _, id := range ids {
		if got := m.Value(id); got != per {
			t.Fatalf("id %d = %d, want %d", id, got, per)
		}
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		50 * time.Microsecond,
		250 * time.Microsecond,
		400 * time.Microsecond,
		time.Millisecond,
		3 * time.Millisecond,
		25 * time.Millisecond,
		60 * time.Millisecond,
		time.Second,
	}

	for _, d := range observations {
		m.Observe(MetricResolveLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricResolveLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}

	var want time.Duration
	for _, d := range observations {
		want += d
	}
	if got := snap.HistogramSums[MetricResolveLatency]; got != want {
		t.Fatalf("expected sum %s, got %s", want, got)
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Observe(MetricSessionIssued, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricSessionIssued]; ok {
		t.Fatal("counter must not become a histogram")
	}
}

func TestMetricsHistogramOffWithoutLatency(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricResolveLatency, time.Millisecond)

	if _, ok := m.Snapshot().Histograms[MetricResolveLatency]; ok {
		t.Fatal("expected no histogram when latency is disabled")
	}
}

func TestEngineMetricsTrackRejections(t *testing.T) {
	clk := clock.NewManual(t0)
	engine, err := New().
		WithConfig(testConfig()).
		WithClock(clk).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	tok, _ := engine.Issue(ctx, "user-42", "member")
	_, _ = engine.Resolve(ctx, tok)
	_, _ = engine.Resolve(ctx, "not-a-token")
	clk.Advance(2 * time.Hour)
	_, _ = engine.Resolve(ctx, tok)

	snap := engine.MetricsSnapshot()
	checks := map[MetricID]uint64{
		MetricSessionIssued:    1,
		MetricResolveSuccess:   1,
		MetricResolveMalformed: 1,
		MetricResolveExpired:   1,
	}
	for id, want := range checks {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("metric %d: expected %d, got %d", id, want, got)
		}
	}

	var observed uint64
	for _, v := range snap.Histograms[MetricResolveLatency] {
		observed += v
	}
	if observed != 3 {
		t.Fatalf("expected 3 latency observations, got %d", observed)
	}
}

func TestEngineMetricsDisabled(t *testing.T) {
	engine, err := New().WithConfig(testConfig()).WithMetricsEnabled(false).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Issue(context.Background(), "user-42", "")
	if n := len(engine.MetricsSnapshot().Counters); n != 0 {
		t.Fatalf("expected empty snapshot, got %d counters", n)
	}
}

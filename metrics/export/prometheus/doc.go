// Package prometheus publishes authcore engine metrics through client_golang.
//
// [Collector] implements prometheus.Collector over Engine.MetricsSnapshot. Counters
// are named authcore_*_total; the single histogram is authcore_resolve_latency_seconds.
// [PrometheusExporter] wraps a Collector in a private registry and exposes an
// http.Handler for a /metrics route.
//
// Nothing is registered in the global Prometheus registry. The package never
// mutates engine state.
package prometheus

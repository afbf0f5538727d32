// Package otel binds authcore engine metrics to an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter. The
// resolve latency histogram becomes a "<name>_bucket" gauge with one data point per
// "le" attribute plus "<name>_count" and "<name>_sum" counters. A single callback
// over Engine.MetricsSnapshot feeds every instrument. Callers own the MeterProvider.
package otel

package internaldefs

import (
	"github.com/bookwell/authcore"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// BucketCount matches the engine histogram resolution.
const BucketCount = 8

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "authcore_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricSessionIssued, Name: "authcore_session_issued_total", Help: "Session tokens issued."},
	{ID: authcore.MetricSessionRefreshed, Name: "authcore_session_refreshed_total", Help: "Successful session refreshes."},
	{ID: authcore.MetricSessionRevoked, Name: "authcore_session_revoked_total", Help: "Successful session revocations."},
	{ID: authcore.MetricResolveSuccess, Name: "authcore_resolve_success_total", Help: "Tokens resolved to an identity."},
	{ID: authcore.MetricResolveMalformed, Name: "authcore_resolve_malformed_total", Help: "Tokens rejected as malformed."},
	{ID: authcore.MetricResolveInvalidSignature, Name: "authcore_resolve_invalid_signature_total", Help: "Tokens rejected for their signature."},
	{ID: authcore.MetricResolveExpired, Name: "authcore_resolve_expired_total", Help: "Tokens rejected as expired."},
	{ID: authcore.MetricResolveRevoked, Name: "authcore_resolve_revoked_total", Help: "Tokens rejected as revoked."},
	{ID: authcore.MetricStoreUnavailable, Name: "authcore_store_unavailable_total", Help: "Revocation store failures."},
	{ID: authcore.MetricAnonymousRequest, Name: "authcore_anonymous_request_total", Help: "Requests without a session cookie."},
	{ID: authcore.MetricSecretRotated, Name: "authcore_secret_rotated_total", Help: "Signing secret rotations."},
}

// HistogramDefs lists the exported histograms.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricResolveLatency, Name: "authcore_resolve_latency_seconds", Help: "Resolve latency histogram."},
}

// HistogramBounds are the Prometheus "le" labels, in seconds.
var HistogramBounds = [BucketCount]string{
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.005",
	"0.025",
	"0.1",
	"+Inf",
}

// UpperBounds returns the finite bucket bounds in seconds, derived from
// authcore.HistogramBucketBounds.
func UpperBounds() []float64 {
	out := make([]float64, 0, len(authcore.HistogramBucketBounds))
	for _, d := range authcore.HistogramBucketBounds {
		out = append(out, d.Seconds())
	}
	return out
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

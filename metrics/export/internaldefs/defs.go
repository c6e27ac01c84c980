package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one goSession counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one goSession histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignInSuccess, Name: "gosession_sign_in_success_total", Help: "Successful sign-ins, including those following a sign-up."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_sign_in_failure_total", Help: "Sign-ins rejected by the identity service or not persisted."},
	{ID: goSession.MetricValidationFailure, Name: "gosession_validation_failure_total", Help: "Sign-ins and sign-ups rejected locally before any request."},
	{ID: goSession.MetricSignUpSuccess, Name: "gosession_sign_up_success_total", Help: "Successful registrations followed by a sign-in."},
	{ID: goSession.MetricSignUpFailure, Name: "gosession_sign_up_failure_total", Help: "Registrations rejected by the identity service."},
	{ID: goSession.MetricSignOut, Name: "gosession_sign_out_total", Help: "Explicit sign-outs."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Refresh exchanges that produced a new access token."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refresh exchanges that failed."},
	{ID: goSession.MetricRefreshJoined, Name: "gosession_refresh_joined_total", Help: "Refresh requests served by an exchange already in flight."},
	{ID: goSession.MetricRefreshReused, Name: "gosession_refresh_reused_total", Help: "Refresh requests answered with a token refreshed moments earlier."},
	{ID: goSession.MetricRequestRecovered, Name: "gosession_request_recovered_total", Help: "Requests replayed after an invalid-token response."},
	{ID: goSession.MetricRecoveryFailed, Name: "gosession_recovery_failed_total", Help: "Invalid-token responses that could not be recovered."},
	{ID: goSession.MetricPreemptiveRefresh, Name: "gosession_preemptive_refresh_total", Help: "Refreshes made before sending because the token was about to expire."},
	{ID: goSession.MetricSessionRestored, Name: "gosession_session_restored_total", Help: "Sessions silently restored by a refresh."},
	{ID: goSession.MetricSessionWiped, Name: "gosession_session_wiped_total", Help: "Sessions wiped after a refresh failure."},
	{ID: goSession.MetricSessionExpired, Name: "gosession_session_expired_total", Help: "Sessions wiped on resume after the background timeout."},
	{ID: goSession.MetricSessionResumed, Name: "gosession_session_resumed_total", Help: "Resumes that kept the session."},
	{ID: goSession.MetricBiometricUnlocked, Name: "gosession_biometric_unlocked_total", Help: "Confirmed biometric prompts."},
	{ID: goSession.MetricBiometricCancelled, Name: "gosession_biometric_cancelled_total", Help: "Declined or failed biometric prompts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRequestLatency, Name: "gosession_request_latency_seconds", Help: "Latency of calls through the session HTTP client, including recovery."},
}

// TelemetryDroppedName is the counter of undelivered failure reports.
const TelemetryDroppedName = "gosession_telemetry_dropped_total"

// TelemetryDroppedHelp describes [TelemetryDroppedName].
const TelemetryDroppedHelp = "Failure reports dropped due to dispatcher backpressure or sink panics."

// AuthenticatedName is the gauge that is 1 while an access token is attached.
const AuthenticatedName = "gosession_authenticated"

// AuthenticatedHelp describes [AuthenticatedName].
const AuthenticatedHelp = "Whether outgoing calls currently carry an access token (1) or not (0)."

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// snapshot bucket is +Inf.
var HistogramUpperBounds = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HistogramBounds are the bucket bounds as rendered in le labels.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix are the bucket bounds as metric name suffixes.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed 8-bucket array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

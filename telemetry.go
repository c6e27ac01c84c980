package goSession

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goSession/internal/telemetry"
	"github.com/MrEthical07/goSession/transport"
)

// TelemetryEvent is a reported failure. Reporting is best-effort and never
// blocks or fails the call that produced it.
type TelemetryEvent = telemetry.Event

// TelemetrySink receives reported failures on a background goroutine.
type TelemetrySink = telemetry.Sink

// Telemetry event kinds.
const (
	TelemetryRequestFailed  = telemetry.KindRequestFailed
	TelemetryTransportError = telemetry.KindTransportError
	TelemetryRefreshFailed  = telemetry.KindRefreshFailed
	TelemetryLoginFailed    = telemetry.KindLoginFailed
	TelemetrySignupFailed   = telemetry.KindSignupFailed
	TelemetrySessionExpired = telemetry.KindSessionExpired
	TelemetrySessionWiped   = telemetry.KindSessionWiped
)

type (
	NoOpTelemetrySink    = telemetry.NoOpSink
	ChannelTelemetrySink = telemetry.ChannelSink
	JSONTelemetrySink    = telemetry.JSONWriterSink
	LogTelemetrySink     = telemetry.LogSink
)

// NewChannelTelemetrySink returns a sink that buffers events on a channel and
// drops when it is full.
func NewChannelTelemetrySink(buffer int) *ChannelTelemetrySink {
	return telemetry.NewChannelSink(buffer)
}

// NewJSONTelemetrySink writes each event as one JSON line to w.
var NewJSONTelemetrySink = telemetry.NewJSONWriterSink

// withFlowCorrelation gives the identity calls of one flow and the failure
// they report a shared correlation id, unless the caller already set one.
func withFlowCorrelation(ctx context.Context) context.Context {
	if transport.CorrelationIDFromContext(ctx) != "" {
		return ctx
	}
	return transport.ContextWithCorrelationID(ctx, transport.NewCorrelationID())
}

func (c *Client) emit(ctx context.Context, kind string, mutate func(*TelemetryEvent)) {
	if c.telemetry == nil {
		return
	}
	event := TelemetryEvent{
		Timestamp: c.now().UTC(),
		Kind:      kind,
	}
	if mutate != nil {
		mutate(&event)
	}
	c.telemetry.Emit(ctx, event)
}

func (c *Client) reportRequestFailure(ctx context.Context, f transport.Failure) {
	kind := telemetry.KindRequestFailed
	if f.Status == 0 {
		kind = telemetry.KindTransportError
	}
	c.emit(ctx, kind, func(e *TelemetryEvent) {
		e.Status = f.Status
		e.CorrelationID = f.CorrelationID
		e.Method = f.Method
		e.Path = f.Path
		e.Message = f.Message
		if f.Retried {
			e.Metadata = map[string]string{"retried": "true"}
		}
	})
}

// onTransportRefreshFailure applies HTTP.RefreshFailurePolicy after a failed
// refresh on the retry path.
func (c *Client) onTransportRefreshFailure(ctx context.Context, refreshToken string) {
	c.emit(ctx, telemetry.KindRefreshFailed, func(e *TelemetryEvent) {
		e.Status = http.StatusUnauthorized
		e.Metadata = map[string]string{"policy": c.config.HTTP.RefreshFailurePolicy.String()}
	})
	if c.config.HTTP.RefreshFailurePolicy != PolicyWipeSession {
		return
	}
	wiped, err := c.state.WipeIfCurrent(ctx, refreshToken)
	if err != nil {
		c.log.Warn("session wipe after refresh failure failed", "error", err)
		return
	}
	if wiped {
		c.sessionWiped(ctx, "refresh_failed")
	}
}

func (c *Client) sessionWiped(ctx context.Context, reason string) {
	c.metrics.Inc(MetricSessionWiped)
	c.emit(ctx, telemetry.KindSessionWiped, func(e *TelemetryEvent) {
		e.Message = reason
	})
}

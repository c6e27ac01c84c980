package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Event kinds.
const (
	KindRequestFailed  = "request_failed"
	KindTransportError = "transport_error"
	KindRefreshFailed  = "refresh_failed"
	KindLoginFailed    = "login_failed"
	KindSignupFailed   = "signup_failed"
	KindSessionExpired = "session_expired"
	KindSessionWiped   = "session_wiped"
)

// Event is a reported failure.
type Event struct {
	Seq           uint64            `json:"seq"`
	Timestamp     time.Time         `json:"timestamp"`
	Kind          string            `json:"kind"`
	Status        int               `json:"status,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Method        string            `json:"method,omitempty"`
	Path          string            `json:"path,omitempty"`
	Message       string            `json:"message,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Sink receives reported events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(append(data, '\n'))
}

// LogSink writes events as warn-level log records.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, event Event) {
	if s.Logger == nil {
		return
	}
	s.Logger.LogAttrs(ctx, slog.LevelWarn, event.Kind,
		slog.Uint64("seq", event.Seq),
		slog.Int("status", event.Status),
		slog.String("correlation_id", event.CorrelationID),
		slog.String("method", event.Method),
		slog.String("path", event.Path),
		slog.String("message", event.Message),
	)
}

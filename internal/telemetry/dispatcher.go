package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultEnqueueTimeout bounds how long Emit waits for buffer room when
// DropIfFull is off.
const DefaultEnqueueTimeout = 50 * time.Millisecond

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int

	// DropIfFull drops an event at once when the buffer is full. Otherwise
	// Emit waits up to EnqueueTimeout before dropping it.
	DropIfFull     bool
	EnqueueTimeout time.Duration

	// CorrelationID extracts the id of the call that produced an event. It
	// fills events reported without one. Optional.
	CorrelationID func(ctx context.Context) string
}

// Dispatcher forwards failure reports to a sink on its own goroutine. Emit
// never fails and waits at most EnqueueTimeout. A nil *Dispatcher is valid and
// drops everything.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event

	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = DefaultEnqueueTimeout
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver isolates the worker from a panicking sink.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.dropped.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit stamps event with its sequence number and correlation id and enqueues
// it. A gap in Seq on the sink side means events were dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	event.Seq = d.seq.Add(1)
	if event.CorrelationID == "" && d.cfg.CorrelationID != nil {
		event.CorrelationID = d.cfg.CorrelationID(ctx)
	}

	select {
	case d.ch <- event:
		return
	case <-d.done:
		return
	default:
	}
	if d.cfg.DropIfFull {
		d.dropped.Add(1)
		return
	}

	timer := time.NewTimer(d.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case d.ch <- event:
	case <-d.done:
	case <-timer.C:
		d.dropped.Add(1)
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close drains buffered events and stops the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of events that were not delivered.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

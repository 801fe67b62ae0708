package audit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher buffers events and hands them to a sink from a single worker
// goroutine. The buffer drops on overflow (a full audit pipe must not slow
// decisions) and drains fully on Close.
type Publisher struct {
	sink      Sink
	logger    *slog.Logger
	buffer    int
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger used for drop and sink-failure reports.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBuffer sets the channel capacity.
func WithBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// NewPublisher starts the worker goroutine. Close stops it and closes the
// sink.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		buffer: 256,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ch = make(chan Event, p.buffer)
	go p.run()
	return p
}

// Emit queues an event, filling in ID and timestamp when unset. Nil-safe so
// the engine can run without an audit pipeline. Never blocks and never
// panics: a full buffer or a closed publisher drops the event with a log
// line. The closed guard matters because Emit runs from the engine's
// deferred recovery path, where a panic would escape straight to the
// runtime.
func (p *Publisher) Emit(ev Event) {
	if p == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("audit publisher closed, dropping event", "principal", ev.Principal, "action", ev.Action)
		return
	}
	select {
	case p.ch <- ev:
	default:
		p.logger.Warn("audit buffer full, dropping event", "principal", ev.Principal, "action", ev.Action)
	}
}

// Close drains queued events into the sink and closes it. Safe to call more
// than once.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.ch)
		<-p.done
		if err := p.sink.Close(); err != nil {
			p.logger.Warn("audit sink close", "error", err)
		}
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for ev := range p.ch {
		if err := p.sink.Write(context.Background(), ev); err != nil {
			p.logger.Warn("audit sink write", "error", err)
		}
	}
}

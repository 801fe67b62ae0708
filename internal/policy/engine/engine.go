// Package engine composes the account lookup and the two rate limiters into
// a verdict for one parsed request. It is the only package that knows the
// gate order, and the order is load-bearing: authentication before
// existence, existence before rate limits, rate limits before quota. Each
// earlier gate is cheaper and more likely to short-circuit, and a reject
// for a nonexistent account must never read as a reject for exhausted quota
// (different operator remediation).
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"relaypolicyd/internal/policy/account"
	"relaypolicyd/internal/policy/audit"
	"relaypolicyd/internal/policy/metrics"
	"relaypolicyd/internal/policy/models"
	"relaypolicyd/pkg/platform/sentinel"
)

const (
	reasonAuthRequired   = "550 Authentication required."
	reasonInvalidAccount = "550 Invalid account or inactive."
	reasonPerSecond      = "450 Rate limit (per second) exceeded. Try again."
	reasonPerMinute      = "450 Rate limit (per minute) exceeded. Try again."
	reasonQuotaExhausted = "550 Monthly quota exhausted."
	// reasonUnavailable covers every infrastructure fault. The protocol has
	// no internal-error channel distinct from DEFER, and rejecting mail
	// permanently because a backend is down would be the wrong failure
	// direction.
	reasonUnavailable = "450 Policy service temporarily unavailable. Try again."
)

// DefaultPoolBindAddress is handed out when a principal has no dedicated IP.
const DefaultPoolBindAddress = "dynamic_pool_ip"

// RateGate is the admission check the engine consults per window.
// *ratelimit.Limiter satisfies it.
type RateGate interface {
	Allow(ctx context.Context, principal string, limit int, now time.Time) (bool, error)
}

// Engine evaluates the gate sequence. All dependencies are injected; the
// engine holds no ambient state and is safe for concurrent use.
type Engine struct {
	accounts  account.Store
	perSecond RateGate
	perMinute RateGate
	pool      string
	clock     func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     *audit.Publisher
	tracer    trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(e *Engine) {
		e.audit = p
	}
}

// WithPoolBindAddress overrides the pool sentinel bind address.
func WithPoolBindAddress(addr string) Option {
	return func(e *Engine) {
		if addr != "" {
			e.pool = addr
		}
	}
}

// WithClock injects a clock for window tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func New(accounts account.Store, perSecond, perMinute RateGate, opts ...Option) (*Engine, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if perSecond == nil || perMinute == nil {
		return nil, fmt.Errorf("both rate gates are required")
	}

	e := &Engine{
		accounts:  accounts,
		perSecond: perSecond,
		perMinute: perMinute,
		pool:      DefaultPoolBindAddress,
		clock:     time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:    otel.Tracer("relaypolicyd/policy"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Decide runs the gate sequence for one parsed request and always returns a
// verdict: any panic below is recovered into the generic temporary failure
// so a fault in one decision never leaks to the wire or kills the
// connection handler.
func (e *Engine) Decide(ctx context.Context, req map[string]string) (v models.Verdict) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("decision panic recovered", "panic", r)
			v = models.Defer(reasonUnavailable)
		}
		e.metrics.ObserveDecision(v.Action, time.Since(start))
		e.audit.Emit(audit.Event{
			Principal:     req["sasl_username"],
			Action:        string(v.Action),
			Reason:        v.Reason,
			BindAddress:   v.BindAddress,
			ClientAddress: req["client_address"],
		})
	}()

	ctx, span := e.tracer.Start(ctx, "policy.decide")
	defer func() {
		span.SetAttributes(attribute.String("policy.action", string(v.Action)))
		span.End()
	}()

	return e.evaluate(ctx, req)
}

func (e *Engine) evaluate(ctx context.Context, req map[string]string) models.Verdict {
	// Gate 1: the session must have authenticated. Permanent: an
	// unauthenticated session will not become authenticated on retry.
	username := strings.TrimSpace(req["sasl_username"])
	if username == "" {
		return models.Reject(reasonAuthRequired)
	}

	// Gate 2: principal snapshot. Unknown, inactive, and quota-less all
	// read as not found; an unreachable store defers instead, preserving
	// the message through the outage.
	snap, err := e.accounts.Fetch(ctx, username)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Reject(reasonInvalidAccount)
	}
	if err != nil {
		e.logger.Warn("account store unavailable", "username", username, "error", err)
		return models.Defer(reasonUnavailable)
	}

	// Gates 3 and 4: fixed windows, both must pass. A limiter failure
	// defers; allowing unconditionally would drop the limit exactly when
	// the counter store is degraded.
	now := e.clock()
	allowed, err := e.perSecond.Allow(ctx, username, snap.RateLimitPerSecond, now)
	if err != nil {
		e.logger.Warn("per-second limiter unavailable", "username", username, "error", err)
		return models.Defer(reasonUnavailable)
	}
	if !allowed {
		return models.Defer(reasonPerSecond)
	}

	allowed, err = e.perMinute.Allow(ctx, username, snap.RateLimitPerMinute, now)
	if err != nil {
		e.logger.Warn("per-minute limiter unavailable", "username", username, "error", err)
		return models.Defer(reasonUnavailable)
	}
	if !allowed {
		return models.Defer(reasonPerMinute)
	}

	// Gate 5: monthly quota, evaluated on the snapshot from gate 2 without
	// a re-read or lock. Transient staleness against concurrent post-queue
	// accounting is accepted; exact consumption is that process's job.
	if snap.MonthlySent >= snap.MonthlyLimit {
		return models.Reject(reasonQuotaExhausted)
	}

	bind := snap.DedicatedIP
	if bind == "" {
		bind = e.pool
	}
	return models.Accept(bind)
}

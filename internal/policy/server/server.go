// Package server owns the policy TCP listener and the per-connection
// read-decide-respond loop. Connections are fully independent: one
// goroutine each, no shared mutable state beyond the injected stores.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"relaypolicyd/internal/policy/metrics"
	"relaypolicyd/internal/policy/models"
	"relaypolicyd/internal/policy/wire"
)

// SessionMode controls whether a connection serves one frame or many.
// Postfix reuses one policy connection for a whole smtpd process, so
// persistent is the default; single-shot exists for MTAs that redial per
// decision, and the choice is an explicit, tested parameter rather than an
// accident of the handler loop.
type SessionMode string

const (
	SessionPersistent SessionMode = "persistent"
	SessionSingleShot SessionMode = "single-shot"
)

// ParseSessionMode validates a mode string from configuration.
func ParseSessionMode(s string) (SessionMode, error) {
	switch SessionMode(s) {
	case SessionPersistent, SessionSingleShot:
		return SessionMode(s), nil
	}
	return "", fmt.Errorf("invalid session mode %q (want %q or %q)", s, SessionPersistent, SessionSingleShot)
}

// Decider produces a verdict for one parsed request frame. The engine
// satisfies it; tests substitute scripted deciders.
type Decider interface {
	Decide(ctx context.Context, req map[string]string) models.Verdict
}

// Server accepts policy connections and drives one handler per connection.
type Server struct {
	addr    string
	decider Decider
	mode    SessionMode
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	lis net.Listener
	wg  sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithSessionMode(mode SessionMode) Option {
	return func(s *Server) {
		s.mode = mode
	}
}

func New(addr string, decider Decider, opts ...Option) (*Server, error) {
	if decider == nil {
		return nil, fmt.Errorf("decider is required")
	}
	s := &Server{
		addr:    addr,
		decider: decider,
		mode:    SessionPersistent,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListenAndServe binds the policy port and accepts until ctx is cancelled,
// then waits for in-flight connections to finish. A bind failure due to
// address-in-use is surfaced distinctly so operators can tell a port clash
// from other startup faults.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("policy listener %s: address already in use: %w", s.addr, err)
		}
		return fmt.Errorf("policy listener %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	s.logger.Info("policy server listening", "addr", lis.Addr().String(), "mode", string(s.mode))

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Addr reports the bound address, or nil before ListenAndServe binds. Lets
// tests listen on port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// handleConn runs the per-connection state machine: read a frame, decide,
// respond, then loop or close depending on the session mode. A peer close
// mid-frame abandons the request without a response; increments already
// committed at the counter store stand, and the MTA retries the whole
// transaction.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Shutdown must not wait for the peer: Postfix holds persistent policy
	// connections open indefinitely, so cancellation closes the conn to
	// unblock the pending read.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log := s.logger.With("conn_id", uuid.NewString(), "remote", conn.RemoteAddr().String())
	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)
	for {
		raw, err := wire.ReadFrame(br)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				// peer finished cleanly
			case ctx.Err() != nil:
				log.Debug("connection closed on shutdown")
			case errors.Is(err, wire.ErrIncompleteFrame):
				s.metrics.IncIncompleteFrames()
				log.Debug("connection closed mid-frame")
			default:
				log.Warn("read frame", "error", err)
			}
			return
		}

		verdict := s.decider.Decide(ctx, wire.Parse(raw))

		if _, err := bw.WriteString(wire.FromVerdict(verdict).Serialize()); err != nil {
			log.Warn("write response", "error", err)
			return
		}
		if err := bw.Flush(); err != nil {
			log.Warn("flush response", "error", err)
			return
		}
		if s.mode == SessionSingleShot {
			return
		}
	}
}

package audit

import (
	"context"
	"log/slog"
)

// LogSink writes events to the structured log. It is the default sink for
// deployments without a broker, so the audit trail still lands somewhere
// durable (the log shipper).
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, ev Event) error {
	s.logger.Info("policy verdict",
		"audit_id", ev.ID,
		"principal", ev.Principal,
		"action", ev.Action,
		"reason", ev.Reason,
		"bind_address", ev.BindAddress,
		"client_address", ev.ClientAddress,
	)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}

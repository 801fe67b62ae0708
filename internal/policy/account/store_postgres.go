package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"relaypolicyd/pkg/platform/sentinel"
)

// PostgresStore reads the accounts/quotas join. This store is pure I/O; the
// not-found vs unavailable distinction is the only logic it owns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres wraps a shared connection pool whose lifecycle is owned by
// the process entry point.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Fetch runs the single read join for one decision. The inner join drops
// principals without a quota row and the is_active filter drops disabled
// ones, so both surface as sentinel.ErrNotFound.
func (s *PostgresStore) Fetch(ctx context.Context, username string) (*Snapshot, error) {
	query := `
		SELECT a.username, COALESCE(a.dedicated_ip, ''),
		       q.monthly_limit, q.monthly_sent,
		       q.rate_limit_per_second, q.rate_limit_per_minute
		FROM accounts a
		JOIN quotas q ON q.account_id = a.id
		WHERE a.username = $1 AND a.is_active
	`
	var snap Snapshot
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&snap.Username,
		&snap.DedicatedIP,
		&snap.MonthlyLimit,
		&snap.MonthlySent,
		&snap.RateLimitPerSecond,
		&snap.RateLimitPerMinute,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", username, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch account %q: %w: %w", username, sentinel.ErrUnavailable, err)
	}
	return &snap, nil
}

//go:build integration

package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"relaypolicyd/internal/policy/account"
	"relaypolicyd/pkg/platform/sentinel"
	"relaypolicyd/pkg/testutil/containers"
)

const accountSchema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id           SERIAL PRIMARY KEY,
		username     TEXT NOT NULL UNIQUE,
		dedicated_ip TEXT,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE TABLE IF NOT EXISTS quotas (
		id                    SERIAL PRIMARY KEY,
		account_id            INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		monthly_limit         BIGINT NOT NULL,
		monthly_sent          BIGINT NOT NULL DEFAULT 0,
		rate_limit_per_second INTEGER NOT NULL,
		rate_limit_per_minute INTEGER NOT NULL
	);
`

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *account.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())

	_, err := s.pg.DB.ExecContext(context.Background(), accountSchema)
	s.Require().NoError(err)

	s.store = account.NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "accounts", "quotas"))
}

func (s *PostgresStoreSuite) seed(username, dedicatedIP string, active bool, withQuota bool) {
	ctx := context.Background()

	var id int
	err := s.pg.DB.QueryRowContext(ctx,
		`INSERT INTO accounts (username, dedicated_ip, is_active) VALUES ($1, NULLIF($2, ''), $3) RETURNING id`,
		username, dedicatedIP, active,
	).Scan(&id)
	s.Require().NoError(err)

	if withQuota {
		_, err = s.pg.DB.ExecContext(ctx,
			`INSERT INTO quotas (account_id, monthly_limit, monthly_sent, rate_limit_per_second, rate_limit_per_minute)
			 VALUES ($1, 10000, 42, 5, 100)`,
			id,
		)
		s.Require().NoError(err)
	}
}

func (s *PostgresStoreSuite) TestFetchActiveAccount() {
	s.seed("alice@example.com", "203.0.113.10", true, true)

	snap, err := s.store.Fetch(context.Background(), "alice@example.com")
	s.Require().NoError(err)

	s.Equal("alice@example.com", snap.Username)
	s.Equal("203.0.113.10", snap.DedicatedIP)
	s.Equal(int64(10000), snap.MonthlyLimit)
	s.Equal(int64(42), snap.MonthlySent)
	s.Equal(5, snap.RateLimitPerSecond)
	s.Equal(100, snap.RateLimitPerMinute)
}

func (s *PostgresStoreSuite) TestFetchSharedPoolAccount() {
	s.seed("bob@example.com", "", true, true)

	snap, err := s.store.Fetch(context.Background(), "bob@example.com")
	s.Require().NoError(err)
	s.Empty(snap.DedicatedIP, "NULL dedicated_ip must come back as an empty string")
}

func (s *PostgresStoreSuite) TestInactiveAccountIsNotFound() {
	s.seed("disabled@example.com", "", false, true)

	_, err := s.store.Fetch(context.Background(), "disabled@example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAccountWithoutQuotaRowIsNotFound() {
	s.seed("noquota@example.com", "", true, false)

	_, err := s.store.Fetch(context.Background(), "noquota@example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUnknownAccountIsNotFound() {
	_, err := s.store.Fetch(context.Background(), "ghost@example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

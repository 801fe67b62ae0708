package blacklist

import (
	"context"
	"database/sql"
	"fmt"

	"relaypolicyd/internal/policy/models"
)

// PostgresStore reads the blacklist relation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]models.BlacklistEntry, error) {
	query := `
		SELECT id, entity_value, entity_type, is_active
		FROM blacklist
		ORDER BY entity_value
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer rows.Close()

	var entries []models.BlacklistEntry
	for rows.Next() {
		var e models.BlacklistEntry
		if err := rows.Scan(&e.ID, &e.EntityValue, &e.EntityType, &e.Active); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	return entries, nil
}

package db

import (
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/01_create_users.up.sql
var createUsersUp string

//go:embed migrations/02_create_tasks.up.sql
var createTasksUp string

//go:embed migrations/03_create_analytics_events.up.sql
var createAnalyticsEventsUp string

// Migrate applies the schema. Statements are idempotent so running it on
// every boot is safe.
func Migrate(conn *sqlx.DB) error {
	if _, err := conn.Exec(createUsersUp); err != nil {
		return fmt.Errorf("apply users migration: %w", err)
	}

	if _, err := conn.Exec(createTasksUp); err != nil {
		return fmt.Errorf("apply tasks migration: %w", err)
	}

	if _, err := conn.Exec(createAnalyticsEventsUp); err != nil {
		return fmt.Errorf("apply analytics_events migration: %w", err)
	}

	return nil
}

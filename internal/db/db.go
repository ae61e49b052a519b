package db

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens and pings a Postgres connection using the lib/pq driver.
func Connect(connString string) (*sqlx.DB, error) {
	conn, err := sqlx.Connect("postgres", connString)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

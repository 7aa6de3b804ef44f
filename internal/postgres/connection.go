// Package postgres persists the authoritative copies of users, campaigns
// and leads. The in-memory store is the live working set; rows here are
// written behind it.
package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Open opens a pooled connection and verifies it with a ping.
func Open(connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

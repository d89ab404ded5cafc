// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(ctx, dsn)                            – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, maxOpen, maxIdle) – fine-grained control.
//
// Both helpers Ping the database before returning so bootstrap fails fast
// on a bad DSN.  Callers Close() the returned *sqlx.DB.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// PingTimeout bounds the startup ping.
const PingTimeout = 5 * time.Second

// Open returns a *sqlx.DB with 5 max open, 2 idle, and a 30-minute
// connection lifetime.  The route alias table is small and read rarely,
// so every worker keeps a tiny pool.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, 5, 2)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.
func OpenWithOptions(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	return db, nil
}

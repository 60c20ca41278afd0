package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/facility-reservation/internal/config"
)

// Open connects to MySQL using the database settings in cfg and
// verifies the connection before returning.  parseTime maps DATETIME
// columns onto time.Time and loc=UTC keeps every ledger timestamp in
// UTC, matching what the transactions table stores.
func Open(cfg config.Config) (*sql.DB, error) {
	cred := cfg.DBUser
	if cfg.DBPass != "" {
		cred = cred + ":" + cfg.DBPass
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cred, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// The engine serializes writers itself, so the pool mostly serves
	// report reads; idle connections are recycled well before MySQL's
	// default wait_timeout closes them server-side.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Package database owns the MySQL connection pool. Pool sizing comes from
// configuration so deployments can match their connection budget; the schema
// itself is managed outside the application.
package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/roamio/tour-booking/internal/config"
)

// DSN renders the driver connection string for cfg. DATETIME columns are
// parsed into time.Time in UTC, so timestamps compare consistently with the
// UTC values the handlers write.
func DSN(cfg config.Config) string {
	auth := cfg.DBUser
	if cfg.DBPass != "" {
		auth += ":" + cfg.DBPass
	}
	return auth + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName +
		"?charset=utf8mb4&parseTime=true&loc=UTC"
}

// Open builds the pool for cfg and verifies connectivity before returning,
// so a misconfigured database fails startup instead of the first request.
func Open(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMin) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

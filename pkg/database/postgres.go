package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/ctos-api/pkg/config"
)

// DSN renders the lib/pq connection string for cfg. Statement timeouts are
// enforced server side so slow document listings fail as cancellations.
func DSN(cfg config.DatabaseConfig) string {
	parts := []string{
		fmt.Sprintf("host=%s", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("user=%s", cfg.User),
		fmt.Sprintf("password=%s", cfg.Password),
		fmt.Sprintf("dbname=%s", cfg.Name),
		fmt.Sprintf("sslmode=%s", cfg.SSLMode),
	}
	if cfg.ConnectTimeout > 0 {
		seconds := int(cfg.ConnectTimeout / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", seconds))
	}
	if cfg.StatementTimeout > 0 {
		parts = append(parts, fmt.Sprintf("options='-c statement_timeout=%d'", cfg.StatementTimeout.Milliseconds()))
	}
	return strings.Join(parts, " ")
}

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

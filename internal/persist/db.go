package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gitbgo/server/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrDisabled is returned by Open when no DSN is configured.
var ErrDisabled = errors.New("persistence disabled")

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

// DB wraps either a pgx pool exposed through database/sql, or an embedded
// SQLite database. Queries are written with ? placeholders and rebound for
// Postgres.
type DB struct {
	SQL     *sql.DB
	pool    *pgxpool.Pool
	dialect string
	log     *zap.Logger
}

// Open connects according to the DSN scheme: postgres:// and postgresql://
// go through pgx, anything else is a SQLite path or file: URI.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	if cfg.DSN == "" {
		return nil, ErrDisabled
	}
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		return openPostgres(ctx, cfg, log)
	}
	return openSQLite(ctx, cfg, log)
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{SQL: stdlib.OpenDBFromPool(pool), pool: pool, dialect: dialectPostgres, log: log}, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; this also keeps :memory: databases on a single connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &DB{SQL: db, dialect: dialectSQLite, log: log}, nil
}

// Dialect is the goose dialect name of the backend.
func (db *DB) Dialect() string { return db.dialect }

// rebind turns ? placeholders into $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) Close() {
	db.SQL.Close()
	if db.pool != nil {
		db.pool.Close()
	}
}

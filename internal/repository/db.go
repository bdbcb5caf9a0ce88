package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

type Config struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is an open database plus the ent dialect used to build statements for it.
type DB struct {
	SQL     *sql.DB
	Driver  *entsql.Driver
	Dialect string

	pool *pgxpool.Pool
}

// Open connects with the configured driver. Postgres goes through a pgx pool
// wrapped as *sql.DB; sqlite and mysql use their database/sql drivers.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	logger.Info("connecting to database", "driver", cfg.Driver)

	out := &DB{}
	switch cfg.Driver {
	case DriverPostgres, "":
		pool, err := openPool(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		out.pool = pool
		out.SQL = stdlib.OpenDBFromPool(pool)
		out.Dialect = dialect.Postgres
	case DriverSQLite:
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, err
		}
		// one writer; avoids SQLITE_BUSY under concurrent appends
		db.SetMaxOpenConns(1)
		out.SQL = db
		out.Dialect = dialect.SQLite
	case DriverMySQL:
		db, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(int(cfg.MaxConns))
		}
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
		out.SQL = db
		out.Dialect = dialect.MySQL
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	out.Driver = entsql.OpenDB(out.Dialect, out.SQL)

	if err := out.HealthCheck(ctx, cfg.DialTimeout, logger); err != nil {
		logger.Error("failed to connect to database", "error", err)
		out.Close(logger)
		return nil, err
	}
	logger.Info("successfully connected to database", "dialect", out.Dialect)
	return out, nil
}

func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-entities"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	return pgxpool.NewWithConfig(ctx, pc)
}

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger.Debug("pinging database")
	if err := d.SQL.PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asso-lecture/asso-backend/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Conn is an open database handle. With the pgx driver the handle is backed
// by a pgxpool that Close also releases.
type Conn struct {
	DB   *sql.DB
	pool *pgxpool.Pool
}

func (c *Conn) Close() error {
	err := c.DB.Close()
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}

func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*Conn, error) {
	dsn := DSN(cfg)

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn := &Conn{}
	switch cfg.Driver {
	case "pgx", "":
		pcfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			pcfg.MaxConns = int32(cfg.MaxOpenConns)
		}
		pcfg.MaxConnIdleTime = 5 * time.Minute
		pcfg.HealthCheckPeriod = 30 * time.Second

		pool, err := pgxpool.NewWithConfig(cctx, pcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open pool: %w", err)
		}
		conn.pool = pool
		conn.DB = stdlib.OpenDBFromPool(pool)
	case "postgres":
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.DB = db
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	if err := conn.DB.PingContext(cctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

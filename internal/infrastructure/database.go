package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/odds-tracker/internal/config"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultBackoffFactor  = 2.0
	defaultMinJitter      = 100 * time.Millisecond
	defaultMaxJitter      = 1 * time.Second
	defaultMaxIdleConns   = 10
	defaultMaxOpenConns   = 100
	defaultConnLifetime   = 1 * time.Hour
)

type postgresPool struct {
	connectTimeout  time.Duration
	maxIdleConns    int
	maxOpenConns    int
	maxConnLifetime time.Duration
	maxConnIdleTime time.Duration
}

func resolvePostgresPool(cfg config.DatabaseConfig) postgresPool {
	pool := postgresPool{
		connectTimeout:  cfg.PingInterval,
		maxIdleConns:    cfg.MaxIdleConns,
		maxOpenConns:    cfg.MaxActiveConns,
		maxConnLifetime: cfg.MaxConnLifetime,
		maxConnIdleTime: cfg.PingInterval,
	}
	if pool.connectTimeout <= 0 {
		pool.connectTimeout = defaultConnectTimeout
	}
	if pool.maxIdleConns <= 0 {
		pool.maxIdleConns = defaultMaxIdleConns
	}
	if pool.maxOpenConns <= 0 {
		pool.maxOpenConns = defaultMaxOpenConns
	}
	if pool.maxIdleConns > pool.maxOpenConns {
		pool.maxIdleConns = pool.maxOpenConns
	}
	if pool.maxConnLifetime <= 0 {
		pool.maxConnLifetime = defaultConnLifetime
	}

	return pool
}

func databaseRetryPolicy(cfg config.DatabaseConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetry: cfg.MaxRetry,
		Factor:   cfg.ReconnectFactor,
		MinDelay: cfg.MinJitter,
		MaxDelay: cfg.MaxJitter,
	}
}

// NewPostgresConnection connects to the odds database, retrying with backoff
// as configured.
func NewPostgresConnection(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("database dsn is required")
	}

	pool := resolvePostgresPool(cfg)
	logger := logrus.WithField("postgres_dsn", MaskDSN(cfg.DSN))

	var db *sqlx.DB
	err := Retry(ctx, logger, databaseRetryPolicy(cfg), func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, pool.connectTimeout)
		defer cancel()

		conn, err := sqlx.ConnectContext(attemptCtx, "postgres", cfg.DSN)
		if err != nil {
			return err
		}

		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxIdleConns(pool.maxIdleConns)
	db.SetMaxOpenConns(pool.maxOpenConns)
	db.SetConnMaxLifetime(pool.maxConnLifetime)
	if pool.maxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.maxConnIdleTime)
	}

	logger.WithFields(logrus.Fields{
		"max_idle_conns":    pool.maxIdleConns,
		"max_active_conns":  pool.maxOpenConns,
		"max_conn_lifetime": pool.maxConnLifetime,
	}).Info("postgres connection established")

	return db, nil
}

// PingPostgres is used by the readiness probe of the gateway.
func PingPostgres(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.New("database is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	return db.PingContext(pingCtx)
}

// StartPostgresHealthCheck pings db every interval until ctx is done and logs
// when the database stops or starts answering again.
func StartPostgresHealthCheck(ctx context.Context, db *sqlx.DB, interval time.Duration) {
	if db == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		healthy := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, interval)
				err := db.PingContext(pingCtx)
				cancel()

				switch {
				case err != nil:
					healthy = false
					logrus.WithError(err).Error("postgres health check failed")
				case !healthy:
					healthy = true
					logrus.Info("postgres is reachable again")
				}
			}
		}
	}()
}

// MaskDSN hides the credentials part of a connection string for logging.
func MaskDSN(dsn string) string {
	idx := strings.LastIndex(dsn, "@")
	if idx == -1 {
		return dsn
	}

	prefix := dsn[:idx]
	credsIdx := strings.LastIndex(prefix, "://")
	if credsIdx == -1 {
		return "***" + dsn[idx:]
	}

	return prefix[:credsIdx+3] + "***" + dsn[idx:]
}

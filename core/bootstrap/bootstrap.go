package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/estatebot/core/config"
	coredatabase "github.com/m3rciful/estatebot/core/database"
	"github.com/m3rciful/estatebot/core/logger"
)

// Options control the shared bootstrap pipeline. Database and Redis are
// optional; a zero config skips them.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	Redis    coredatabase.RedisConfig
	// DBWait bounds how long Connect waits for Postgres to answer.
	DBWait time.Duration

	LoggerInit   func(coreconfig.LoggingConfig) error
	Connect      func(context.Context, coredatabase.Config, time.Duration) (*sqlx.DB, error)
	Migrate      func(coredatabase.Config) error
	ConnectRedis func(context.Context, coredatabase.RedisConfig) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// Either field may be nil when its backend is not configured.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close releases every opened connection.
func (r *Result) Close() error {
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, then Postgres with migrations, then Redis.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	if err := loggerInit(opts.Config.Logging); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Database.Enabled() {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		wait := opts.DBWait
		if wait <= 0 {
			wait = 30 * time.Second
		}
		db, err := connect(ctx, opts.Database, wait)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		res.DB = db

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(opts.Database); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	if opts.Redis.Enabled() {
		connect := opts.ConnectRedis
		if connect == nil {
			connect = coredatabase.ConnectRedis
		}
		rdb, err := connect(ctx, opts.Redis)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = rdb
	}
	return res, nil
}

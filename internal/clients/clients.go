// Package clients owns the process-wide external connections. They are set up
// once, on first use, and shared by every request afterwards.
package clients

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"projet/internal/cache"
	"projet/internal/config"
	"projet/internal/db"
	"projet/internal/record"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrClosed = errors.New("clients closed")

type state int

const (
	stateNew state = iota
	stateReady
	stateClosed
)

const cachePrefix = "projet:"

type Clients struct {
	cfg       *config.Config
	logger    *zap.Logger
	dialector gorm.Dialector

	mu    sync.Mutex
	state state

	DB    *gorm.DB
	Redis *redis.Client
	PG    *pgxpool.Pool
	Cache cache.Cache
}

func New(cfg *config.Config, logger *zap.Logger) *Clients {
	return &Clients{
		cfg:       cfg,
		logger:    logger,
		dialector: db.Postgres(cfg),
	}
}

// WithDialector swaps the database driver. Only useful before Init.
func (c *Clients) WithDialector(d gorm.Dialector) *Clients {
	c.dialector = d
	return c
}

// Init connects everything. Calls after the first successful one are no-ops,
// concurrent callers wait for the one doing the work.
func (c *Clients) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateReady:
		return nil
	case stateClosed:
		return ErrClosed
	}

	gdb, err := db.Open(c.dialector, c.cfg.IsProduction(), c.logger)
	if err != nil {
		return err
	}

	rdb := cache.Connect(ctx, c.cfg.RedisAddress, c.logger)

	var pg *pgxpool.Pool
	if c.cfg.Notifier == config.NotifierPostgres {
		pg, err = pgxpool.New(ctx, c.cfg.DSN())
		if err != nil {
			_ = db.Close(gdb)
			if rdb != nil {
				_ = rdb.Close()
			}
			return fmt.Errorf("connect notify pool: %w", err)
		}
	}

	c.DB = gdb
	c.Redis = rdb
	c.PG = pg
	if rdb != nil {
		c.Cache = cache.NewRedisCache(rdb, cachePrefix)
	} else {
		c.Cache = cache.NewMemoryCache()
	}
	c.state = stateReady

	c.logger.Info("Clients initialized",
		zap.Bool("redis", rdb != nil),
		zap.Bool("pg_notify", pg != nil),
	)
	return nil
}

// Notifier picks the change fan-out configured for this process. A redis
// notifier without a reachable redis degrades to in-process delivery.
func (c *Clients) Notifier() record.Notifier {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.cfg.Notifier {
	case config.NotifierRedis:
		if c.Redis != nil {
			return record.NewRedisNotifier(c.Redis, c.logger)
		}
		c.logger.Warn("Redis notifier requested but redis is unavailable, using local notifier")
	case config.NotifierPostgres:
		if c.PG != nil {
			return record.NewPostgresNotifier(c.PG, c.logger)
		}
		c.logger.Warn("Postgres notifier requested but pool is not connected, using local notifier")
	}
	return record.NewLocalNotifier()
}

func (c *Clients) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateReady {
		c.state = stateClosed
		return nil
	}
	c.state = stateClosed

	var errs []error
	if c.PG != nil {
		c.PG.Close()
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, db.Close(c.DB))
	}
	return errors.Join(errs...)
}

package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/burugo/record"
	"github.com/burugo/record/drivers/cache/redis"
	"github.com/burugo/record/drivers/db/sqlite"
)

// App bundles the dependencies the commands use.
type App struct {
	Logger *zap.Logger
	DB     *record.Database
	Users  *record.Model[User, *User]
}

// --- Providers ---

// provideLogger builds a development logger for debug level and a
// production logger otherwise.
func provideLogger(cfg *record.Config) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zcfg := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	cleanup := func() { _ = logger.Sync() }
	return logger, cleanup, nil
}

// provideResultCache selects the read cache backend.
func provideResultCache(cfg *record.Config, logger *zap.Logger) (record.ResultCache, func(), error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case "", record.CacheBackendMemory:
		return record.NewMemoryCache(cfg.Cache.MaxSize, cfg.Cache.TTL), func() {}, nil
	case record.CacheBackendRedis:
		c, err := redis.NewClient(nil, &redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
			MaxSize:  cfg.Cache.MaxSize,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := c.Close(); err != nil {
				logger.Warn("error closing redis cache", zap.Error(err))
			}
		}
		return c, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// provideDatabase opens the database. SQLite drivers get the busy timeout
// and foreign key settings applied to the DSN.
func provideDatabase(ctx context.Context, cfg *record.Config, logger *zap.Logger, rc record.ResultCache) (*record.Database, func(), error) {
	dbCfg := *cfg
	dbCfg.Logger = logger
	dbCfg.ResultCache = rc
	if dbCfg.Opener == nil && dbCfg.DSN != "" && (dbCfg.Driver == sqlite.DriverCGO || dbCfg.Driver == sqlite.DriverPure) {
		dbCfg.Opener = sqlite.OpenerFor(dbCfg.Driver, dbCfg.DSN)
	}
	db, err := record.Open(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("error closing database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// provideUserModel binds the demo entity.
func provideUserModel(db *record.Database) (*record.Model[User, *User], error) {
	return record.Bind[User](db)
}

package data

import (
	"context"
	"fmt"
	"time"

	"movieetl/internal/conf"

	"github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewCatalogClient,
	NewStagingRepo,
	NewMovieTableRepo,
	NewDatasetRepo,
	NewDatasetSource,
)

const (
	stagingRedis  = "redis"
	stagingBadger = "badger"
)

// Data encapsulates the relational database and the staging store connections
type Data struct {
	db      *gorm.DB
	rdb     *redis.Client
	kv      *badger.DB
	staging *conf.Data_Staging
	log     *log.Helper
}

// NewData creates Data instance with database and staging store connections
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	l := log.NewHelper(logger)

	db, err := openDatabase(c.Database)
	if err != nil {
		l.Errorf("failed to connect to database: %v", err)
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		l.Errorf("failed to get database instance: %v", err)
		return nil, nil, err
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	l.Info("database connected successfully")

	data := &Data{
		db:      db,
		staging: c.Staging,
		log:     l,
	}

	switch c.Staging.Driver {
	case stagingRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:         c.Redis.Addr,
			Password:     c.Redis.Password,
			DB:           c.Redis.Db,
			ReadTimeout:  c.Redis.ReadTimeout.AsDuration(),
			WriteTimeout: c.Redis.WriteTimeout.AsDuration(),
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Staging is required, unlike a cache
		if err := rdb.Ping(ctx).Err(); err != nil {
			l.Errorf("failed to connect to redis: %v", err)
			_ = rdb.Close()
			_ = sqlDB.Close()
			return nil, nil, err
		}
		l.Info("redis connected successfully")
		data.rdb = rdb
	case stagingBadger:
		opts := badger.DefaultOptions(c.Staging.Dir).WithLogger(badgerLogger{l})
		if c.Staging.Dir == "" {
			opts = opts.WithInMemory(true)
		}
		kv, err := badger.Open(opts)
		if err != nil {
			l.Errorf("failed to open badger: %v", err)
			_ = sqlDB.Close()
			return nil, nil, err
		}
		l.Infof("badger opened at %q", c.Staging.Dir)
		data.kv = kv
	default:
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("unknown staging driver %q", c.Staging.Driver)
	}

	cleanup := func() {
		l.Info("closing data resources")
		if data.rdb != nil {
			if err := data.rdb.Close(); err != nil {
				l.Errorf("failed to close redis: %v", err)
			}
		}
		if data.kv != nil {
			if err := data.kv.Close(); err != nil {
				l.Errorf("failed to close badger: %v", err)
			}
		}
		if sqlDB != nil {
			if err := sqlDB.Close(); err != nil {
				l.Errorf("failed to close database: %v", err)
			}
		}
	}

	return data, cleanup, nil
}

func openDatabase(c *conf.Data_Database) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch c.Driver {
	case "postgres", "":
		return gorm.Open(postgres.Open(c.Source), cfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(c.Source), cfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", c.Driver)
	}
}

// badgerLogger routes badger's internal logging through kratos.
type badgerLogger struct {
	h *log.Helper
}

func (b badgerLogger) Errorf(format string, args ...interface{})   { b.h.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...interface{}) { b.h.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...interface{})    { b.h.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...interface{})   { b.h.Debugf(format, args...) }

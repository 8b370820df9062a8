package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
	"github.com/vitalkeep/vitalkeep"
	"github.com/vitalkeep/vitalkeep/inmem"
	"github.com/vitalkeep/vitalkeep/persistent"
	"github.com/vitalkeep/vitalkeep/pgdb"
)

const (
	backendBunt     = "bunt"
	backendPostgres = "postgres"
	backendRedis    = "redis"
	backendMemory   = "memory"
)

type config struct {
	debug          bool
	syslog         bool
	storageBackend string
	buntdbPath     string
	pgDsn          string
	redisAddr      string
	redisPassword  string
	listenAddr     string
	allowOrigins   string
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		logrus.Fatalln(key + " not set!")
	}
	return value
}

func configFromEnv() config {
	cfg := config{
		debug:          os.Getenv("DEBUG") == "true",
		syslog:         os.Getenv("SYSLOG") == "true",
		storageBackend: envOr("STORAGE_BACKEND", backendBunt),
		buntdbPath:     envOr("BUNTDB_PATH", "vitalkeep.db"),
		pgDsn:          os.Getenv("POSTGRES_DSN"),
		listenAddr:     envOr("LISTEN_ADDR", "127.0.0.1:2137"),
		allowOrigins:   envOr("ALLOW_ORIGINS", "http://localhost:3000"),
	}
	switch cfg.storageBackend {
	case backendPostgres:
		cfg.pgDsn = requireEnv("POSTGRES_DSN")
	case backendRedis:
		cfg.redisAddr = requireEnv("REDIS_ADDR")
		cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	}
	return cfg
}

// backends holds the opened profile storage and activity log.
type backends struct {
	storage    vitalkeep.Storage
	activities vitalkeep.ActivityStore
	closers    []func() error
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logrus.WithError(err).Warningln("Could not close backend.")
		}
	}
}

// openBackends opens the configured profile storage. The activity log lives
// in postgres whenever POSTGRES_DSN is set, in memory otherwise.
func openBackends(ctx context.Context, cfg config) (*backends, error) {
	b := &backends{}

	var pg *bun.DB
	if cfg.pgDsn != "" {
		logrus.Infoln("Opening database.")
		db, err := pgdb.Open(ctx, cfg.pgDsn)
		if err != nil {
			return nil, fmt.Errorf("pg open: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		if err := persistent.CreateSchema(ctx, db); err != nil {
			b.close()
			return nil, fmt.Errorf("pg schema: %w", err)
		}
		pg = db
	}

	switch cfg.storageBackend {
	case backendBunt:
		bdb, err := buntdb.Open(cfg.buntdbPath)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("buntdb open: %w", err)
		}
		b.closers = append(b.closers, bdb.Close)
		b.storage = &persistent.BuntStorage{Buntdb: bdb}
	case backendPostgres:
		b.storage = &persistent.PgStorage{DB: pg}
	case backendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.redisAddr, Password: cfg.redisPassword})
		b.closers = append(b.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.storage = &persistent.RedisStorage{Client: client, Prefix: "vitalkeep:"}
	case backendMemory:
		b.storage = inmem.NewStorage()
	default:
		b.close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.storageBackend)
	}

	if pg != nil {
		b.activities = &persistent.ActivityStore{DB: pg}
	} else {
		b.activities = inmem.NewActivityStore()
	}
	return b, nil
}

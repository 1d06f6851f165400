// Package bootstrap wires the process-level dependencies shared by the
// server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/seed"
	"warbler/internal/session"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ApplySchema bool
	// SeedEmptyDevDB fills an empty development database with demo data.
	SeedEmptyDevDB bool
}

// Runtime is the set of live connections a process needs.
type Runtime struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Sessions *session.Manager
}

// InitRuntime connects to the database and Redis. Redis is optional: when it
// is unreachable the client is nil and sessions fall back to memory.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.ConnectWithOptions(cfg, database.Options{ApplySchema: opts.ApplySchema})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()
	if r == nil {
		middleware.Logger.Warn("redis unavailable; using in-memory sessions and local realtime delivery")
	}

	if opts.SeedEmptyDevDB {
		if err := seedEmptyDevDB(cfg, db); err != nil {
			return nil, fmt.Errorf("seed development database: %w", err)
		}
	}

	return &Runtime{
		DB:       db,
		Redis:    r,
		Sessions: session.NewManager(session.NewStore(r), cfg.SessionSecret, cfg.SessionTTL()),
	}, nil
}

// Close releases the database pool and the Redis client.
func (rt *Runtime) Close() {
	if err := database.Close(rt.DB); err != nil {
		middleware.Logger.Error("close database", slog.String("error", err.Error()))
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
}

func seedEmptyDevDB(cfg *config.Config, db *gorm.DB) error {
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}
	var n int64
	if err := db.Model(&models.User{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	opts := seed.DefaultOptions()
	opts.ShouldClean = false
	opts.MessageLimit = cfg.MessageLimit()
	_, err := seed.Seed(context.Background(), db, opts)
	return err
}

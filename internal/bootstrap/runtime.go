// Package bootstrap wires shared runtime dependencies for the cmd binaries.
package bootstrap

import (
	"fmt"
	"log"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoData populates an empty development database with demo
	// content on startup.
	SeedDemoData bool
}

// InitRuntime connects to DB and Redis and optionally runs demo seeding.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// May result in a nil client if unreachable; caching degrades gracefully.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemoData && cfg.Env == "development" {
		if err := seedIfEmpty(db); err != nil {
			return nil, nil, fmt.Errorf("demo seeding failed: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(db *gorm.DB) error {
	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}
	if userCount > 0 {
		return nil
	}

	log.Println("empty development database, seeding demo data")
	return seed.Seed(db, seed.Options{NumUsers: 10, NumPosts: 30})
}

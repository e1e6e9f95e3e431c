// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Seed, when non-nil, populates demo data after connecting.
	Seed *seed.Options
}

// InitRuntime connects to the database and Redis, ensures the configured
// root admin and optionally seeds. The Redis client is nil when unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.Connect(cfg.RedisURL)

	if err := EnsureRootAdmin(ctx, cfg, repository.NewUserRepository(db), cache.NewStore(rdb)); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap root admin: %w", err)
	}

	if opts.Seed != nil {
		if _, err := seed.Seed(db, *opts.Seed); err != nil {
			return nil, nil, fmt.Errorf("failed to seed: %w", err)
		}
	}

	return db, rdb, nil
}

// EnsureRootAdmin makes ROOT_ADMIN_EMAIL an admin, registering it with
// ROOT_ADMIN_PASSWORD when missing. Existing credentials are left alone.
// A promotion drops the account's cached resolution from store, which may be nil.
func EnsureRootAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository, store *cache.Store) error {
	email := models.NormalizeEmail(cfg.RootAdminEmail)
	if email == "" {
		return nil
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsAdmin() {
			return nil
		}
		if _, err := users.SetRole(ctx, email, models.RoleAdmin); err != nil {
			return err
		}
		store.Invalidate(ctx, cache.AccountKey(existing.ID))
		middleware.Logger.InfoContext(ctx, "root admin promoted", "email", email)
		return nil
	}

	if strings.TrimSpace(cfg.RootAdminPassword) == "" {
		return fmt.Errorf("ROOT_ADMIN_PASSWORD must be set to create %s", email)
	}
	hash, err := auth.HashPassword(cfg.RootAdminPassword)
	if err != nil {
		return err
	}
	root := &models.User{
		Email:       email,
		Password:    hash,
		DisplayName: "Admin",
		Role:        models.RoleAdmin,
	}
	if err := users.Create(ctx, root, nil); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "root admin created", "email", email, "account_id", root.ID)
	return nil
}

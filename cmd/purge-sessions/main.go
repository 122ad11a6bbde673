// Command purge-sessions deletes expired rows from the sessions table.
// Redis-backed sessions expire on their own and need no purge.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	authadapters "auth_backend/internal/feature/auth/adapters"
	"auth_backend/internal/platform/db"
	"auth_backend/internal/platform/logger"
)

func main() {
	_ = godotenv.Load(".env")
	log := logger.Init(logger.LoadConfig())

	n, err := run(context.Background())
	if err != nil {
		log.Error("failed to purge sessions", "error", err)
		os.Exit(1)
	}
	log.Info("purge ok", "deleted", n)
}

func run(ctx context.Context) (int64, error) {
	cfg := db.LoadConfigFromEnv()
	cfg.RunMigrations = false
	gdb, err := db.OpenDB(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return 0, err
	}
	defer func() { _ = sqlDB.Close() }()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	return authadapters.NewSessionGorm(gdb).DeleteExpired(ctx)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"auth_backend/internal/app/di"
	"auth_backend/internal/app/router"
	authadapters "auth_backend/internal/feature/auth/adapters"
	"auth_backend/internal/feature/auth/domain/entity"
	authhandler "auth_backend/internal/feature/auth/transport/handler"
	authusecase "auth_backend/internal/feature/auth/usecase"
	"auth_backend/internal/platform/cache"
	"auth_backend/internal/platform/db"
	jwtmw "auth_backend/internal/platform/jwt"
	"auth_backend/internal/platform/logger"
	"auth_backend/internal/platform/mail"
	infraredis "auth_backend/internal/platform/redis"
	"auth_backend/internal/platform/session"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
	log := logger.Init(logger.LoadConfig())

	if err := run(log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the service and blocks serving HTTP. Deferred closes run on every return path.
func run(log *slog.Logger) error {
	// JWT_SECRET は必須
	jwtCfg := jwtmw.LoadConfig()
	tokens, err := jwtmw.NewVerificationTokens(jwtCfg)
	if err != nil {
		return err
	}

	// db
	gdb, err := db.OpenDB(db.LoadConfigFromEnv(), &entity.User{}, &authadapters.SessionModel{})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	// Redis
	var rdb *redisv9.Client
	if redisCfg := infraredis.LoadConfig(); redisCfg.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		tmp, err := infraredis.NewRedisClient(ctx, redisCfg)
		cancel()
		if err != nil {
			log.Warn("Redis unavailable. Storing sessions in the database.", "error", err)
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					log.Error("failed to close Redis client", "error", err)
				}
			}()
		}
	}

	mailCfg := mail.LoadConfig()
	notifier, err := di.NewNotifier(mailCfg, log)
	if err != nil {
		return fmt.Errorf("failed to configure mail: %w", err)
	}
	sessCfg := session.LoadConfig()

	// Repository
	userRepo := cache.NewCachingUserRepository(rdb, userCacheTTL(), authadapters.NewUserGorm(gdb), cache.DefaultNamespace)
	sessionRepo := di.NewSessionRepository(rdb, gdb)

	// Usecase
	authUC := authusecase.NewAuthUsecase(userRepo, sessionRepo, tokens, notifier, di.NewAuthConfig(mailCfg, sessCfg))

	// Handler
	authH := authhandler.NewAuthHandler(authUC, sessCfg)

	// ルータ生成
	r := router.NewRouter(router.Deps{
		Auth:           authH,
		Sessions:       sessionRepo,
		Cookies:        sessCfg,
		DB:             sqlDB,
		AllowedOrigins: router.AllowedOriginsFromEnv(),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("starting server", "port", port, "mail_provider", mailCfg.Provider, "redis_sessions", rdb != nil)
	return r.Run(":" + port)
}

// userCacheTTL reads USER_CACHE_TTL; zero selects the cache default.
func userCacheTTL() time.Duration {
	d, err := time.ParseDuration(os.Getenv("USER_CACHE_TTL"))
	if err != nil {
		return 0
	}
	return d
}

// Package cache はRedisによるリポジトリのキャッシュデコレーターを提供します。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/usecase"
)

const (
	DefaultUserTTL   = 5 * time.Minute
	DefaultNamespace = "users"
)

// CachingUserRepository caches FindByID, which serves every authenticated request.
// FindByEmail is never cached so Login always sees the current hash and verified flag.
// Cached users carry no password hash.
type CachingUserRepository struct {
	inner     usecase.UserRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.UserRepository = (*CachingUserRepository)(nil)

// cachedUser is the Redis representation of a user, without the password hash.
type cachedUser struct {
	ID            uint      `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toCached(u *entity.User) cachedUser {
	return cachedUser{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (c cachedUser) toEntity() *entity.User {
	return &entity.User{
		ID:            c.ID,
		Email:         c.Email,
		Username:      c.Username,
		EmailVerified: c.EmailVerified,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// NewCachingUserRepository は UserRepository を Redis キャッシュでデコレートします。
// ttl<=0 の場合は 5分、namespace が空なら "users" を使います。rdb が nil なら素通しです。
func NewCachingUserRepository(rdb *redis.Client, ttl time.Duration, inner usecase.UserRepository, namespace string) *CachingUserRepository {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CachingUserRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *CachingUserRepository) Create(ctx context.Context, user *entity.User) error {
	return c.inner.Create(ctx, user)
}

func (c *CachingUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return c.inner.FindByEmail(ctx, email)
}

func (c *CachingUserRepository) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	if c.rdb == nil {
		return c.inner.FindByID(ctx, id)
	}

	key := c.cacheKey(id)

	// 1) キャッシュヒット確認
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var cu cachedUser
		if err := json.Unmarshal(b, &cu); err == nil {
			return cu.toEntity(), nil
		}
		// 壊れていたら落とす
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) DB へフォールバック
	u, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3) キャッシュ保存（ベストエフォート）
	if b, err := json.Marshal(toCached(u)); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.Warn("user cache write failed", "error", err, "user_id", id)
		}
	}
	return u, nil
}

// MarkEmailVerified writes through and drops the cached copy.
func (c *CachingUserRepository) MarkEmailVerified(ctx context.Context, id uint) (bool, error) {
	changed, err := c.inner.MarkEmailVerified(ctx, id)
	if err != nil {
		return false, err
	}
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, c.cacheKey(id)).Err(); err != nil {
			slog.Warn("user cache invalidation failed", "error", err, "user_id", id)
		}
	}
	return changed, nil
}

func (c *CachingUserRepository) cacheKey(id uint) string {
	return fmt.Sprintf("%s:%d", c.namespace, id)
}

// Package cache 提供 Redis 缓存操作的封装
// 处理 JWT 黑名单、对话锁等需要快速访问的数据
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mingling-server/internal/config"
)

// ErrLockNotAcquired 在等待时间内没有拿到锁
var ErrLockNotAcquired = errors.New("cache: lock not acquired")

// 轮询锁的间隔
const lockPollInterval = 50 * time.Millisecond

// releaseScript 只删除自己持有的锁，避免误删别人在过期后重新拿到的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client // Redis 客户端实例
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient 使用已有的客户端创建 RedisCache
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping 检查 Redis 连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ==================== JWT 黑名单 ====================
// 用于实现 Token 强制失效（登出）功能

// BlacklistToken 将 Token 加入黑名单
// 登出时调用，使当前 Token 失效
// 参数:
//   - ctx: 上下文
//   - tokenHash: Token 的哈希值（不存储原始 Token）
//   - expireAt: Token 的原始过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) BlacklistToken(ctx context.Context, tokenHash string, expireAt time.Time) error {
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		// Token 已过期，无需加入黑名单
		return nil
	}
	return c.client.Set(ctx, blacklistKey(tokenHash), "1", ttl).Err()
}

// IsTokenBlacklisted 检查 Token 是否在黑名单中
// Redis 不可用时返回错误，由调用方决定是否放行
func (c *RedisCache) IsTokenBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	n, err := c.client.Exists(ctx, blacklistKey(tokenHash)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func blacklistKey(tokenHash string) string {
	return fmt.Sprintf("jwt:blacklist:%s", tokenHash)
}

// ==================== 对话锁 ====================
// 同一个 persona/角色 组合同一时间只处理一个对话请求

// ChatLock 已持有的对话锁
type ChatLock struct {
	key   string
	token string
}

// AcquireChatLock 获取 persona/角色 对话锁
// 在 wait 时间内轮询，拿不到返回 ErrLockNotAcquired
// 参数:
//   - ctx: 上下文
//   - personaID: persona ID
//   - characterID: 角色 ID
//   - ttl: 锁的过期时间，防止持有者崩溃后死锁
//   - wait: 最长等待时间
//
// 返回:
//   - *ChatLock: 锁句柄，用于释放
//   - error: ErrLockNotAcquired 或 Redis 错误
func (c *RedisCache) AcquireChatLock(ctx context.Context, personaID, characterID int64, ttl, wait time.Duration) (*ChatLock, error) {
	lock := &ChatLock{
		key:   fmt.Sprintf("chat:lock:%d:%d", personaID, characterID),
		token: uuid.NewString(),
	}

	deadline := time.Now().Add(wait)
	for {
		ok, err := c.client.SetNX(ctx, lock.key, lock.token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return lock, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// ReleaseChatLock 释放对话锁
// 锁已过期或被别人持有时不做任何事
func (c *RedisCache) ReleaseChatLock(ctx context.Context, lock *ChatLock) error {
	if lock == nil {
		return nil
	}
	return releaseScript.Run(ctx, c.client, []string{lock.key}, lock.token).Err()
}

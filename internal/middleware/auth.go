// Package middleware 提供 HTTP 请求的中间件
// 包括 JWT 认证、CORS 跨域、日志记录等
package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mingling-server/internal/cache"
	"mingling-server/pkg/jwt"
	"mingling-server/pkg/response"
	"mingling-server/pkg/util"
)

// 上下文中的键
const (
	ctxUserID      = "user_id"
	ctxFirebaseUID = "firebase_uid"
	ctxToken       = "token"
	ctxTokenExp    = "token_exp"
)

// AuthMiddleware 创建 JWT 认证中间件
// 验证请求头中的 Bearer Token，并将用户信息存入上下文
// 参数:
//   - jwtService: JWT 服务实例，用于解析和验证 Token
//   - redisCache: Redis 缓存实例，用于检查 Token 黑名单，可为 nil
//
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func AuthMiddleware(jwtService *jwt.JWTService, redisCache *cache.RedisCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 解析 Bearer Token
		tokenString, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Missing or invalid authorization header")
			c.Abort()
			return
		}

		// 2. 验证签名和过期时间
		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		// 3. 检查 Token 是否在黑名单中（用户已登出）
		if isRevoked(c, redisCache, tokenString) {
			response.Unauthorized(c, "Token has been revoked, please sign in again")
			c.Abort()
			return
		}

		// 4. 将用户信息存入上下文
		setClaims(c, tokenString, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware 创建可选的 JWT 认证中间件
// 与 AuthMiddleware 类似，但不强制要求认证
// 如果提供了有效 Token，会将用户信息存入上下文
// 如果没有提供或 Token 无效，仍然继续处理请求
func OptionalAuthMiddleware(jwtService *jwt.JWTService, redisCache *cache.RedisCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil || isRevoked(c, redisCache, tokenString) {
			c.Next()
			return
		}

		setClaims(c, tokenString, claims)
		c.Next()
	}
}

// bearerToken 从 Authorization 头解析 "Bearer <token>"
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// isRevoked 检查黑名单
// Redis 不可用时放行，只记录警告
func isRevoked(c *gin.Context, redisCache *cache.RedisCache, tokenString string) bool {
	if redisCache == nil {
		return false
	}
	revoked, err := redisCache.IsTokenBlacklisted(c.Request.Context(), util.HashToken(tokenString))
	if err != nil {
		slog.WarnContext(c.Request.Context(), "token blacklist check failed", "error", err)
		return false
	}
	return revoked
}

func setClaims(c *gin.Context, tokenString string, claims *jwt.UserClaims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxFirebaseUID, claims.FirebaseUID)
	c.Set(ctxToken, tokenString) // 存储原始 Token，用于登出时计算哈希
	if claims.ExpiresAt != nil {
		c.Set(ctxTokenExp, claims.ExpiresAt.Time) // 用于登出时设置黑名单 TTL
	}
}

// GetUserID 从上下文获取用户 ID 的辅助函数
// 参数:
//   - c: Gin 上下文
//
// 返回:
//   - int64: 用户 ID，如果未认证返回 0
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// GetFirebaseUID 从上下文获取外部身份标识
func GetFirebaseUID(c *gin.Context) string {
	return c.GetString(ctxFirebaseUID)
}

// GetToken 从上下文获取原始 Token 和过期时间
func GetToken(c *gin.Context) (string, time.Time) {
	return c.GetString(ctxToken), c.GetTime(ctxTokenExp)
}

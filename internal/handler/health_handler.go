package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mingling-server/internal/cache"
	"mingling-server/internal/database"
)

// HealthHandler 健康检查
type HealthHandler struct {
	db    *gorm.DB
	cache *cache.RedisCache // 可为 nil
}

// NewHealthHandler 创建 HealthHandler 实例
func NewHealthHandler(db *gorm.DB, redisCache *cache.RedisCache) *HealthHandler {
	return &HealthHandler{db: db, cache: redisCache}
}

// HealthStatus 健康检查结果
type HealthStatus struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Redis    string    `json:"redis"`
	Time     time.Time `json:"time"`
}

// Check 检查数据库和 Redis
// 数据库不可用时返回 503，Redis 不可用只降级
// @Router /api/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{Status: "ok", Database: "ok", Redis: "ok", Time: time.Now().UTC()}

	if err := database.Ping(ctx, h.db); err != nil {
		status.Status = "unavailable"
		status.Database = err.Error()
	}

	switch {
	case h.cache == nil:
		status.Redis = "disabled"
	default:
		if err := h.cache.Ping(ctx); err != nil {
			status.Redis = err.Error()
			if status.Status == "ok" {
				status.Status = "degraded"
			}
		}
	}

	code := http.StatusOK
	if status.Database != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"mingling-server/internal/cache"
	"mingling-server/internal/middleware"
	"mingling-server/pkg/jwt"
)

// Handlers 所有 HTTP 处理器
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Character *CharacterHandler
	Persona   *PersonaHandler
	Chat      *ChatHandler
	Health    *HealthHandler
}

// RegisterRoutes 注册 /api 下的所有路由
// 参数:
//   - router: Gin 引擎
//   - h: 处理器集合
//   - jwtService: 认证中间件使用的 JWT 服务
//   - redisCache: Token 黑名单，可为 nil
func RegisterRoutes(router *gin.Engine, h *Handlers, jwtService *jwt.JWTService, redisCache *cache.RedisCache) {
	requireAuth := middleware.AuthMiddleware(jwtService, redisCache)
	optionalAuth := middleware.OptionalAuthMiddleware(jwtService, redisCache)

	api := router.Group("/api")

	// 健康检查
	api.GET("/health", h.Health.Check)

	// 认证相关
	auth := api.Group("/auth")
	{
		auth.POST("/firebase", h.Auth.FirebaseLogin)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", requireAuth, h.Auth.Logout)
		auth.GET("/me", requireAuth, h.Auth.Me)
	}

	// 用户相关（需要登录）
	users := api.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("/me", h.User.GetProfile)
		users.PUT("/me", h.User.UpdateProfile)
	}

	// 角色相关，浏览不需要登录
	characters := api.Group("/characters")
	{
		characters.GET("", optionalAuth, h.Character.List)
		characters.GET("/:id", optionalAuth, h.Character.Get)
		characters.POST("", requireAuth, h.Character.Create)
		characters.PUT("/:id", requireAuth, h.Character.Update)
		characters.DELETE("/:id", requireAuth, h.Character.Delete)

		// 对话
		characters.POST("/:id/chat", requireAuth, h.Chat.SendMessage)
		characters.GET("/:id/affection/:personaId", requireAuth, h.Chat.GetAffection)
		characters.GET("/:id/history/:personaId", requireAuth, h.Chat.GetHistory)
	}

	// persona 相关（需要登录）
	personas := api.Group("/personas")
	personas.Use(requireAuth)
	{
		personas.GET("", h.Persona.List)
		personas.POST("", h.Persona.Create)
		personas.GET("/default", h.Persona.GetDefault)
		personas.GET("/:id", h.Persona.Get)
		personas.PUT("/:id", h.Persona.Update)
		personas.DELETE("/:id", h.Persona.Delete)
		personas.PUT("/:id/default", h.Persona.SetDefault)
	}
}

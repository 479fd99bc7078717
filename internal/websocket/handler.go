package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mingling-server/internal/cache"
	"mingling-server/pkg/jwt"
	"mingling-server/pkg/response"
	"mingling-server/pkg/util"
)

// Handler 处理 WebSocket 连接
type Handler struct {
	hub        *Hub
	jwtService *jwt.JWTService
	cache      *cache.RedisCache // Token 黑名单，可为 nil
	upgrader   websocket.Upgrader
}

// NewHandler 创建 WebSocket Handler
// 参数:
//   - hub: 连接管理器
//   - jwtService: 校验 query 中的 access token
//   - redisCache: Token 黑名单，可为 nil
//   - allowedOrigins: 允许的 Origin，包含 "*" 时不做限制
func NewHandler(hub *Hub, jwtService *jwt.JWTService, redisCache *cache.RedisCache, allowedOrigins []string) *Handler {
	return &Handler{
		hub:        hub,
		jwtService: jwtService,
		cache:      redisCache,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker 按配置的域名校验 Origin，没有 Origin 头的非浏览器客户端放行
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleChatWS 处理好感度推送的 WebSocket 连接
// 路由: GET /ws/chat
// 参数: token (query parameter) - access token
func (h *Handler) HandleChatWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, "Missing token")
		return
	}

	claims, err := h.jwtService.ValidateAccessToken(token)
	if err != nil {
		response.Unauthorized(c, "Invalid or expired token")
		return
	}

	if h.cache != nil {
		revoked, err := h.cache.IsTokenBlacklisted(c.Request.Context(), util.HashToken(token))
		if err != nil {
			slog.WarnContext(c.Request.Context(), "token blacklist check failed", "error", err)
		} else if revoked {
			response.Unauthorized(c, "Token has been revoked, please sign in again")
			return
		}
	}

	// 升级 HTTP 连接为 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "failed to upgrade websocket", "error", err)
		return
	}

	client := NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)

	// 启动读写协程
	go client.WritePump()
	go client.ReadPump()
}

// RegisterRoutes 注册 WebSocket 路由
// token 在 query 中验证，不经过认证中间件
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	ws := r.Group("/ws")
	{
		ws.GET("/chat", h.HandleChatWS)
	}
}

package handler

import (
	"github.com/gin-gonic/gin"

	"mingling-server/internal/middleware"
	"mingling-server/internal/service"
	"mingling-server/pkg/response"
	"mingling-server/pkg/util"
)

// AuthHandler 认证请求处理器
// 处理 Firebase 登录、刷新 Token、登出
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// FirebaseLogin 使用 Firebase 身份登录
// @Summary Firebase 登录
// @Description 首次登录自动建档，返回 access/refresh Token
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.FirebaseLoginRequest true "Firebase 用户信息"
// @Success 200 {object} service.LoginResponse
// @Router /api/auth/firebase [post]
func (h *AuthHandler) FirebaseLogin(c *gin.Context) {
	// 1. 解析请求参数
	var req service.FirebaseLoginRequest
	// ShouldBindJSON 会自动验证 binding 标签中的规则
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	// 2. 调用服务层处理登录
	result, err := h.authService.FirebaseLogin(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Description 使用 Refresh Token 获取新的 Access Token
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body RefreshTokenRequest true "Refresh Token"
// @Success 200 {object} service.RefreshTokenResponse
// @Router /api/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token is required")
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Logout 用户登出
// @Summary 用户登出
// @Description 登出当前用户，将 Token 加入黑名单
// @Tags 认证
// @Security Bearer
// @Success 204
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// 从上下文获取 Token 信息（由认证中间件设置）
	token, expireAt := middleware.GetToken(c)
	if token == "" || expireAt.IsZero() {
		response.Unauthorized(c, "Missing token")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), util.HashToken(token), expireAt); err != nil {
		handleServiceError(c, err)
		return
	}

	response.NoContent(c)
}

// Me 获取当前登录用户
// @Summary 当前用户
// @Tags 认证
// @Security Bearer
// @Produce json
// @Success 200 {object} service.UserInfo
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, user)
}

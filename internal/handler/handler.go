// Package handler 提供 HTTP 请求处理器
// 负责参数解析和错误到 HTTP 状态码的映射，业务逻辑在 service 层
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mingling-server/internal/middleware"
	"mingling-server/internal/service"
	"mingling-server/pkg/response"
)

// 哨兵错误到业务状态码的映射，未列出的按 Kind 取通用状态码
var sentinelCodes = []struct {
	err  error
	code int
}{
	{service.ErrUserNotFound, response.CodeUserNotFound},
	{service.ErrUserDisabled, response.CodeUserDisabled},
	{service.ErrCharacterNotFound, response.CodeCharacterNotFound},
	{service.ErrAccessCodeRequired, response.CodeAccessCodeRequired},
	{service.ErrPersonaNotFound, response.CodePersonaNotFound},
	{service.ErrChatInProgress, response.CodeChatInProgress},
	{service.ErrReplyUnavailable, response.CodeReplyUnavailable},
}

// handleServiceError 把服务层错误写成统一的错误响应
// 参数:
//   - c: Gin 上下文
//   - err: 服务层返回的错误
func handleServiceError(c *gin.Context, err error) {
	// 记录到上下文，由日志中间件输出
	_ = c.Error(err)

	status, code := statusForKind(service.KindOf(err))
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			code = s.code
			break
		}
	}

	message := "Internal server error"
	details := ""
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Reason
		if svcErr.Err != nil {
			details = svcErr.Err.Error()
		}
	}

	response.Error(c, status, code, message, details)
}

func statusForKind(kind service.Kind) (int, int) {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound, response.CodeNotFound
	case service.KindInvalidInput:
		return http.StatusBadRequest, response.CodeBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized, response.CodeUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden, response.CodeForbidden
	case service.KindConflict:
		return http.StatusConflict, response.CodeConflict
	case service.KindUnavailable:
		return http.StatusServiceUnavailable, response.CodeUnavailable
	case service.KindPersistence:
		return http.StatusInternalServerError, response.CodePersistence
	default:
		return http.StatusInternalServerError, response.CodeInternalError
	}
}

// parseIDParam 解析路径中的正整数 ID
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt 解析可选的整数查询参数，缺省或非法时返回 0
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// requireUser 获取当前登录用户，未登录时写 401
func requireUser(c *gin.Context) (int64, bool) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "Please sign in first")
		return 0, false
	}
	return userID, true
}

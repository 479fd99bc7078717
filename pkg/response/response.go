// Package response 提供统一的 HTTP 响应格式
// 成功时直接返回数据本身，失败时返回 {error, details, code}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody 错误响应结构
// error: 错误描述
// details: 附加信息，可选
// code: 业务状态码
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

// 业务状态码定义
const (
	CodeBadRequest         = 1000 // 请求参数错误
	CodeUnauthorized       = 1001 // 未授权
	CodeForbidden          = 1002 // 禁止访问
	CodeNotFound           = 1003 // 资源不存在
	CodeInternalError      = 1004 // 服务器内部错误
	CodeConflict           = 1005 // 并发冲突
	CodeUnavailable        = 1006 // 依赖服务不可用
	CodePersistence        = 1007 // 数据库读写失败
	CodeUserNotFound       = 1102 // 用户不存在
	CodeUserDisabled       = 1103 // 用户已被禁用
	CodeCharacterNotFound  = 1201 // 角色不存在
	CodeAccessCodeRequired = 1202 // 私有角色需要访问码
	CodePersonaNotFound    = 1301 // persona 不存在
	CodeChatInProgress     = 1401 // 同一组合的对话正在处理
	CodeReplyUnavailable   = 1402 // 回复生成不可用
)

// Success 返回 200 和数据
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 返回 201 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent 返回 204 无内容响应（用于删除操作）
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 返回错误响应
// 参数:
//   - c: Gin 上下文
//   - httpCode: HTTP 状态码
//   - bizCode: 业务状态码
//   - message: 错误信息
//   - details: 附加信息，可为空
func Error(c *gin.Context, httpCode, bizCode int, message, details string) {
	c.JSON(httpCode, ErrorBody{
		Error:   message,
		Details: details,
		Code:    bizCode,
	})
}

// BadRequest 返回 400 错误（请求参数错误）
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message, "")
}

// Unauthorized 返回 401 错误（未授权）
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message, "")
}

// Forbidden 返回 403 错误（禁止访问）
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, message, "")
}

// NotFound 返回 404 错误（资源不存在）
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message, "")
}

// InternalError 返回 500 错误（服务器内部错误）
func InternalError(c *gin.Context, message, details string) {
	Error(c, http.StatusInternalServerError, CodeInternalError, message, details)
}

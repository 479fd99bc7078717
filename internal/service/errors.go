// Package service 提供业务逻辑层的实现
// 服务层封装具体的业务逻辑，协调 Repository、Cache 和大模型
package service

import (
	"errors"
	"fmt"
)

// Kind 业务错误分类，Handler 据此选择 HTTP 状态码
type Kind int

const (
	KindInternal     Kind = iota // 未分类的内部错误
	KindNotFound                 // 资源不存在
	KindInvalidInput             // 请求参数错误
	KindUnauthorized             // 未认证
	KindForbidden                // 无权访问
	KindConflict                 // 并发冲突
	KindUnavailable              // 依赖服务（大模型等）不可用
	KindPersistence              // 数据库读写失败
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// Error 服务层统一的错误类型
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类同原因的错误视为相等，便于和下面的哨兵错误比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// persistenceError 包装数据库错误
func persistenceError(op string, err error) *Error {
	return newError(KindPersistence, "failed to "+op, err)
}

// KindOf 返回错误的分类，非 *Error 一律视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// 定义业务错误
var (
	ErrUserNotFound       = newError(KindNotFound, "user not found", nil)
	ErrUserDisabled       = newError(KindForbidden, "user is disabled", nil)
	ErrCharacterNotFound  = newError(KindNotFound, "character not found", nil)
	ErrPersonaNotFound    = newError(KindNotFound, "persona not found", nil)
	ErrNotOwner           = newError(KindForbidden, "you do not own this resource", nil)
	ErrAccessCodeRequired = newError(KindForbidden, "a valid access code is required for this character", nil)
	ErrChatInProgress     = newError(KindConflict, "another message to this character is still being processed", nil)
	ErrReplyUnavailable   = newError(KindUnavailable, "reply generation is unavailable", nil)
	ErrEmptyMessage       = newError(KindInvalidInput, "message is required", nil)
	ErrNameRequired       = newError(KindInvalidInput, "name is required", nil)
	ErrInvalidGender      = newError(KindInvalidInput, "gender must be one of male, female, unspecified", nil)
	ErrInvalidToken       = newError(KindUnauthorized, "invalid or expired token", nil)
)

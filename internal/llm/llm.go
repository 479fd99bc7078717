// Package llm 封装对 OpenAI 兼容聊天补全接口的调用
package llm

import (
	"context"
	"errors"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion 模型没有返回任何内容
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Message 一条对话消息
type Message struct {
	Role    string
	Content string
}

// Request 一次补全请求
// MaxTokens 为 0 时不限制；Temperature 为 nil 时使用服务端默认值
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int64
	Temperature *float64
}

// Client 聊天补全客户端
// 输入有序消息列表，返回一段文本
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Float 返回 float64 指针，便于构造 Request
func Float(v float64) *float64 {
	return &v
}

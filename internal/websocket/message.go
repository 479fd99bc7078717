// Package websocket 提供 WebSocket 通信功能
// 向已登录的客户端实时推送好感度变化
package websocket

import (
	"time"

	"mingling-server/internal/service"
)

// MessageType 消息类型常量
const (
	// 客户端 → 服务端
	TypeHeartbeat = "heartbeat" // 心跳

	// 服务端 → 客户端
	TypeAffectionUpdate = "affection:update" // 一轮对话后的好感度变化

	// 通用
	TypeError = "error" // 错误消息
	TypePong  = "pong"  // 心跳响应
)

// Message WebSocket 消息结构
// 所有消息都使用这个统一的结构
type Message struct {
	Type      string      `json:"type"`                // 消息类型
	Payload   interface{} `json:"payload,omitempty"`   // 消息内容
	Timestamp int64       `json:"timestamp"`           // 时间戳（毫秒）
	MessageID string      `json:"messageId,omitempty"` // 消息ID，用于追踪
}

// NewMessage 创建新消息
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewMessageWithID 创建带消息ID的新消息
func NewMessageWithID(msgType string, payload interface{}, messageID string) *Message {
	msg := NewMessage(msgType, payload)
	msg.MessageID = messageID
	return msg
}

// ==================== Payload 类型定义 ====================

// AffectionUpdatePayload 好感度变化 Payload
type AffectionUpdatePayload = service.AffectionUpdate

// ErrorPayload 错误 Payload
type ErrorPayload struct {
	Message string `json:"message"`
}

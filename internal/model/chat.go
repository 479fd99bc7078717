package model

import "time"

// ChatMessage 对话消息
// 对应数据库表 character_chats
// 只追加不修改，按 (created_at, id) 排序
type ChatMessage struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	PersonaID   int64 `gorm:"not null;index:idx_chat_pair,priority:1" json:"persona_id"`
	CharacterID int64 `gorm:"not null;index:idx_chat_pair,priority:2" json:"character_id"`

	Message string `gorm:"type:text;not null" json:"message"`

	// IsUserMessage 是否为用户发送的消息
	IsUserMessage bool `gorm:"not null" json:"is_user_message"`

	// AffectionChange 该轮带来的好感度变化，用户消息恒为 0
	AffectionChange int `gorm:"not null;default:0" json:"affection_change"`

	CreatedAt time.Time `gorm:"index:idx_chat_pair,priority:3" json:"created_at"`
}

// TableName 指定表名
func (ChatMessage) TableName() string {
	return "character_chats"
}

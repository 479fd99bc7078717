package model

import "time"

// 好感度取值范围与初始值
const (
	MinAffectionScore     = 0
	MaxAffectionScore     = 100
	InitialAffectionScore = 50
)

// Relationship persona 与角色之间的关系
// 对应数据库表 persona_character_relationships
// (persona_id, character_id) 唯一，首次对话时创建，对话流程中不会删除
type Relationship struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	PersonaID   int64 `gorm:"not null;uniqueIndex:idx_persona_character" json:"persona_id"`
	CharacterID int64 `gorm:"not null;uniqueIndex:idx_persona_character;index" json:"character_id"`

	// AffectionScore 好感度，闭区间 [0,100]
	AffectionScore int `gorm:"not null" json:"affection_score"`

	// TotalMessages 已完成的对话轮数，每轮 +1
	TotalMessages int `gorm:"not null;default:0" json:"total_messages"`

	LastInteraction *time.Time `json:"last_interaction,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Relationship) TableName() string {
	return "persona_character_relationships"
}

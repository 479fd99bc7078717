package repository

import (
	"context"

	"gorm.io/gorm"

	"mingling-server/internal/model"
)

// ChatRepository 对话消息数据访问层
// 消息只追加，不提供修改操作
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建 ChatRepository 实例
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateExchange 按顺序写入一轮对话（用户消息在前，角色回复在后）
// 参数:
//   - ctx: 上下文
//   - userMsg: 用户消息
//   - replyMsg: 角色回复
//
// 返回:
//   - error: 数据库错误
func (r *ChatRepository) CreateExchange(ctx context.Context, userMsg, replyMsg *model.ChatMessage) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(userMsg).Error; err != nil {
		return err
	}
	return db.Create(replyMsg).Error
}

// GetLatest 获取一对 persona/角色 最新的 N 条消息
// 参数:
//   - ctx: 上下文
//   - personaID: persona ID
//   - characterID: 角色 ID
//   - limit: 要获取的消息数量
//
// 返回:
//   - []model.ChatMessage: 消息列表（按时间正序）
//   - error: 数据库错误
func (r *ChatRepository) GetLatest(ctx context.Context, personaID, characterID int64, limit int) ([]model.ChatMessage, error) {
	messages := make([]model.ChatMessage, 0, limit)
	if limit <= 0 {
		return messages, nil
	}

	// 子查询：先按时间倒序取最新的 N 条
	// 外层查询再按时间正序排列
	subQuery := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("persona_id = ? AND character_id = ?", personaID, characterID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	err := r.db.WithContext(ctx).
		Table("(?) as t", subQuery).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error

	return messages, err
}

// Count 统计一对 persona/角色 的消息数量
func (r *ChatRepository) Count(ctx context.Context, personaID, characterID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("persona_id = ? AND character_id = ?", personaID, characterID).
		Count(&count).Error
	return count, err
}

// DeleteByCharacter 删除角色的全部对话（仅用于硬删除角色）
func (r *ChatRepository) DeleteByCharacter(ctx context.Context, characterID int64) error {
	return r.db.WithContext(ctx).Where("character_id = ?", characterID).Delete(&model.ChatMessage{}).Error
}

// DeleteByPersona 删除 persona 的全部对话
func (r *ChatRepository) DeleteByPersona(ctx context.Context, personaID int64) error {
	return r.db.WithContext(ctx).Where("persona_id = ?", personaID).Delete(&model.ChatMessage{}).Error
}

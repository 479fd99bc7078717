package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mingling-server/internal/model"
)

// RelationshipRepository persona 与角色关系的数据访问层
type RelationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository 创建 RelationshipRepository 实例
func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// Get 获取关系，不存在返回 nil
func (r *RelationshipRepository) Get(ctx context.Context, personaID, characterID int64) (*model.Relationship, error) {
	return r.get(r.db.WithContext(ctx), personaID, characterID)
}

// GetForUpdate 获取关系并加行锁（SELECT ... FOR UPDATE）
// 必须在事务中调用，锁在事务结束时释放
func (r *RelationshipRepository) GetForUpdate(ctx context.Context, personaID, characterID int64) (*model.Relationship, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), personaID, characterID)
}

func (r *RelationshipRepository) get(db *gorm.DB, personaID, characterID int64) (*model.Relationship, error) {
	var rel model.Relationship
	err := db.Where("persona_id = ? AND character_id = ?", personaID, characterID).First(&rel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

// InsertIfAbsent 插入关系，唯一键冲突时什么也不做
// 参数:
//   - ctx: 上下文
//   - rel: 要插入的关系
//
// 返回:
//   - bool: 是否由本次调用插入
//   - error: 数据库错误（不包括唯一键冲突）
func (r *RelationshipRepository) InsertIfAbsent(ctx context.Context, rel *model.Relationship) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "persona_id"}, {Name: "character_id"}},
			DoNothing: true,
		}).
		Create(rel)
	if result.Error != nil {
		// 部分驱动在并发插入时仍可能返回唯一键冲突
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ApplyScore 写入新的好感度，并累加对话轮数、刷新最后互动时间
func (r *RelationshipRepository) ApplyScore(ctx context.Context, id int64, score int, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Relationship{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"affection_score":  score,
			"total_messages":   gorm.Expr("total_messages + ?", 1),
			"last_interaction": at,
			"updated_at":       at,
		}).Error
}

// DeleteByCharacter 删除角色的所有关系（仅用于硬删除角色）
func (r *RelationshipRepository) DeleteByCharacter(ctx context.Context, characterID int64) error {
	return r.db.WithContext(ctx).Where("character_id = ?", characterID).Delete(&model.Relationship{}).Error
}

// DeleteByPersona 删除 persona 的所有关系（仅用于删除 persona）
func (r *RelationshipRepository) DeleteByPersona(ctx context.Context, personaID int64) error {
	return r.db.WithContext(ctx).Where("persona_id = ?", personaID).Delete(&model.Relationship{}).Error
}

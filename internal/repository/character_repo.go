package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mingling-server/internal/model"
)

// CharacterFilter 角色列表查询条件
type CharacterFilter struct {
	ViewerID  int64   // 当前用户，0 表示匿名
	Category  string  // 分类
	Gender    string  // 性别
	OwnerID   *int64  // 只看某个作者的角色
	IsPrivate *bool   // nil 表示公开角色 + 自己的角色
	Offset    int
	Limit     int
}

// CharacterRepository 角色数据访问层
type CharacterRepository struct {
	db *gorm.DB
}

// NewCharacterRepository 创建 CharacterRepository 实例
func NewCharacterRepository(db *gorm.DB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Create 创建角色
func (r *CharacterRepository) Create(ctx context.Context, character *model.Character) error {
	return r.db.WithContext(ctx).Create(character).Error
}

// GetByID 根据 ID 获取角色（包括已停用的）
// 返回:
//   - *model.Character: 角色，未找到返回 nil
//   - error: 数据库错误
func (r *CharacterRepository) GetByID(ctx context.Context, id int64) (*model.Character, error) {
	var character model.Character
	err := r.db.WithContext(ctx).First(&character, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &character, nil
}

// GetActiveByID 获取未停用的角色
func (r *CharacterRepository) GetActiveByID(ctx context.Context, id int64) (*model.Character, error) {
	var character model.Character
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&character).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &character, nil
}

// List 分页查询可见的角色
// 私有角色只对作者可见
// 返回:
//   - []model.Character: 角色列表，按创建时间倒序
//   - int64: 满足条件的总数
//   - error: 数据库错误
func (r *CharacterRepository) List(ctx context.Context, filter CharacterFilter) ([]model.Character, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Character{}).Where("is_active = ?", true)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Gender != "" {
		query = query.Where("gender = ?", filter.Gender)
	}
	if filter.OwnerID != nil {
		query = query.Where("user_id = ?", *filter.OwnerID)
	}

	switch {
	case filter.IsPrivate != nil && *filter.IsPrivate:
		query = query.Where("is_private = ? AND user_id = ?", true, filter.ViewerID)
	case filter.IsPrivate != nil:
		query = query.Where("is_private = ?", false)
	default:
		query = query.Where("(is_private = ? OR user_id = ?)", false, filter.ViewerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var characters []model.Character
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&characters).Error
	return characters, total, err
}

// UpdateFields 更新角色的指定字段
func (r *CharacterRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Character{}).Where("id = ?", id).Updates(fields).Error
}

// Deactivate 软删除角色
func (r *CharacterRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.Character{}).Where("id = ?", id).Update("is_active", false).Error
}

// Delete 硬删除角色
// 调用方负责在同一事务中清理关系和对话记录
func (r *CharacterRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Character{}, id).Error
}

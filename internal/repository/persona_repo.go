package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mingling-server/internal/model"
)

// PersonaRepository persona 数据访问层
type PersonaRepository struct {
	db *gorm.DB
}

// NewPersonaRepository 创建 PersonaRepository 实例
func NewPersonaRepository(db *gorm.DB) *PersonaRepository {
	return &PersonaRepository{db: db}
}

// Create 创建 persona
func (r *PersonaRepository) Create(ctx context.Context, persona *model.Persona) error {
	return r.db.WithContext(ctx).Create(persona).Error
}

// GetByID 根据 ID 获取 persona，未找到返回 nil
func (r *PersonaRepository) GetByID(ctx context.Context, id int64) (*model.Persona, error) {
	var persona model.Persona
	err := r.db.WithContext(ctx).First(&persona, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &persona, nil
}

// ListByUser 分页获取用户的 persona
// 默认 persona 排在最前，其余按创建时间倒序
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - offset: 偏移量
//   - limit: 数量，调用方可以多取一条来判断是否还有下一页
//
// 返回:
//   - []model.Persona: persona 列表
//   - error: 数据库错误
func (r *PersonaRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]model.Persona, error) {
	var personas []model.Persona
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&personas).Error
	return personas, err
}

// GetDefault 获取用户的默认 persona，没有返回 nil
func (r *PersonaRepository) GetDefault(ctx context.Context, userID int64) (*model.Persona, error) {
	var persona model.Persona
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		Order("id ASC").
		First(&persona).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &persona, nil
}

// ClearDefault 取消用户所有 persona 的默认标记
// 需要和 SetDefault 放在同一个事务里
func (r *PersonaRepository) ClearDefault(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Persona{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

// SetDefault 把指定 persona 标记为默认
func (r *PersonaRepository) SetDefault(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.Persona{}).Where("id = ?", id).Update("is_default", true).Error
}

// UpdateFields 更新 persona 的指定字段
func (r *PersonaRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Persona{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 删除 persona
func (r *PersonaRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Persona{}, id).Error
}

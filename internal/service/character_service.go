package service

import (
	"context"
	"strings"

	"gorm.io/datatypes"

	"mingling-server/internal/model"
	"mingling-server/internal/repository"
	"mingling-server/pkg/util"
)

// 角色列表分页参数
const (
	defaultCharacterPageSize = 20
	maxCharacterPageSize     = 100
)

// CharacterService 角色服务
// 处理角色的创建、查询、修改和删除
type CharacterService struct {
	store *repository.Store
}

// NewCharacterService 创建 CharacterService 实例
func NewCharacterService(store *repository.Store) *CharacterService {
	return &CharacterService{store: store}
}

// CharacterInput 创建/更新角色的请求
// 更新时 nil 字段保持不变
type CharacterInput struct {
	Name              *string   `json:"name"`
	Description       *string   `json:"description"`
	Personality       *string   `json:"personality"`
	BackgroundInfo    *string   `json:"background_info"`
	AvatarURL         *string   `json:"avatar_url"`
	Age               *int      `json:"age"`
	Occupation        *string   `json:"occupation"`
	Gender            *string   `json:"gender"`
	OneLiner          *string   `json:"one_liner"`
	Category          *string   `json:"category"`
	Habits            *string   `json:"habits"`
	Hashtags          *[]string `json:"hashtags"`
	FirstSceneSetting *string   `json:"first_scene_setting"`
	ChatEnding        *string   `json:"chat_ending"`
	IsPrivate         *bool     `json:"is_private"`
	AccessCode        *string   `json:"access_code"` // 空字符串表示清除访问码
}

// ListCharactersQuery 角色列表查询参数
type ListCharactersQuery struct {
	Category  string
	Gender    string
	OwnerID   *int64
	IsPrivate *bool
	Page      int
	Limit     int
}

// CharacterListResult 角色列表
type CharacterListResult struct {
	Characters []model.Character `json:"characters"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

// List 分页获取当前用户可见的角色
func (s *CharacterService) List(ctx context.Context, viewerID int64, q ListCharactersQuery) (*CharacterListResult, error) {
	if q.Gender != "" && !model.Gender(q.Gender).Valid() {
		return nil, ErrInvalidGender
	}
	page, limit := normalizePage(q.Page, q.Limit, defaultCharacterPageSize, maxCharacterPageSize)

	characters, total, err := s.store.Characters.List(ctx, repository.CharacterFilter{
		ViewerID:  viewerID,
		Category:  q.Category,
		Gender:    q.Gender,
		OwnerID:   q.OwnerID,
		IsPrivate: q.IsPrivate,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	})
	if err != nil {
		return nil, persistenceError("list characters", err)
	}
	if characters == nil {
		characters = []model.Character{}
	}

	return &CharacterListResult{Characters: characters, Total: total, Page: page, Limit: limit}, nil
}

// Create 创建角色
// 参数:
//   - ctx: 上下文
//   - userID: 作者
//   - in: 角色内容，名称必填
//
// 返回:
//   - *model.Character: 新建的角色
//   - error: 参数错误或数据库错误
func (s *CharacterService) Create(ctx context.Context, userID int64, in *CharacterInput) (*model.Character, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, ErrNameRequired
	}

	character := &model.Character{
		UserID:   userID,
		Gender:   model.GenderUnspecified,
		IsActive: true,
	}
	if err := applyCharacterInput(character, in); err != nil {
		return nil, err
	}

	if err := s.store.Characters.Create(ctx, character); err != nil {
		return nil, persistenceError("create character", err)
	}
	return character, nil
}

// Get 获取角色详情
// 私有角色只有作者可以查看，其他人看到的是 NotFound
func (s *CharacterService) Get(ctx context.Context, viewerID, id int64) (*model.Character, error) {
	character, err := s.store.Characters.GetActiveByID(ctx, id)
	if err != nil {
		return nil, persistenceError("load character", err)
	}
	if character == nil || (character.IsPrivate && character.UserID != viewerID) {
		return nil, ErrCharacterNotFound
	}
	return character, nil
}

// Update 更新角色，只有作者可以操作
func (s *CharacterService) Update(ctx context.Context, userID, id int64, in *CharacterInput) (*model.Character, error) {
	character, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, ErrNameRequired
	}
	if err := applyCharacterInput(character, in); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"name":                character.Name,
		"description":         character.Description,
		"personality":         character.Personality,
		"background_info":     character.BackgroundInfo,
		"avatar_url":          character.AvatarURL,
		"age":                 character.Age,
		"occupation":          character.Occupation,
		"gender":              character.Gender,
		"one_liner":           character.OneLiner,
		"category":            character.Category,
		"habits":              character.Habits,
		"hashtags":            character.Hashtags,
		"first_scene_setting": character.FirstSceneSetting,
		"chat_ending":         character.ChatEnding,
		"is_private":          character.IsPrivate,
		"access_code_hash":    character.AccessCodeHash,
	}
	if err := s.store.Characters.UpdateFields(ctx, id, fields); err != nil {
		return nil, persistenceError("update character", err)
	}

	updated, err := s.store.Characters.GetByID(ctx, id)
	if err != nil {
		return nil, persistenceError("load character", err)
	}
	if updated == nil {
		return nil, ErrCharacterNotFound
	}
	return updated, nil
}

// Delete 删除角色，只有作者可以操作
// 默认软删除；hard 为 true 时在同一事务中删除角色、关系和对话记录
func (s *CharacterService) Delete(ctx context.Context, userID, id int64, hard bool) error {
	character, err := s.store.Characters.GetByID(ctx, id)
	if err != nil {
		return persistenceError("load character", err)
	}
	if character == nil {
		return ErrCharacterNotFound
	}
	if character.UserID != userID {
		return ErrNotOwner
	}

	if !hard {
		if err := s.store.Characters.Deactivate(ctx, id); err != nil {
			return persistenceError("deactivate character", err)
		}
		return nil
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Chats.DeleteByCharacter(ctx, id); err != nil {
			return err
		}
		if err := tx.Relationships.DeleteByCharacter(ctx, id); err != nil {
			return err
		}
		return tx.Characters.Delete(ctx, id)
	})
	if err != nil {
		return persistenceError("delete character", err)
	}
	return nil
}

// loadOwned 加载当前用户创作的、未停用的角色
func (s *CharacterService) loadOwned(ctx context.Context, userID, id int64) (*model.Character, error) {
	character, err := s.store.Characters.GetActiveByID(ctx, id)
	if err != nil {
		return nil, persistenceError("load character", err)
	}
	if character == nil {
		return nil, ErrCharacterNotFound
	}
	if character.UserID != userID {
		return nil, ErrNotOwner
	}
	return character, nil
}

// applyCharacterInput 把非 nil 的字段写入角色
func applyCharacterInput(c *model.Character, in *CharacterInput) error {
	if in.Gender != nil {
		g := model.Gender(strings.TrimSpace(*in.Gender))
		if g == "" {
			g = model.GenderUnspecified
		}
		if !g.Valid() {
			return ErrInvalidGender
		}
		c.Gender = g
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	setString(&c.Description, in.Description)
	setString(&c.Personality, in.Personality)
	setString(&c.BackgroundInfo, in.BackgroundInfo)
	setString(&c.AvatarURL, in.AvatarURL)
	setString(&c.Occupation, in.Occupation)
	setString(&c.OneLiner, in.OneLiner)
	setString(&c.Category, in.Category)
	setString(&c.Habits, in.Habits)
	setString(&c.FirstSceneSetting, in.FirstSceneSetting)
	setString(&c.ChatEnding, in.ChatEnding)
	if in.Age != nil {
		c.Age = in.Age
	}
	if in.Hashtags != nil {
		c.Hashtags = datatypes.JSONSlice[string](*in.Hashtags)
	}
	if in.IsPrivate != nil {
		c.IsPrivate = *in.IsPrivate
	}
	if in.AccessCode != nil {
		if *in.AccessCode == "" {
			c.AccessCodeHash = ""
		} else {
			hash, err := util.HashAccessCode(*in.AccessCode)
			if err != nil {
				return newError(KindInternal, "failed to hash access code", err)
			}
			c.AccessCodeHash = hash
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// normalizePage 规范化分页参数，page 从 1 开始
func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

package service

import (
	"context"
	"strings"

	"mingling-server/internal/model"
	"mingling-server/internal/repository"
)

// persona 列表分页参数
const (
	defaultPersonaPageSize = 20
	maxPersonaPageSize     = 50
)

// PersonaService persona 服务
// 每个用户最多一个默认 persona，切换默认在事务中完成
type PersonaService struct {
	store *repository.Store
}

// NewPersonaService 创建 PersonaService 实例
func NewPersonaService(store *repository.Store) *PersonaService {
	return &PersonaService{store: store}
}

// PersonaInput 创建/更新 persona 的请求，nil 字段保持不变
type PersonaInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
	IsDefault   *bool   `json:"is_default"`
	Age         *int    `json:"age"`
	Occupation  *string `json:"occupation"`
	Gender      *string `json:"gender"`
	BasicInfo   *string `json:"basic_info"`
	Habits      *string `json:"habits"`
}

// Pagination 分页信息
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
	Total   int  `json:"total"` // 本页条数
}

// PersonaListResult persona 列表
type PersonaListResult struct {
	Personas   []model.Persona `json:"personas"`
	Pagination Pagination      `json:"pagination"`
}

// List 分页获取用户的 persona，默认 persona 在最前
// 多取一条来判断是否还有下一页
func (s *PersonaService) List(ctx context.Context, userID int64, page, limit int) (*PersonaListResult, error) {
	page, limit = normalizePage(page, limit, defaultPersonaPageSize, maxPersonaPageSize)

	personas, err := s.store.Personas.ListByUser(ctx, userID, (page-1)*limit, limit+1)
	if err != nil {
		return nil, persistenceError("list personas", err)
	}

	hasMore := len(personas) > limit
	if hasMore {
		personas = personas[:limit]
	}
	if personas == nil {
		personas = []model.Persona{}
	}

	return &PersonaListResult{
		Personas: personas,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			HasMore: hasMore,
			Total:   len(personas),
		},
	}, nil
}

// Create 创建 persona
// is_default 为 true 时，在同一事务中取消之前的默认 persona
func (s *PersonaService) Create(ctx context.Context, userID int64, in *PersonaInput) (*model.Persona, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, ErrNameRequired
	}

	persona := &model.Persona{UserID: userID, Gender: model.GenderUnspecified}
	if err := applyPersonaInput(persona, in); err != nil {
		return nil, err
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if persona.IsDefault {
			if err := tx.Users.LockByID(ctx, userID); err != nil {
				return err
			}
			if err := tx.Personas.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return tx.Personas.Create(ctx, persona)
	})
	if err != nil {
		return nil, persistenceError("create persona", err)
	}
	return persona, nil
}

// GetDefault 获取默认 persona，没有时自动创建 "Me"
// 创建在用户行锁下进行，并发调用只会产生一个默认 persona
func (s *PersonaService) GetDefault(ctx context.Context, userID int64) (*model.Persona, error) {
	persona, err := s.store.Personas.GetDefault(ctx, userID)
	if err != nil {
		return nil, persistenceError("load default persona", err)
	}
	if persona != nil {
		return persona, nil
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Users.LockByID(ctx, userID); err != nil {
			return err
		}
		// 拿到锁后重新读取，另一个请求可能已经创建
		existing, err := tx.Personas.GetDefault(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			persona = existing
			return nil
		}

		persona = &model.Persona{
			UserID:      userID,
			Name:        model.DefaultPersonaName,
			Description: model.DefaultPersonaDescription,
			IsDefault:   true,
			Gender:      model.GenderUnspecified,
		}
		return tx.Personas.Create(ctx, persona)
	})
	if err != nil {
		return nil, persistenceError("create default persona", err)
	}
	return persona, nil
}

// Get 获取 persona，只能查看自己的
func (s *PersonaService) Get(ctx context.Context, userID, id int64) (*model.Persona, error) {
	persona, err := s.store.Personas.GetByID(ctx, id)
	if err != nil {
		return nil, persistenceError("load persona", err)
	}
	if persona == nil || persona.UserID != userID {
		return nil, ErrPersonaNotFound
	}
	return persona, nil
}

// Update 更新 persona
func (s *PersonaService) Update(ctx context.Context, userID, id int64, in *PersonaInput) (*model.Persona, error) {
	persona, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, ErrNameRequired
	}
	wasDefault := persona.IsDefault
	if err := applyPersonaInput(persona, in); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"name":        persona.Name,
		"description": persona.Description,
		"avatar_url":  persona.AvatarURL,
		"age":         persona.Age,
		"occupation":  persona.Occupation,
		"gender":      persona.Gender,
		"basic_info":  persona.BasicInfo,
		"habits":      persona.Habits,
		"is_default":  persona.IsDefault,
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if persona.IsDefault && !wasDefault {
			if err := tx.Users.LockByID(ctx, userID); err != nil {
				return err
			}
			if err := tx.Personas.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return tx.Personas.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		return nil, persistenceError("update persona", err)
	}
	return s.Get(ctx, userID, id)
}

// SetDefault 把指定 persona 设为默认
func (s *PersonaService) SetDefault(ctx context.Context, userID, id int64) (*model.Persona, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		// 同一用户的默认 persona 变更串行执行
		if err := tx.Users.LockByID(ctx, userID); err != nil {
			return err
		}
		if err := tx.Personas.ClearDefault(ctx, userID); err != nil {
			return err
		}
		return tx.Personas.SetDefault(ctx, id)
	})
	if err != nil {
		return nil, persistenceError("set default persona", err)
	}
	return s.Get(ctx, userID, id)
}

// Delete 删除 persona 以及它的关系和对话记录
func (s *PersonaService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Chats.DeleteByPersona(ctx, id); err != nil {
			return err
		}
		if err := tx.Relationships.DeleteByPersona(ctx, id); err != nil {
			return err
		}
		return tx.Personas.Delete(ctx, id)
	})
	if err != nil {
		return persistenceError("delete persona", err)
	}
	return nil
}

func applyPersonaInput(p *model.Persona, in *PersonaInput) error {
	if in.Gender != nil {
		g := model.Gender(strings.TrimSpace(*in.Gender))
		if g == "" {
			g = model.GenderUnspecified
		}
		if !g.Valid() {
			return ErrInvalidGender
		}
		p.Gender = g
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	setString(&p.Description, in.Description)
	setString(&p.AvatarURL, in.AvatarURL)
	setString(&p.Occupation, in.Occupation)
	setString(&p.BasicInfo, in.BasicInfo)
	setString(&p.Habits, in.Habits)
	if in.Age != nil {
		p.Age = in.Age
	}
	if in.IsDefault != nil {
		p.IsDefault = *in.IsDefault
	}
	return nil
}

package service

import (
	"context"
	"strings"

	"mingling-server/internal/model"
	"mingling-server/internal/repository"
)

// UserService 用户服务
// 处理用户信息的查询和更新
type UserService struct {
	userRepo *repository.UserRepository // 用户数据访问层
}

// NewUserService 创建 UserService 实例
func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetProfile 获取用户资料
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//
// 返回:
//   - *model.User: 用户信息
//   - error: 用户不存在返回错误
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, persistenceError("load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfileRequest 更新用户资料请求
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"` // 显示名称
	PhotoURL    *string `json:"photo_url"`    // 头像 URL
}

// UpdateProfile 更新用户资料
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - req: 更新请求
//
// 返回:
//   - *model.User: 更新后的用户信息
//   - error: 操作错误
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*model.User, error) {
	// 1. 获取当前用户信息
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 2. 准备要更新的字段
	fields := make(map[string]interface{})
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, newError(KindInvalidInput, "display name cannot be empty", nil)
		}
		fields["display_name"] = name
	}
	if req.PhotoURL != nil {
		fields["photo_url"] = *req.PhotoURL
	}

	// 3. 如果没有要更新的字段，直接返回
	if len(fields) == 0 {
		return user, nil
	}

	// 4. 更新数据库
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, persistenceError("update user", err)
	}

	// 5. 重新获取更新后的用户信息
	return s.GetProfile(ctx, userID)
}

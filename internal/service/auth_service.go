package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"mingling-server/internal/cache"
	"mingling-server/internal/model"
	"mingling-server/internal/repository"
	"mingling-server/pkg/jwt"
)

// AuthService 认证服务
// 用户身份由 Firebase 在客户端确认，这里负责建档、签发和吊销 Token
type AuthService struct {
	store      *repository.Store // 数据访问层
	cache      *cache.RedisCache // Redis 缓存，可为 nil
	jwtService *jwt.JWTService   // JWT 服务
	now        func() time.Time
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(store *repository.Store, cache *cache.RedisCache, jwtService *jwt.JWTService) *AuthService {
	return &AuthService{
		store:      store,
		cache:      cache,
		jwtService: jwtService,
		now:        time.Now,
	}
}

// FirebaseLoginRequest Firebase 登录请求
type FirebaseLoginRequest struct {
	UID         string  `json:"uid" binding:"required"`
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

// UserInfo 返回给客户端的用户信息
type UserInfo struct {
	ID          int64   `json:"id"`
	UID         string  `json:"uid"`
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
	JamPoints   int     `json:"jamPoints"`
}

// NewUserInfo 从用户模型构建 UserInfo
func NewUserInfo(u *model.User) *UserInfo {
	return &UserInfo{
		ID:          u.ID,
		UID:         u.FirebaseUID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		JamPoints:   u.JamPoints,
	}
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`  // 访问令牌
	RefreshToken string    `json:"refresh_token"` // 刷新令牌
	ExpiresIn    int64     `json:"expires_in"`    // 过期时间（秒）
	User         *UserInfo `json:"user"`          // 用户信息
	IsNewUser    bool      `json:"is_new_user"`
}

// FirebaseLogin 使用 Firebase 身份登录
// 新用户建档并赠送初始积分，老用户刷新资料和最后登录时间
// 参数:
//   - ctx: 上下文
//   - req: Firebase 用户信息
//
// 返回:
//   - *LoginResponse: Token 和用户信息
//   - error: 账号被禁用或数据库错误
func (s *AuthService) FirebaseLogin(ctx context.Context, req *FirebaseLoginRequest) (*LoginResponse, error) {
	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		return nil, newError(KindInvalidInput, "uid is required", nil)
	}

	user, isNew, err := s.upsertUser(ctx, uid, req)
	if err != nil {
		return nil, err
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	resp.IsNewUser = isNew

	slog.InfoContext(ctx, "user signed in", "user_id", user.ID, "new_user", isNew)
	return resp, nil
}

func (s *AuthService) upsertUser(ctx context.Context, uid string, req *FirebaseLoginRequest) (*model.User, bool, error) {
	now := s.now()

	user, err := s.store.Users.GetByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, false, persistenceError("load user", err)
	}

	if user == nil {
		user = &model.User{
			FirebaseUID: uid,
			Email:       req.Email,
			DisplayName: req.DisplayName,
			PhotoURL:    req.PhotoURL,
			JamPoints:   model.InitialJamPoints,
			Status:      model.UserStatusActive,
			LastLogin:   &now,
		}
		err := s.store.Users.Create(ctx, user)
		if err == nil {
			return user, true, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, persistenceError("create user", err)
		}
		// 同一用户并发登录，另一个请求已经建档
		user, err = s.store.Users.GetByFirebaseUID(ctx, uid)
		if err != nil {
			return nil, false, persistenceError("load user", err)
		}
		if user == nil {
			return nil, false, ErrUserNotFound
		}
	}

	fields := map[string]interface{}{"last_login": now}
	if req.Email != nil {
		fields["email"] = req.Email
		user.Email = req.Email
	}
	if req.DisplayName != nil {
		fields["display_name"] = req.DisplayName
		user.DisplayName = req.DisplayName
	}
	if req.PhotoURL != nil {
		fields["photo_url"] = req.PhotoURL
		user.PhotoURL = req.PhotoURL
	}
	if err := s.store.Users.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, false, persistenceError("update user", err)
	}
	user.LastLogin = &now
	return user, false, nil
}

func (s *AuthService) issueTokens(user *model.User) (*LoginResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.FirebaseUID)
	if err != nil {
		return nil, newError(KindInternal, "failed to sign access token", err)
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.FirebaseUID)
	if err != nil {
		return nil, newError(KindInternal, "failed to sign refresh token", err)
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.GetAccessExpire().Seconds()),
		User:         NewUserInfo(user),
	}, nil
}

// RefreshTokenResponse 刷新 Token 响应
type RefreshTokenResponse struct {
	AccessToken string `json:"access_token"` // 新的访问令牌
	ExpiresIn   int64  `json:"expires_in"`   // 过期时间（秒）
}

// RefreshToken 刷新 Access Token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenResponse, error) {
	// 1. 验证 Refresh Token
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, newError(KindUnauthorized, ErrInvalidToken.Reason, err)
	}

	// 2. 检查用户是否仍然存在且正常
	user, err := s.store.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, persistenceError("load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	// 3. 生成新的 Access Token
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.FirebaseUID)
	if err != nil {
		return nil, newError(KindInternal, "failed to sign access token", err)
	}

	return &RefreshTokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtService.GetAccessExpire().Seconds()),
	}, nil
}

// Logout 用户登出
// 将 Token 哈希加入黑名单，TTL 为 Token 剩余有效期
func (s *AuthService) Logout(ctx context.Context, tokenHash string, expireAt time.Time) error {
	if s.cache == nil {
		return newError(KindUnavailable, "token revocation is unavailable", nil)
	}
	if err := s.cache.BlacklistToken(ctx, tokenHash, expireAt); err != nil {
		return newError(KindUnavailable, "failed to revoke token", err)
	}
	return nil
}

// Me 获取当前登录用户
func (s *AuthService) Me(ctx context.Context, userID int64) (*UserInfo, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, persistenceError("load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return NewUserInfo(user), nil
}

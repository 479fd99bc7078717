// Package jwt 提供 JWT Token 的生成和验证功能
// 登录成功后签发 Access Token 和 Refresh Token，HTTP 和 WebSocket 共用
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 定义错误类型
var (
	ErrInvalidToken = errors.New("invalid token")     // Token 无效
	ErrExpiredToken = errors.New("token has expired") // Token 已过期
)

// Token 类型，写在 Subject 里
const (
	SubjectAccess  = "access"
	SubjectRefresh = "refresh"
)

const issuer = "mingling"

// UserClaims 用户 JWT 的声明（Payload）
type UserClaims struct {
	UserID      int64  `json:"user_id"`      // 用户 ID
	FirebaseUID string `json:"firebase_uid"` // 外部身份标识
	jwt.RegisteredClaims
}

// JWTService 提供 JWT 相关操作
type JWTService struct {
	secret        []byte        // JWT 签名密钥
	accessExpire  time.Duration // Access Token 过期时间
	refreshExpire time.Duration // Refresh Token 过期时间
}

// NewJWTService 创建 JWTService 实例
// 参数:
//   - secret: JWT 签名密钥，至少 32 个字符
//   - accessExpire: Access Token 过期时间
//   - refreshExpire: Refresh Token 过期时间
//
// 返回:
//   - *JWTService: JWT 服务实例
func NewJWTService(secret string, accessExpire, refreshExpire time.Duration) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		accessExpire:  accessExpire,
		refreshExpire: refreshExpire,
	}
}

// GenerateAccessToken 生成 Access Token
func (s *JWTService) GenerateAccessToken(userID int64, firebaseUID string) (string, error) {
	return s.generate(userID, firebaseUID, SubjectAccess, s.accessExpire)
}

// GenerateRefreshToken 生成 Refresh Token
func (s *JWTService) GenerateRefreshToken(userID int64, firebaseUID string) (string, error) {
	return s.generate(userID, firebaseUID, SubjectRefresh, s.refreshExpire)
}

func (s *JWTService) generate(userID int64, firebaseUID, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:      userID,
		FirebaseUID: firebaseUID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subject,
			// 同一秒内签发的 Token 也互不相同，登出只吊销当前这个
			ID: uuid.NewString(),
		},
	}

	// 使用 HMAC SHA256 签名
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken 验证 Token 的签名和有效期，不区分类型
// 参数:
//   - tokenString: JWT Token 字符串
//
// 返回:
//   - *UserClaims: Token 中的声明信息
//   - error: ErrExpiredToken 或 ErrInvalidToken
func (s *JWTService) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 确保使用的是我们期望的算法（HMAC）
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken 验证 Access Token
// Refresh Token 不能用来访问接口
func (s *JWTService) ValidateAccessToken(tokenString string) (*UserClaims, error) {
	return s.validateSubject(tokenString, SubjectAccess)
}

// ValidateRefreshToken 验证 Refresh Token
func (s *JWTService) ValidateRefreshToken(tokenString string) (*UserClaims, error) {
	return s.validateSubject(tokenString, SubjectRefresh)
}

func (s *JWTService) validateSubject(tokenString, subject string) (*UserClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject != subject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetAccessExpire 获取 Access Token 过期时间
func (s *JWTService) GetAccessExpire() time.Duration {
	return s.accessExpire
}

// GetRefreshExpire 获取 Refresh Token 过期时间
func (s *JWTService) GetRefreshExpire() time.Duration {
	return s.refreshExpire
}

// Package util 提供通用工具函数
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashAccessCode 使用 bcrypt 哈希私有角色的访问码
// 参数:
//   - code: 明文访问码
//
// 返回:
//   - string: 哈希值
//   - error: 哈希错误
func HashAccessCode(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckAccessCode 验证访问码是否匹配
func CheckAccessCode(code, hash string) bool {
	if code == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

// HashToken 计算 Token 的 SHA256 哈希
// 黑名单里只保存哈希值，不保存原始 Token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateUUID 生成不含连字符的 UUID v4
func GenerateUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// TruncateString 截断字符串到指定长度（按字符计算）
// 超出时截断并添加 "..."
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// StringPtr 返回字符串的指针
// 用于可选字段的赋值
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr 返回 int64 的指针
func Int64Ptr(i int64) *int64 {
	return &i
}

// IntPtr 返回 int 的指针
func IntPtr(i int) *int {
	return &i
}

// BoolPtr 返回 bool 的指针
func BoolPtr(b bool) *bool {
	return &b
}

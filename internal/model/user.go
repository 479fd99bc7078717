// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// 用户状态
const (
	UserStatusDisabled int8 = 0 // 禁用
	UserStatusActive   int8 = 1 // 正常
)

// InitialJamPoints 新用户赠送的积分
const InitialJamPoints = 1000

// User 用户模型
// 对应数据库表 users
// 用户身份由外部身份提供方（Firebase）确认，这里只保存资料
type User struct {
	// ID 用户唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// FirebaseUID 外部身份提供方的用户标识，全局唯一
	FirebaseUID string `gorm:"column:firebase_uid;size:128;uniqueIndex;not null" json:"firebase_uid"`

	// Email 用户邮箱，可选
	Email *string `gorm:"size:255" json:"email,omitempty"`

	// DisplayName 显示名称
	DisplayName *string `gorm:"size:100" json:"display_name,omitempty"`

	// PhotoURL 头像地址
	PhotoURL *string `gorm:"size:500" json:"photo_url,omitempty"`

	// JamPoints 积分余额
	JamPoints int `gorm:"not null" json:"jam_points"`

	// Status 账号状态
	// 1: 正常
	// 0: 禁用
	Status int8 `gorm:"not null" json:"status"`

	// LastLogin 最后一次登录时间
	LastLogin *time.Time `json:"last_login,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

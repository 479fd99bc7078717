package model

import (
	"time"

	"gorm.io/datatypes"
)

// Gender 性别取值
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

// Valid 判断性别取值是否合法
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnspecified:
		return true
	}
	return false
}

// Character 角色模型
// 对应数据库表 characters
// 由用户创作的 AI 对话角色，默认软删除（IsActive=false）
type Character struct {
	ID     int64 `gorm:"primaryKey" json:"id"`
	UserID int64 `gorm:"index;not null" json:"user_id"`

	Name           string `gorm:"size:100;not null" json:"name"`
	Description    string `gorm:"type:text" json:"description"`
	Personality    string `gorm:"type:text" json:"personality"`
	BackgroundInfo string `gorm:"type:text" json:"background_info"`
	AvatarURL      string `gorm:"size:500" json:"avatar_url"`

	// Age 年龄，可为空
	Age        *int   `json:"age,omitempty"`
	Occupation string `gorm:"size:100" json:"occupation"`
	Gender     Gender `gorm:"size:20;default:unspecified" json:"gender"`

	OneLiner          string                      `gorm:"size:255" json:"one_liner"`
	Category          string                      `gorm:"size:50;index" json:"category"`
	Habits            string                      `gorm:"type:text" json:"habits"`
	Hashtags          datatypes.JSONSlice[string] `json:"hashtags"`
	FirstSceneSetting string                      `gorm:"type:text" json:"first_scene_setting"`
	ChatEnding        string                      `gorm:"type:text" json:"chat_ending"`

	// IsPrivate 私有角色只有作者本人或持有访问码的用户可以对话
	IsPrivate bool `gorm:"not null;default:false;index" json:"is_private"`

	// AccessCodeHash 访问码的 bcrypt 哈希值，永远不要返回给客户端
	AccessCodeHash string `gorm:"size:255" json:"-"`

	IsActive bool `gorm:"not null;index" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Character) TableName() string {
	return "characters"
}

// HasAccessCode 是否设置了访问码
func (c *Character) HasAccessCode() bool {
	return c.AccessCodeHash != ""
}

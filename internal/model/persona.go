package model

import "time"

// DefaultPersonaName 自动创建的默认 persona 名称
const DefaultPersonaName = "Me"

// DefaultPersonaDescription 自动创建的默认 persona 描述
const DefaultPersonaDescription = "나의 기본 페르소나"

// Persona 用户在对话中扮演的身份
// 对应数据库表 personas
// 每个用户最多有一个默认 persona
type Persona struct {
	ID     int64 `gorm:"primaryKey" json:"id"`
	UserID int64 `gorm:"index;not null" json:"user_id"`

	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	AvatarURL   string `gorm:"size:500" json:"avatar_url"`
	IsDefault   bool   `gorm:"not null;default:false" json:"is_default"`

	Age        *int   `json:"age,omitempty"`
	Occupation string `gorm:"size:100" json:"occupation"`
	Gender     Gender `gorm:"size:20;default:unspecified" json:"gender"`
	BasicInfo  string `gorm:"type:text" json:"basic_info"`
	Habits     string `gorm:"type:text" json:"habits"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Persona) TableName() string {
	return "personas"
}

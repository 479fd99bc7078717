package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合所有仓库，并提供事务入口
type Store struct {
	db            *gorm.DB
	Users         *UserRepository
	Characters    *CharacterRepository
	Personas      *PersonaRepository
	Relationships *RelationshipRepository
	Chats         *ChatRepository
}

// NewStore 基于同一个连接（或事务）创建全部仓库
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Characters:    NewCharacterRepository(db),
		Personas:      NewPersonaRepository(db),
		Relationships: NewRelationshipRepository(db),
		Chats:         NewChatRepository(db),
	}
}

// DB 返回底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction 在单个数据库事务中执行 fn
// fn 收到的 Store 上的所有仓库都绑定到该事务，返回错误时整体回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

package service

import (
	"context"
	"errors"
	"time"

	"mingling-server/internal/affection"
	"mingling-server/internal/model"
	"mingling-server/internal/repository"
)

// RelationshipOutcome GetOrCreate 的结果来源
type RelationshipOutcome string

const (
	RelationshipCreated RelationshipOutcome = "created" // 本次调用创建
	RelationshipExisted RelationshipOutcome = "existed" // 已经存在（包括并发请求先创建的情况）
)

// ScoreUpdate 一次好感度更新的前后值
type ScoreUpdate struct {
	PreviousScore   int
	NewScore        int
	TotalMessages   int
	LastInteraction time.Time
}

// RelationshipService 维护 persona 与角色之间的好感度
type RelationshipService struct {
	store *repository.Store
	now   func() time.Time
}

// NewRelationshipService 创建 RelationshipService 实例
func NewRelationshipService(store *repository.Store) *RelationshipService {
	return &RelationshipService{store: store, now: time.Now}
}

// Get 只读查询关系，不存在时返回 nil
func (s *RelationshipService) Get(ctx context.Context, personaID, characterID int64) (*model.Relationship, error) {
	rel, err := s.store.Relationships.Get(ctx, personaID, characterID)
	if err != nil {
		return nil, persistenceError("load relationship", err)
	}
	return rel, nil
}

// GetOrCreate 获取关系，不存在时以初始好感度创建
// 并发调用是安全的：插入冲突时重新读取对方创建的记录
func (s *RelationshipService) GetOrCreate(ctx context.Context, personaID, characterID int64) (*model.Relationship, RelationshipOutcome, error) {
	return getOrCreateRelationship(ctx, s.store, personaID, characterID)
}

func getOrCreateRelationship(ctx context.Context, store *repository.Store, personaID, characterID int64) (*model.Relationship, RelationshipOutcome, error) {
	rel, err := store.Relationships.Get(ctx, personaID, characterID)
	if err != nil {
		return nil, "", persistenceError("load relationship", err)
	}
	if rel != nil {
		return rel, RelationshipExisted, nil
	}

	rel = &model.Relationship{
		PersonaID:      personaID,
		CharacterID:    characterID,
		AffectionScore: model.InitialAffectionScore,
	}
	inserted, err := store.Relationships.InsertIfAbsent(ctx, rel)
	if err != nil {
		return nil, "", persistenceError("create relationship", err)
	}
	if inserted {
		return rel, RelationshipCreated, nil
	}

	// 另一个请求先插入了，读取它的结果
	rel, err = store.Relationships.Get(ctx, personaID, characterID)
	if err != nil {
		return nil, "", persistenceError("load relationship", err)
	}
	if rel == nil {
		return nil, "", persistenceError("load relationship", errors.New("relationship vanished after conflicting insert"))
	}
	return rel, RelationshipExisted, nil
}

// UpdateScore 在独立事务中应用好感度变化
// 参数:
//   - ctx: 上下文
//   - personaID: persona ID
//   - characterID: 角色 ID
//   - delta: 变化量，结果截断到 [0,100]
//
// 返回:
//   - *ScoreUpdate: 更新前后的好感度
//   - error: 数据库错误
func (s *RelationshipService) UpdateScore(ctx context.Context, personaID, characterID int64, delta int) (*ScoreUpdate, error) {
	var update *ScoreUpdate
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		update, err = s.UpdateScoreTx(ctx, tx, personaID, characterID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

// UpdateScoreTx 在调用方的事务中应用好感度变化
// 读取时对关系行加锁，同一组合的并发更新串行执行
func (s *RelationshipService) UpdateScoreTx(ctx context.Context, tx *repository.Store, personaID, characterID int64, delta int) (*ScoreUpdate, error) {
	if _, _, err := getOrCreateRelationship(ctx, tx, personaID, characterID); err != nil {
		return nil, err
	}

	rel, err := tx.Relationships.GetForUpdate(ctx, personaID, characterID)
	if err != nil {
		return nil, persistenceError("lock relationship", err)
	}
	if rel == nil {
		return nil, persistenceError("lock relationship", errors.New("relationship not found"))
	}

	now := s.now()
	newScore := affection.Apply(rel.AffectionScore, delta)
	if err := tx.Relationships.ApplyScore(ctx, rel.ID, newScore, now); err != nil {
		return nil, persistenceError("update affection score", err)
	}

	return &ScoreUpdate{
		PreviousScore:   rel.AffectionScore,
		NewScore:        newScore,
		TotalMessages:   rel.TotalMessages + 1,
		LastInteraction: now,
	}, nil
}

// Level 返回好感度对应的文字分档
func (s *RelationshipService) Level(score int) string {
	return affection.Level(score)
}

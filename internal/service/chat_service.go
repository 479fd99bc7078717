package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mingling-server/internal/affection"
	"mingling-server/internal/cache"
	"mingling-server/internal/config"
	"mingling-server/internal/llm"
	"mingling-server/internal/model"
	"mingling-server/internal/repository"
	"mingling-server/pkg/util"
)

// ReplyOutcome 角色回复的来源
type ReplyOutcome string

const (
	ReplyGenerated ReplyOutcome = "generated" // 大模型生成
	ReplyFallback  ReplyOutcome = "fallback"  // 生成失败，使用固定回复
)

// PairLocker 同一 persona/角色 组合的分布式锁
// *cache.RedisCache 实现了该接口
type PairLocker interface {
	AcquireChatLock(ctx context.Context, personaID, characterID int64, ttl, wait time.Duration) (*cache.ChatLock, error)
	ReleaseChatLock(ctx context.Context, lock *cache.ChatLock) error
}

// AffectionUpdate 一轮对话提交后推送给客户端的好感度变化
type AffectionUpdate struct {
	CharacterID   int64  `json:"characterId"`
	PersonaID     int64  `json:"personaId"`
	Change        int    `json:"change"`
	Reason        string `json:"reason"`
	PreviousScore int    `json:"previousScore"`
	NewScore      int    `json:"newScore"`
	Level         string `json:"level"`
}

// ChatNotifier 对话通知接口
type ChatNotifier interface {
	NotifyAffectionUpdate(userID int64, update AffectionUpdate)
}

// ChatOptions 对话编排参数
type ChatOptions struct {
	ReplyModel          string
	ReplyMaxTokens      int64
	ReplyTemperature    float64
	HistoryLimit        int
	DefaultHistoryLimit int
	MaxHistoryLimit     int
	StrictReply         bool
	FallbackReply       string
	LockTTL             time.Duration
	LockWait            time.Duration
	QueryTimeout        time.Duration
}

const (
	// lockDBSteps 持锁期间的数据库步骤数：读取历史、读取或创建关系、提交
	lockDBSteps = 3
	// lockTTLMargin 重试退避和网络抖动的余量
	lockTTLMargin = 10 * time.Second
)

// MinChatLockTTL 对话锁的最小过期时间
// 锁需要覆盖两次 LLM 调用（回复和好感度分析，各含重试）和持锁期间的数据库操作，
// 否则锁过期后同一对 persona/角色 可能并发写入
func MinChatLockTTL(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.LLM.MaxRetries + 1)
	return 2*attempts*cfg.LLM.RequestTimeout + lockDBSteps*cfg.Database.QueryTimeout + lockTTLMargin
}

// ChatOptionsFromConfig 从应用配置中提取对话编排参数
// lock_ttl 低于 MinChatLockTTL 时按最小值处理
func ChatOptionsFromConfig(cfg *config.Config) ChatOptions {
	lockTTL := max(cfg.Chat.LockTTL, MinChatLockTTL(cfg))

	return ChatOptions{
		ReplyModel:          cfg.LLM.ChatModel,
		ReplyMaxTokens:      cfg.LLM.ReplyMaxTokens,
		ReplyTemperature:    cfg.LLM.ReplyTemperature,
		HistoryLimit:        cfg.Chat.HistoryLimit,
		DefaultHistoryLimit: cfg.Chat.DefaultHistoryLimit,
		MaxHistoryLimit:     cfg.Chat.MaxHistoryLimit,
		StrictReply:         cfg.Chat.StrictReply,
		FallbackReply:       cfg.Chat.FallbackReply,
		LockTTL:             lockTTL,
		LockWait:            cfg.Chat.LockWait,
		QueryTimeout:        cfg.Database.QueryTimeout,
	}
}

// ChatService 对话编排服务
// 串联角色/persona 加载、历史读取、回复生成、好感度分析和持久化
type ChatService struct {
	store         *repository.Store
	relationships *RelationshipService
	llm           llm.Client
	analyzer      *affection.Analyzer
	locker        PairLocker   // 可为 nil，此时不做跨实例串行化
	notifier      ChatNotifier // 对话通知器
	opts          ChatOptions
}

// NewChatService 创建 ChatService 实例
func NewChatService(
	store *repository.Store,
	relationships *RelationshipService,
	client llm.Client,
	analyzer *affection.Analyzer,
	locker PairLocker,
	opts ChatOptions,
) *ChatService {
	return &ChatService{
		store:         store,
		relationships: relationships,
		llm:           client,
		analyzer:      analyzer,
		locker:        locker,
		opts:          opts,
	}
}

// SetNotifier 设置通知器
func (s *ChatService) SetNotifier(n ChatNotifier) {
	s.notifier = n
}

// ChatRequest 发送消息请求
type ChatRequest struct {
	UserID      int64
	CharacterID int64
	PersonaID   int64
	Message     string
	AccessCode  string // 私有角色的访问码，作者本人不需要
}

// AffectionReport 一轮对话后的好感度报告
type AffectionReport struct {
	Change        int    `json:"change"`
	Reason        string `json:"reason"`
	PreviousScore int    `json:"previousScore"`
	NewScore      int    `json:"newScore"`
	Level         string `json:"level"`
}

// ChatResult 发送消息的结果
type ChatResult struct {
	Reply     string          `json:"reply"`
	Affection AffectionReport `json:"affection"`

	ReplyOutcome    ReplyOutcome      `json:"-"`
	AnalysisOutcome affection.Outcome `json:"-"`
}

// Chat 处理一轮对话
// 参数:
//   - ctx: 上下文
//   - req: 对话请求
//
// 返回:
//   - *ChatResult: 角色回复和好感度报告
//   - error: NotFound / Forbidden / Conflict / Unavailable / Persistence
func (s *ChatService) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	// 1. 加载角色和 persona
	character, err := s.loadChatCharacter(ctx, req.UserID, req.CharacterID, req.AccessCode)
	if err != nil {
		return nil, err
	}
	persona, err := s.loadOwnedPersona(ctx, req.UserID, req.PersonaID)
	if err != nil {
		return nil, err
	}

	// 2. 同一组合串行处理
	release, err := s.lockPair(ctx, persona.ID, character.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	// 3. 历史和当前好感度
	history, err := s.latestMessages(ctx, persona.ID, character.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}
	rel, _, err := s.getOrCreateRelationship(ctx, persona.ID, character.ID)
	if err != nil {
		return nil, err
	}

	// 4. 生成回复
	reply, replyOutcome, err := s.generateReply(ctx, character, persona, rel.AffectionScore, history, message)
	if err != nil {
		return nil, err
	}

	// 5. 分析好感度变化，失败时为 0
	analysis := s.analyzer.Analyze(ctx, affection.Input{
		UserMessage: message,
		Reply:       reply,
		Personality: character.Personality,
		History:     history,
	})

	// 6. 两条消息和好感度在同一事务中提交
	update, err := s.commitExchange(ctx, persona.ID, character.ID, message, reply, analysis.Delta)
	if err != nil {
		return nil, err
	}

	report := AffectionReport{
		Change:        analysis.Delta,
		Reason:        analysis.Reason,
		PreviousScore: update.PreviousScore,
		NewScore:      update.NewScore,
		Level:         affection.Level(update.NewScore),
	}

	slog.InfoContext(ctx, "chat exchange committed",
		"user_id", req.UserID,
		"character_id", character.ID,
		"persona_id", persona.ID,
		"reply_outcome", replyOutcome,
		"analysis_outcome", analysis.Outcome,
		"previous_score", report.PreviousScore,
		"new_score", report.NewScore,
	)

	if s.notifier != nil {
		s.notifier.NotifyAffectionUpdate(req.UserID, AffectionUpdate{
			CharacterID:   character.ID,
			PersonaID:     persona.ID,
			Change:        report.Change,
			Reason:        report.Reason,
			PreviousScore: report.PreviousScore,
			NewScore:      report.NewScore,
			Level:         report.Level,
		})
	}

	return &ChatResult{
		Reply:           reply,
		Affection:       report,
		ReplyOutcome:    replyOutcome,
		AnalysisOutcome: analysis.Outcome,
	}, nil
}

// loadChatCharacter 加载可对话的角色
// 私有角色只有作者本人或持有正确访问码的用户可以对话
func (s *ChatService) loadChatCharacter(ctx context.Context, userID, characterID int64, accessCode string) (*model.Character, error) {
	dbCtx, cancel := s.queryContext(ctx)
	defer cancel()

	character, err := s.store.Characters.GetActiveByID(dbCtx, characterID)
	if err != nil {
		return nil, persistenceError("load character", err)
	}
	if character == nil {
		return nil, ErrCharacterNotFound
	}
	if character.IsPrivate && character.UserID != userID && !util.CheckAccessCode(accessCode, character.AccessCodeHash) {
		return nil, ErrAccessCodeRequired
	}
	return character, nil
}

// loadOwnedPersona 加载属于当前用户的 persona，别人的 persona 视为不存在
func (s *ChatService) loadOwnedPersona(ctx context.Context, userID, personaID int64) (*model.Persona, error) {
	dbCtx, cancel := s.queryContext(ctx)
	defer cancel()

	persona, err := s.store.Personas.GetByID(dbCtx, personaID)
	if err != nil {
		return nil, persistenceError("load persona", err)
	}
	if persona == nil || persona.UserID != userID {
		return nil, ErrPersonaNotFound
	}
	return persona, nil
}

// lockPair 获取组合锁，返回释放函数
// Redis 不可用时不加锁继续执行，事务中的行锁仍然保证好感度不丢失更新
func (s *ChatService) lockPair(ctx context.Context, personaID, characterID int64) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	lock, err := s.locker.AcquireChatLock(ctx, personaID, characterID, s.opts.LockTTL, s.opts.LockWait)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return nil, ErrChatInProgress
		}
		if ctx.Err() != nil {
			return nil, newError(KindInternal, "request cancelled", ctx.Err())
		}
		slog.WarnContext(ctx, "chat lock unavailable, continuing without it", "error", err)
		return noop, nil
	}

	return func() {
		// 请求上下文可能已经取消，释放锁使用独立的上下文
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := s.locker.ReleaseChatLock(releaseCtx, lock); err != nil {
			slog.WarnContext(ctx, "failed to release chat lock", "error", err)
		}
	}, nil
}

func (s *ChatService) latestMessages(ctx context.Context, personaID, characterID int64, limit int) ([]model.ChatMessage, error) {
	dbCtx, cancel := s.queryContext(ctx)
	defer cancel()

	history, err := s.store.Chats.GetLatest(dbCtx, personaID, characterID, limit)
	if err != nil {
		return nil, persistenceError("load chat history", err)
	}
	return history, nil
}

func (s *ChatService) getOrCreateRelationship(ctx context.Context, personaID, characterID int64) (*model.Relationship, RelationshipOutcome, error) {
	dbCtx, cancel := s.queryContext(ctx)
	defer cancel()
	return s.relationships.GetOrCreate(dbCtx, personaID, characterID)
}

// generateReply 调用大模型生成角色回复
// 非严格模式下失败时返回固定回复
func (s *ChatService) generateReply(
	ctx context.Context,
	character *model.Character,
	persona *model.Persona,
	score int,
	history []model.ChatMessage,
	message string,
) (string, ReplyOutcome, error) {
	var temperature *float64
	if s.opts.ReplyTemperature > 0 {
		temperature = llm.Float(s.opts.ReplyTemperature)
	}

	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:       s.opts.ReplyModel,
		Messages:    buildReplyMessages(buildSystemPrompt(character, persona, score), history, message),
		MaxTokens:   s.opts.ReplyMaxTokens,
		Temperature: temperature,
	})
	if err == nil {
		return reply, ReplyGenerated, nil
	}

	if s.opts.StrictReply {
		return "", "", newError(KindUnavailable, ErrReplyUnavailable.Reason, err)
	}
	slog.WarnContext(ctx, "reply generation failed, using fallback reply",
		"character_id", character.ID,
		"error", err,
	)
	return s.opts.FallbackReply, ReplyFallback, nil
}

// commitExchange 写入用户消息、角色回复并更新好感度
// 三者要么全部成功，要么全部回滚
func (s *ChatService) commitExchange(ctx context.Context, personaID, characterID int64, message, reply string, delta int) (*ScoreUpdate, error) {
	dbCtx, cancel := s.queryContext(ctx)
	defer cancel()

	var update *ScoreUpdate
	err := s.store.Transaction(dbCtx, func(tx *repository.Store) error {
		userMsg := &model.ChatMessage{
			PersonaID:     personaID,
			CharacterID:   characterID,
			Message:       message,
			IsUserMessage: true,
		}
		replyMsg := &model.ChatMessage{
			PersonaID:       personaID,
			CharacterID:     characterID,
			Message:         reply,
			AffectionChange: delta,
		}
		if err := tx.Chats.CreateExchange(dbCtx, userMsg, replyMsg); err != nil {
			return persistenceError("save chat messages", err)
		}

		var err error
		update, err = s.relationships.UpdateScoreTx(dbCtx, tx, personaID, characterID, delta)
		return err
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, persistenceError("commit chat exchange", err)
	}
	return update, nil
}

// HistoryMessage 历史接口返回的单条消息
type HistoryMessage struct {
	ID              int64     `json:"id"`
	Message         string    `json:"message"`
	IsUserMessage   bool      `json:"isUserMessage"`
	AffectionChange int       `json:"affectionChange"`
	CreatedAt       time.Time `json:"createdAt"`
}

// HistoryResult 对话历史
type HistoryResult struct {
	CharacterID int64            `json:"characterId"`
	PersonaID   int64            `json:"personaId"`
	Messages    []HistoryMessage `json:"messages"`
	TotalCount  int64            `json:"totalCount"`
}

// History 获取最近的对话历史（按时间正序）
// limit <= 0 时使用默认条数，超过上限时截断
func (s *ChatService) History(ctx context.Context, userID, characterID, personaID int64, limit int) (*HistoryResult, error) {
	if err := s.checkPair(ctx, userID, characterID, personaID); err != nil {
		return nil, err
	}

	limit = s.clampHistoryLimit(limit)
	messages, err := s.latestMessages(ctx, personaID, characterID, limit)
	if err != nil {
		return nil, err
	}

	dbCtx, cancel := s.queryContext(ctx)
	defer cancel()
	total, err := s.store.Chats.Count(dbCtx, personaID, characterID)
	if err != nil {
		return nil, persistenceError("count chat messages", err)
	}

	result := &HistoryResult{
		CharacterID: characterID,
		PersonaID:   personaID,
		Messages:    make([]HistoryMessage, 0, len(messages)),
		TotalCount:  total,
	}
	for _, m := range messages {
		result.Messages = append(result.Messages, HistoryMessage{
			ID:              m.ID,
			Message:         m.Message,
			IsUserMessage:   m.IsUserMessage,
			AffectionChange: m.AffectionChange,
			CreatedAt:       m.CreatedAt,
		})
	}
	return result, nil
}

func (s *ChatService) clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultHistoryLimit
	}
	if s.opts.MaxHistoryLimit > 0 && limit > s.opts.MaxHistoryLimit {
		return s.opts.MaxHistoryLimit
	}
	return limit
}

// AffectionStatus 好感度查询结果
type AffectionStatus struct {
	CharacterID     int64      `json:"characterId"`
	PersonaID       int64      `json:"personaId"`
	AffectionScore  int        `json:"affectionScore"`
	AffectionLevel  string     `json:"affectionLevel"`
	TotalMessages   int        `json:"totalMessages"`
	LastInteraction *time.Time `json:"lastInteraction"`
	CreatedAt       *time.Time `json:"createdAt"`
}

// Affection 查询当前好感度
// 还没有对话过时返回初始状态，不写数据库
func (s *ChatService) Affection(ctx context.Context, userID, characterID, personaID int64) (*AffectionStatus, error) {
	if err := s.checkPair(ctx, userID, characterID, personaID); err != nil {
		return nil, err
	}

	dbCtx, cancel := s.queryContext(ctx)
	defer cancel()
	rel, err := s.relationships.Get(dbCtx, personaID, characterID)
	if err != nil {
		return nil, err
	}

	status := &AffectionStatus{
		CharacterID:    characterID,
		PersonaID:      personaID,
		AffectionScore: model.InitialAffectionScore,
	}
	if rel != nil {
		createdAt := rel.CreatedAt
		status.AffectionScore = rel.AffectionScore
		status.TotalMessages = rel.TotalMessages
		status.LastInteraction = rel.LastInteraction
		status.CreatedAt = &createdAt
	}
	status.AffectionLevel = affection.Level(status.AffectionScore)
	return status, nil
}

// checkPair 确认角色存在且 persona 属于当前用户
// 停用的角色仍然可以查看历史和好感度
func (s *ChatService) checkPair(ctx context.Context, userID, characterID, personaID int64) error {
	dbCtx, cancel := s.queryContext(ctx)
	defer cancel()

	character, err := s.store.Characters.GetByID(dbCtx, characterID)
	if err != nil {
		return persistenceError("load character", err)
	}
	if character == nil {
		return ErrCharacterNotFound
	}

	_, err = s.loadOwnedPersona(ctx, userID, personaID)
	return err
}

// queryContext 为数据库操作附加超时
func (s *ChatService) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.QueryTimeout)
}

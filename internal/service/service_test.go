package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mingling-server/internal/affection"
	"mingling-server/internal/llm"
	"mingling-server/internal/model"
	"mingling-server/internal/repository"
	"mingling-server/internal/testutil"
)

// scriptedLLM 按预设函数返回结果，并记录收到的请求
type scriptedLLM struct {
	mu       sync.Mutex
	respond  func(req llm.Request) (string, error)
	requests []llm.Request
}

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	respond := s.respond
	s.mu.Unlock()
	return respond(req)
}

func (s *scriptedLLM) lastRequest(t *testing.T) llm.Request {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func replyWith(content string) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return content, nil }
}

func failWith(err error) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return "", err }
}

func analysisWith(delta int, reason string) func(llm.Request) (string, error) {
	return replyWith(fmt.Sprintf(`{"affectionChange": %d, "reason": %q}`, delta, reason))
}

func testChatOptions() ChatOptions {
	return ChatOptions{
		ReplyModel:          "reply-model",
		ReplyTemperature:    0.8,
		HistoryLimit:        10,
		DefaultHistoryLimit: 50,
		MaxHistoryLimit:     200,
		FallbackReply:       "fallback reply",
		LockTTL:             time.Minute,
		LockWait:            0,
		QueryTimeout:        5 * time.Second,
	}
}

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewStore(testutil.NewDB(t))
}

func seedUser(t *testing.T, store *repository.Store, uid string) *model.User {
	t.Helper()
	user := &model.User{FirebaseUID: uid, Status: model.UserStatusActive, JamPoints: model.InitialJamPoints}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func seedCharacter(t *testing.T, store *repository.Store, ownerID int64, name string) *model.Character {
	t.Helper()
	character := &model.Character{
		UserID:      ownerID,
		Name:        name,
		Personality: "shy but curious",
		Description: "a librarian who loves old maps",
		Gender:      model.GenderFemale,
		IsActive:    true,
	}
	require.NoError(t, store.Characters.Create(context.Background(), character))
	return character
}

func seedPersona(t *testing.T, store *repository.Store, userID int64, name string) *model.Persona {
	t.Helper()
	persona := &model.Persona{UserID: userID, Name: name, Description: "a traveller", Gender: model.GenderUnspecified}
	require.NoError(t, store.Personas.Create(context.Background(), persona))
	return persona
}

func seedRelationship(t *testing.T, store *repository.Store, personaID, characterID int64, score int) {
	t.Helper()
	inserted, err := store.Relationships.InsertIfAbsent(context.Background(), &model.Relationship{
		PersonaID:      personaID,
		CharacterID:    characterID,
		AffectionScore: score,
	})
	require.NoError(t, err)
	require.True(t, inserted)
}

// chatEnv 对话服务的测试环境
type chatEnv struct {
	store     *repository.Store
	chat      *ChatService
	replies   *scriptedLLM
	analysis  *scriptedLLM
	user      *model.User
	character *model.Character
	persona   *model.Persona
}

func newChatEnv(t *testing.T, locker PairLocker, configure ...func(*ChatOptions)) *chatEnv {
	t.Helper()
	store := newTestStore(t)

	opts := testChatOptions()
	for _, fn := range configure {
		fn(&opts)
	}

	replies := &scriptedLLM{respond: replyWith("Hello there!")}
	analysis := &scriptedLLM{respond: analysisWith(3, "friendly greeting")}
	analyzer := affection.NewAnalyzer(analysis, affection.AnalyzerConfig{Model: "analysis-model", MaxTokens: 150, Temperature: 0.3})

	user := seedUser(t, store, "uid-chat")
	return &chatEnv{
		store:     store,
		chat:      NewChatService(store, NewRelationshipService(store), replies, analyzer, locker, opts),
		replies:   replies,
		analysis:  analysis,
		user:      user,
		character: seedCharacter(t, store, user.ID, "Luna"),
		persona:   seedPersona(t, store, user.ID, "Kai"),
	}
}

func (e *chatEnv) request(message string) *ChatRequest {
	return &ChatRequest{
		UserID:      e.user.ID,
		CharacterID: e.character.ID,
		PersonaID:   e.persona.ID,
		Message:     message,
	}
}

func (e *chatEnv) messageCount(t *testing.T) int64 {
	t.Helper()
	n, err := e.store.Chats.Count(context.Background(), e.persona.ID, e.character.ID)
	require.NoError(t, err)
	return n
}

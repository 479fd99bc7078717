package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mingling-server/internal/model"
	"mingling-server/pkg/util"
)

func TestCharacterCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewCharacterService(store)
	owner := seedUser(t, store, "uid-owner")
	viewer := seedUser(t, store, "uid-viewer")

	_, err := svc.Create(ctx, owner.ID, &CharacterInput{Name: util.StringPtr("  ")})
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Create(ctx, owner.ID, &CharacterInput{Name: util.StringPtr("Mira"), Gender: util.StringPtr("robot")})
	require.ErrorIs(t, err, ErrInvalidGender)

	tags := []string{"fantasy", "mage"}
	created, err := svc.Create(ctx, owner.ID, &CharacterInput{
		Name:        util.StringPtr(" Mira "),
		Personality: util.StringPtr("bold"),
		Hashtags:    &tags,
		IsPrivate:   util.BoolPtr(true),
		AccessCode:  util.StringPtr("star"),
	})
	require.NoError(t, err)
	require.Equal(t, "Mira", created.Name)
	require.Equal(t, model.GenderUnspecified, created.Gender)
	require.True(t, created.HasAccessCode())
	require.True(t, util.CheckAccessCode("star", created.AccessCodeHash))

	got, err := svc.Get(ctx, owner.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"fantasy", "mage"}, []string(got.Hashtags))

	// 私有角色对其他人不可见
	_, err = svc.Get(ctx, viewer.ID, created.ID)
	require.ErrorIs(t, err, ErrCharacterNotFound)
}

func TestCharacterUpdateRequiresOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewCharacterService(store)
	owner := seedUser(t, store, "uid-owner")
	other := seedUser(t, store, "uid-other")
	character := seedCharacter(t, store, owner.ID, "Luna")

	_, err := svc.Update(ctx, other.ID, character.ID, &CharacterInput{Name: util.StringPtr("Hacked")})
	require.ErrorIs(t, err, ErrNotOwner)
	require.Equal(t, KindForbidden, KindOf(err))

	updated, err := svc.Update(ctx, owner.ID, character.ID, &CharacterInput{
		Description: util.StringPtr("now a cartographer"),
		Age:         util.IntPtr(27),
	})
	require.NoError(t, err)
	require.Equal(t, "Luna", updated.Name)
	require.Equal(t, "now a cartographer", updated.Description)
	require.Equal(t, "shy but curious", updated.Personality)
	require.NotNil(t, updated.Age)
	require.Equal(t, 27, *updated.Age)
}

func TestCharacterListPagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewCharacterService(store)
	owner := seedUser(t, store, "uid-owner")
	for _, name := range []string{"A", "B", "C"} {
		seedCharacter(t, store, owner.ID, name)
	}

	result, err := svc.List(ctx, owner.ID, ListCharactersQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Total)
	require.Len(t, result.Characters, 2)

	result, err = svc.List(ctx, owner.ID, ListCharactersQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Characters, 1)

	result, err = svc.List(ctx, owner.ID, ListCharactersQuery{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.NotNil(t, result.Characters)
	require.Empty(t, result.Characters)

	_, err = svc.List(ctx, owner.ID, ListCharactersQuery{Gender: "other"})
	require.ErrorIs(t, err, ErrInvalidGender)
}

func TestCharacterDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewCharacterService(store)
	owner := seedUser(t, store, "uid-owner")
	other := seedUser(t, store, "uid-other")
	persona := seedPersona(t, store, owner.ID, "Kai")

	soft := seedCharacter(t, store, owner.ID, "Soft")
	require.ErrorIs(t, svc.Delete(ctx, other.ID, soft.ID, false), ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, owner.ID, soft.ID, false))
	row, err := store.Characters.GetByID(ctx, soft.ID)
	require.NoError(t, err)
	require.False(t, row.IsActive)

	hard := seedCharacter(t, store, owner.ID, "Hard")
	seedRelationship(t, store, persona.ID, hard.ID, 70)
	require.NoError(t, store.Chats.CreateExchange(ctx,
		&model.ChatMessage{PersonaID: persona.ID, CharacterID: hard.ID, Message: "hi", IsUserMessage: true},
		&model.ChatMessage{PersonaID: persona.ID, CharacterID: hard.ID, Message: "hello"},
	))

	require.NoError(t, svc.Delete(ctx, owner.ID, hard.ID, true))
	row, err = store.Characters.GetByID(ctx, hard.ID)
	require.NoError(t, err)
	require.Nil(t, row)
	rel, err := store.Relationships.Get(ctx, persona.ID, hard.ID)
	require.NoError(t, err)
	require.Nil(t, rel)
	count, err := store.Chats.Count(ctx, persona.ID, hard.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	require.ErrorIs(t, svc.Delete(ctx, owner.ID, hard.ID, true), ErrCharacterNotFound)
}

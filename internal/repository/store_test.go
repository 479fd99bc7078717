package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"mingling-server/internal/model"
	"mingling-server/internal/testutil"
)

func TestStoreTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.NewDB(t))
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx *Store) error {
		err := tx.Chats.CreateExchange(ctx,
			&model.ChatMessage{PersonaID: 1, CharacterID: 1, Message: "hi", IsUserMessage: true},
			&model.ChatMessage{PersonaID: 1, CharacterID: 1, Message: "hello"},
		)
		require.NoError(t, err)
		_, err = tx.Relationships.InsertIfAbsent(ctx, &model.Relationship{PersonaID: 1, CharacterID: 1, AffectionScore: 50})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := store.Chats.Count(ctx, 1, 1)
	require.NoError(t, err)
	require.Zero(t, count)

	rel, err := store.Relationships.Get(ctx, 1, 1)
	require.NoError(t, err)
	require.Nil(t, rel)
}

func TestStoreTransactionCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.NewDB(t))

	err := store.Transaction(ctx, func(tx *Store) error {
		return tx.Users.Create(ctx, &model.User{FirebaseUID: "uid-1", JamPoints: model.InitialJamPoints, Status: model.UserStatusActive})
	})
	require.NoError(t, err)

	user, err := store.Users.GetByFirebaseUID(ctx, "uid-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, model.InitialJamPoints, user.JamPoints)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mingling-server/internal/model"
	"mingling-server/internal/testutil"
)

func TestPersonaListOrdersDefaultFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewPersonaRepository(testutil.NewDB(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &model.Persona{UserID: 1, Name: "old-default", IsDefault: true, CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, &model.Persona{UserID: 1, Name: "middle", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &model.Persona{UserID: 1, Name: "newest", CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, &model.Persona{UserID: 2, Name: "other-user"}))

	personas, err := repo.ListByUser(ctx, 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, personas, 3)
	require.Equal(t, "old-default", personas[0].Name)
	require.Equal(t, "newest", personas[1].Name)
	require.Equal(t, "middle", personas[2].Name)

	page, err := repo.ListByUser(ctx, 1, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "newest", page[0].Name)
}

func TestPersonaSwitchDefault(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.NewDB(t))

	first := &model.Persona{UserID: 1, Name: "first", IsDefault: true}
	second := &model.Persona{UserID: 1, Name: "second"}
	require.NoError(t, store.Personas.Create(ctx, first))
	require.NoError(t, store.Personas.Create(ctx, second))

	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Personas.ClearDefault(ctx, 1); err != nil {
			return err
		}
		return tx.Personas.SetDefault(ctx, second.ID)
	})
	require.NoError(t, err)

	def, err := store.Personas.GetDefault(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, second.ID, def.ID)

	reloaded, err := store.Personas.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsDefault)
}

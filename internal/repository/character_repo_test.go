package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mingling-server/internal/model"
	"mingling-server/internal/testutil"
)

func TestCharacterListVisibility(t *testing.T) {
	ctx := context.Background()
	repo := NewCharacterRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, &model.Character{UserID: 1, Name: "public-1", Category: "anime", Gender: model.GenderFemale, IsActive: true}))
	require.NoError(t, repo.Create(ctx, &model.Character{UserID: 2, Name: "public-2", Category: "game", Gender: model.GenderMale, IsActive: true}))
	require.NoError(t, repo.Create(ctx, &model.Character{UserID: 1, Name: "private-1", IsPrivate: true, IsActive: true}))
	require.NoError(t, repo.Create(ctx, &model.Character{UserID: 2, Name: "private-2", IsPrivate: true, IsActive: true}))

	inactive := &model.Character{UserID: 1, Name: "gone", IsActive: true}
	require.NoError(t, repo.Create(ctx, inactive))
	require.NoError(t, repo.Deactivate(ctx, inactive.ID))

	names := func(cs []model.Character) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.Name)
		}
		return out
	}

	list, total, err := repo.List(ctx, CharacterFilter{ViewerID: 1, Limit: 20})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.ElementsMatch(t, []string{"public-1", "public-2", "private-1"}, names(list))

	list, _, err = repo.List(ctx, CharacterFilter{Limit: 20})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"public-1", "public-2"}, names(list))

	private := true
	list, _, err = repo.List(ctx, CharacterFilter{ViewerID: 2, IsPrivate: &private, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, []string{"private-2"}, names(list))

	list, _, err = repo.List(ctx, CharacterFilter{ViewerID: 1, Category: "game", Limit: 20})
	require.NoError(t, err)
	require.Equal(t, []string{"public-2"}, names(list))

	owner := int64(1)
	list, _, err = repo.List(ctx, CharacterFilter{ViewerID: 2, OwnerID: &owner, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, []string{"public-1"}, names(list))
}

func TestCharacterGetActiveByID(t *testing.T) {
	ctx := context.Background()
	repo := NewCharacterRepository(testutil.NewDB(t))

	c := &model.Character{UserID: 1, Name: "Luna", Hashtags: []string{"moon", "calm"}, IsActive: true}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetActiveByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, []string{"moon", "calm"}, []string(got.Hashtags))
	require.Equal(t, model.GenderUnspecified, got.Gender)

	require.NoError(t, repo.Deactivate(ctx, c.ID))
	got, err = repo.GetActiveByID(ctx, c.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.False(t, got.IsActive)

	require.NoError(t, repo.Delete(ctx, c.ID))
	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCharacterCreateKeepsInactive(t *testing.T) {
	ctx := context.Background()
	repo := NewCharacterRepository(testutil.NewDB(t))

	c := &model.Character{UserID: 1, Name: "draft", IsActive: false}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.False(t, got.IsActive)

	got, err = repo.GetActiveByID(ctx, c.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

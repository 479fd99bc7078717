package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mingling-server/internal/model"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewRelationshipService(store)

	rel, outcome, err := svc.GetOrCreate(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, RelationshipCreated, outcome)
	require.Equal(t, model.InitialAffectionScore, rel.AffectionScore)
	require.Zero(t, rel.TotalMessages)
	require.Nil(t, rel.LastInteraction)

	again, outcome, err := svc.GetOrCreate(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, RelationshipExisted, outcome)
	require.Equal(t, rel.ID, again.ID)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewRelationshipService(store)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		ids      = map[int64]struct{}{}
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, outcome, err := svc.GetOrCreate(ctx, 3, 4)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				firstErr = err
				return
			}
			if outcome == RelationshipCreated {
				created++
			}
			ids[rel.ID] = struct{}{}
		}()
	}
	wg.Wait()

	require.NoError(t, firstErr)
	require.Equal(t, 1, created)
	require.Len(t, ids, 1)

	var count int64
	require.NoError(t, store.DB().Model(&model.Relationship{}).Where("persona_id = ? AND character_id = ?", 3, 4).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestUpdateScoreClamps(t *testing.T) {
	cases := []struct {
		name     string
		start    int
		delta    int
		expected int
	}{
		{"upper bound", 98, 7, 100},
		{"lower bound", 5, -8, 0},
		{"inside range", 50, 3, 53},
		{"zero delta", 42, 0, 42},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			svc := NewRelationshipService(store)
			at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			svc.now = func() time.Time { return at }

			personaID, characterID := int64(10+i), int64(20+i)
			seedRelationship(t, store, personaID, characterID, tc.start)

			update, err := svc.UpdateScore(ctx, personaID, characterID, tc.delta)
			require.NoError(t, err)
			require.Equal(t, tc.start, update.PreviousScore)
			require.Equal(t, tc.expected, update.NewScore)
			require.Equal(t, 1, update.TotalMessages)

			rel, err := svc.Get(ctx, personaID, characterID)
			require.NoError(t, err)
			require.Equal(t, tc.expected, rel.AffectionScore)
			require.Equal(t, 1, rel.TotalMessages)
			require.NotNil(t, rel.LastInteraction)
			require.True(t, rel.LastInteraction.Equal(at))
		})
	}
}

func TestUpdateScoreConcurrentIncrementsAllApply(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewRelationshipService(store)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.UpdateScore(ctx, 1, 2, 1)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	rel, err := store.Relationships.Get(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, rel)
	require.Equal(t, model.InitialAffectionScore+workers, rel.AffectionScore)
	require.Equal(t, workers, rel.TotalMessages)
}

func TestUpdateScoreCreatesMissingRelationship(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewRelationshipService(store)

	update, err := svc.UpdateScore(ctx, 7, 8, -4)
	require.NoError(t, err)
	require.Equal(t, model.InitialAffectionScore, update.PreviousScore)
	require.Equal(t, 46, update.NewScore)
}

func TestRelationshipGetMissingDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewRelationshipService(store)

	rel, err := svc.Get(ctx, 1, 1)
	require.NoError(t, err)
	require.Nil(t, rel)

	rel, err = svc.Get(ctx, 1, 1)
	require.NoError(t, err)
	require.Nil(t, rel)
}

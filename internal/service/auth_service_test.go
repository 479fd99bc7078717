package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mingling-server/internal/cache"
	"mingling-server/internal/model"
	"mingling-server/internal/testutil"
	"mingling-server/pkg/jwt"
	"mingling-server/pkg/util"
)

func newTestAuth(t *testing.T) (*AuthService, *cache.RedisCache, *jwt.JWTService) {
	t.Helper()
	_, client := testutil.NewRedis(t)
	redisCache := cache.NewRedisCacheWithClient(client)
	jwtService := jwt.NewJWTService("0123456789abcdef0123456789abcdef", time.Hour, 24*time.Hour)
	return NewAuthService(newTestStore(t), redisCache, jwtService), redisCache, jwtService
}

func TestFirebaseLoginCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _, jwtService := newTestAuth(t)

	first, err := svc.FirebaseLogin(ctx, &FirebaseLoginRequest{
		UID:         "firebase-1",
		Email:       util.StringPtr("a@example.com"),
		DisplayName: util.StringPtr("Ann"),
	})
	require.NoError(t, err)
	require.True(t, first.IsNewUser)
	require.Equal(t, model.InitialJamPoints, first.User.JamPoints)
	require.Equal(t, "firebase-1", first.User.UID)
	require.Equal(t, int64(3600), first.ExpiresIn)

	claims, err := jwtService.ValidateAccessToken(first.AccessToken)
	require.NoError(t, err)
	require.Equal(t, first.User.ID, claims.UserID)

	second, err := svc.FirebaseLogin(ctx, &FirebaseLoginRequest{
		UID:         "firebase-1",
		DisplayName: util.StringPtr("Annie"),
	})
	require.NoError(t, err)
	require.False(t, second.IsNewUser)
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, "Annie", *second.User.DisplayName)
	require.Equal(t, "a@example.com", *second.User.Email)

	me, err := svc.Me(ctx, first.User.ID)
	require.NoError(t, err)
	require.Equal(t, "Annie", *me.DisplayName)
}

func TestFirebaseLoginRejectsDisabledUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestAuth(t)

	resp, err := svc.FirebaseLogin(ctx, &FirebaseLoginRequest{UID: "firebase-2"})
	require.NoError(t, err)
	require.NoError(t, svc.store.Users.UpdateFields(ctx, resp.User.ID, map[string]interface{}{"status": model.UserStatusDisabled}))

	_, err = svc.FirebaseLogin(ctx, &FirebaseLoginRequest{UID: "firebase-2"})
	require.ErrorIs(t, err, ErrUserDisabled)

	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	require.ErrorIs(t, err, ErrUserDisabled)
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc, _, jwtService := newTestAuth(t)

	resp, err := svc.FirebaseLogin(ctx, &FirebaseLoginRequest{UID: "firebase-3"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	_, err = jwtService.ValidateAccessToken(refreshed.AccessToken)
	require.NoError(t, err)

	// Access Token 不能用来刷新
	_, err = svc.RefreshToken(ctx, resp.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Equal(t, KindUnauthorized, KindOf(err))
}

func TestLogoutBlacklistsToken(t *testing.T) {
	ctx := context.Background()
	svc, redisCache, _ := newTestAuth(t)

	hash := util.HashToken("some-token")
	require.NoError(t, svc.Logout(ctx, hash, time.Now().Add(time.Hour)))

	blacklisted, err := redisCache.IsTokenBlacklisted(ctx, hash)
	require.NoError(t, err)
	require.True(t, blacklisted)
}

func TestMeUnknownUser(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	_, err := svc.Me(context.Background(), 999)
	require.ErrorIs(t, err, ErrUserNotFound)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestUserProfileUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewUserService(store.Users)
	user := seedUser(t, store, "uid-profile")

	_, err := svc.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{DisplayName: util.StringPtr("  ")})
	require.Equal(t, KindInvalidInput, KindOf(err))

	updated, err := svc.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{
		DisplayName: util.StringPtr("Nova"),
		PhotoURL:    util.StringPtr("https://img.example.com/nova.png"),
	})
	require.NoError(t, err)
	require.Equal(t, "Nova", *updated.DisplayName)
	require.Equal(t, "https://img.example.com/nova.png", *updated.PhotoURL)

	_, err = svc.GetProfile(ctx, 12345)
	require.ErrorIs(t, err, ErrUserNotFound)
}

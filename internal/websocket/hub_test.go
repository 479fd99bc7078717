package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"mingling-server/internal/cache"
	"mingling-server/internal/service"
	"mingling-server/internal/testutil"
	"mingling-server/pkg/jwt"
	"mingling-server/pkg/util"
)

type wsEnv struct {
	hub        *Hub
	server     *httptest.Server
	jwtService *jwt.JWTService
	cache      *cache.RedisCache
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	_, client := testutil.NewRedis(t)
	redisCache := cache.NewRedisCacheWithClient(client)
	jwtService := jwt.NewJWTService("0123456789abcdef0123456789abcdef", time.Hour, 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	router := gin.New()
	NewHandler(hub, jwtService, redisCache, []string{"*"}).RegisterRoutes(router)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &wsEnv{hub: hub, server: server, jwtService: jwtService, cache: redisCache}
}

func (e *wsEnv) dial(t *testing.T, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/chat?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestAffectionUpdateIsPushed(t *testing.T) {
	env := newWSEnv(t)
	token, err := env.jwtService.GenerateAccessToken(7, "uid-7")
	require.NoError(t, err)

	conn, _, err := env.dial(t, token)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.ClientCount(7) == 1 }, 2*time.Second, 10*time.Millisecond)

	// 其他用户的推送不会收到
	env.hub.NotifyAffectionUpdate(8, service.AffectionUpdate{CharacterID: 99})
	env.hub.NotifyAffectionUpdate(7, service.AffectionUpdate{
		CharacterID:   1,
		PersonaID:     2,
		Change:        3,
		Reason:        "kind words",
		PreviousScore: 50,
		NewScore:      53,
		Level:         "Neutral",
	})

	msg := readMessage(t, conn)
	require.Equal(t, TypeAffectionUpdate, msg.Type)
	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"characterId": 1, "personaId": 2, "change": 3, "reason": "kind words",
		"previousScore": 50, "newScore": 53, "level": "Neutral"
	}`, string(payload))
}

func TestHeartbeat(t *testing.T) {
	env := newWSEnv(t)
	token, err := env.jwtService.GenerateAccessToken(3, "uid-3")
	require.NoError(t, err)

	conn, _, err := env.dial(t, token)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(NewMessageWithID(TypeHeartbeat, nil, "hb-1")))
	msg := readMessage(t, conn)
	require.Equal(t, TypePong, msg.Type)
	require.Equal(t, "hb-1", msg.MessageID)

	require.NoError(t, conn.WriteJSON(NewMessage("unknown", nil)))
	require.Equal(t, TypeError, readMessage(t, conn).Type)
}

func TestUnregisterOnDisconnect(t *testing.T) {
	env := newWSEnv(t)
	token, err := env.jwtService.GenerateAccessToken(4, "uid-4")
	require.NoError(t, err)

	conn, _, err := env.dial(t, token)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return env.hub.ClientCount(4) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return env.hub.ClientCount(4) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRejectsInvalidToken(t *testing.T) {
	env := newWSEnv(t)

	_, resp, err := env.dial(t, "garbage")
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	refresh, err := env.jwtService.GenerateRefreshToken(1, "uid-1")
	require.NoError(t, err)
	_, resp, err = env.dial(t, refresh)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 已登出的 Token
	access, err := env.jwtService.GenerateAccessToken(1, "uid-1")
	require.NoError(t, err)
	require.NoError(t, env.cache.BlacklistToken(context.Background(), util.HashToken(access), time.Now().Add(time.Hour)))
	_, resp, err = env.dial(t, access)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	require.True(t, check(req))

	req.Header.Set("Origin", "http://localhost:5173")
	require.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	require.False(t, check(req))
}

func TestHubStopsOnContextCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := NewClient(hub, nil, 1)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount(1) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	require.Equal(t, 0, hub.ClientCount(1))

	// 停止后注册和注销都不会阻塞
	hub.Unregister(client)
	hub.Register(NewClient(hub, nil, 2))
	_, open := <-client.send
	require.False(t, open)
}

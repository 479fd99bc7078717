package websocket

import (
	"context"
	"log/slog"
	"sync"

	"mingling-server/internal/service"
)

// Hub 是 WebSocket 连接的中心管理器
// 按用户管理连接，一个用户可以同时有多个连接（多设备登录）
type Hub struct {
	// 用户连接映射：userID -> 连接集合
	clients map[int64]map[*Client]struct{}

	// 注册通道
	register chan *Client

	// 注销通道
	unregister chan *Client

	// Run 退出后关闭，避免读协程阻塞在注销通道上
	done chan struct{}

	// 互斥锁，保护并发访问
	mu sync.RWMutex
}

// NewHub 创建 Hub 实例
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 的主循环
// 应该在单独的 goroutine 中运行，ctx 取消时关闭所有连接并退出
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register 注册客户端，Hub 已停止时直接关闭客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}

	slog.Info("websocket client registered", "user_id", client.userID, "connections", len(set))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}

	delete(set, client)
	client.Close()
	// 如果没有连接了，删除 key
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}

	slog.Info("websocket client unregistered", "user_id", client.userID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.clients {
		for client := range set {
			client.Close()
		}
		delete(h.clients, userID)
	}
}

// ClientCount 返回用户当前的连接数
func (h *Hub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// sendToUser 向用户的所有连接发送消息
func (h *Hub) sendToUser(userID int64, msg *Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[userID]
	for client := range set {
		client.SendMessage(msg)
	}
	return len(set)
}

// NotifyAffectionUpdate 推送一轮对话后的好感度变化
// 用户不在线时直接丢弃
func (h *Hub) NotifyAffectionUpdate(userID int64, update service.AffectionUpdate) {
	delivered := h.sendToUser(userID, NewMessage(TypeAffectionUpdate, &update))
	if delivered > 0 {
		slog.Debug("affection update pushed",
			"user_id", userID,
			"character_id", update.CharacterID,
			"persona_id", update.PersonaID,
			"connections", delivered,
		)
	}
}

var _ service.ChatNotifier = (*Hub)(nil)

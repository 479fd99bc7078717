package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client 表示一个 WebSocket 客户端连接
type Client struct {
	hub       *Hub            // 所属的 Hub
	conn      *websocket.Conn // WebSocket 连接
	send      chan []byte     // 发送消息的通道
	userID    int64           // 用户ID
	closeOnce sync.Once
}

// 连接配置常量
const (
	// 写超时时间
	writeWait = 10 * time.Second

	// 等待 Pong 响应的超时时间
	pongWait = 60 * time.Second

	// 发送 Ping 的间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 客户端只发心跳，限制为 4KB
	maxMessageSize = 4 * 1024

	// 发送缓冲区大小
	sendBufferSize = 64
)

// NewClient 创建新的客户端
func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
	}
}

// ReadPump 读取 WebSocket 消息的 goroutine
// 每个客户端连接启动一个 ReadPump
// 连接断开时从 Hub 注销
func (c *Client) ReadPump() {
	// 确保退出时清理资源
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	// 每次收到 Pong，重置读取超时
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			// 检查是否是正常关闭
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "user_id", c.userID, "error", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			c.SendMessage(NewMessage(TypeError, &ErrorPayload{Message: "invalid message"}))
			continue
		}

		c.handleMessage(&msg)
	}
}

// WritePump 写入 WebSocket 消息的 goroutine
// 负责从 send 通道读取消息并写入 WebSocket，定时发送 Ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				// send 通道已关闭
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 向客户端发送消息
// 缓冲区满时丢弃，不阻塞调用方
func (c *Client) SendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to encode websocket message", "type", msg.Type, "error", err)
		return
	}

	defer func() {
		// 连接已关闭时 send 通道也已关闭
		_ = recover()
	}()

	select {
	case c.send <- data:
	default:
		slog.Warn("websocket send buffer full, dropping message", "user_id", c.userID, "type", msg.Type)
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case TypeHeartbeat:
		c.SendMessage(NewMessageWithID(TypePong, nil, msg.MessageID))
	default:
		c.SendMessage(NewMessageWithID(TypeError, &ErrorPayload{Message: "unknown message type: " + msg.Type}, msg.MessageID))
	}
}

// Close 关闭发送通道，WritePump 随之退出
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

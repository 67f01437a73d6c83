package community_sdk

import (
	"net/http"
	"sync"
	"time"

	"github.com/cydxin/community-sdk/message"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time 写入超时时间
	writeWait = 10 * time.Second

	// Time pong超时时间
	pongWait = 60 * time.Second

	// Send 对应的ping 必须小于pong
	pingPeriod = (pongWait * 9) / 10

	// Maximum 对等端允许消息大小
	maxMessageSize = 512

	// 每个连接的发送缓冲，满了就丢弃（客户端可通过 HTTP 补拉）
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for SDK
	},
}

// Client ws和hub的连接，同一用户可以有多个（多设备/多标签页）
type Client struct {
	hub *WsServer

	// 🔗链接
	conn *websocket.Conn

	// 消息缓冲区，只在 hub 锁内写入和关闭
	send chan []byte

	// UserID 和用户关联
	UserID uint64

	// 会话ID
	SessionID string

	closeOnce sync.Once
}

// readPump 将消息从client (websocket 连接) 到hub管理。
func (c *Client) readPump() {
	defer c.hub.unregister(c)
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("ws read failed", zap.Uint64("user_id", c.UserID), zap.Error(err))
			}
			return
		}
		c.hub.handleMessage(c, msg)
	}
}

// writePump 将消息从hub管理写到具体的client (websocket 连接)。
// 每条消息单独一个 text frame
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.log.Debug("ws ping failed", zap.Uint64("user_id", c.UserID), zap.Error(err))
				c.hub.unregister(c)
				return
			}
		}
	}
}

// Send 只发给当前连接（回包），不会阻塞
func (c *Client) Send(msg []byte) bool {
	if msg == nil {
		return false
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.userClients[c.UserID][c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// WsServer 在线连接表：用户ID -> 该用户所有活跃连接
// 注册/注销直接加锁，不再经过中心 goroutine
type WsServer struct {
	mu          sync.RWMutex
	userClients map[uint64]map[*Client]struct{}

	// 回调处理消息
	onMessage func(client *Client, msg []byte)
	// 连接建立后回调（推送未读数等）
	onConnect func(client *Client)

	log *zap.Logger
}

func NewWsServer(log *zap.Logger) *WsServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &WsServer{
		userClients: make(map[uint64]map[*Client]struct{}),
		log:         log,
	}
}

func (h *WsServer) register(c *Client) {
	h.mu.Lock()
	set := h.userClients[c.UserID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.userClients[c.UserID] = set
	}
	set[c] = struct{}{}
	n := len(set)
	h.mu.Unlock()
	h.log.Debug("ws registered", zap.Uint64("user_id", c.UserID), zap.String("session_id", c.SessionID), zap.Int("conns", n))
}

// unregister 可重复调用，只有第一次生效
func (h *WsServer) unregister(c *Client) {
	c.closeOnce.Do(func() {
		h.mu.Lock()
		if set, ok := h.userClients[c.UserID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.userClients, c.UserID)
			}
		}
		close(c.send)
		h.mu.Unlock()
		_ = c.conn.Close()
		h.log.Debug("ws unregistered", zap.Uint64("user_id", c.UserID), zap.String("session_id", c.SessionID))
	})
}

func (h *WsServer) handleMessage(client *Client, msg []byte) {
	if h.onMessage != nil {
		h.onMessage(client, msg)
	}
}

func (h *WsServer) SetOnMessage(fn func(client *Client, msg []byte)) {
	h.onMessage = fn
}

func (h *WsServer) SetOnConnect(fn func(client *Client)) {
	h.onConnect = fn
}

// ServeWS 升级连接并注册，调用方负责先完成鉴权
func (h *WsServer) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Uint64("user_id", userID), zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		UserID:    userID,
		SessionID: uuid.NewString(),
	}
	// 握手帧在注册前放入缓冲，保证是第一帧
	client.send <- message.Encode(message.FrameConnected, message.ConnectedData{
		UserID:     userID,
		SessionID:  client.SessionID,
		ServerTime: time.Now(),
	})
	h.register(client)

	go client.writePump()
	go client.readPump()

	if h.onConnect != nil {
		h.onConnect(client)
	}
}

// SendToUser 发送消息到用户的所有连接，缓冲满的连接直接丢弃该消息
func (h *WsServer) SendToUser(userID uint64, msg []byte) {
	if msg == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.userClients[userID] {
		select {
		case client.send <- msg:
		default:
			h.log.Warn("ws send buffer full, frame dropped", zap.Uint64("user_id", userID), zap.String("session_id", client.SessionID))
		}
	}
}

// Online 用户当前连接数
func (h *WsServer) Online(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}

// Close 断开所有连接
func (h *WsServer) Close() {
	h.mu.RLock()
	all := make([]*Client, 0)
	for _, set := range h.userClients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.unregister(c)
	}
}

// Users 当前在线用户数
func (h *WsServer) Users() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients)
}

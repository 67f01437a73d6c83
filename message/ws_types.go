package message

import (
	"encoding/json"
	"time"
)

// WS 下行帧类型
const (
	FrameConnected    = "connected"    // 建连握手
	FrameNotification = "notification" // 新通知
	FrameUnreadCount  = "unread_count" // 未读数快照
	FramePong         = "pong"
	FrameError        = "error"
)

// WS 上行消息类型
const (
	WsTypePing        = "ping"
	WsTypeMarkRead    = "mark_read"     // 标记单条已读（client -> server）
	WsTypeMarkAllRead = "mark_all_read" // 全部已读
)

// Frame 下行帧统一结构
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ConnectedData 握手帧
type ConnectedData struct {
	UserID     uint64    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	ServerTime time.Time `json:"server_time"`
}

// UnreadCountData 未读数帧
type UnreadCountData struct {
	UnreadCount int64 `json:"unread_count"`
}

// ErrorData 错误帧
type ErrorData struct {
	Msg      string `json:"msg"`
	PacketID string `json:"packet_id,omitempty"`
}

// Req 上行请求
// mark_read 需要 id；packet_id 可选，用于客户端匹配回包。
type Req struct {
	Type     string `json:"type"`
	ID       uint64 `json:"id,omitempty"`
	PacketID string `json:"packet_id,omitempty"`
}

// Encode 编码下行帧，编码失败返回 nil
func Encode(frameType string, data any) []byte {
	b, err := json.Marshal(Frame{Type: frameType, Data: data})
	if err != nil {
		return nil
	}
	return b
}

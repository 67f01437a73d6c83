package community_sdk

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cydxin/community-sdk/message"
	"go.uber.org/zap"
)

// WS 上行请求的处理超时
const wsRequestTimeout = 5 * time.Second

// bindWsHandlers 将 WS 回调从 engine.go 抽出来，避免 engine.go 臃肿。
// 说明：放在包根目录（同 WsServer/engine.go 同级），
// 这样可以直接访问 Client 类型，避免 service 层循环依赖。
func (e *CommunityEngine) bindWsHandlers() {
	// 建连后推一次未读数快照
	e.WsServer.SetOnConnect(func(client *Client) {
		ctx, cancel := context.WithTimeout(context.Background(), wsRequestTimeout)
		defer cancel()
		n, err := e.NotificationService.UnreadCount(ctx, client.UserID)
		if err != nil {
			e.log.Warn("ws unread snapshot failed", zap.Uint64("user_id", client.UserID), zap.Error(err))
			return
		}
		client.Send(message.Encode(message.FrameUnreadCount, message.UnreadCountData{UnreadCount: n}))
	})

	e.WsServer.SetOnMessage(func(client *Client, msg []byte) {
		if client == nil {
			return
		}
		var req message.Req
		if err := json.Unmarshal(msg, &req); err != nil {
			sendWsError(client, "invalid message format", "")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsRequestTimeout)
		defer cancel()

		switch req.Type {
		case message.WsTypePing:
			client.Send(message.Encode(message.FramePong, nil))

		// 已读：unread_count 由通知服务在有变更时推送给该用户的所有连接
		case message.WsTypeMarkRead:
			if req.ID == 0 {
				sendWsError(client, "id is required", req.PacketID)
				return
			}
			if _, err := e.NotificationService.MarkRead(ctx, client.UserID, []uint64{req.ID}); err != nil {
				e.log.Warn("ws mark_read failed", zap.Uint64("user_id", client.UserID), zap.Error(err))
				sendWsError(client, "mark read failed", req.PacketID)
			}

		case message.WsTypeMarkAllRead:
			if _, err := e.NotificationService.MarkAllRead(ctx, client.UserID); err != nil {
				e.log.Warn("ws mark_all_read failed", zap.Uint64("user_id", client.UserID), zap.Error(err))
				sendWsError(client, "mark all read failed", req.PacketID)
			}

		default:
			sendWsError(client, "unknown message type", req.PacketID)
		}
	})
}

func sendWsError(client *Client, msg string, packetID string) {
	client.Send(message.Encode(message.FrameError, message.ErrorData{Msg: msg, PacketID: packetID}))
}

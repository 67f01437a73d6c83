package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cydxin/community-sdk/apperr"
	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/message"
	"github.com/cydxin/community-sdk/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// NotificationService 通知分发
// 约定：先落库，再尽力通过 WS 推送和事件总线发布；离线用户通过 HTTP 拉取。
// 推送/发布失败只记日志，不影响调用方。
type NotificationService struct {
	*Service
}

func NewNotificationService(s *Service) *NotificationService {
	return &NotificationService{Service: s}
}

// EmitRequest 一次通知
type EmitRequest struct {
	RecipientID uint64
	SenderID    uint64
	TargetType  cons.TargetKind
	TargetID    uint64
	Payload     message.Payload
}

// NotificationDTO HTTP / WS 返回结构
type NotificationDTO struct {
	ID         uint64                `json:"id"`
	SenderID   uint64                `json:"sender_id"`
	Type       cons.NotificationType `json:"type"`
	TargetType cons.TargetKind       `json:"target_type,omitempty"`
	TargetID   uint64                `json:"target_id,omitempty"`
	Message    string                `json:"message"`
	Payload    datatypes.JSON        `json:"payload,omitempty" swaggertype:"object"`
	Read       bool                  `json:"read"`
	CreatedAt  time.Time             `json:"created_at"`
}

func toNotificationDTO(n *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         n.ID,
		SenderID:   n.SenderID,
		Type:       n.Type,
		TargetType: n.TargetType,
		TargetID:   n.TargetID,
		Message:    n.Message,
		Payload:    n.Payload,
		Read:       n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
}

// NotificationList 列表 + 未读数
type NotificationList struct {
	Items       []NotificationDTO `json:"items"`
	UnreadCount int64             `json:"unread_count"`
}

// Emit 持久化一条通知并尝试推送。文案在这里渲染一次，之后不再改变。
func (s *NotificationService) Emit(ctx context.Context, req EmitRequest) (*models.Notification, error) {
	if req.RecipientID == 0 {
		return nil, apperr.Validation("recipient_id is required")
	}
	if req.Payload == nil {
		return nil, apperr.Validation("payload is required")
	}
	t := req.Payload.NotificationType()
	if !t.Valid() {
		return nil, apperr.Validation("unknown notification type %q", t)
	}
	raw, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, apperr.Internal("encode payload", err)
	}

	n := &models.Notification{
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        t,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Message:     req.Payload.Render(),
		Payload:     datatypes.JSON(raw),
	}
	if err := s.Notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	s.push(n.RecipientID, message.Encode(message.FrameNotification, toNotificationDTO(n)))
	s.PushUnreadCount(ctx, n.RecipientID)
	s.publish(ctx, n)
	return n, nil
}

// EmitRaw 从 JSON 负载发送通知（管理员公告/推荐等），负载必须和类型匹配
func (s *NotificationService) EmitRaw(ctx context.Context, senderID uint64, recipients []uint64, t cons.NotificationType, target cons.TargetKind, targetID uint64, raw json.RawMessage) ([]uint64, error) {
	p, err := message.Decode(t, raw)
	if err != nil {
		return nil, apperr.Validation("invalid payload: %v", err)
	}
	seen := make(map[uint64]struct{}, len(recipients))
	ids := make([]uint64, 0, len(recipients))
	for _, uid := range recipients {
		if uid == 0 {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		n, err := s.Emit(ctx, EmitRequest{RecipientID: uid, SenderID: senderID, TargetType: target, TargetID: targetID, Payload: p})
		if err != nil {
			return ids, err
		}
		ids = append(ids, n.ID)
	}
	return ids, nil
}

// emitBestEffort 业务流程里的附带通知，失败只记日志
func (s *NotificationService) emitBestEffort(ctx context.Context, req EmitRequest) {
	if s == nil {
		return
	}
	if _, err := s.Emit(ctx, req); err != nil {
		s.logger().Warn("emit notification failed",
			zap.Uint64("recipient_id", req.RecipientID),
			zap.String("type", string(req.Payload.NotificationType())),
			zap.Error(err))
	}
}

func (s *NotificationService) push(userID uint64, frame []byte) {
	if s.WsNotifier == nil || frame == nil {
		return
	}
	s.WsNotifier(userID, frame)
}

func (s *NotificationService) publish(ctx context.Context, n *models.Notification) {
	if s.Publisher == nil {
		return
	}
	ev := NotificationEvent{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		SenderID:       n.SenderID,
		Type:           n.Type,
		TargetType:     n.TargetType,
		TargetID:       n.TargetID,
		Message:        n.Message,
		Payload:        json.RawMessage(n.Payload),
		CreatedAt:      n.CreatedAt,
	}
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		s.logger().Warn("publish notification failed", zap.Uint64("notification_id", n.ID), zap.Error(err))
	}
}

// PushUnreadCount 推送当前未读数快照
func (s *NotificationService) PushUnreadCount(ctx context.Context, userID uint64) {
	if s.WsNotifier == nil {
		return
	}
	n, err := s.Notifications.CountUnread(ctx, userID)
	if err != nil {
		s.logger().Warn("count unread failed", zap.Uint64("user_id", userID), zap.Error(err))
		return
	}
	s.push(userID, message.Encode(message.FrameUnreadCount, message.UnreadCountData{UnreadCount: n}))
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, apperr.Validation("user_id is required")
	}
	return s.Notifications.CountUnread(ctx, userID)
}

// List 拉取通知（id 倒序）并附带未读数
func (s *NotificationService) List(ctx context.Context, userID uint64, unreadOnly bool, skip, limit int) (*NotificationList, error) {
	if userID == 0 {
		return nil, apperr.Validation("user_id is required")
	}
	rows, err := s.Notifications.List(ctx, userID, unreadOnly, skip, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.Notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &NotificationList{Items: make([]NotificationDTO, 0, len(rows)), UnreadCount: unread}
	for i := range rows {
		out.Items = append(out.Items, toNotificationDTO(&rows[i]))
	}
	return out, nil
}

// MarkRead 标记已读，幂等；返回实际变更条数
func (s *NotificationService) MarkRead(ctx context.Context, userID uint64, ids []uint64) (int64, error) {
	if userID == 0 {
		return 0, apperr.Validation("user_id is required")
	}
	n, err := s.Notifications.MarkRead(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.PushUnreadCount(ctx, userID)
	}
	return n, nil
}

// MarkAllRead 一条批量 UPDATE
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, apperr.Validation("user_id is required")
	}
	n, err := s.Notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.PushUnreadCount(ctx, userID)
	}
	return n, nil
}

// Delete 只能删除自己的通知，不存在视为成功
func (s *NotificationService) Delete(ctx context.Context, userID, id uint64) error {
	if userID == 0 {
		return apperr.Validation("user_id is required")
	}
	n, err := s.Notifications.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if n > 0 {
		s.PushUnreadCount(ctx, userID)
	}
	return nil
}

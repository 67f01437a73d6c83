package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cydxin/community-sdk/cons"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NotificationSubjectPrefix NATS subject 前缀，完整 subject 为 prefix + 通知类型
const NotificationSubjectPrefix = "community.notifications."

// NotificationEvent 通知落库后对外发布的事件（邮件等协作方消费）
type NotificationEvent struct {
	EventID        string                `json:"event_id"`
	NotificationID uint64                `json:"notification_id"`
	RecipientID    uint64                `json:"recipient_id"`
	SenderID       uint64                `json:"sender_id"`
	Type           cons.NotificationType `json:"type"`
	TargetType     cons.TargetKind       `json:"target_type,omitempty"`
	TargetID       uint64                `json:"target_id,omitempty"`
	Message        string                `json:"message"`
	Payload        json.RawMessage       `json:"payload,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// EventPublisher 事件总线，尽力而为
type EventPublisher interface {
	Publish(ctx context.Context, ev NotificationEvent) error
}

// NATSPublisher core NATS 发布，fire-and-forget
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: NotificationSubjectPrefix}
}

func (p *NATSPublisher) Subject(t cons.NotificationType) string {
	return p.prefix + string(t)
}

func (p *NATSPublisher) Publish(_ context.Context, ev NotificationEvent) error {
	if p == nil || p.nc == nil {
		return nil
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.Subject(ev.Type), b)
}

package models

import (
	"time"

	"github.com/cydxin/community-sdk/cons"
	"gorm.io/datatypes"
)

// Notification 用户通知
// 创建后只允许翻转 is_read；只有接收者能删除。
// Message 在创建时渲染一次，之后不再重新生成。
type Notification struct {
	ID          uint64                `gorm:"primarykey"`
	RecipientID uint64                `gorm:"not null;index:idx_recipient_read,priority:1;index:idx_recipient_created,priority:1"`
	SenderID    uint64                `gorm:"not null;index"`
	Type        cons.NotificationType `gorm:"size:40;not null;index"`
	TargetType  cons.TargetKind       `gorm:"size:16"`
	TargetID    uint64
	Message     string         `gorm:"size:500;not null"`
	Payload     datatypes.JSON `gorm:"type:json"`

	IsRead bool `gorm:"not null;default:false;index:idx_recipient_read,priority:2"`
	ReadAt *time.Time

	CreatedAt time.Time `gorm:"index:idx_recipient_created,priority:2"`
}

func (Notification) TableName() string { return prefix + "notification" }

// All 需要迁移的模型
func All() []any {
	return []any{
		&Post{},
		&Comment{},
		&Upvote{},
		&Report{},
		&Notification{},
	}
}

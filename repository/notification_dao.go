package repository

import (
	"context"
	"time"

	"github.com/cydxin/community-sdk/models"
	"gorm.io/gorm"
)

// NotificationDAO 通知存储
type NotificationDAO struct {
	db *gorm.DB
}

func NewNotificationDAO(db *gorm.DB) *NotificationDAO {
	return &NotificationDAO{db: db}
}

func (dao *NotificationDAO) Create(ctx context.Context, n *models.Notification) error {
	n.IsRead = false
	return dao.db.WithContext(ctx).Create(n).Error
}

// List 按 id 倒序
func (dao *NotificationDAO) List(ctx context.Context, recipientID uint64, unreadOnly bool, skip, limit int) ([]models.Notification, error) {
	q := ListQuery{Skip: skip, Limit: limit}.normalize()
	db := dao.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}
	var out []models.Notification
	err := db.Order("id DESC").Offset(q.Skip).Limit(q.Limit).Find(&out).Error
	return out, err
}

func (dao *NotificationDAO) CountUnread(ctx context.Context, recipientID uint64) (int64, error) {
	var n int64
	err := dao.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

func (dao *NotificationDAO) MarkRead(ctx context.Context, recipientID uint64, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now()
	res := dao.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND id IN ? AND is_read = ?", recipientID, ids, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": &now})
	return res.RowsAffected, res.Error
}

func (dao *NotificationDAO) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	now := time.Now()
	res := dao.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": &now})
	return res.RowsAffected, res.Error
}

func (dao *NotificationDAO) Delete(ctx context.Context, recipientID, id uint64) (int64, error) {
	res := dao.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

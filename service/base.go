package service

import (
	"github.com/cydxin/community-sdk/repository"
	"github.com/cydxin/community-sdk/toxicity"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 基础服务，包含存储、外部依赖和跨服务引用
type Service struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	Threads       repository.ThreadRepository
	Reports       repository.ReportRepository
	Notifications repository.NotificationRepository

	// WsNotifier 用于发送 WebSocket 帧的回调函数
	// 避免循环依赖，通过函数注入的方式
	WsNotifier func(userID uint64, message []byte)

	// Oracle 毒性评分（失败放行），为 nil 时所有内容视为干净
	Oracle *toxicity.Adapter

	// Publisher 通知事件总线（邮件等外部协作方订阅），可选
	Publisher EventPublisher

	Log *zap.Logger

	// Notify 通知服务（统一落库 + WS 推送 + HTTP 拉取）
	Notify *NotificationService

	// Moderation 审核状态机
	Moderation *ModerationService
}

func (s *Service) logger() *zap.Logger {
	if s == nil || s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// NewServices 按依赖顺序组装全部服务
func NewServices(base *Service) (*ThreadService, *ReportService) {
	base.Notify = NewNotificationService(base)
	base.Moderation = NewModerationService(base)
	return NewThreadService(base), NewReportService(base)
}

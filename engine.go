package community_sdk

import (
	"sync"
	"time"

	"github.com/cydxin/community-sdk/middleware"
	"github.com/cydxin/community-sdk/models"
	"github.com/cydxin/community-sdk/repository"
	"github.com/cydxin/community-sdk/service"
	"github.com/cydxin/community-sdk/toxicity"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultOracleCacheTTL  = 10 * time.Minute
	defaultOracleCacheSize = 4096
)

type CommunityEngine struct {
	config *Config
	log    *zap.Logger

	ThreadService       *service.ThreadService
	ReportService       *service.ReportService
	ModerationService   *service.ModerationService
	NotificationService *service.NotificationService
	AuthService         *service.AuthService // 鉴权服务
	WsServer            *WsServer
}

var (
	Instance *CommunityEngine
	once     sync.Once
)

// NewEngine 创建全局单例
// 使用选项模式传入配置，Option回调
func NewEngine(opts ...Option) *CommunityEngine {
	once.Do(func() {
		Instance = New(opts...)
	})
	return Instance
}

// New 创建独立实例（测试或多租户场景）
func New(opts ...Option) *CommunityEngine {
	c := &Config{
		TablePrefix: "cm_", // Default
	}
	for _, opt := range opts {
		opt(c)
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	models.SetTablePrefix(c.TablePrefix)

	e := &CommunityEngine{config: c, log: log}

	// 初始化 WS
	e.WsServer = NewWsServer(log)

	// 初始化基础 Service，注入 WsNotifier 回调
	baseService := &service.Service{
		DB:          c.DB,
		RDB:         c.RDB,
		TablePrefix: c.TablePrefix,
		WsNotifier:  e.WsServer.SendToUser, // 注入 WebSocket 通知函数
		Oracle:      e.newOracle(),
		Publisher:   c.Publisher,
		Log:         log,
	}
	if c.DB != nil {
		db := c.DB
		if c.Service.Debug {
			db = db.Debug()
		}
		baseService.Threads = repository.NewThreadDAO(db)
		baseService.Reports = repository.NewReportDAO(db)
		baseService.Notifications = repository.NewNotificationDAO(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		baseService.Threads = repository.NewMemoryThreadStore()
		baseService.Reports = repository.NewMemoryReportStore()
		baseService.Notifications = repository.NewMemoryNotificationStore()
	}

	e.ThreadService, e.ReportService = service.NewServices(baseService)
	e.ModerationService = baseService.Moderation
	e.NotificationService = baseService.Notify
	for kind, h := range c.TargetHandlers {
		e.ModerationService.Register(kind, h)
	}

	if c.IdentityResolver != nil {
		e.AuthService = service.NewAuthServiceWithResolver(c.IdentityResolver)
	} else {
		e.AuthService = service.NewAuthService(c.RDB)
	}

	// 迁移表
	if err := e.AutoMigrate(); err != nil {
		log.Error("AutoMigrate failed", zap.Error(err))
	}

	e.bindWsHandlers()
	return e
}

func (e *CommunityEngine) newOracle() *toxicity.Adapter {
	c := e.config
	if c.Oracle.Classifier == nil {
		return nil
	}
	ttl := c.Oracle.CacheTTL
	if ttl <= 0 {
		ttl = defaultOracleCacheTTL
	}
	opts := []toxicity.AdapterOption{
		toxicity.WithTimeout(c.Oracle.Timeout),
		toxicity.WithLogger(e.log),
	}
	if c.RDB != nil {
		opts = append(opts, toxicity.WithCache(toxicity.NewRedisCache(c.RDB, ttl)))
	} else {
		size := c.Oracle.CacheSize
		if size <= 0 {
			size = defaultOracleCacheSize
		}
		if lru, err := toxicity.NewLRUCache(size, ttl); err == nil {
			opts = append(opts, toxicity.WithCache(lru))
		} else {
			e.log.Warn("oracle lru cache disabled", zap.Error(err))
		}
	}
	return toxicity.NewAdapter(c.Oracle.Classifier, opts...)
}

// AutoMigrate 只在配置了 DB 时执行
func (e *CommunityEngine) AutoMigrate() error {
	db := e.config.DB
	if db == nil {
		return nil
	}
	e.log.Info("AutoMigrate...", zap.String("table_prefix", e.config.TablePrefix))
	return db.AutoMigrate(models.All()...)
}

// GinAuthMiddleware 返回配置好的 Gin 鉴权中间件
// 使用 CommunityEngine 内部的 AuthService（Redis token 或外部 resolver）
//
// 使用示例:
//
//	engine := community_sdk.NewEngine(...)
//	r := gin.Default()
//	r.Use(engine.GinAuthMiddleware(nil)) // 使用默认配置
//	// 或允许匿名访问
//	r.Use(engine.GinAuthMiddleware(&middleware.AuthOptions{Optional: true}))
func (e *CommunityEngine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(e.AuthService, opt)
}

// Close 断开所有 WS 连接
func (e *CommunityEngine) Close() {
	e.WsServer.Close()
}

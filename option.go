package community_sdk

import (
	"time"

	"github.com/cydxin/community-sdk/cons"
	"github.com/cydxin/community-sdk/service"
	"github.com/cydxin/community-sdk/toxicity"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceConfig struct {
	Debug bool
}

// OracleConfig 毒性评分相关配置
type OracleConfig struct {
	Classifier toxicity.Classifier
	Timeout    time.Duration
	// CacheTTL 评分缓存时间，0 表示使用默认值；有 RDB 时用 Redis，否则用进程内 LRU
	CacheTTL  time.Duration
	CacheSize int
}

type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string
	Service     ServiceConfig
	Logger      *zap.Logger

	Oracle    OracleConfig
	Publisher service.EventPublisher

	// IdentityResolver 为空时使用 Redis token（需要 RDB）
	IdentityResolver service.IdentityResolver

	TargetHandlers map[cons.TargetKind]service.TargetHandler
}

type Option func(*Config)

// WithDB 不配置时使用内存存储（测试/演示）
func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithRDB(RDB *redis.Client) Option {
	return func(c *Config) {
		c.RDB = RDB
	}
}

func WithServiceDebug(debug bool) Option {
	return func(c *Config) {
		c.Service.Debug = debug
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithClassifier 配置毒性评分服务，不配置时所有内容视为干净
func WithClassifier(cl toxicity.Classifier) Option {
	return func(c *Config) {
		c.Oracle.Classifier = cl
	}
}

// WithOracleTimeout 单次评分超时，超时按失败放行处理
func WithOracleTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Oracle.Timeout = d
	}
}

// WithOracleCache 评分缓存；size 只对进程内 LRU 生效
func WithOracleCache(ttl time.Duration, size int) Option {
	return func(c *Config) {
		c.Oracle.CacheTTL = ttl
		c.Oracle.CacheSize = size
	}
}

// WithPublisher 通知事件总线（例如 service.NewNATSPublisher）
func WithPublisher(p service.EventPublisher) Option {
	return func(c *Config) {
		c.Publisher = p
	}
}

// WithIdentityResolver 外部身份解析（例如 service.NewJWTResolver）
func WithIdentityResolver(r service.IdentityResolver) Option {
	return func(c *Config) {
		c.IdentityResolver = r
	}
}

// WithTargetHandler 注册额外的审核目标（例如 project）
func WithTargetHandler(kind cons.TargetKind, h service.TargetHandler) Option {
	return func(c *Config) {
		if c.TargetHandlers == nil {
			c.TargetHandlers = make(map[cons.TargetKind]service.TargetHandler)
		}
		c.TargetHandlers[kind] = h
	}
}

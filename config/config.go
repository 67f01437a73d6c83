// Package config 从环境变量读取运行配置，并提供 DB / Redis / NATS 的打开方法
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type HTTPConfig struct {
	Addr string
}

type DBConfig struct {
	Driver string
	DSN    string
}

type ToxicityConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type AppConfig struct {
	LogLevel    string
	TablePrefix string
	JWTSecret   string
	RedisURL    string
	NATSURL     string
	HTTP        HTTPConfig
	DB          DBConfig
	Toxicity    ToxicityConfig
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Load 读取环境变量；godotenv 由调用方在之前加载
func Load() (AppConfig, error) {
	cfg := AppConfig{
		LogLevel:    env("LOG_LEVEL"),
		TablePrefix: env("TABLE_PREFIX"),
		JWTSecret:   env("JWT_SECRET"),
		RedisURL:    env("REDIS_URL"),
		NATSURL:     env("NATS_URL"),
		HTTP: HTTPConfig{
			Addr: env("HTTP_ADDR"),
		},
		DB: DBConfig{
			Driver: strings.ToLower(env("DB_DRIVER")),
			DSN:    env("DATABASE_URL"),
		},
		Toxicity: ToxicityConfig{
			URL:    env("TOXICITY_URL"),
			APIKey: env("TOXICITY_API_KEY"),
		},
	}
	if cfg.DB.DSN == "" {
		return AppConfig{}, errors.New("DATABASE_URL is required")
	}
	switch cfg.DB.Driver {
	case "":
		cfg.DB.Driver = DriverMySQL
	case DriverMySQL, DriverPostgres:
	default:
		return AppConfig{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	if raw := env("TOXICITY_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return AppConfig{}, fmt.Errorf("invalid TOXICITY_TIMEOUT: %w", err)
		}
		cfg.Toxicity.Timeout = d
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = "cm_"
	}
	return cfg, nil
}

// OpenDB 按 driver 打开 gorm 连接
func OpenDB(c DBConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Driver {
	case DriverPostgres:
		dialector = postgres.Open(c.DSN)
	case DriverMySQL, "":
		dialector = mysql.Open(c.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", c.Driver)
	}

	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Driver, err)
	}
	return db, nil
}

// OpenRedis url 为空时返回 nil（token 存储和评分缓存都可选）
func OpenRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// OpenNATS url 为空时返回 nil，此时不发布通知事件
func OpenNATS(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url, nats.Name("community-sdk"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

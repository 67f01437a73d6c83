package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	community_sdk "github.com/cydxin/community-sdk"
	"github.com/cydxin/community-sdk/config"
	"github.com/cydxin/community-sdk/logging"
	"github.com/cydxin/community-sdk/service"
	"github.com/cydxin/community-sdk/toxicity"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. 读取 .env（不存在时直接用进程环境变量）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	// 2. 初始化数据库 / Redis / NATS
	db, err := config.OpenDB(cfg.DB, cfg.LogLevel == "debug")
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	rdb, err := config.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("Redis 配置错误", zap.Error(err))
	}
	nc, err := config.OpenNATS(cfg.NATSURL)
	if err != nil {
		log.Warn("NATS 连接失败，通知事件不会发布", zap.Error(err))
	}
	if nc != nil {
		defer nc.Close()
	}

	opts := []community_sdk.Option{
		community_sdk.WithDB(db),
		community_sdk.WithRDB(rdb),
		community_sdk.WithTablePrefix(cfg.TablePrefix),
		community_sdk.WithLogger(log),
		community_sdk.WithServiceDebug(cfg.LogLevel == "debug"),
		community_sdk.WithPublisher(service.NewNATSPublisher(nc)),
	}
	if cfg.Toxicity.URL != "" {
		opts = append(opts,
			community_sdk.WithClassifier(toxicity.NewHTTPClassifier(cfg.Toxicity.URL, cfg.Toxicity.APIKey)),
			community_sdk.WithOracleTimeout(cfg.Toxicity.Timeout),
		)
	}
	// 有 JWT_SECRET 时由外部认证服务签发 JWT，否则用 Redis token
	if cfg.JWTSecret != "" {
		opts = append(opts, community_sdk.WithIdentityResolver(service.NewJWTResolver(cfg.JWTSecret, "")))
	}

	// 3. 初始化 Engine（单例模式，全局只需调用一次）
	engine := community_sdk.NewEngine(opts...)
	defer engine.Close()

	// 4. 路由
	r := gin.New()
	r.Use(gin.Recovery())
	community_sdk.RegisterSwagger(r, "/swagger/*any", "")
	engine.RegisterRoutes(r)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	go func() {
		log.Info("Community Server 启动", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 5. 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
}

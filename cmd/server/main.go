// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"agent-chat-go/internal/config"
	"agent-chat-go/internal/repository"
	"agent-chat-go/internal/server"
	"agent-chat-go/internal/service"
	"agent-chat-go/pkg/agent"
	"agent-chat-go/pkg/database"
	"agent-chat-go/pkg/events"
	"agent-chat-go/pkg/kafka"
	"agent-chat-go/pkg/llm"
	"agent-chat-go/pkg/log"
	"agent-chat-go/pkg/oauth"
	"agent-chat-go/pkg/token"
)

const insecureDefaultSecret = "change-me-in-prod"

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "./configs/config.yaml"), "path to the YAML config file")
	flag.Parse()

	// .env 是可选的，本地开发时用来注入 JWT_SECRET / CLIENT_ID 等
	_ = godotenv.Load()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		// logger 尚未初始化
		log.Init("info", "console", "")
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")
	if cfg.JWT.Secret == insecureDefaultSecret {
		log.Warnf("jwt.secret is the built-in default; set JWT_SECRET before exposing this server")
	}

	// 3. 初始化数据库和 Redis
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	rdb, err := database.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatalf("Redis 连接失败: %v", err)
	}
	defer rdb.Close()

	var publisher events.Publisher = events.Discard
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		queued := events.NewAsync(producer, 1024, 10*time.Second)
		// queue drains before the writer flushes
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error("关闭 Kafka 生产者失败", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := queued.Close(ctx); err != nil {
				log.Error("事件队列未能在停机前清空", err)
			}
		}()
		publisher = queued
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	memory := repository.NewMemoryRepository(rdb, cfg.Agent.HistoryLimit, cfg.Agent.HistoryTTL)

	// 5. 初始化 Service (依赖注入)
	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.TTL())
	oauthClient := oauth.NewClient(cfg.OAuth)
	llmClient := llm.NewClient(cfg.LLM, &http.Client{Timeout: cfg.Agent.Timeout})
	chatAgent := agent.NewMemoryAgent(llmClient, memory, cfg.Agent.SystemPrompt)

	authService := service.NewAuthService(userRepo, tokens, oauthClient)
	chatService := service.NewChatService(chatRepo, messageRepo, chatAgent, publisher)
	turnService := service.NewTurnService(chatRepo, messageRepo, chatAgent, publisher, cfg.Chat, cfg.Agent.Timeout)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := server.NewRouter(server.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthService:    authService,
		ChatService:    chatService,
		TurnService:    turnService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}
	log.Info("服务已优雅关闭")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

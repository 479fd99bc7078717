// Package main 是服务端的入口点
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mingling-server/internal/affection"
	"mingling-server/internal/cache"
	"mingling-server/internal/config"
	"mingling-server/internal/database"
	"mingling-server/internal/handler"
	"mingling-server/internal/llm"
	"mingling-server/internal/middleware"
	"mingling-server/internal/repository"
	"mingling-server/internal/service"
	"mingling-server/internal/websocket"
	"mingling-server/pkg/jwt"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 本地开发时从 .env 读取环境变量，文件不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// 初始化数据库
	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	db, err := database.Open(startCtx, cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	// 自动迁移数据库表
	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	// 初始化 Redis，不可用时降级运行：不做对话锁，登出不可用
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		slog.Warn("redis unavailable, running without token blacklist and chat lock", "error", err)
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// 初始化 JWT 服务
	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpire,
		cfg.JWT.RefreshExpire,
	)

	// 初始化大模型客户端和好感度分析器
	llmClient, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.RequestTimeout,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		return err
	}
	analyzer := affection.NewAnalyzer(llmClient, affection.AnalyzerConfig{
		Model:       cfg.LLM.AnalysisModel,
		MaxTokens:   cfg.LLM.AnalysisMaxTokens,
		Temperature: cfg.LLM.AnalysisTemperature,
	})

	// 初始化 Repository 层
	store := repository.NewStore(db)

	// 初始化 Service 层
	// 注意 nil 指针不能直接赋给接口
	var locker service.PairLocker
	if redisCache != nil {
		locker = redisCache
	}
	relationshipService := service.NewRelationshipService(store)
	chatService := service.NewChatService(store, relationshipService, llmClient, analyzer, locker, service.ChatOptionsFromConfig(cfg))

	// 初始化 WebSocket Hub，随进程退出关闭
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := websocket.NewHub()
	go wsHub.Run(hubCtx)
	chatService.SetNotifier(wsHub)

	// 初始化 Handler 层
	handlers := &handler.Handlers{
		Auth:      handler.NewAuthHandler(service.NewAuthService(store, redisCache, jwtService)),
		User:      handler.NewUserHandler(service.NewUserService(store.Users)),
		Character: handler.NewCharacterHandler(service.NewCharacterService(store)),
		Persona:   handler.NewPersonaHandler(service.NewPersonaService(store)),
		Chat:      handler.NewChatHandler(chatService),
		Health:    handler.NewHealthHandler(db, redisCache),
	}
	wsHandler := websocket.NewHandler(wsHub, jwtService, redisCache, cfg.Server.CORS)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 全局中间件
	router.Use(middleware.RequestIDMiddleware())                                            // 请求 ID
	router.Use(middleware.LoggerMiddleware(logger))                                         // 请求日志
	router.Use(middleware.RecoveryMiddleware(logger))                                       // 恢复 panic
	router.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.Server.CORS...))) // CORS

	// 注册路由
	handler.RegisterRoutes(router, handlers, jwtService, redisCache)
	wsHandler.RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 在 goroutine 中启动服务器
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr, "mode", cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopHub()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server exited")
	return nil
}

// newLogger 根据日志配置创建 slog.Logger
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

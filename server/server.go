package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MeetScribe/config"
	"MeetScribe/core/audio"
	"MeetScribe/core/auth"
	"MeetScribe/core/meeting"
	"MeetScribe/core/summarize"
	"MeetScribe/core/transcribe"
	"MeetScribe/db"
	"MeetScribe/logger"
	"MeetScribe/model"
	"MeetScribe/repository"
	"MeetScribe/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100, // MB
		MaxBackups: 7,
		MaxAge:     30, // days
		Compress:   true,
	})

	// 设置服务器超时
	// 转录/摘要在请求内同步完成，写超时必须覆盖外部AI调用的耗时
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 360 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database with GORM: %v", err)
	}
	defer db.CloseGormDB()

	// Connect to Redis. 缓存属于优化层，连接失败只降级不退出。
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("[Server] Redis 连接失败，会议列表缓存不可用", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		log.Println("Successfully connected to Redis")
	}

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.AutoMigrateModels(&model.Meeting{}, &model.Transcript{}, &model.Summary{}); err != nil {
		log.Fatalf("Failed to migrate meeting models: %v", err)
	}

	auth.Init(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)

	// 组装依赖
	prober := audio.NewFFProbeProber(cfg.FFprobePath)
	transcriber := transcribe.NewOpenAIClient(&transcribe.Config{
		APIBaseURL: cfg.AIBaseURL,
		APIKey:     cfg.AIAPIKey,
		Model:      cfg.TranscriptionModel,
	})
	summarizer := summarize.NewOpenAIClient(&summarize.Config{
		APIBaseURL:  cfg.AIBaseURL,
		APIKey:      cfg.AIAPIKey,
		Model:       cfg.ChatModel,
		MaxTokens:   2048,
		Temperature: 0.3,
	})

	audioStore := storage.NewAudioStore(storage.GetMinioClient(), cfg)
	userRepo := repository.NewMySQLUserRepository(db.DB)
	meetingRepo := repository.NewGormMeetingRepository(db.GormDB)

	lifecycle := meeting.NewLifecycle(
		meetingRepo,
		audioStore,
		prober,
		transcriber,
		summarizer,
		time.Duration(cfg.SignedURLTTLMinutes)*time.Minute,
	)

	// 初始化处理器
	apiHandler := NewAPIHandler(lifecycle, userRepo, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// 会议相关的API端点
	router.HandleFunc("/api/meetings", apiHandler.AuthMiddleware(apiHandler.ListMeetingsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/meetings/upload", apiHandler.AuthMiddleware(apiHandler.UploadMeetingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/meetings/{id}", apiHandler.AuthMiddleware(apiHandler.GetMeetingHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/meetings/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteMeetingHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/meetings/{id}/transcribe", apiHandler.AuthMiddleware(apiHandler.TranscribeMeetingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/meetings/{id}/summarize", apiHandler.AuthMiddleware(apiHandler.SummarizeMeetingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/meetings/{id}/export", apiHandler.AuthMiddleware(apiHandler.ExportMeetingHandler)).Methods(http.MethodGet)

	// 音频下载签名URL
	router.HandleFunc("/api/storage/signed-url", apiHandler.AuthMiddleware(apiHandler.SignedURLHandler)).Methods(http.MethodPost)

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		log.Printf("Server starting on %s...", cfg.ServerAddr)
		log.Println("Upload meetings via POST to /api/meetings/upload")
		log.Println("List meetings via GET from /api/meetings")
		log.Println("Trigger processing via /api/meetings/{id}/transcribe and /summarize")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	<-stop
	log.Println("Shutting down server...")

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

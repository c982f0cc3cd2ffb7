package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rabbithole/cache"
	"rabbithole/config"
	"rabbithole/core/auth"
	"rabbithole/core/catalog"
	"rabbithole/core/wiki"
	"rabbithole/db"
	"rabbithole/logger"
	"rabbithole/repository"
	"rabbithole/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	// 设置服务器超时
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Connect to the database
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Connect to Redis
	if err := cache.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.CloseRedis()
	log.Println("Successfully connected to Redis")

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	songRepo := repository.NewGormSongRepository(db.DB)
	userRepo := repository.NewGormUserRepository(db.DB)

	wikiClient := wiki.NewClient(cfg.WikiAPIURL)
	wikiClient.SetTimeout(cfg.WikiTimeout)
	wikiCache := cache.NewWikiCache(cfg.WikiCacheTTL)
	provider := catalog.NewProvider(songRepo, wikiClient, wikiCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 本地曲库目录监听（可选）
	if cfg.CatalogWatchDir != "" {
		watcher := catalog.NewWatcher(cfg.CatalogWatchDir, songRepo)
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("catalog watcher stopped", logger.ErrorField(err))
			}
		}()
	}

	// 初始化处理器
	apiHandler := NewAPIHandler(songRepo, userRepo, provider, cfg)

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
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// 曲库相关的API端点
	router.HandleFunc("/api/songs", apiHandler.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/search", apiHandler.SearchSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{slug}", apiHandler.GetSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/musicians/{musician}/connections", apiHandler.GetConnectionsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/catalog/sync", apiHandler.AuthMiddleware(apiHandler.SyncCatalogHandler)).Methods(http.MethodPost)

	// 发现模式相关的API端点
	router.HandleFunc("/api/discovery", apiHandler.AuthMiddleware(apiHandler.GetDiscoveryHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/discovery/follow", apiHandler.AuthMiddleware(apiHandler.FollowMusicianHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/discovery/next", apiHandler.AuthMiddleware(apiHandler.NextSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/discovery/back", apiHandler.AuthMiddleware(apiHandler.GoBackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/discovery/playable/{slug}", apiHandler.AuthMiddleware(apiHandler.PlayableHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player/load/{slug}", apiHandler.AuthMiddleware(apiHandler.LoadSongHandler)).Methods(http.MethodPost)

	// 舞台快照推送
	router.HandleFunc("/ws/stage", apiHandler.StageFeedHandler)

	// 添加MinIO文件服务路由
	router.PathPrefix("/static/").HandlerFunc(apiHandler.StaticHandler)

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		log.Printf("Server starting on :%s...", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	<-stop
	log.Println("Shutting down server...")
	cancel()

	// 创建一个5秒超时的上下文
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// 优雅关闭服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

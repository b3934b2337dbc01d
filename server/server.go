package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Bside/config"
	"Bside/core/auth"
	"Bside/core/ingest"
	"Bside/core/metadata"
	"Bside/db"
	"Bside/logger"
	"Bside/model"
	"Bside/repository"
	"Bside/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.InitJWT(cfg.JWTSecret, cfg.TokenExpiresIn)

	// 对象存储
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	// 数据库
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.Artist{}, &model.Release{}); err != nil {
		logger.Fatal("Failed to migrate models", logger.ErrorField(err))
	}

	// Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	// 仓储
	userRepo := repository.NewMySQLUserRepository(db.DB)
	trackRepo := repository.NewMySQLTrackRepository()
	artistRepo := repository.NewGormArtistRepository(db.GormDB)
	releaseRepo := repository.NewGormReleaseRepository(db.GormDB)

	// 摄取流水线的四个协作方
	pipeline := &ingest.Pipeline{
		Extractor: metadata.NewClient(cfg.ExtractorURL, cfg.ExtractorTimeout),
		Issuer:    storage.NewPresignIssuer(cfg.MinioBucket, cfg.CDNBaseURL, cfg.PresignExpiry),
		Uploader:  ingest.NewHTTPUploader(cfg.UploadTimeout),
		Committer: NewTrackCommitService(releaseRepo, trackRepo),
	}

	batches := ingest.NewManager(cfg.IngestSessionTTL)
	defer batches.Close()

	apiHandler := NewAPIHandler(userRepo, artistRepo, releaseRepo, trackRepo, pipeline, batches, cfg)

	router := mux.NewRouter()

	// CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// 公开目录
	router.HandleFunc("/api/catalog", apiHandler.CatalogHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/catalog/{id}", apiHandler.GetReleaseHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/catalog/{id}/tracks", apiHandler.GetReleaseTracksHandler).Methods(http.MethodGet)

	// 艺人管理
	router.HandleFunc("/api/artists", apiHandler.AuthMiddleware(apiHandler.ListArtistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/artists", apiHandler.AuthMiddleware(apiHandler.CreateArtistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/artists/{id}", apiHandler.AuthMiddleware(apiHandler.GetArtistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/artists/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateArtistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/artists/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteArtistHandler)).Methods(http.MethodDelete)

	// 发行管理
	router.HandleFunc("/api/releases", apiHandler.AuthMiddleware(apiHandler.ListReleasesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/releases", apiHandler.AuthMiddleware(apiHandler.CreateReleaseHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/releases/{id}", apiHandler.AuthMiddleware(apiHandler.GetReleaseHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/releases/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateReleaseHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/releases/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteReleaseHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/releases/{id}/publish", apiHandler.AuthMiddleware(apiHandler.SetReleasePublishedHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/releases/{id}/tracks", apiHandler.AuthMiddleware(apiHandler.GetReleaseTracksHandler)).Methods(http.MethodGet)

	// 曲目
	router.HandleFunc("/api/tracks/batch", apiHandler.AuthMiddleware(apiHandler.BatchCreateTracksHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.GetTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)

	// 摄取会话
	router.HandleFunc("/api/ingest/presign", apiHandler.AuthMiddleware(apiHandler.PresignUploadsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/ingest/sessions", apiHandler.AuthMiddleware(apiHandler.CreateIngestSessionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/ingest/sessions/{id}", apiHandler.AuthMiddleware(apiHandler.GetIngestSessionHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/ingest/sessions/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteIngestSessionHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/ingest/sessions/{id}/files", apiHandler.AuthMiddleware(apiHandler.AddIngestFilesHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/ingest/sessions/{id}/tracks", apiHandler.AuthMiddleware(apiHandler.ClearIngestTracksHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/ingest/sessions/{id}/tracks/{localId}", apiHandler.AuthMiddleware(apiHandler.EditIngestTrackHandler)).Methods(http.MethodPatch)
	router.HandleFunc("/api/ingest/sessions/{id}/tracks/{localId}", apiHandler.AuthMiddleware(apiHandler.RemoveIngestTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/ingest/sessions/{id}/run", apiHandler.AuthMiddleware(apiHandler.RunIngestSessionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/ws/ingest/{id}", apiHandler.IngestProgressWSHandler)

	// 状态
	router.HandleFunc("/api/status", apiHandler.StatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/status/ingest", apiHandler.AuthMiddleware(apiHandler.IngestStatusHandler)).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // 运行接口同步等完一次批量上传
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

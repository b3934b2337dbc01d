package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Bside/config"
	"Bside/core/ingest"
	"Bside/core/metadata"
	"Bside/db"
	"Bside/logger"
	"Bside/repository"
	"Bside/server"
	"Bside/storage"

	"github.com/spf13/cobra"
)

var (
	ingestDir     string
	ingestSettle  time.Duration
	ingestPublish bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "监听投递目录并自动摄取",
	Long: `监听本地投递目录，新落盘的音频文件在静默窗口后自动批量
走完整条摄取流水线：元数据提取、直传对象存储、落库建档。`,
	Run: func(cmd *cobra.Command, args []string) {
		if ingestDir == "" {
			log.Fatal("必须通过 --dir 指定投递目录")
		}

		cfg := config.Load()

		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		})

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接到数据库: %v", err)
		}
		defer db.DB.Close()

		if err := db.InitDB(); err != nil {
			log.Fatalf("初始化数据库失败: %v", err)
		}

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("无法连接GORM: %v", err)
		}
		defer db.CloseGormDB()

		trackRepo := repository.NewMySQLTrackRepository()
		releaseRepo := repository.NewGormReleaseRepository(db.GormDB)

		pipeline := &ingest.Pipeline{
			Extractor: metadata.NewClient(cfg.ExtractorURL, cfg.ExtractorTimeout),
			Issuer:    storage.NewPresignIssuer(cfg.MinioBucket, cfg.CDNBaseURL, cfg.PresignExpiry),
			Uploader:  ingest.NewHTTPUploader(cfg.UploadTimeout),
			Committer: server.NewTrackCommitService(releaseRepo, trackRepo),
		}

		opts := ingest.Options{
			AutoMatchOrCreateRelease: true,
			PublishOnCreate:          ingestPublish,
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-stop
			logger.Info("收到退出信号，停止目录监听")
			cancel()
		}()

		logger.Info("开始监听投递目录",
			logger.String("dir", ingestDir),
			logger.Duration("settle", ingestSettle),
		)

		if err := pipeline.WatchDir(ctx, ingestDir, opts, ingestSettle); err != nil && ctx.Err() == nil {
			log.Fatalf("目录监听失败: %v", err)
		}
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "投递目录路径")
	ingestCmd.Flags().DurationVar(&ingestSettle, "settle", 5*time.Second, "文件落盘静默窗口")
	ingestCmd.Flags().BoolVar(&ingestPublish, "publish", false, "自动创建的发行直接发布")
	rootCmd.AddCommand(ingestCmd)
}

package cmd

import (
	"fmt"
	"log"

	"Bside/config"
	"Bside/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioRecursive bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶检查",
	Long:  `查看MinIO存储桶中已上传的音频文件，支持前缀过滤和统计信息。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		objects, stats, err := storage.ListBucketObjects(cfg.MinioBucket, minioPrefix, minioRecursive)
		if err != nil {
			log.Fatalf("列出对象失败: %v", err)
		}

		for _, obj := range objects {
			fmt.Printf("%-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
		}

		fmt.Printf("\n共 %d 个对象，总大小 %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("最近更新: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "对象前缀过滤")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "递归列出所有层级")
	rootCmd.AddCommand(minioCmd)
}

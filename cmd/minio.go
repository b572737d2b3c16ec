package cmd

import (
	"fmt"
	"log"

	"MeetScribe/config"
	"MeetScribe/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看MinIO存储桶中的会议音频文件，支持按用户前缀过滤和查看统计信息。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		if minioStats {
			fmt.Println("\n获取存储桶统计信息...")
			_, stats, err := storage.ListBucketObjects(cfg, minioPrefix, true)
			if err != nil {
				log.Fatalf("获取存储桶统计信息失败: %v", err)
			}
			fmt.Printf("对象数量: %d\n", stats.TotalObjects)
			fmt.Printf("总大小: %.2f MB\n", float64(stats.TotalSize)/1024/1024)
		} else {
			fmt.Printf("\n列出存储桶中的文件 (前缀: %s)...\n", minioPrefix)
			if err := storage.PrintBucketStatus(cfg, minioPrefix); err != nil {
				log.Fatalf("列出文件失败: %v", err)
			}
		}

		fmt.Println("\nMinIO操作完成！")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件（如用户ID目录 \"42/\"）")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")

	minioCmd.Example = `  # 列出所有音频文件
  meetscribe minio

  # 按用户前缀过滤
  meetscribe minio -p "42/"

  # 显示存储桶统计信息
  meetscribe minio -s`
}

package cmd

import (
	"fmt"
	"time"

	"musicshare/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete string
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理MinIO存储桶中的媒体文件：列出文件、查看统计信息、删除单个文件。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.MediaEnabled() {
			return fmt.Errorf("MINIO_ENDPOINT is not set")
		}
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}

		if minioDelete != "" {
			if err := store.Remove(cmd.Context(), minioDelete); err != nil {
				return err
			}
			fmt.Printf("已删除: %s\n", minioDelete)
			return nil
		}

		objects, err := store.List(cmd.Context(), minioPrefix)
		if err != nil {
			return err
		}

		if minioStats {
			stats := storage.Stats(objects)
			fmt.Printf("\n=== 存储桶统计信息 ===\n")
			fmt.Printf("对象总数: %d\n", stats.TotalObjects)
			fmt.Printf("总大小: %s\n", humanize.Bytes(uint64(stats.TotalSize)))
			if !stats.LastModified.IsZero() {
				fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
			}
			return nil
		}

		for _, obj := range objects {
			fmt.Printf("%-60s %10s  %s\n", obj.Key, humanize.Bytes(uint64(obj.Size)), humanize.Time(obj.LastModified))
		}
		fmt.Printf("\n%d objects\n", len(objects))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件, e.g. audio/ or img/")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().StringVarP(&minioDelete, "delete", "d", "", "删除指定的对象 key")

	minioCmd.Example = `  # 列出所有文件
  musicshare minio

  # 只列出音频
  musicshare minio -p audio/

  # 显示存储桶统计信息
  musicshare minio -s

  # 删除一个对象
  musicshare minio -d img/old-cover.png`
}

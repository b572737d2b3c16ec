package storage

import (
	"context"
	"fmt"
	"time"

	"MeetScribe/config"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// ListBucketObjects 列出存储桶中的对象
func ListBucketObjects(cfg *config.Config, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	client := GetMinioClient()
	if client == nil {
		return nil, nil, fmt.Errorf("MinIO 客户端未初始化")
	}

	ctx := context.Background()
	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %v", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}

		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}

	return objects, stats, nil
}

// PrintBucketStatus 打印存储桶状态
func PrintBucketStatus(cfg *config.Config, prefix string) error {
	objects, stats, err := ListBucketObjects(cfg, prefix, true)
	if err != nil {
		return err
	}

	fmt.Printf("存储桶信息:\n")
	fmt.Printf("名称: %s\n", cfg.MinioBucket)
	fmt.Printf("总大小: %.2f MB\n", float64(stats.TotalSize)/1024/1024)
	fmt.Printf("对象数量: %d\n", stats.TotalObjects)
	if !stats.LastModified.IsZero() {
		fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
	}

	fmt.Println("\n文件列表:")
	for _, object := range objects {
		fmt.Printf("文件名: %s, 大小: %.2f MB, 最后修改时间: %s\n",
			object.Key,
			float64(object.Size)/1024/1024,
			object.LastModified.Format(time.RFC3339))
	}

	return nil
}

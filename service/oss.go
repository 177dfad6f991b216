package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/snigdhareddy482/fibo-continuity-director/config"
)

var MinioClient *minio.Client

// InitMinIO 初始化连接，在 main.go 中调用
func InitMinIO() {
	cfg := config.AppConfig.MinIO
	var err error
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatalf("MinIO 初始化失败: %v", err)
	}
	log.Println("MinIO 连接成功")
}

// UploadShotImage 上传分镜图片，云端路径 projects/<projectID>/shot_NNN.png
func UploadShotImage(projectID string, ordinal int, img []byte) (string, error) {
	objectName := fmt.Sprintf("projects/%s/shot_%03d.png", projectID, ordinal)
	return UploadBytes(bytes.NewReader(img), objectName, int64(len(img)))
}

// UploadGridExport 上传 contact sheet 网格图，云端路径 projects/<projectID>/grid.png
func UploadGridExport(projectID string, img []byte) (string, error) {
	objectName := fmt.Sprintf("projects/%s/grid.png", projectID)
	return UploadBytes(bytes.NewReader(img), objectName, int64(len(img)))
}

// UploadBytes 通用上传函数，从 io.Reader 上传到 MinIO，返回可访问的 URL
// 参数:
//   - reader: 文件数据流
//   - objectName: 云端存储路径，例如 "projects/123/shot_000.png"
//   - size: 文件大小（字节），-1 表示未知大小
func UploadBytes(reader io.Reader, objectName string, size int64) (string, error) {
	ctx := context.Background()
	cfg := config.AppConfig.MinIO
	bucketName := cfg.Bucket

	// 确保 Bucket 存在
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return "", fmt.Errorf("检查 Bucket 失败: %w", err)
	}
	if !exists {
		err = MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return "", fmt.Errorf("创建 Bucket 失败: %w", err)
		}
		log.Printf("Bucket '%s' 已创建", bucketName)
	}

	// 根据文件扩展名确定 ContentType
	contentType := "application/octet-stream"
	switch filepath.Ext(objectName) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".webp":
		contentType = "image/webp"
	case ".json":
		contentType = "application/json"
	}

	// 上传文件
	_, err = MinioClient.PutObject(ctx, bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传到 MinIO 失败: %w", err)
	}

	// 生成预签名 URL（72小时有效期）
	expiry := time.Hour * 72
	reqParams := make(url.Values)

	presignedURL, err := MinioClient.PresignedGetObject(ctx, bucketName, objectName, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("生成签名 URL 失败: %w", err)
	}

	log.Printf("文件已上传: %s", objectName)
	return presignedURL.String(), nil
}

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
	"github.com/elevatr/video-processing-service/internal/models/po"
)

var (
	// ErrObjectNotFound 表示源对象不存在。
	ErrObjectNotFound = errors.New("gcs: object not found")
	// ErrStorage 表示其它存储错误（权限、网络、配额等）。
	ErrStorage = errors.New("gcs: storage operation failed")
)

// VideoStore 封装四个视频 bucket 的下载、上传、公开与搬移操作。不做内部重试。
type VideoStore struct {
	client     *storage.Client
	buckets    BucketSet
	publicHost string
	log        *log.Helper
}

// NewVideoStore 构造 VideoStore。
func NewVideoStore(client *storage.Client, cfg configloader.StorageConfig, logger log.Logger) *VideoStore {
	return &VideoStore{
		client:     client,
		buckets:    NewBucketSet(cfg),
		publicHost: cfg.PublicHost,
		log:        log.NewHelper(logger),
	}
}

// NewClient 创建 GCS 客户端，cleanup 由 Wire 在退出时调用。
func NewClient(ctx context.Context, logger log.Logger) (*storage.Client, func(), error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	helper := log.NewHelper(logger)
	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Warnf("close storage client: %v", err)
		}
	}
	return client, cleanup, nil
}

// Download 将 raw bucket 中的对象写入 localPath。失败时删除已写入的部分文件。
func (s *VideoStore) Download(ctx context.Context, objectName string, category po.Category, localPath string) (err error) {
	bucket, err := s.buckets.Bucket(category, StageRaw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	reader, err := s.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, objectName)
		}
		s.log.WithContext(ctx).Errorf("open gcs object failed: bucket=%s object=%s err=%v", bucket, objectName, err)
		return fmt.Errorf("%w: open gs://%s/%s: %v", ErrStorage, bucket, objectName, err)
	}
	defer reader.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("%w: create local file %s: %v", ErrStorage, localPath, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(localPath)
		}
	}()

	if _, copyErr := io.Copy(file, reader); copyErr != nil {
		_ = file.Close()
		s.log.WithContext(ctx).Errorf("download gcs object failed: bucket=%s object=%s err=%v", bucket, objectName, copyErr)
		return fmt.Errorf("%w: download gs://%s/%s: %v", ErrStorage, bucket, objectName, copyErr)
	}
	if closeErr := file.Close(); closeErr != nil {
		return fmt.Errorf("%w: close local file %s: %v", ErrStorage, localPath, closeErr)
	}

	s.log.WithContext(ctx).Infof("downloaded gs://%s/%s to %s", bucket, objectName, localPath)
	return nil
}

// Upload 将本地文件上传到 processed bucket 并设为公开可读。
// 上传成功而公开失败时对象会留在 bucket 中，不做补偿删除。
func (s *VideoStore) Upload(ctx context.Context, localPath, objectName string, category po.Category) error {
	bucket, err := s.buckets.Bucket(category, StageProcessed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: open local file %s: %v", ErrStorage, localPath, err)
	}
	defer file.Close()

	obj := s.client.Bucket(bucket).Object(objectName)
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentTypeFor(objectName)
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		s.log.WithContext(ctx).Errorf("upload gcs object failed: bucket=%s object=%s err=%v", bucket, objectName, err)
		return fmt.Errorf("%w: upload gs://%s/%s: %v", ErrStorage, bucket, objectName, err)
	}
	if err := writer.Close(); err != nil {
		s.log.WithContext(ctx).Errorf("finalize gcs upload failed: bucket=%s object=%s err=%v", bucket, objectName, err)
		return fmt.Errorf("%w: finalize gs://%s/%s: %v", ErrStorage, bucket, objectName, err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		s.log.WithContext(ctx).Errorf("make gcs object public failed: bucket=%s object=%s err=%v", bucket, objectName, err)
		return fmt.Errorf("%w: make public gs://%s/%s: %v", ErrStorage, bucket, objectName, err)
	}

	s.log.WithContext(ctx).Infof("published %s", PublicURL(s.publicHost, bucket, objectName))
	return nil
}

// Relocate 将 processed bucket 中的对象复制到 <prefix>/<object> 并删除原对象。
func (s *VideoStore) Relocate(ctx context.Context, objectName string, category po.Category, prefix string) error {
	bucket, err := s.buckets.Bucket(category, StageProcessed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	handle := s.client.Bucket(bucket)
	src := handle.Object(objectName)
	target := path.Join(prefix, objectName)
	dst := handle.Object(target)

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		s.log.WithContext(ctx).Errorf("copy gcs object failed: bucket=%s from=%s to=%s err=%v", bucket, objectName, target, err)
		return fmt.Errorf("%w: copy gs://%s/%s: %v", ErrStorage, bucket, objectName, err)
	}
	if err := src.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		s.log.WithContext(ctx).Errorf("delete gcs object failed: bucket=%s object=%s err=%v", bucket, objectName, err)
		return fmt.Errorf("%w: delete gs://%s/%s: %v", ErrStorage, bucket, objectName, err)
	}

	s.log.WithContext(ctx).Infof("relocated gs://%s/%s to gs://%s/%s", bucket, objectName, bucket, target)
	return nil
}

// RawBucket 返回类别对应的 raw bucket。
func (s *VideoStore) RawBucket(category po.Category) (string, error) {
	return s.buckets.Bucket(category, StageRaw)
}

// PublicURL 返回 processed 对象的公开地址。
func (s *VideoStore) PublicURL(objectName string, category po.Category) (string, error) {
	bucket, err := s.buckets.Bucket(category, StageProcessed)
	if err != nil {
		return "", err
	}
	return PublicURL(s.publicHost, bucket, objectName), nil
}

// URI 返回 processed 对象的 gs:// 地址，供内容审核使用。
func (s *VideoStore) URI(objectName string, category po.Category) (string, error) {
	bucket, err := s.buckets.Bucket(category, StageProcessed)
	if err != nil {
		return "", err
	}
	return URI(bucket, objectName), nil
}

func contentTypeFor(objectName string) string {
	switch path.Ext(objectName) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}

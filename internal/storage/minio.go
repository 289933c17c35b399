package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"portify/internal/config"
)

// MinIOHost 把图片写入 S3 兼容存储，并通过公开端点直接访问。
type MinIOHost struct {
	client     *minio.Client
	bucketName string
	publicBase string
	now        func() time.Time
}

var _ ImageHost = (*MinIOHost)(nil)

// NewMinIOHost 初始化客户端，确保 Bucket 存在；PublicRead 时为 portify/ 前缀设置匿名只读策略。
func NewMinIOHost(ctx context.Context, cfg config.MinIOConfig) (*MinIOHost, error) {
	lookup, err := parseBucketLookup(cfg.BucketLookup)
	if err != nil {
		return nil, err
	}
	publicBase, err := publicBaseURL(cfg)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	h := &MinIOHost{
		client:     client,
		bucketName: cfg.Bucket,
		publicBase: publicBase,
		now:        time.Now,
	}
	if err := h.prepareBucket(ctx, cfg); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *MinIOHost) prepareBucket(ctx context.Context, cfg config.MinIOConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := h.client.BucketExists(ctx, h.bucketName)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", h.bucketName, err)
	}
	switch {
	case exists:
	case !cfg.AutoCreateBucket:
		return fmt.Errorf("bucket %q does not exist (auto create disabled)", h.bucketName)
	default:
		if err := h.client.MakeBucket(ctx, h.bucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return fmt.Errorf("make bucket %q: %w", h.bucketName, err)
		}
	}

	if !cfg.PublicRead {
		return nil
	}
	if err := h.client.SetBucketPolicy(ctx, h.bucketName, publicReadPolicy(h.bucketName)); err != nil {
		return fmt.Errorf("set public read policy on %q: %w", h.bucketName, err)
	}
	return nil
}

// UploadImage 以 <folder>/<publicID><ext> 为对象名上传。
func (h *MinIOHost) UploadImage(ctx context.Context, up Upload) (*Image, error) {
	objectName := up.Folder + "/" + NewPublicID(up.Prefix, h.now()) + extensionFor(up.Filename, up.ContentType)
	opts := minio.PutObjectOptions{ContentType: up.ContentType}
	if _, err := h.client.PutObject(ctx, h.bucketName, objectName, up.Body, up.Size, opts); err != nil {
		return nil, fmt.Errorf("put object %q: %w", objectName, err)
	}
	u := h.publicBase + "/" + objectName
	return &Image{URL: u, PublicID: objectName, PreviewURL: u, ThumbnailURL: u}, nil
}

// DeleteImage 删除对象；对象不存在视为成功。
func (h *MinIOHost) DeleteImage(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil
	}
	if err := h.client.RemoveObject(ctx, h.bucketName, publicID, minio.RemoveObjectOptions{}); err != nil {
		if isMissingObject(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", publicID, err)
	}
	return nil
}

func parseBucketLookup(raw string) (minio.BucketLookupType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return minio.BucketLookupAuto, nil
	case "dns":
		return minio.BucketLookupDNS, nil
	case "path":
		return minio.BucketLookupPath, nil
	}
	return minio.BucketLookupAuto, fmt.Errorf("invalid minio bucket lookup %q", raw)
}

// isMissingObject 判断删除失败是否因为对象本就不存在。
func isMissingObject(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound {
		return true
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func publicBaseURL(cfg config.MinIOConfig) (string, error) {
	parsed, err := url.Parse(cfg.PublicEndpoint)
	if err != nil {
		return "", fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid minio public endpoint, host missing")
	}
	return strings.TrimRight(parsed.String(), "/") + "/" + cfg.Bucket, nil
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/portify/*"]}]}`, bucket)
}
